// Package config resolves mathgame settings from defaults, a JSON file,
// MATHGAME_* environment variables and command-line flags, in increasing
// priority.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/history"
)

// EnvPrefix is prepended to the upper-cased JSON key to form the environment
// variable name, e.g. MATHGAME_API_URL.
const EnvPrefix = "MATHGAME_"

// Config mirrors conf.json. Intervals are in milliseconds.
type Config struct {
	APIURL                   string `json:"api_url"`
	UserID                   uint32 `json:"user_id"`
	Token                    string `json:"token"`
	EventReportingInterval   int    `json:"event_reporting_interval"`
	DebugQuickplay           bool   `json:"debug_quickplay"`
	FetchMode                string `json:"fetch_mode"`
	ProtocolVersion          string `json:"protocol_version"`
	CompanionRefreshInterval int    `json:"companion_refresh_interval"`
	EventsLookback           int    `json:"events_lookback"`
	RequestTimeout           int    `json:"request_timeout"`

	DemoAddr   string `json:"demo_addr"`
	DemoDB     string `json:"demo_db"`
	DemoSecret string `json:"demo_secret"`
}

// Default returns a Config with every default applied.
func Default() Config {
	return Config{
		APIURL:                   "http://localhost:8080",
		EventReportingInterval:   1000,
		FetchMode:                api.FetchPlay,
		ProtocolVersion:          history.ProtocolV2.Version,
		CompanionRefreshInterval: 30000,
		EventsLookback:           history.DefaultLookback,
		DemoAddr:                 ":8080",
	}
}

// ReportingInterval is the telemetry period.
func (c Config) ReportingInterval() time.Duration {
	return time.Duration(c.EventReportingInterval) * time.Millisecond
}

// CompanionInterval is the observer refresh period.
func (c Config) CompanionInterval() time.Duration {
	return time.Duration(c.CompanionRefreshInterval) * time.Millisecond
}

// Timeout bounds each request; zero means unbounded.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// Protocol resolves ProtocolVersion.
func (c Config) Protocol() (history.Protocol, error) {
	return history.ProtocolFor(c.ProtocolVersion)
}

// DefaultPath returns $XDG_CONFIG_HOME/mathgame/conf.json.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "mathgame", "conf.json"), nil
}

// Load builds a Config from defaults, the JSON file at path and the
// environment. An empty path means DefaultPath, which may be absent; an
// explicit path must exist. A .env file in the working directory is read
// into the environment first, without overriding variables already set.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for _, f := range fields {
		v, ok := lookup(EnvPrefix + strings.ToUpper(f.key))
		if !ok || v == "" {
			continue
		}
		if err := f.set(c, v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, strings.ToUpper(f.key), err))
		}
	}
	return errors.Join(errs...)
}

// RegisterFlags adds one flag per setting, named after its JSON key with
// dashes (--api-url, --user-id, ...).
func RegisterFlags(fs *pflag.FlagSet) {
	for _, f := range fields {
		if f.boolean {
			fs.Bool(flagName(f.key), false, f.usage)
			continue
		}
		fs.String(flagName(f.key), "", f.usage)
	}
}

// ApplyFlags overrides c with every flag the user set explicitly.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var errs []error
	for _, f := range fields {
		name := flagName(f.key)
		fl := fs.Lookup(name)
		if fl == nil || !fl.Changed {
			continue
		}
		if err := f.set(c, fl.Value.String()); err != nil {
			errs = append(errs, fmt.Errorf("--%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ResolveUserID fills UserID from the token's user_id claim when unset.
// The token is not verified; the server does that.
func (c *Config) ResolveUserID() {
	if c.UserID != 0 || c.Token == "" {
		return
	}
	if id, err := UserIDFromToken(c.Token); err == nil {
		c.UserID = id
	}
}

// UserIDFromToken reads the user_id claim of a JWT without verifying it.
func UserIDFromToken(token string) (uint32, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	switch v := claims["user_id"].(type) {
	case float64:
		if v <= 0 || v > float64(^uint32(0)) {
			return 0, fmt.Errorf("user_id claim out of range: %v", v)
		}
		return uint32(v), nil
	case string:
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("user_id claim: %w", err)
		}
		return uint32(id), nil
	}
	return 0, errors.New("token has no user_id claim")
}

// Validate reports every problem with settings the client needs, at once.
func (c Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url is required"))
	}
	if c.UserID == 0 {
		errs = append(errs, errors.New("user_id is required (or a token carrying a user_id claim)"))
	}
	if c.EventReportingInterval <= 0 {
		errs = append(errs, fmt.Errorf("event_reporting_interval must be positive, got %d", c.EventReportingInterval))
	}
	if c.CompanionRefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("companion_refresh_interval must be positive, got %d", c.CompanionRefreshInterval))
	}
	if c.EventsLookback <= 0 {
		errs = append(errs, fmt.Errorf("events_lookback must be positive, got %d", c.EventsLookback))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request_timeout must not be negative, got %d", c.RequestTimeout))
	}
	if c.FetchMode != api.FetchPlay && c.FetchMode != api.FetchSplit {
		errs = append(errs, fmt.Errorf("fetch_mode must be %q or %q, got %q", api.FetchPlay, api.FetchSplit, c.FetchMode))
	}
	if _, err := c.Protocol(); err != nil {
		errs = append(errs, fmt.Errorf("protocol_version: %w", err))
	}
	return errors.Join(errs...)
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

type field struct {
	key     string
	usage   string
	boolean bool
	set     func(c *Config, v string) error
}

var fields = []field{
	{key: "api_url", usage: "Game server base URL", set: func(c *Config, v string) error {
		c.APIURL = v
		return nil
	}},
	{key: "user_id", usage: "Learner id", set: func(c *Config, v string) error {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return err
		}
		c.UserID = uint32(id)
		return nil
	}},
	{key: "token", usage: "Bearer token", set: func(c *Config, v string) error {
		c.Token = v
		return nil
	}},
	{key: "event_reporting_interval", usage: "Telemetry period in ms", set: intSetter(func(c *Config) *int { return &c.EventReportingInterval })},
	{key: "debug_quickplay", usage: "Auto-play the loop for debugging", boolean: true, set: func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.DebugQuickplay = b
		return nil
	}},
	{key: "fetch_mode", usage: "Working set fetch: play or split", set: func(c *Config, v string) error {
		c.FetchMode = v
		return nil
	}},
	{key: "protocol_version", usage: "Event log protocol version", set: func(c *Config, v string) error {
		c.ProtocolVersion = v
		return nil
	}},
	{key: "companion_refresh_interval", usage: "Companion refresh period in ms", set: intSetter(func(c *Config) *int { return &c.CompanionRefreshInterval })},
	{key: "events_lookback", usage: "Events fetched for attempt history", set: intSetter(func(c *Config) *int { return &c.EventsLookback })},
	{key: "request_timeout", usage: "Per-request timeout in ms (0 = none)", set: intSetter(func(c *Config) *int { return &c.RequestTimeout })},
	{key: "demo_addr", usage: "Demo server listen address", set: func(c *Config, v string) error {
		c.DemoAddr = v
		return nil
	}},
	{key: "demo_db", usage: "Demo server SQLite path", set: func(c *Config, v string) error {
		c.DemoDB = v
		return nil
	}},
	{key: "demo_secret", usage: "Demo server token signing secret", set: func(c *Config, v string) error {
		c.DemoSecret = v
		return nil
	}},
}

func intSetter(ptr func(c *Config) *int) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*ptr(c) = n
		return nil
	}
}
