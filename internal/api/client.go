package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
	"golang.org/x/oauth2"
)

// Fetch modes for the working set.
const (
	FetchPlay  = "play"  // one GET /play/{user}
	FetchSplit = "split" // GET /gamestates, then /problems or /videos
)

// Client talks to the game server. Safe for concurrent use.
type Client struct {
	baseURL   string
	userID    uint32
	http      *http.Client
	timeout   time.Duration
	fetchMode string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the transport. The bearer token is not applied to
// a client supplied this way.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request. Zero means no bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithFetchMode selects FetchPlay or FetchSplit.
func WithFetchMode(mode string) ClientOption {
	return func(c *Client) { c.fetchMode = mode }
}

// NewClient creates a client for the server at baseURL acting for userID.
// A non-empty token is sent as a bearer credential on every request.
func NewClient(ctx context.Context, baseURL string, userID uint32, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userID:    userID,
		http:      http.DefaultClient,
		fetchMode: FetchPlay,
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		c.http = oauth2.NewClient(ctx, ts)
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UserID returns the learner this client acts for.
func (c *Client) UserID() uint32 { return c.userID }

// GameState fetches the current progress of userID.
func (c *Client) GameState(ctx context.Context, userID uint32) (*GameState, error) {
	var gs GameState
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/gamestates/%d", userID), nil, GameStateSchema, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// Problem fetches one problem.
func (c *Client) Problem(ctx context.Context, id uint32) (*Problem, error) {
	var p Problem
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/problems/%d", id), nil, ProblemSchema, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Video fetches one video.
func (c *Client) Video(ctx context.Context, id uint32) (*Video, error) {
	var v Video
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/videos/%d", id), nil, VideoSchema, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Play fetches the whole working set for the client's user, using the
// configured fetch mode.
func (c *Client) Play(ctx context.Context) (*PlayData, error) {
	if c.fetchMode == FetchSplit {
		gs, err := c.GameState(ctx, c.userID)
		if err != nil {
			return nil, err
		}
		return c.Fill(ctx, &PlayData{GameState: gs})
	}

	var pd PlayData
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/play/%d", c.userID), nil, PlaySchema, &pd); err != nil {
		return nil, err
	}
	return c.Fill(ctx, &pd)
}

// Fill fetches whichever of problem or video the game state refers to but pd
// lacks. pd is returned unchanged when already complete.
func (c *Client) Fill(ctx context.Context, pd *PlayData) (*PlayData, error) {
	if pd == nil || pd.GameState == nil || pd.Complete() {
		return pd, nil
	}
	gs := pd.GameState
	out := &PlayData{GameState: gs, Problem: pd.Problem, Video: pd.Video}
	if gs.Rewarding() {
		v, err := c.Video(ctx, gs.VideoID)
		if err != nil {
			return nil, err
		}
		out.Video = v
		return out, nil
	}
	p, err := c.Problem(ctx, gs.ProblemID)
	if err != nil {
		return nil, err
	}
	out.Problem = p
	return out, nil
}

// PostEvent appends one event to the log. The returned working set is nil
// when the server acknowledges with an empty body. Servers that acknowledge
// with a bare game state get it completed with the matching problem or
// video.
func (c *Client) PostEvent(ctx context.Context, ev EventInput) (*PlayData, error) {
	op := "post " + ev.EventType
	body, err := c.do(ctx, http.MethodPost, "/events", ev, nil, nil)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) || bytes.Equal(body, []byte("{}")) {
		return nil, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &InvalidResponseError{Op: op, Body: body, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	if _, ok := probe["gamestate"]; ok {
		if err := validateResponse(op, PlaySchema, body); err != nil {
			return nil, err
		}
		var pd PlayData
		if err := json.Unmarshal(body, &pd); err != nil {
			return nil, &InvalidResponseError{Op: op, Body: body, Err: err}
		}
		return c.Fill(ctx, &pd)
	}

	if err := validateResponse(op, GameStateSchema, body); err != nil {
		return nil, err
	}
	var gs GameState
	if err := json.Unmarshal(body, &gs); err != nil {
		return nil, &InvalidResponseError{Op: op, Body: body, Err: err}
	}
	return c.Fill(ctx, &PlayData{GameState: &gs})
}

// Send posts ev and discards the acknowledgement. Used for telemetry and
// boundary events, whose replies never change the working set.
func (c *Client) Send(ctx context.Context, ev EventInput) error {
	_, err := c.do(ctx, http.MethodPost, "/events", ev, nil, nil)
	return err
}

// ListEvents returns up to limit of the most recent events for userID,
// oldest first. The server sends them newest-first; ties on timestamp are
// broken by id when the server supplies one, and by arrival order otherwise.
func (c *Client) ListEvents(ctx context.Context, userID uint32, limit int) ([]Event, error) {
	var events []Event
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d/%d", userID, limit), nil, EventsSchema, &events); err != nil {
		return nil, err
	}
	slices.Reverse(events)
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID != 0 && b.ID != 0 && a.ID < b.ID
	})
	return events, nil
}

// do performs one round trip. A nil schema skips validation; a nil out skips
// decoding. The raw body is returned for callers that decode themselves.
func (c *Client) do(ctx context.Context, method, path string, in any, schema *Schema, out any) (json.RawMessage, error) {
	op := method + " " + path

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	glog.V(2).Infof("[api] %s -> %d (%d bytes, %v)", op, resp.StatusCode, len(body), time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &RejectedError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	case resp.StatusCode >= 300:
		return nil, &TransientError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(body))}
	}

	if out == nil {
		return body, nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &InvalidResponseError{Op: op, Body: body, Err: errors.New("empty body")}
	}
	if err := validateResponse(op, schema, body); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, &InvalidResponseError{Op: op, Body: body, Err: err}
	}
	return body, nil
}

// errorMessage extracts {"error": "..."} from a failure body, falling back to
// the trimmed text.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "no body"
	}
	return msg
}
