package history

import (
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/mikeymath/mathgame/internal/api"
)

// DefaultLookback is how many of the most recent events a caller fetches
// before reconstructing. Attempts older than that are not recovered.
const DefaultLookback = 3000

// Protocol fixes the event type that marks "this problem is now on screen".
// Logs written under one protocol are read with the same protocol; a
// boundary logged under the other protocol is not recognised.
type Protocol struct {
	Version  string
	Boundary string
}

var (
	// ProtocolV1 logs selected_problem when a problem is shown.
	ProtocolV1 = Protocol{Version: "v1.0.0", Boundary: api.EventSelectedProblem}
	// ProtocolV2 logs displayed_problem when a problem is shown.
	ProtocolV2 = Protocol{Version: "v2.0.0", Boundary: api.EventDisplayedProblem}
)

// ProtocolFor resolves a semantic version ("v2", "v1.3.0", "2.0.0") to its
// protocol by major version.
func ProtocolFor(version string) (Protocol, error) {
	v := version
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return Protocol{}, fmt.Errorf("invalid protocol version %q", version)
	}
	switch semver.Major(v) {
	case "v1":
		return ProtocolV1, nil
	case "v2":
		return ProtocolV2, nil
	}
	return Protocol{}, fmt.Errorf("unsupported protocol version %q", version)
}

func (p Protocol) String() string {
	return fmt.Sprintf("%s (%s)", p.Version, p.Boundary)
}
