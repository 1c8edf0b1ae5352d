package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRejected matches any error caused by the server refusing the session
// (401/403). It is fatal to the session and never retried.
var ErrRejected = errors.New("server rejected the session")

// RejectedError carries the details of a 401/403 response.
type RejectedError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// TransientError indicates a failed round trip: network failure or a
// non-auth HTTP error status. Callers log it and keep their state.
type TransientError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// InvalidResponseError indicates a body that is not valid JSON or does not
// match the expected schema. Treated like a transient failure.
type InvalidResponseError struct {
	Op   string
	Body json.RawMessage
	Err  error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("%s: invalid response: %v", e.Op, e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// IsTransient reports whether err is recoverable by simply trying again
// later: transport failures, error statuses and malformed bodies.
func IsTransient(err error) bool {
	var te *TransientError
	var ie *InvalidResponseError
	return errors.As(err, &te) || errors.As(err, &ie)
}
