package horizons

import (
	"fmt"
	"time"
)

// ConnectionError reports that the HORIZONS endpoint could not be reached
// or the hostname could not be resolved.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("horizons: connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports that none of the expected prompts appeared within
// the step window. It is raised identically whether the session was waiting
// for a prompt or for the closing table marker.
type TimeoutError struct {
	Phase   Phase
	Waiting string
	Window  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("horizons: %s: no match for %s within %v", e.Phase, e.Waiting, e.Window)
}

// AmbiguousMatchError reports that HORIZONS matched the target against
// multiple bodies. Candidates carries the server's candidate list verbatim.
type AmbiguousMatchError struct {
	Target     string
	Candidates string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("horizons: ambiguous target %q", e.Target)
}

// NotFoundError reports that HORIZONS matched the target against nothing.
type NotFoundError struct {
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("horizons: no match for target %q", e.Target)
}
