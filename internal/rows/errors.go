package rows

import (
	"errors"
	"fmt"
)

var (
	// ErrSuperseded is returned when a fetch result was discarded because the
	// cache was cancelled, invalidated or re-sorted while it was in flight.
	// It is control flow, not a failure.
	ErrSuperseded = errors.New("row fetch superseded")
	// ErrInvalidRange is returned for negative or inverted ranges.
	ErrInvalidRange = errors.New("invalid row range")
	// ErrNoTransport is returned when the cache has no transport configured.
	ErrNoTransport = errors.New("no transport configured")
	// ErrUnknownStore is returned by transports asked for a store they do not
	// serve.
	ErrUnknownStore = errors.New("unknown store")
)

// TransportError wraps a failure reported by the transport collaborator.
type TransportError struct {
	Op    string
	Store string
	Range Range
	Err   error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "rows" {
		return fmt.Sprintf("transport %s %s %s: %v", e.Op, e.Store, e.Range, e.Err)
	}
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Store, e.Err)
}

// Unwrap exposes the underlying error.
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
