package events

import "errors"

var (
	ErrTimeout      = errors.New("events: timeout")
	ErrShuttingDown = errors.New("events: shutting down")
	// ErrOrphanEvent tags an event whose call is unknown or whose phase
	// transition is not allowed. The event is still delivered.
	ErrOrphanEvent = errors.New("events: orphan event")
)
