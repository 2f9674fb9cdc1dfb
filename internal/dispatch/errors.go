package dispatch

import (
	"errors"
	"fmt"

	"github.com/joegen/opalvoip-opal/internal/calls"
	"github.com/joegen/opalvoip-opal/internal/message"
)

var (
	ErrStaleToken   = errors.New("dispatch: stale call token")
	ErrRejected     = errors.New("dispatch: rejected by connection manager")
	ErrCapacity     = errors.New("dispatch: call capacity reached")
	ErrShuttingDown = errors.New("dispatch: shutting down")
)

// Err maps a CommandError response back to the package sentinels so callers
// can use errors.Is. It returns nil for any other envelope.
func Err(resp message.Envelope) error {
	ce, ok := resp.Payload.(message.CommandError)
	if !ok || !resp.IsError() {
		return nil
	}
	var base error
	switch ce.Code {
	case message.CodeInvalidPayload:
		base = message.ErrInvalidPayload
	case message.CodeStaleToken:
		base = ErrStaleToken
	case message.CodeDuplicateToken:
		base = calls.ErrDuplicateToken
	case message.CodeRejected:
		base = ErrRejected
	case message.CodeShuttingDown:
		base = ErrShuttingDown
	case message.CodeCapacity:
		base = ErrCapacity
	default:
		return ce
	}
	return fmt.Errorf("%w: %s", base, ce.Message)
}
