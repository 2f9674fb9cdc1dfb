package telephony

import (
	"context"
	"errors"

	"github.com/joegen/opalvoip-opal/internal/message"
)

// ConnectionManager is the native signaling and media engine behind the
// message boundary.
//
// Rules:
//   - Submit answers synchronously. A returned error is a rejection of the command;
//     the caller rolls back whatever it did optimistically.
//   - Status changes are reported later through the EventSink given to Start, never
//     from inside Submit.
//   - SetUpCall responses carry the call token assigned by the engine.
type ConnectionManager interface {
	Name() string
	Start(ctx context.Context, caps message.CapabilityMask, sink EventSink) error
	Submit(ctx context.Context, cmd message.Envelope) (message.Envelope, error)
	Stop(ctx context.Context) error
}

// EventSink receives events produced by a ConnectionManager.
type EventSink interface {
	Emit(env message.Envelope)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(env message.Envelope)

func (f SinkFunc) Emit(env message.Envelope) { f(env) }

var (
	ErrNotStarted         = errors.New("telephony: connection manager not started")
	ErrAlreadyStarted     = errors.New("telephony: connection manager already started")
	ErrPrefixDisabled     = errors.New("telephony: protocol prefix not enabled")
	ErrUnknownCall        = errors.New("telephony: unknown call")
	ErrUnsupportedCommand = errors.New("telephony: unsupported command")
	ErrRejected           = errors.New("telephony: rejected by remote")
)
