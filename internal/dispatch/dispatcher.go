package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joegen/opalvoip-opal/internal/audit"
	"github.com/joegen/opalvoip-opal/internal/calls"
	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/registrar"
	"github.com/joegen/opalvoip-opal/internal/telephony"
)

var errNotAllowed = errors.New("dispatch: call state does not allow command")

// Dispatcher validates commands, keeps the call registry in step and forwards
// them to the connection manager. Every command gets exactly one response:
// the command's own kind on success, CommandError otherwise.
//
// Commands naming the same call token run one at a time; commands for
// different calls run concurrently.
type Dispatcher struct {
	calls *calls.Registry
	cm    telephony.ConnectionManager
	log   *slog.Logger

	// Optional collaborators.
	Limiter   Limiter
	Audit     *audit.Service
	Registrar *registrar.Registrar

	locks keyLocks
	// gate holds back engine events while a command that creates state for
	// them is between Submit and its registry write.
	gate sync.RWMutex

	mu     sync.Mutex
	slots  map[string]string
	closed bool
}

func New(reg *calls.Registry, cm telephony.ConnectionManager, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{calls: reg, cm: cm, log: log, slots: make(map[string]string)}
}

// Sink wraps the sink given to the connection manager so that events caused
// by SetUpCall or Registration are observed after the dispatcher recorded
// the command's result.
func (d *Dispatcher) Sink(next telephony.EventSink) telephony.EventSink {
	return telephony.SinkFunc(func(env message.Envelope) {
		d.gate.RLock()
		defer d.gate.RUnlock()
		next.Emit(env)
	})
}

// Close makes every later command fail with ShuttingDown.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

// Dispatch routes a command envelope to its typed method.
func (d *Dispatcher) Dispatch(ctx context.Context, env message.Envelope) message.Envelope {
	if !env.Kind.IsCommand() {
		return d.finish(ctx, env.Kind, env.CallToken(), message.Errorf(message.CodeInvalidPayload, "%s is not a command", env.Kind))
	}
	if err := env.Validate(); err != nil {
		return d.finish(ctx, env.Kind, env.CallToken(), message.Errorf(message.CodeInvalidPayload, "%v", err))
	}

	switch p := env.Payload.(type) {
	case message.SetGeneralParameters:
		return d.SetGeneralParameters(ctx, p)
	case message.SetProtocolParameters:
		return d.SetProtocolParameters(ctx, p)
	case message.Registration:
		return d.Register(ctx, p)
	case message.SetUpCall:
		return d.SetUpCall(ctx, p)
	case message.AlertingCall:
		return d.Alerting(ctx, p)
	case message.AnswerCall:
		return d.AnswerCall(ctx, p)
	case message.ClearCall:
		return d.ClearCall(ctx, p)
	case message.HoldCall:
		return d.HoldCall(ctx, p)
	case message.RetrieveCall:
		return d.RetrieveCall(ctx, p)
	case message.TransferCall:
		return d.TransferCall(ctx, p)
	case message.SendUserInput:
		return d.SendUserInput(ctx, p)
	case message.MediaStreamControl:
		switch p.State {
		case message.MediaStateOpen:
			return d.StartMediaStream(ctx, p)
		case message.MediaStateClose:
			return d.StopMediaStream(ctx, p)
		default:
			return d.UpdateMediaStream(ctx, p)
		}
	case message.SetUserData:
		return d.SetUserData(ctx, p)
	case message.StartRecording:
		return d.StartRecording(ctx, p)
	case message.StopRecording:
		return d.StopRecording(ctx, p)
	case message.AuthorisePresence:
		return d.AuthorisePresence(ctx, p)
	case message.SubscribePresence:
		return d.SubscribePresence(ctx, p)
	case message.SetLocalPresence:
		return d.SetLocalPresence(ctx, p)
	case message.SendIM:
		return d.SendIM(ctx, p)
	default:
		return d.finish(ctx, env.Kind, env.CallToken(), message.Errorf(message.CodeInvalidPayload, "unsupported command %s", env.Kind))
	}
}

// CallCleared returns the capacity slot held by token, if any. It is called
// once the call's CallCleared event has been processed.
func (d *Dispatcher) CallCleared(ctx context.Context, token string) {
	d.mu.Lock()
	slot, held := d.slots[token]
	delete(d.slots, token)
	d.mu.Unlock()

	if held && d.Limiter != nil {
		if err := d.Limiter.Release(ctx, slot); err != nil {
			d.log.Warn("call cap release failed", "token", token, "err", err)
		}
	}
}

// precheck validates env and reports a CommandError response when it must
// not be forwarded.
func (d *Dispatcher) precheck(env message.Envelope) (message.Envelope, bool) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return message.Errorf(message.CodeShuttingDown, "dispatcher is shutting down"), false
	}
	if err := env.Validate(); err != nil {
		return message.Errorf(message.CodeInvalidPayload, "%v", err), false
	}
	return message.Envelope{}, true
}

// forward sends a command that does not name a call.
func (d *Dispatcher) forward(ctx context.Context, cmd message.Payload) message.Envelope {
	env := message.Of(cmd)
	if resp, ok := d.precheck(env); !ok {
		return d.finish(ctx, env.Kind, env.CallToken(), resp)
	}
	resp, err := d.cm.Submit(ctx, env)
	if err != nil {
		return d.finish(ctx, env.Kind, env.CallToken(), engineError(err))
	}
	return d.finish(ctx, env.Kind, env.CallToken(), resp)
}

// mutation applies an optimistic change for a command and returns how to
// undo it should the connection manager reject the command.
type mutation func(s *calls.CallState) (undo func(*calls.CallState), err error)

// onCall runs a command naming a live call: serialize on the token, check
// the call is active, mutate optimistically, forward, undo on rejection.
func (d *Dispatcher) onCall(ctx context.Context, cmd message.Payload, mutate mutation) message.Envelope {
	env := message.Of(cmd)
	token := env.CallToken()
	if resp, ok := d.precheck(env); !ok {
		return d.finish(ctx, env.Kind, token, resp)
	}

	unlock := d.locks.lock(token)
	defer unlock()

	var undo func(*calls.CallState)
	var err error
	if mutate == nil {
		var s calls.CallState
		s, err = d.calls.Lookup(token)
		if err == nil && s.Phase.IsTerminal() {
			err = ErrStaleToken
		}
	} else {
		_, err = d.calls.Update(token, func(s *calls.CallState) error {
			if s.Phase.IsTerminal() {
				return ErrStaleToken
			}
			u, err := mutate(s)
			undo = u
			return err
		})
	}
	if err != nil {
		return d.finish(ctx, env.Kind, token, stateError(token, err))
	}

	resp, err := d.cm.Submit(ctx, env)
	if err != nil {
		if undo != nil {
			if _, uerr := d.calls.Update(token, func(s *calls.CallState) error { undo(s); return nil }); uerr != nil {
				d.log.Warn("rollback failed", "token", token, "kind", env.Kind.String(), "err", uerr)
			}
		}
		return d.finish(ctx, env.Kind, token, engineError(err))
	}
	return d.finish(ctx, env.Kind, token, resp)
}

func (d *Dispatcher) finish(ctx context.Context, kind message.Kind, token string, resp message.Envelope) message.Envelope {
	accepted := !resp.IsError()
	detail := ""
	if accepted {
		d.log.Debug("command accepted", "kind", kind.String(), "token", token)
	} else {
		if ce, ok := resp.Payload.(message.CommandError); ok {
			detail = ce.Error()
		}
		d.log.Info("command rejected", "kind", kind.String(), "token", token, "err", detail)
	}
	if d.Audit != nil {
		if err := d.Audit.LogCommand(ctx, kind.String(), token, accepted, detail); err != nil {
			d.log.Warn("audit append failed", "kind", kind.String(), "err", err)
		}
	}
	return resp
}

func stateError(token string, err error) message.Envelope {
	switch {
	case errors.Is(err, calls.ErrNotFound), errors.Is(err, ErrStaleToken):
		return message.Errorf(message.CodeStaleToken, "call %s is not active", token)
	case errors.Is(err, calls.ErrClosed):
		return message.Errorf(message.CodeShuttingDown, "call registry closed")
	default:
		return message.Errorf(message.CodeRejected, "%v", err)
	}
}

func engineError(err error) message.Envelope {
	switch {
	case errors.Is(err, telephony.ErrUnknownCall):
		return message.Errorf(message.CodeStaleToken, "%v", err)
	case errors.Is(err, telephony.ErrNotStarted):
		return message.Errorf(message.CodeShuttingDown, "%v", err)
	case errors.Is(err, message.ErrInvalidPayload), errors.Is(err, message.ErrUnknownPrefix):
		return message.Errorf(message.CodeInvalidPayload, "%v", err)
	default:
		return message.Errorf(message.CodeRejected, "%v", err)
	}
}

func notAllowed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errNotAllowed, fmt.Sprintf(format, args...))
}
