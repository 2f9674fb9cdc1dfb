package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/joegen/opalvoip-opal/internal/calls"
	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/telephony"
)

func (d *Dispatcher) SetGeneralParameters(ctx context.Context, p message.SetGeneralParameters) message.Envelope {
	return d.forward(ctx, p)
}

func (d *Dispatcher) SetProtocolParameters(ctx context.Context, p message.SetProtocolParameters) message.Envelope {
	return d.forward(ctx, p)
}

// Register forwards a Registration and records it with the registrar before
// the resulting status event can be observed.
func (d *Dispatcher) Register(ctx context.Context, p message.Registration) message.Envelope {
	env := message.Of(p)
	if resp, ok := d.precheck(env); !ok {
		return d.finish(ctx, env.Kind, "", resp)
	}

	d.gate.Lock()
	resp, err := d.cm.Submit(ctx, env)
	if err == nil && d.Registrar != nil {
		if _, rerr := d.Registrar.Request(p); rerr != nil {
			d.log.Warn("registrar request failed", "protocol", p.Protocol, "err", rerr)
		}
	}
	d.gate.Unlock()

	if err != nil {
		return d.finish(ctx, env.Kind, "", engineError(err))
	}
	return d.finish(ctx, env.Kind, "", resp)
}

// SetUpCall starts an outgoing call. The response carries the token the
// connection manager assigned; the call is registered in phase Setup before
// any event for it is observed.
func (d *Dispatcher) SetUpCall(ctx context.Context, p message.SetUpCall) message.Envelope {
	env := message.Of(p)
	if resp, ok := d.precheck(env); !ok {
		return d.finish(ctx, env.Kind, "", resp)
	}

	slot := ""
	if d.Limiter != nil {
		slot = uuid.NewString()
		ok, err := d.Limiter.Acquire(ctx, slot)
		if err != nil {
			d.log.Error("call cap check failed", "err", err)
			return d.finish(ctx, env.Kind, "", message.Errorf(message.CodeCapacity, "call capacity unavailable"))
		}
		if !ok {
			return d.finish(ctx, env.Kind, "", message.Errorf(message.CodeCapacity, "concurrent call limit reached"))
		}
	}
	release := func() {
		if slot == "" {
			return
		}
		if err := d.Limiter.Release(ctx, slot); err != nil {
			d.log.Warn("call cap release failed", "err", err)
		}
	}

	d.gate.Lock()
	resp, err := d.cm.Submit(ctx, env)
	var token string
	var cerr error
	if err == nil {
		token = resp.CallToken()
		if token == "" {
			cerr = calls.ErrInvalidToken
		} else {
			cerr = d.calls.Create(token, outgoingState(p, resp))
		}
		// The slot must be on record before the gate opens: a call that
		// fails at once can be cleared by the first event through the sink.
		if cerr == nil && slot != "" {
			d.mu.Lock()
			d.slots[token] = slot
			d.mu.Unlock()
		}
	}
	d.gate.Unlock()

	switch {
	case err != nil:
		release()
		return d.finish(ctx, env.Kind, "", engineError(err))
	case errors.Is(cerr, calls.ErrDuplicateToken):
		release()
		d.log.Error("connection manager reused a live call token", "token", token)
		return d.finish(ctx, env.Kind, token, message.Errorf(message.CodeDuplicateToken, "call token %s already in use", token))
	case cerr != nil:
		release()
		return d.finish(ctx, env.Kind, token, stateError(token, cerr))
	}

	return d.finish(ctx, env.Kind, token, resp)
}

func outgoingState(p message.SetUpCall, resp message.Envelope) calls.CallState {
	out, _ := resp.Payload.(message.SetUpCall)
	partyA := out.PartyA
	if partyA == "" {
		partyA = p.PartyA
	}
	proto, _, _ := message.ParseAddress(p.PartyB)
	return calls.CallState{
		Direction:      calls.DirectionOutgoing,
		Protocol:       proto,
		PartyA:         partyA,
		PartyB:         p.PartyB,
		ProtocolCallID: out.ProtocolCallID,
		Phase:          calls.PhaseSetup,
	}
}

// Alerting tells the caller of an incoming call that the local user is being alerted.
func (d *Dispatcher) Alerting(ctx context.Context, p message.AlertingCall) message.Envelope {
	return d.onCall(ctx, p, func(s *calls.CallState) (func(*calls.CallState), error) {
		if s.Direction != calls.DirectionIncoming || s.Phase == calls.PhaseEstablished {
			return nil, notAllowed("alerting on %s call in %s", s.Direction, s.Phase)
		}
		return nil, nil
	})
}

func (d *Dispatcher) AnswerCall(ctx context.Context, p message.AnswerCall) message.Envelope {
	return d.onCall(ctx, p, func(s *calls.CallState) (func(*calls.CallState), error) {
		if s.Direction != calls.DirectionIncoming || s.Phase == calls.PhaseEstablished || s.Answering {
			return nil, notAllowed("cannot answer %s call in %s", s.Direction, s.Phase)
		}
		s.Answering = true
		return func(s *calls.CallState) { s.Answering = false }, nil
	})
}

// ClearCall releases a call. Clearing a call that is unknown or already
// cleared succeeds without reaching the connection manager.
func (d *Dispatcher) ClearCall(ctx context.Context, p message.ClearCall) message.Envelope {
	env := message.Of(p)
	if resp, ok := d.precheck(env); !ok {
		return d.finish(ctx, env.Kind, p.CallToken, resp)
	}

	unlock := d.locks.lock(p.CallToken)
	defer unlock()

	s, err := d.calls.Lookup(p.CallToken)
	if errors.Is(err, calls.ErrClosed) {
		return d.finish(ctx, env.Kind, p.CallToken, stateError(p.CallToken, err))
	}
	if err != nil || s.Phase.IsTerminal() {
		d.log.Debug("clear of inactive call", "token", p.CallToken)
		return d.finish(ctx, env.Kind, p.CallToken, env)
	}

	resp, err := d.cm.Submit(ctx, env)
	if errors.Is(err, telephony.ErrUnknownCall) {
		return d.finish(ctx, env.Kind, p.CallToken, env)
	}
	if err != nil {
		return d.finish(ctx, env.Kind, p.CallToken, engineError(err))
	}
	return d.finish(ctx, env.Kind, p.CallToken, resp)
}

func (d *Dispatcher) HoldCall(ctx context.Context, p message.HoldCall) message.Envelope {
	return d.onCall(ctx, p, func(s *calls.CallState) (func(*calls.CallState), error) {
		if s.Phase != calls.PhaseEstablished || s.Held {
			return nil, notAllowed("cannot hold call in %s", s.Phase)
		}
		s.Held = true
		return func(s *calls.CallState) { s.Held = false }, nil
	})
}

func (d *Dispatcher) RetrieveCall(ctx context.Context, p message.RetrieveCall) message.Envelope {
	return d.onCall(ctx, p, func(s *calls.CallState) (func(*calls.CallState), error) {
		if !s.Held {
			return nil, notAllowed("call is not held")
		}
		s.Held = false
		return func(s *calls.CallState) { s.Held = true }, nil
	})
}

func (d *Dispatcher) TransferCall(ctx context.Context, p message.TransferCall) message.Envelope {
	return d.onCall(ctx, p, nil)
}

func (d *Dispatcher) SendUserInput(ctx context.Context, p message.SendUserInput) message.Envelope {
	return d.onCall(ctx, p, nil)
}

// StartMediaStream opens a stream selected by identifier or by type.
func (d *Dispatcher) StartMediaStream(ctx context.Context, p message.MediaStreamControl) message.Envelope {
	p.State = message.MediaStateOpen
	return d.onCall(ctx, p, streamMutation(p))
}

func (d *Dispatcher) StopMediaStream(ctx context.Context, p message.MediaStreamControl) message.Envelope {
	p.State = message.MediaStateClose
	return d.onCall(ctx, p, streamMutation(p))
}

// UpdateMediaStream pauses, resumes or changes the volume of a stream.
func (d *Dispatcher) UpdateMediaStream(ctx context.Context, p message.MediaStreamControl) message.Envelope {
	if p.State == message.MediaStateOpen || p.State == message.MediaStateClose {
		env := message.Of(p)
		return d.finish(ctx, env.Kind, p.CallToken, message.Errorf(message.CodeInvalidPayload, "update cannot %s a stream", p.State))
	}
	return d.onCall(ctx, p, streamMutation(p))
}

// streamMutation applies a stream change optimistically when the stream is
// named by identifier. Streams selected by type are left to the engine's
// MediaStream event.
func streamMutation(p message.MediaStreamControl) mutation {
	return func(s *calls.CallState) (func(*calls.CallState), error) {
		if !s.Phase.AllowsMedia() {
			return nil, notAllowed("media control in %s", s.Phase)
		}
		if p.Identifier == "" {
			return nil, nil
		}
		prev, had := s.Streams[p.Identifier]
		opened := s.StreamsOpened
		s.ApplyStream(message.MediaStreamInfo(p))
		return func(s *calls.CallState) {
			s.StreamsOpened = opened
			if !had {
				delete(s.Streams, p.Identifier)
				return
			}
			if s.Streams == nil {
				s.Streams = make(map[string]calls.MediaStreamDescriptor)
			}
			s.Streams[p.Identifier] = prev
		}, nil
	}
}

func (d *Dispatcher) SetUserData(ctx context.Context, p message.SetUserData) message.Envelope {
	return d.onCall(ctx, p, func(s *calls.CallState) (func(*calls.CallState), error) {
		prev := s.UserData
		s.UserData = p.UserData
		return func(s *calls.CallState) { s.UserData = prev }, nil
	})
}

func (d *Dispatcher) StartRecording(ctx context.Context, p message.StartRecording) message.Envelope {
	return d.onCall(ctx, p, func(s *calls.CallState) (func(*calls.CallState), error) {
		if s.Phase != calls.PhaseEstablished {
			return nil, notAllowed("cannot record call in %s", s.Phase)
		}
		prev := s.Recording
		s.Recording = p.File
		return func(s *calls.CallState) { s.Recording = prev }, nil
	})
}

func (d *Dispatcher) StopRecording(ctx context.Context, p message.StopRecording) message.Envelope {
	return d.onCall(ctx, p, func(s *calls.CallState) (func(*calls.CallState), error) {
		if s.Recording == "" {
			return nil, notAllowed("call is not being recorded")
		}
		prev := s.Recording
		s.Recording = ""
		return func(s *calls.CallState) { s.Recording = prev }, nil
	})
}

func (d *Dispatcher) AuthorisePresence(ctx context.Context, p message.AuthorisePresence) message.Envelope {
	return d.forward(ctx, p)
}

func (d *Dispatcher) SubscribePresence(ctx context.Context, p message.SubscribePresence) message.Envelope {
	return d.forward(ctx, p)
}

func (d *Dispatcher) SetLocalPresence(ctx context.Context, p message.SetLocalPresence) message.Envelope {
	return d.forward(ctx, p)
}

// SendIM sends an instant message, inside a call when CallToken is set.
func (d *Dispatcher) SendIM(ctx context.Context, p message.SendIM) message.Envelope {
	if p.CallToken != "" {
		return d.onCall(ctx, p, nil)
	}
	return d.forward(ctx, p)
}
