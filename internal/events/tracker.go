package events

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joegen/opalvoip-opal/internal/calls"
	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/registrar"
)

// ClearedCall describes a call whose CallCleared event was pushed.
type ClearedCall struct {
	State     calls.CallState
	LastPhase calls.Phase
	Reason    string
	At        time.Time
}

// Tracker keeps the call registry and the registrar in step with the event
// stream. It implements Observer.
type Tracker struct {
	Calls     *calls.Registry
	Registrar *registrar.Registrar

	// OnCleared runs on the producer goroutine and must not block.
	OnCleared func(ClearedCall)

	log *slog.Logger
	Now func() time.Time
}

func NewTracker(reg *calls.Registry, rr *registrar.Registrar, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{Calls: reg, Registrar: rr, log: log, Now: time.Now}
}

func (t *Tracker) Observe(env message.Envelope) error {
	switch p := env.Payload.(type) {
	case message.IncomingCall:
		return t.incoming(p)
	case message.Proceeding:
		return t.update(env, func(s *calls.CallState) error {
			if s.Phase != calls.PhaseSetup && s.Phase != calls.PhaseAlerting {
				return fmt.Errorf("%w: proceeding in %s", calls.ErrInvalidTransition, s.Phase)
			}
			if p.ProtocolCallID != "" {
				s.ProtocolCallID = p.ProtocolCallID
			}
			return nil
		})
	case message.Alerting:
		return t.advance(env, calls.PhaseAlerting)
	case message.Established:
		return t.update(env, func(s *calls.CallState) error {
			if err := s.Advance(calls.PhaseEstablished, t.now()); err != nil {
				return err
			}
			s.Answering = false
			return nil
		})
	case message.MediaStream:
		return t.update(env, func(s *calls.CallState) error {
			if !s.Phase.AllowsMedia() {
				return fmt.Errorf("%w: media stream in %s", calls.ErrInvalidTransition, s.Phase)
			}
			s.ApplyStream(message.MediaStreamInfo(p))
			return nil
		})
	case message.UserInput:
		return t.update(env, func(s *calls.CallState) error {
			if s.Phase.IsTerminal() {
				return fmt.Errorf("%w: user input after clear", calls.ErrInvalidTransition)
			}
			s.UserInput += p.UserInput
			return nil
		})
	case message.OnHold:
		return t.hold(env, true)
	case message.OffHold:
		return t.hold(env, false)
	case message.CallCleared:
		return t.cleared(env, p)
	case message.TransferStatus, message.CompletedIVR:
		return t.update(env, func(s *calls.CallState) error {
			if s.Phase.IsTerminal() {
				return fmt.Errorf("%w: %s after clear", calls.ErrInvalidTransition, env.Kind)
			}
			return nil
		})
	case message.RegistrationStatusReport:
		if t.Registrar == nil {
			return nil
		}
		st, known, err := t.Registrar.Apply(p)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOrphanEvent, err)
		}
		if !known {
			t.log.Info("registration status without request", "protocol", st.Protocol, "status", st.Status.String())
		}
		return nil
	default:
		// Events that name a call optionally, such as instant messages,
		// only need the call to exist.
		if tok := env.CallToken(); tok != "" && env.Kind.IsEvent() {
			if !t.Calls.Exists(tok) {
				return fmt.Errorf("%w: %s for unknown call %s", ErrOrphanEvent, env.Kind, tok)
			}
		}
		return nil
	}
}

func (t *Tracker) incoming(p message.IncomingCall) error {
	var proto message.Prefix
	if pr, _, err := message.ParseAddress(p.RemoteAddress); err == nil {
		proto = pr
	}
	local := p.CalledAddress
	if local == "" {
		local = p.LocalAddress
	}
	err := t.Calls.Create(p.CallToken, calls.CallState{
		Direction:      calls.DirectionIncoming,
		Protocol:       proto,
		PartyA:         local,
		PartyB:         p.RemoteAddress,
		ProtocolCallID: p.ProtocolCallID,
		Phase:          calls.PhaseSetup,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOrphanEvent, err)
	}
	return nil
}

func (t *Tracker) advance(env message.Envelope, next calls.Phase) error {
	return t.update(env, func(s *calls.CallState) error {
		return s.Advance(next, t.now())
	})
}

func (t *Tracker) hold(env message.Envelope, held bool) error {
	return t.update(env, func(s *calls.CallState) error {
		if s.Phase != calls.PhaseEstablished {
			return fmt.Errorf("%w: hold change in %s", calls.ErrInvalidTransition, s.Phase)
		}
		s.Held = held
		return nil
	})
}

func (t *Tracker) cleared(env message.Envelope, p message.CallCleared) error {
	var last calls.Phase
	st, err := t.Calls.Update(p.CallToken, func(s *calls.CallState) error {
		last = s.Phase
		if err := s.Advance(calls.PhaseCleared, t.now()); err != nil {
			return err
		}
		s.EndReason = p.Reason
		s.Answering = false
		return nil
	})
	if err != nil {
		return t.diagnose(env, err)
	}
	if t.OnCleared != nil {
		t.OnCleared(ClearedCall{State: st, LastPhase: last, Reason: p.Reason, At: st.UpdatedAt})
	}
	return nil
}

func (t *Tracker) update(env message.Envelope, fn func(*calls.CallState) error) error {
	if _, err := t.Calls.Update(env.CallToken(), fn); err != nil {
		return t.diagnose(env, err)
	}
	return nil
}

func (t *Tracker) diagnose(env message.Envelope, err error) error {
	if errors.Is(err, calls.ErrNotFound) {
		return fmt.Errorf("%w: %s for unknown call %s", ErrOrphanEvent, env.Kind, env.CallToken())
	}
	return fmt.Errorf("%w: %w", ErrOrphanEvent, err)
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}
