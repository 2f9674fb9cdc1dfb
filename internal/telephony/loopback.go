package telephony

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/joegen/opalvoip-opal/internal/message"
)

// Behavior scripts how the loopback engine's simulated remote parties act.
type Behavior struct {
	// AutoAlert reports Alerting right after Proceeding on outgoing calls.
	AutoAlert bool
	// AutoAnswer answers outgoing calls immediately.
	AutoAnswer bool
	// Busy lists remote addresses that answer busy.
	Busy []string
	// Reject lists remote addresses whose set-up is refused synchronously.
	Reject []string
	// AudioFormat names the media format reported for opened streams.
	AudioFormat string
}

const defaultLocalParty = "pcss:local"

type loopCall struct {
	partyA   string
	partyB   string
	incoming bool
	answered bool
	held     bool
}

// Loopback is an in-process ConnectionManager. It answers commands from its
// own bookkeeping and plays the remote side of each call according to
// Behavior. Events are delivered in order from a single goroutine.
type Loopback struct {
	Behavior Behavior
	NewToken func() string

	log *slog.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	running   bool
	caps      message.CapabilityMask
	outbox    []message.Envelope
	done      chan struct{}
	calls     map[string]*loopCall
	general   message.SetGeneralParameters
	protocols map[message.Prefix]message.ProtocolParams
	nextIM    uint32
}

func NewLoopback(b Behavior, log *slog.Logger) *Loopback {
	if log == nil {
		log = slog.Default()
	}
	l := &Loopback{
		Behavior:  b,
		NewToken:  uuid.NewString,
		log:       log,
		calls:     make(map[string]*loopCall),
		protocols: make(map[message.Prefix]message.ProtocolParams),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *Loopback) Name() string { return "loopback" }

func (l *Loopback) Start(ctx context.Context, caps message.CapabilityMask, sink EventSink) error {
	if sink == nil {
		return fmt.Errorf("telephony: event sink required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrAlreadyStarted
	}
	l.running = true
	l.caps = caps
	l.done = make(chan struct{})
	go l.run(sink, l.done)
	l.log.Info("connection manager started", "name", l.Name(), "capabilities", caps.String())
	return nil
}

// Stop delivers events already produced, then stops the event goroutine.
func (l *Loopback) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	l.calls = make(map[string]*loopCall)
	done := l.done
	l.cond.Broadcast()
	l.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loopback) run(sink EventSink, done chan struct{}) {
	defer close(done)
	for {
		l.mu.Lock()
		for len(l.outbox) == 0 && l.running {
			l.cond.Wait()
		}
		if len(l.outbox) == 0 {
			l.mu.Unlock()
			return
		}
		batch := l.outbox
		l.outbox = nil
		l.mu.Unlock()

		for _, env := range batch {
			sink.Emit(env)
		}
	}
}

// emit queues events for delivery. l.mu must be held.
func (l *Loopback) emit(payloads ...message.Payload) {
	for _, p := range payloads {
		l.outbox = append(l.outbox, message.Of(p))
	}
	l.cond.Signal()
}

func (l *Loopback) Submit(ctx context.Context, cmd message.Envelope) (message.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return message.Envelope{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return message.Envelope{}, ErrNotStarted
	}
	l.log.Debug("loopback command", "kind", cmd.Kind.String(), "token", cmd.CallToken())

	switch p := cmd.Payload.(type) {
	case message.SetGeneralParameters:
		l.general = p
		return message.Of(p), nil
	case message.SetProtocolParameters:
		pr, err := l.enabled(p.Prefix)
		if err != nil {
			return message.Envelope{}, err
		}
		l.protocols[pr] = message.ProtocolParams(p)
		return message.Of(p), nil
	case message.Registration:
		if _, err := l.enabled(p.Protocol); err != nil {
			return message.Envelope{}, err
		}
		status := message.RegistrationSuccessful
		if p.TimeToLive == 0 {
			status = message.RegistrationRemoved
		}
		l.emit(message.RegistrationStatusReport{Protocol: p.Protocol, ServerName: p.HostName, Status: status})
		return message.Of(p), nil
	case message.SetUpCall:
		return l.setUp(p)
	case message.AnswerCall:
		c, err := l.call(p.CallToken)
		if err != nil {
			return message.Envelope{}, err
		}
		if !c.incoming || c.answered {
			return message.Envelope{}, fmt.Errorf("%w: call %s cannot be answered", ErrRejected, p.CallToken)
		}
		l.establish(p.CallToken, c)
		return message.Of(p), nil
	case message.AlertingCall:
		if _, err := l.call(p.CallToken); err != nil {
			return message.Envelope{}, err
		}
		return message.Of(p), nil
	case message.ClearCall:
		if _, err := l.call(p.CallToken); err != nil {
			return message.Envelope{}, err
		}
		l.clear(p.CallToken, p.Reason)
		return message.Of(p), nil
	case message.HoldCall:
		c, err := l.call(p.CallToken)
		if err != nil {
			return message.Envelope{}, err
		}
		if !c.answered || c.held {
			return message.Envelope{}, fmt.Errorf("%w: call %s cannot be held", ErrRejected, p.CallToken)
		}
		c.held = true
		l.emit(message.OnHold{CallToken: p.CallToken})
		return message.Of(p), nil
	case message.RetrieveCall:
		c, err := l.call(p.CallToken)
		if err != nil {
			return message.Envelope{}, err
		}
		if !c.held {
			return message.Envelope{}, fmt.Errorf("%w: call %s is not held", ErrRejected, p.CallToken)
		}
		c.held = false
		l.emit(message.OffHold{CallToken: p.CallToken})
		return message.Of(p), nil
	case message.TransferCall:
		if _, err := l.call(p.CallToken); err != nil {
			return message.Envelope{}, err
		}
		l.emit(message.TransferStatus{CallToken: p.CallToken, Result: "success", Info: p.PartyB})
		l.clear(p.CallToken, message.EndedByCallForwarded)
		return message.Of(p), nil
	case message.MediaStreamControl:
		if _, err := l.call(p.CallToken); err != nil {
			return message.Envelope{}, err
		}
		if p.Identifier == "" {
			p.Identifier = streamID(p.CallToken, p.Type)
		}
		l.emit(message.MediaStream(p))
		return message.Of(p), nil
	case message.SendUserInput:
		if _, err := l.call(p.CallToken); err != nil {
			return message.Envelope{}, err
		}
		return message.Of(p), nil
	case message.SetUserData:
		if _, err := l.call(p.CallToken); err != nil {
			return message.Envelope{}, err
		}
		return message.Of(p), nil
	case message.StartRecording:
		if _, err := l.call(p.CallToken); err != nil {
			return message.Envelope{}, err
		}
		return message.Of(p), nil
	case message.StopRecording:
		if _, err := l.call(p.CallToken); err != nil {
			return message.Envelope{}, err
		}
		return message.Of(p), nil
	case message.AuthorisePresence:
		return message.Of(p), nil
	case message.SetLocalPresence:
		return message.Of(p), nil
	case message.SubscribePresence:
		if p.State != message.PresenceNone {
			l.emit(message.PresenceChange{Entity: p.Target, Target: p.Entity, State: message.PresenceAvailable})
		}
		return message.Of(p), nil
	case message.SendIM:
		if p.CallToken != "" {
			if _, err := l.call(p.CallToken); err != nil {
				return message.Envelope{}, err
			}
		}
		l.nextIM++
		p.MessageID = l.nextIM
		sent := message.SentIM(p)
		sent.Disposition = "delivered"
		l.emit(sent)
		return message.Of(p), nil
	default:
		return message.Envelope{}, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Kind)
	}
}

func (l *Loopback) setUp(p message.SetUpCall) (message.Envelope, error) {
	prefix, _, err := message.ParseAddress(p.PartyB)
	if err != nil {
		return message.Envelope{}, err
	}
	if !l.caps.Has(prefix) {
		return message.Envelope{}, fmt.Errorf("%w: %s", ErrPrefixDisabled, prefix)
	}
	if contains(l.Behavior.Reject, p.PartyB) {
		return message.Envelope{}, fmt.Errorf("%w: %s", ErrRejected, p.PartyB)
	}
	if p.PartyA == "" {
		p.PartyA = defaultLocalParty
	}

	token := l.NewToken()
	c := &loopCall{partyA: p.PartyA, partyB: p.PartyB}
	l.calls[token] = c
	p.CallToken = token

	l.emit(message.Proceeding{CallToken: token, PartyA: c.partyA, PartyB: c.partyB})
	switch {
	case contains(l.Behavior.Busy, p.PartyB):
		l.clear(token, message.EndedByRemoteBusy)
	case l.Behavior.AutoAnswer:
		if l.Behavior.AutoAlert {
			l.emit(message.Alerting{CallToken: token, PartyA: c.partyA, PartyB: c.partyB})
		}
		l.establish(token, c)
	case l.Behavior.AutoAlert:
		l.emit(message.Alerting{CallToken: token, PartyA: c.partyA, PartyB: c.partyB})
	}
	return message.Of(p), nil
}

func (l *Loopback) establish(token string, c *loopCall) {
	c.answered = true
	format := l.Behavior.AudioFormat
	if format == "" {
		format = "G.711-uLaw-64k"
	}
	l.emit(
		message.Established{CallToken: token, PartyA: c.partyA, PartyB: c.partyB},
		message.MediaStream{CallToken: token, Identifier: streamID(token, "audio out"), Type: "audio out", Format: format, State: message.MediaStateOpen},
		message.MediaStream{CallToken: token, Identifier: streamID(token, "audio in"), Type: "audio in", Format: format, State: message.MediaStateOpen},
	)
}

func (l *Loopback) clear(token string, reason message.CallEndReason) {
	delete(l.calls, token)
	l.emit(message.CallCleared{CallToken: token, Reason: reason.String()})
}

func (l *Loopback) call(token string) (*loopCall, error) {
	c, ok := l.calls[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCall, token)
	}
	return c, nil
}

func (l *Loopback) enabled(prefix string) (message.Prefix, error) {
	p, err := message.ParsePrefix(prefix)
	if err != nil {
		return "", err
	}
	if p != message.PrefixAll && !l.caps.Has(p) {
		return "", fmt.Errorf("%w: %s", ErrPrefixDisabled, p)
	}
	return p, nil
}

// InjectIncoming simulates a remote party calling to. It returns the new
// call token.
func (l *Loopback) InjectIncoming(from, to string) (string, error) {
	prefix, _, err := message.ParseAddress(from)
	if err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return "", ErrNotStarted
	}
	if !l.caps.Has(prefix) {
		return "", fmt.Errorf("%w: %s", ErrPrefixDisabled, prefix)
	}
	if to == "" {
		to = defaultLocalParty
	}
	token := l.NewToken()
	l.calls[token] = &loopCall{partyA: to, partyB: from, incoming: true}
	l.emit(message.IncomingCall{
		CallToken:      token,
		LocalAddress:   to,
		RemoteAddress:  from,
		CalledAddress:  to,
		ProtocolCallID: token,
	})
	return token, nil
}

// RemoteAnswer simulates the remote party answering an outgoing call.
func (l *Loopback) RemoteAnswer(token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, err := l.call(token)
	if err != nil {
		return err
	}
	if c.incoming || c.answered {
		return fmt.Errorf("%w: call %s cannot be answered remotely", ErrRejected, token)
	}
	l.establish(token, c)
	return nil
}

// RemoteClear simulates the remote party hanging up.
func (l *Loopback) RemoteClear(token string, reason message.CallEndReason) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.call(token); err != nil {
		return err
	}
	l.clear(token, reason)
	return nil
}

// RemoteUserInput simulates DTMF received from the remote party.
func (l *Loopback) RemoteUserInput(token, input string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.call(token); err != nil {
		return err
	}
	l.emit(message.UserInput{CallToken: token, UserInput: input})
	return nil
}

// ActiveCalls returns the number of calls the engine holds.
func (l *Loopback) ActiveCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func streamID(token, typ string) string {
	return token + "/" + typ
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
