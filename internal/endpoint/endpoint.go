// Package endpoint is the application-facing boundary of the call-control
// core: initialise a handle, send commands, retrieve and release events.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/joegen/opalvoip-opal/internal/audit"
	"github.com/joegen/opalvoip-opal/internal/calls"
	"github.com/joegen/opalvoip-opal/internal/dispatch"
	"github.com/joegen/opalvoip-opal/internal/events"
	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/registrar"
	"github.com/joegen/opalvoip-opal/internal/routing"
	"github.com/joegen/opalvoip-opal/internal/telephony"
)

// APIVersion is the highest message-protocol version this build speaks.
const APIVersion uint32 = 21

const autoAnswerBacklog = 256

type Options struct {
	// Version is the protocol version the application was written against.
	Version uint32
	// Capabilities is a prefix list such as "pcss sip h323". Empty or "*"
	// enables every prefix.
	Capabilities string

	Manager telephony.ConnectionManager
	Logger  *slog.Logger

	// Optional collaborators.
	Records calls.RecordRepository
	Audit   *audit.Service
	Limiter dispatch.Limiter
	// Router, when set, decides every incoming call without the
	// application's involvement.
	Router  routing.Engine
	Mirrors []events.Mirror

	// RefreshInterval is how often registrations are checked for renewal.
	// Zero disables renewal.
	RefreshInterval time.Duration

	// Setup commands are sent in order once the connection manager runs.
	Setup []message.Envelope
}

// Handle is an initialised endpoint. It is safe for concurrent use.
type Handle struct {
	version uint32
	caps    message.CapabilityMask
	log     *slog.Logger

	calls     *calls.Registry
	registrar *registrar.Registrar
	queue     *events.Queue
	dispatch  *dispatch.Dispatcher
	cm        telephony.ConnectionManager
	records   calls.RecordRepository
	router    routing.Engine

	incoming chan message.IncomingCall

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	outstanding atomic.Int64
	closed      atomic.Bool
	stopOnce    sync.Once
	stopErr     error
}

// Initialise starts the connection manager and returns a handle bound to it.
// The negotiated version is the lower of the requested one and APIVersion.
func Initialise(ctx context.Context, opts Options) (*Handle, error) {
	if opts.Version == 0 {
		return nil, fmt.Errorf("%w: version required", ErrInit)
	}
	if opts.Manager == nil {
		return nil, fmt.Errorf("%w: connection manager required", ErrInit)
	}
	caps, err := message.ParseCapabilities(opts.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	h := &Handle{
		version:   min(opts.Version, APIVersion),
		caps:      caps,
		log:       log,
		calls:     calls.NewRegistry(),
		registrar: registrar.New(),
		cm:        opts.Manager,
		records:   opts.Records,
		router:    opts.Router,
	}
	h.bg, h.cancel = context.WithCancel(context.Background())

	tracker := events.NewTracker(h.calls, h.registrar, log)
	tracker.OnCleared = h.onCleared
	h.queue = events.NewQueue(tracker, log)
	for _, m := range opts.Mirrors {
		h.queue.AddMirror(m)
	}
	if h.router != nil {
		h.incoming = make(chan message.IncomingCall, autoAnswerBacklog)
		h.queue.AddMirror(incomingMirror{h: h})
		h.wg.Add(1)
		go h.autoAnswer()
	}

	h.dispatch = dispatch.New(h.calls, h.cm, log)
	h.dispatch.Limiter = opts.Limiter
	h.dispatch.Audit = opts.Audit
	h.dispatch.Registrar = h.registrar

	if err := h.cm.Start(ctx, caps, h.dispatch.Sink(h.queue)); err != nil {
		h.cancel()
		h.wg.Wait()
		return nil, fmt.Errorf("%w: start %s: %w", ErrInit, h.cm.Name(), err)
	}

	for _, cmd := range opts.Setup {
		resp := h.dispatch.Dispatch(ctx, cmd)
		if err := dispatch.Err(resp); err != nil {
			_ = h.Shutdown(ctx)
			return nil, fmt.Errorf("%w: %s: %w", ErrInit, cmd.Kind, err)
		}
	}

	if opts.RefreshInterval > 0 {
		h.wg.Add(1)
		go h.refreshRegistrations(opts.RefreshInterval)
	}

	log.Info("endpoint initialised",
		"version", h.version,
		"capabilities", caps.String(),
		"manager", h.cm.Name(),
	)
	return h, nil
}

func (h *Handle) Version() uint32                      { return h.version }
func (h *Handle) Capabilities() message.CapabilityMask { return h.caps }

// SendMessage executes a command and returns its response envelope: the
// command's kind on success, CommandError otherwise.
func (h *Handle) SendMessage(ctx context.Context, env message.Envelope) message.Envelope {
	if h.closed.Load() {
		return message.Errorf(message.CodeShuttingDown, "endpoint shut down")
	}
	return h.dispatch.Dispatch(ctx, env)
}

// GetMessage waits up to timeout for the next event. It returns
// events.ErrTimeout when none arrives and events.ErrShuttingDown once the
// handle is shut down. A negative timeout waits until ctx is done.
//
// Every returned message must be released with FreeMessage.
func (h *Handle) GetMessage(ctx context.Context, timeout time.Duration) (*Message, error) {
	d, err := h.queue.Get(ctx, timeout)
	if err != nil {
		return nil, err
	}
	h.outstanding.Add(1)
	return newOwned(d), nil
}

// FreeMessage releases a message obtained from GetMessage. Releasing a
// CallCleared event forgets the call.
func (h *Handle) FreeMessage(m *Message) error {
	if m == nil || m.released == nil {
		return ErrNilMessage
	}
	if m.ownership == Borrowed {
		return ErrBorrowed
	}
	if !m.released.CompareAndSwap(false, true) {
		return ErrAlreadyReleased
	}
	h.outstanding.Add(-1)

	if m.Envelope.Kind == message.KindCallCleared {
		h.forget(m.Envelope.CallToken())
	}
	return nil
}

// Receive retrieves one event, hands a borrowed view of it to fn and
// releases it when fn returns.
func (h *Handle) Receive(ctx context.Context, timeout time.Duration, fn func(*Message) error) error {
	m, err := h.GetMessage(ctx, timeout)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := h.FreeMessage(m); ferr != nil {
			h.log.Warn("release failed", "seq", m.Seq, "err", ferr)
		}
	}()
	return fn(m.Borrow())
}

// SendFrame is SendMessage over the binary wire form.
func (h *Handle) SendFrame(ctx context.Context, frame []byte) ([]byte, error) {
	env, err := message.Decode(frame)
	if err != nil {
		resp := message.Errorf(message.CodeInvalidPayload, "%v", err)
		return message.Encode(resp)
	}
	return message.Encode(h.SendMessage(ctx, env))
}

// GetFrame retrieves and releases one event in binary wire form.
func (h *Handle) GetFrame(ctx context.Context, timeout time.Duration) ([]byte, error) {
	var out []byte
	err := h.Receive(ctx, timeout, func(m *Message) error {
		b, err := message.Encode(m.Envelope)
		out = b
		return err
	})
	return out, err
}

// Call returns the tracked state of a call.
func (h *Handle) Call(token string) (calls.CallState, error) { return h.calls.Lookup(token) }

// Calls lists every tracked call, including cleared calls whose
// CallCleared event has not been released yet.
func (h *Handle) Calls() []calls.CallState { return h.calls.List() }

func (h *Handle) Registrations() []registrar.State { return h.registrar.List() }

// Outstanding is the number of messages handed out and not yet released.
func (h *Handle) Outstanding() int64 { return h.outstanding.Load() }

// Shutdown stops the connection manager, wakes every pending GetMessage
// with events.ErrShuttingDown and waits for background work. It is safe to
// call more than once.
func (h *Handle) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.closed.Store(true)
		h.dispatch.Close()

		var errs []error
		if err := h.cm.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", h.cm.Name(), err))
		}
		h.queue.Shutdown()
		h.cancel()

		done := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}

		h.calls.Close()
		if n := h.outstanding.Load(); n > 0 {
			h.log.Warn("endpoint shut down with unreleased messages", "count", n)
		}
		h.log.Info("endpoint shut down")
		h.stopErr = errors.Join(errs...)
	})
	return h.stopErr
}

func (h *Handle) forget(token string) {
	s, err := h.calls.Lookup(token)
	if err != nil || s.Phase != calls.PhaseCleared {
		return
	}
	if err := h.calls.Remove(token); err != nil && !errors.Is(err, calls.ErrClosed) {
		h.log.Warn("forget call failed", "token", token, "err", err)
	}
}

// onCleared runs on the event producer; the slow parts go to the background.
func (h *Handle) onCleared(c events.ClearedCall) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.dispatch.CallCleared(ctx, c.State.Token)
		if h.records == nil {
			return
		}
		rec := calls.RecordFrom(uuid.NewString(), c.State, c.LastPhase, c.Reason, c.At)
		if err := h.records.Append(ctx, rec); err != nil {
			h.log.Error("call record write failed", "token", c.State.Token, "err", err)
		}
	}()
}

func (h *Handle) refreshRegistrations(every time.Duration) {
	defer h.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-h.bg.Done():
			return
		case now := <-t.C:
			for _, reg := range h.registrar.NeedsRefresh(now) {
				resp := h.dispatch.Register(h.bg, reg)
				if err := dispatch.Err(resp); err != nil {
					h.log.Warn("registration refresh failed", "protocol", reg.Protocol, "err", err)
				}
			}
		}
	}
}
