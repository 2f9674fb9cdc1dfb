package endpoint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joegen/opalvoip-opal/internal/calls"
	"github.com/joegen/opalvoip-opal/internal/dispatch"
	"github.com/joegen/opalvoip-opal/internal/events"
	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/routing"
	"github.com/joegen/opalvoip-opal/internal/telephony"
)

func start(t *testing.T, opts Options) *Handle {
	t.Helper()
	if opts.Version == 0 {
		opts.Version = APIVersion
	}
	if opts.Manager == nil {
		opts.Manager = telephony.NewLoopback(telephony.Behavior{}, nil)
	}
	h, err := Initialise(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return h
}

// next returns the next event of kind, releasing everything before it.
func next(t *testing.T, h *Handle, kind message.Kind) *Message {
	t.Helper()
	for {
		m, err := h.GetMessage(context.Background(), 2*time.Second)
		require.NoError(t, err, "waiting for %s", kind)
		if m.Envelope.Kind == kind {
			return m
		}
		require.NoError(t, h.FreeMessage(m))
	}
}

func TestInitialise_Validation(t *testing.T) {
	ctx := context.Background()
	lb := telephony.NewLoopback(telephony.Behavior{}, nil)

	_, err := Initialise(ctx, Options{Manager: lb})
	assert.ErrorIs(t, err, ErrInit)

	_, err = Initialise(ctx, Options{Version: 1})
	assert.ErrorIs(t, err, ErrInit)

	_, err = Initialise(ctx, Options{Version: 1, Manager: lb, Capabilities: "pcss carrier-pigeon"})
	assert.ErrorIs(t, err, ErrInit)
}

func TestInitialise_NegotiatesVersion(t *testing.T) {
	h := start(t, Options{Version: APIVersion + 10, Capabilities: "pcss sip"})
	assert.Equal(t, APIVersion, h.Version())
	assert.True(t, h.Capabilities().Has(message.PrefixSIP))
	assert.False(t, h.Capabilities().Has(message.PrefixH323))

	low := start(t, Options{Version: 5})
	assert.Equal(t, uint32(5), low.Version())
}

func TestInitialise_FailingSetupCommand(t *testing.T) {
	_, err := Initialise(context.Background(), Options{
		Version: APIVersion,
		Manager: telephony.NewLoopback(telephony.Behavior{}, nil),
		Setup:   []message.Envelope{message.Of(message.HoldCall{CallToken: "nobody"})},
	})
	assert.ErrorIs(t, err, ErrInit)
	assert.ErrorIs(t, err, dispatch.ErrStaleToken)
}

func TestGetMessage_ZeroTimeoutOnEmptyQueue(t *testing.T) {
	h := start(t, Options{})
	began := time.Now()
	m, err := h.GetMessage(context.Background(), 0)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, events.ErrTimeout)
	assert.Less(t, time.Since(began), 100*time.Millisecond)
}

func TestSetUpCallScenario(t *testing.T) {
	h := start(t, Options{Manager: telephony.NewLoopback(telephony.Behavior{AutoAlert: true, AutoAnswer: true}, nil)})
	ctx := context.Background()

	resp := h.SendMessage(ctx, message.Of(message.SetUpCall{PartyA: "pcss:alice", PartyB: "sip:bob@example.com"}))
	require.NoError(t, dispatch.Err(resp))
	token := resp.CallToken()
	require.NotEmpty(t, token)

	m, err := h.GetMessage(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, token, m.Envelope.CallToken())
	assert.NoError(t, m.Diagnostic)
	require.NoError(t, h.FreeMessage(m))

	m = next(t, h, message.KindEstablished)
	assert.Equal(t, token, m.Envelope.CallToken())
	require.NoError(t, h.FreeMessage(m))

	s, err := h.Call(token)
	require.NoError(t, err)
	assert.Equal(t, calls.PhaseEstablished, s.Phase)
}

func TestDoubleClearCall(t *testing.T) {
	h := start(t, Options{Manager: telephony.NewLoopback(telephony.Behavior{AutoAnswer: true}, nil)})
	ctx := context.Background()

	token := h.SendMessage(ctx, message.Of(message.SetUpCall{PartyB: "sip:bob@example.com"})).CallToken()
	require.NotEmpty(t, token)

	for i := 0; i < 2; i++ {
		resp := h.SendMessage(ctx, message.Of(message.ClearCall{CallToken: token}))
		assert.False(t, resp.IsError(), "clear %d", i+1)
		assert.Equal(t, message.KindClearCall, resp.Kind)
	}
}

func TestFreeMessage_Ownership(t *testing.T) {
	h := start(t, Options{})
	ctx := context.Background()
	require.NoError(t, dispatch.Err(h.SendMessage(ctx, message.Of(message.SetUpCall{PartyB: "sip:bob@example.com"}))))

	m, err := h.GetMessage(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, Owned, m.Ownership())
	assert.Equal(t, int64(1), h.Outstanding())

	view := m.Borrow()
	assert.Equal(t, Borrowed, view.Ownership())
	assert.Equal(t, m.Envelope, view.Envelope)
	assert.ErrorIs(t, h.FreeMessage(view), ErrBorrowed)

	require.NoError(t, h.FreeMessage(m))
	assert.True(t, view.Released())
	assert.ErrorIs(t, h.FreeMessage(m), ErrAlreadyReleased)
	assert.ErrorIs(t, h.FreeMessage(nil), ErrNilMessage)
	assert.Equal(t, int64(0), h.Outstanding())
}

func TestReleasingCallClearedForgetsCall(t *testing.T) {
	repo := calls.NewMemoryRecordRepo()
	h := start(t, Options{
		Manager: telephony.NewLoopback(telephony.Behavior{AutoAnswer: true}, nil),
		Records: repo,
	})
	ctx := context.Background()

	token := h.SendMessage(ctx, message.Of(message.SetUpCall{PartyA: "pcss:alice", PartyB: "sip:bob@example.com"})).CallToken()
	require.NoError(t, dispatch.Err(h.SendMessage(ctx, message.Of(message.ClearCall{CallToken: token}))))

	m := next(t, h, message.KindCallCleared)
	s, err := h.Call(token)
	require.NoError(t, err, "cleared call stays visible until its event is released")
	assert.Equal(t, calls.PhaseCleared, s.Phase)

	require.NoError(t, h.FreeMessage(m))
	_, err = h.Call(token)
	assert.ErrorIs(t, err, calls.ErrNotFound)

	require.Eventually(t, func() bool { return len(repo.Records()) == 1 }, 2*time.Second, 5*time.Millisecond)
	rec := repo.Records()[0]
	assert.Equal(t, token, rec.CallToken)
	assert.Equal(t, calls.DirectionOutgoing, rec.Direction)
	assert.Equal(t, calls.CallStatusCompleted, rec.Status)
}

func TestCapacitySlotReturnedOnClear(t *testing.T) {
	lim := dispatch.NewMemoryLimiter(1)
	h := start(t, Options{Manager: telephony.NewLoopback(telephony.Behavior{AutoAnswer: true}, nil), Limiter: lim})
	ctx := context.Background()

	token := h.SendMessage(ctx, message.Of(message.SetUpCall{PartyB: "sip:bob@example.com"})).CallToken()
	resp := h.SendMessage(ctx, message.Of(message.SetUpCall{PartyB: "sip:carol@example.com"}))
	assert.ErrorIs(t, dispatch.Err(resp), dispatch.ErrCapacity)

	require.NoError(t, dispatch.Err(h.SendMessage(ctx, message.Of(message.ClearCall{CallToken: token}))))
	require.Eventually(t, func() bool { return lim.InUse() == 0 }, 2*time.Second, 5*time.Millisecond)

	resp = h.SendMessage(ctx, message.Of(message.SetUpCall{PartyB: "sip:carol@example.com"}))
	assert.NoError(t, dispatch.Err(resp))
}

func TestCapacitySlotsReturnedForBusyCalls(t *testing.T) {
	lim := dispatch.NewMemoryLimiter(1 << 20)
	h := start(t, Options{Manager: telephony.NewLoopback(telephony.Behavior{Busy: []string{"sip:busy@example.com"}}, nil), Limiter: lim})
	ctx := context.Background()

	const n = 500
	for i := 0; i < n; i++ {
		resp := h.SendMessage(ctx, message.Of(message.SetUpCall{PartyB: "sip:busy@example.com"}))
		require.NoError(t, dispatch.Err(resp))
	}

	cleared := 0
	for cleared < n {
		m, err := h.GetMessage(ctx, 2*time.Second)
		require.NoError(t, err, "cleared %d of %d", cleared, n)
		if m.Envelope.Kind == message.KindCallCleared {
			cleared++
		}
		require.NoError(t, h.FreeMessage(m))
	}
	require.Eventually(t, func() bool { return lim.InUse() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestShutdownWakesPendingGet(t *testing.T) {
	h := start(t, Options{})
	errc := make(chan error, 1)
	go func() {
		_, err := h.GetMessage(context.Background(), -1)
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, h.Shutdown(context.Background()))
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, events.ErrShuttingDown)
	case <-time.After(2 * time.Second):
		t.Fatal("GetMessage still blocked after Shutdown")
	}

	resp := h.SendMessage(context.Background(), message.Of(message.SetUpCall{PartyB: "sip:bob@example.com"}))
	assert.ErrorIs(t, dispatch.Err(resp), dispatch.ErrShuttingDown)
	assert.NoError(t, h.Shutdown(context.Background()))
}

func TestAutoAnswerAppliesRoutingDecision(t *testing.T) {
	lb := telephony.NewLoopback(telephony.Behavior{}, nil)
	router := routing.NewRoutingEngine([]routing.Rule{
		{Match: "pcss:alice", Action: routing.ActionAnswer},
		{Match: "*", Action: routing.ActionReject},
	}, nil)
	h := start(t, Options{Manager: lb, Router: router})

	answered, err := lb.InjectIncoming("sip:carol@example.com", "pcss:alice")
	require.NoError(t, err)
	m := next(t, h, message.KindEstablished)
	assert.Equal(t, answered, m.Envelope.CallToken())
	require.NoError(t, h.FreeMessage(m))

	rejected, err := lb.InjectIncoming("sip:carol@example.com", "pcss:bob")
	require.NoError(t, err)
	m = next(t, h, message.KindCallCleared)
	assert.Equal(t, rejected, m.Envelope.CallToken())
	assert.Equal(t, message.EndedByAnswerDenied.String(), m.Envelope.Payload.(message.CallCleared).Reason)
	require.NoError(t, h.FreeMessage(m))
}

// scriptedCM lets a test emit arbitrary events.
type scriptedCM struct {
	mu   sync.Mutex
	sink telephony.EventSink
}

func (c *scriptedCM) Name() string { return "scripted" }

func (c *scriptedCM) Start(ctx context.Context, caps message.CapabilityMask, sink telephony.EventSink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
	return nil
}

func (c *scriptedCM) Submit(ctx context.Context, env message.Envelope) (message.Envelope, error) {
	return env, nil
}

func (c *scriptedCM) Stop(ctx context.Context) error { return nil }

func (c *scriptedCM) emit(p message.Payload) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	sink.Emit(message.Of(p))
}

func TestOrphanMediaStreamIsDeliveredTagged(t *testing.T) {
	cm := &scriptedCM{}
	h := start(t, Options{Manager: cm})

	cm.emit(message.MediaStream{CallToken: "ghost", Type: "audio in", State: message.MediaStateOpen})
	cm.emit(message.UserInput{CallToken: "ghost", UserInput: "5"})

	m, err := h.GetMessage(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, message.KindMediaStream, m.Envelope.Kind)
	assert.ErrorIs(t, m.Diagnostic, events.ErrOrphanEvent)
	require.NoError(t, h.FreeMessage(m))

	m, err = h.GetMessage(context.Background(), time.Second)
	require.NoError(t, err, "the queue keeps delivering after an orphan")
	assert.Equal(t, message.KindUserInput, m.Envelope.Kind)
	require.NoError(t, h.FreeMessage(m))
}

func TestFrames(t *testing.T) {
	h := start(t, Options{})
	ctx := context.Background()

	frame, err := message.Encode(message.Of(message.SetUpCall{PartyB: "sip:bob@example.com"}))
	require.NoError(t, err)
	out, err := h.SendFrame(ctx, frame)
	require.NoError(t, err)
	resp, err := message.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, message.KindSetUpCall, resp.Kind)
	token := resp.CallToken()
	assert.NotEmpty(t, token)

	out, err = h.SendFrame(ctx, []byte{0x01})
	require.NoError(t, err)
	resp, err = message.Decode(out)
	require.NoError(t, err)
	assert.ErrorIs(t, dispatch.Err(resp), message.ErrInvalidPayload)

	ev, err := h.GetFrame(ctx, time.Second)
	require.NoError(t, err)
	env, err := message.Decode(ev)
	require.NoError(t, err)
	assert.Equal(t, message.KindProceeding, env.Kind)
	assert.Equal(t, token, env.CallToken())
	assert.Equal(t, int64(0), h.Outstanding())
}

func TestRegistrationRefresh(t *testing.T) {
	h := start(t, Options{RefreshInterval: 20 * time.Millisecond})
	ctx := context.Background()

	resp := h.SendMessage(ctx, message.Of(message.Registration{Protocol: "sip", Identifier: "alice", HostName: "registrar.example.com", TimeToLive: 1}))
	require.NoError(t, dispatch.Err(resp))

	first := next(t, h, message.KindRegistrationStatus)
	require.NoError(t, h.FreeMessage(first))
	second := next(t, h, message.KindRegistrationStatus)
	require.NoError(t, h.FreeMessage(second))

	regs := h.Registrations()
	require.Len(t, regs, 1)
	assert.Equal(t, message.RegistrationSuccessful, regs[0].Status)
}
