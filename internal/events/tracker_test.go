package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joegen/opalvoip-opal/internal/calls"
	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/registrar"
)

func newTrackedQueue(t *testing.T) (*Queue, *Tracker, *calls.Registry) {
	t.Helper()
	reg := calls.NewRegistry()
	tr := NewTracker(reg, registrar.New(), nil)
	return NewQueue(tr, nil), tr, reg
}

func next(t *testing.T, q *Queue) Delivery {
	t.Helper()
	d, err := q.Get(context.Background(), 0)
	require.NoError(t, err)
	return d
}

func TestTracker_OrphanMediaStreamIsTaggedAndDelivered(t *testing.T) {
	q, _, _ := newTrackedQueue(t)

	q.Push(message.Of(message.MediaStream{CallToken: "nope", Identifier: "1", State: message.MediaStateOpen}))
	q.Push(message.Of(message.MessageWaiting{Party: "sip:alice@example.com"}))

	d := next(t, q)
	assert.Equal(t, message.KindMediaStream, d.Envelope.Kind)
	assert.ErrorIs(t, d.Diagnostic, ErrOrphanEvent)

	d = next(t, q)
	assert.NoError(t, d.Diagnostic, "queue keeps going after an orphan")
}

func TestTracker_IncomingCallLifecycle(t *testing.T) {
	q, tr, reg := newTrackedQueue(t)
	var cleared []ClearedCall
	tr.OnCleared = func(c ClearedCall) { cleared = append(cleared, c) }

	q.Push(message.Of(message.IncomingCall{CallToken: "in1", RemoteAddress: "sip:carol@example.com", CalledAddress: "pcss:alice"}))
	s, err := reg.Lookup("in1")
	require.NoError(t, err)
	assert.Equal(t, calls.DirectionIncoming, s.Direction)
	assert.Equal(t, message.PrefixSIP, s.Protocol)
	assert.Equal(t, calls.PhaseSetup, s.Phase)

	q.Push(message.Of(message.Established{CallToken: "in1"}))
	q.Push(message.Of(message.MediaStream{CallToken: "in1", Identifier: "a", Type: "audio in", State: message.MediaStateOpen}))
	q.Push(message.Of(message.UserInput{CallToken: "in1", UserInput: "12"}))
	q.Push(message.Of(message.OnHold{CallToken: "in1"}))

	s, _ = reg.Lookup("in1")
	assert.Equal(t, calls.PhaseEstablished, s.Phase)
	assert.Len(t, s.Streams, 1)
	assert.Equal(t, "12", s.UserInput)
	assert.True(t, s.Held)

	q.Push(message.Of(message.CallCleared{CallToken: "in1", Reason: "EndedByRemoteUser"}))
	require.Len(t, cleared, 1)
	assert.Equal(t, calls.PhaseEstablished, cleared[0].LastPhase)
	assert.Equal(t, "EndedByRemoteUser", cleared[0].State.EndReason)

	s, err = reg.Lookup("in1")
	require.NoError(t, err, "entry stays until the cleared event is released")
	assert.Equal(t, calls.PhaseCleared, s.Phase)

	q.Push(message.Of(message.CallCleared{CallToken: "in1"}))
	for i := 0; i < 5; i++ {
		assert.NoError(t, next(t, q).Diagnostic)
	}
	assert.NoError(t, next(t, q).Diagnostic)
	assert.ErrorIs(t, next(t, q).Diagnostic, ErrOrphanEvent)
	assert.Len(t, cleared, 1)
}

func TestTracker_EstablishedBeforeSetupIsTagged(t *testing.T) {
	q, _, reg := newTrackedQueue(t)
	require.NoError(t, reg.Create("idle", calls.CallState{Phase: calls.PhaseIdle}))

	q.Push(message.Of(message.Established{CallToken: "idle"}))
	d := next(t, q)
	assert.ErrorIs(t, d.Diagnostic, ErrOrphanEvent)
	assert.ErrorIs(t, d.Diagnostic, calls.ErrInvalidTransition)

	s, _ := reg.Lookup("idle")
	assert.Equal(t, calls.PhaseIdle, s.Phase)
}

func TestTracker_DuplicateIncomingIsTagged(t *testing.T) {
	q, _, _ := newTrackedQueue(t)
	q.Push(message.Of(message.IncomingCall{CallToken: "dup", RemoteAddress: "sip:x@example.com"}))
	q.Push(message.Of(message.IncomingCall{CallToken: "dup", RemoteAddress: "sip:x@example.com"}))
	assert.NoError(t, next(t, q).Diagnostic)
	d := next(t, q)
	assert.ErrorIs(t, d.Diagnostic, calls.ErrDuplicateToken)
}

func TestTracker_RegistrationStatusUpdatesRegistrar(t *testing.T) {
	q, tr, _ := newTrackedQueue(t)
	_, err := tr.Registrar.Request(message.Registration{Protocol: "sip", Identifier: "alice", TimeToLive: 60})
	require.NoError(t, err)

	q.Push(message.Of(message.RegistrationStatusReport{Protocol: "sip", Status: message.RegistrationSuccessful, ServerName: "example.com"}))
	assert.NoError(t, next(t, q).Diagnostic)

	st, err := tr.Registrar.Lookup("sip")
	require.NoError(t, err)
	assert.True(t, st.Active())
	assert.Equal(t, "example.com", st.ServerName)
}

func TestTracker_InstantMessageForUnknownCall(t *testing.T) {
	q, _, _ := newTrackedQueue(t)
	q.Push(message.Of(message.ReceiveIM{To: "pcss:alice", TextBody: "hi"}))
	q.Push(message.Of(message.ReceiveIM{To: "pcss:alice", TextBody: "hi", CallToken: "gone"}))
	assert.NoError(t, next(t, q).Diagnostic)
	assert.ErrorIs(t, next(t, q).Diagnostic, ErrOrphanEvent)
}
