package calls

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joegen/opalvoip-opal/internal/message"
)

func TestCallStatusValuesAreNonEmpty(t *testing.T) {
	statuses := []CallStatus{
		CallStatusRinging,
		CallStatusInProgress,
		CallStatusCompleted,
		CallStatusFailed,
		CallStatusNoAnswer,
		CallStatusBusy,
		CallStatusCanceled,
	}
	for _, s := range statuses {
		assert.NotEmpty(t, s)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		phase  Phase
		reason string
		want   CallStatus
	}{
		{PhaseEstablished, "EndedByRemoteUser", CallStatusCompleted},
		{PhaseAlerting, "EndedByRemoteBusy", CallStatusBusy},
		{PhaseSetup, "EndedByNoAnswer", CallStatusNoAnswer},
		{PhaseAlerting, "EndedByCallerAbort", CallStatusCanceled},
		{PhaseSetup, "EndedByUnreachable", CallStatusFailed},
		{PhaseSetup, "", CallStatusFailed},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusFor(c.phase, c.reason), "StatusFor(%s, %q)", c.phase, c.reason)
	}
}

func TestRecordFrom_DurationFromEstablishment(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()
	s := CallState{
		Token:         "tok",
		Direction:     DirectionOutgoing,
		Protocol:      "sip",
		PartyA:        "pcss:alice",
		PartyB:        "sip:bob@example.com",
		CreatedAt:     start,
		EstablishedAt: start.Add(5 * time.Second),
		Streams:       map[string]MediaStreamDescriptor{"1": {}, "2": {}},
	}
	rec := RecordFrom("r1", s, PhaseEstablished, "EndedByRemoteUser", start.Add(65*time.Second))
	assert.Equal(t, 60, rec.DurationSeconds)
	assert.Equal(t, CallStatusCompleted, rec.Status)
	assert.Equal(t, 2, rec.MediaStreams)
	assert.Equal(t, "sip", rec.Protocol)

	unanswered := RecordFrom("r2", CallState{Token: "t2", CreatedAt: start}, PhaseAlerting, "EndedByNoAnswer", start.Add(30*time.Second))
	assert.Zero(t, unanswered.DurationSeconds)
	assert.Equal(t, CallStatusNoAnswer, unanswered.Status)
}

func TestRecordFrom_CountsStreamsClosedBeforeClear(t *testing.T) {
	s := CallState{Token: "tok", Phase: PhaseEstablished}
	for _, id := range []string{"a-out", "a-in"} {
		s.ApplyStream(message.MediaStreamInfo{CallToken: "tok", Identifier: id, Type: "audio", State: message.MediaStateOpen})
	}
	for _, id := range []string{"a-out", "a-in"} {
		s.ApplyStream(message.MediaStreamInfo{CallToken: "tok", Identifier: id, State: message.MediaStateClose})
	}
	rec := RecordFrom("r1", s, PhaseEstablished, "EndedByLocalUser", time.Now())
	assert.Equal(t, 2, rec.MediaStreams)
}
