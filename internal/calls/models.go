package calls

import (
	"strings"
	"time"

	"github.com/joegen/opalvoip-opal/internal/message"
)

// Record is the call detail record written once a call has cleared.
//
// Records are append-only. They are derived from the final CallState and the
// clearance reason; nothing reads them back into the live registry.
type Record struct {
	ID        string    `json:"id" db:"id"`
	CallToken string    `json:"call_token" db:"call_token"`
	Direction Direction `json:"direction" db:"direction"`
	Protocol  string    `json:"protocol,omitempty" db:"protocol"`

	PartyA string `json:"party_a" db:"party_a"`
	PartyB string `json:"party_b" db:"party_b"`

	Status    CallStatus `json:"status" db:"status"`
	EndReason string     `json:"end_reason,omitempty" db:"end_reason"`

	// DurationSeconds counts from establishment; zero for unanswered calls.
	DurationSeconds int `json:"duration" db:"duration"`
	// MediaStreams counts streams opened during the call.
	MediaStreams int `json:"media_streams" db:"media_streams"`

	RecordingFile string `json:"recording_file,omitempty" db:"recording_file"`

	StartedAt time.Time `json:"started_at" db:"started_at"`
	EndedAt   time.Time `json:"ended_at" db:"ended_at"`
}

type CallStatus string

const (
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no_answer"
	CallStatusBusy       CallStatus = "busy"
	CallStatusCanceled   CallStatus = "canceled"
)

// StatusFor classifies how a call ended from its last phase and end reason.
func StatusFor(phase Phase, endReason string) CallStatus {
	if phase == PhaseEstablished {
		return CallStatusCompleted
	}
	r := endReason
	switch {
	case strings.Contains(r, message.EndedByRemoteBusy.String()), strings.Contains(r, message.EndedByLocalBusy.String()):
		return CallStatusBusy
	case strings.Contains(r, message.EndedByNoAnswer.String()):
		return CallStatusNoAnswer
	case strings.Contains(r, message.EndedByCallerAbort.String()), strings.Contains(r, message.EndedByLocalUser.String()):
		return CallStatusCanceled
	default:
		return CallStatusFailed
	}
}

// RecordFrom builds the detail record for a call that cleared at endedAt.
// phase is the last phase before Cleared.
func RecordFrom(id string, s CallState, phase Phase, endReason string, endedAt time.Time) Record {
	rec := Record{
		ID:            id,
		CallToken:     s.Token,
		Direction:     s.Direction,
		Protocol:      string(s.Protocol),
		PartyA:        s.PartyA,
		PartyB:        s.PartyB,
		Status:        StatusFor(phase, endReason),
		EndReason:     endReason,
		MediaStreams:  max(s.StreamsOpened, len(s.Streams)),
		RecordingFile: s.Recording,
		StartedAt:     s.CreatedAt,
		EndedAt:       endedAt,
	}
	if !s.EstablishedAt.IsZero() && endedAt.After(s.EstablishedAt) {
		rec.DurationSeconds = int(endedAt.Sub(s.EstablishedAt) / time.Second)
	}
	return rec
}
