package calls

import (
	"fmt"
	"time"

	"github.com/joegen/opalvoip-opal/internal/message"
)

// Phase is the lifecycle position of a call:
// Idle -> Setup -> Alerting? -> Established -> Cleared.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSetup
	PhaseAlerting
	PhaseEstablished
	PhaseCleared
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseSetup:
		return "Setup"
	case PhaseAlerting:
		return "Alerting"
	case PhaseEstablished:
		return "Established"
	case PhaseCleared:
		return "Cleared"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// IsTerminal reports whether no further transition is possible.
func (p Phase) IsTerminal() bool { return p == PhaseCleared }

var transitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseSetup},
	PhaseSetup:       {PhaseSetup, PhaseAlerting, PhaseEstablished, PhaseCleared},
	PhaseAlerting:    {PhaseAlerting, PhaseEstablished, PhaseCleared},
	PhaseEstablished: {PhaseEstablished, PhaseCleared},
}

// CanTransition reports whether a call in phase p may move to next.
// Established is only reachable through Setup.
func (p Phase) CanTransition(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowsMedia reports whether media stream events are expected in p.
// Early media may open before the call is answered.
func (p Phase) AllowsMedia() bool {
	return p == PhaseSetup || p == PhaseAlerting || p == PhaseEstablished
}

// Direction says which side created the call.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// MediaStreamDescriptor is one media stream owned by a call.
type MediaStreamDescriptor struct {
	CallToken string             `json:"call_token"`
	StreamID  string             `json:"stream_id"`
	Type      string             `json:"type"`
	Format    string             `json:"format,omitempty"`
	State     message.MediaState `json:"state"`
	Volume    int32              `json:"volume,omitempty"`
}

// CallState is the registry record for one live call.
type CallState struct {
	Token          string         `json:"token"`
	Direction      Direction      `json:"direction"`
	Protocol       message.Prefix `json:"protocol,omitempty"`
	PartyA         string         `json:"party_a"`
	PartyB         string         `json:"party_b"`
	ProtocolCallID string         `json:"protocol_call_id,omitempty"`
	// Registration is the status of the protocol registration the call used, if any.
	Registration string `json:"registration,omitempty"`

	Phase     Phase  `json:"phase"`
	Answering bool   `json:"answering,omitempty"`
	Held      bool   `json:"held,omitempty"`
	Recording string `json:"recording,omitempty"`
	UserData  string `json:"user_data,omitempty"`
	UserInput string `json:"user_input,omitempty"`
	EndReason string `json:"end_reason,omitempty"`

	Streams map[string]MediaStreamDescriptor `json:"streams,omitempty"`
	// StreamsOpened counts every stream seen on the call, closed or not.
	StreamsOpened int `json:"streams_opened,omitempty"`

	CreatedAt     time.Time `json:"created_at"`
	EstablishedAt time.Time `json:"established_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with s.
func (s CallState) Clone() CallState {
	out := s
	if s.Streams != nil {
		out.Streams = make(map[string]MediaStreamDescriptor, len(s.Streams))
		for k, v := range s.Streams {
			out.Streams[k] = v
		}
	}
	return out
}

// Advance moves the call to next, or fails with ErrInvalidTransition.
func (s *CallState) Advance(next Phase, now time.Time) error {
	if !s.Phase.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, next)
	}
	if next == PhaseEstablished && s.EstablishedAt.IsZero() {
		s.EstablishedAt = now
	}
	s.Phase = next
	s.UpdatedAt = now
	return nil
}

// ApplyStream records a media stream change. Closed streams are dropped from
// Streams but stay counted in StreamsOpened.
func (s *CallState) ApplyStream(m message.MediaStreamInfo) {
	if s.Streams == nil {
		s.Streams = make(map[string]MediaStreamDescriptor)
	}
	key := m.Identifier
	if key == "" {
		key = m.Type
	}
	if m.State == message.MediaStateClose {
		delete(s.Streams, key)
		return
	}
	cur, ok := s.Streams[key]
	if !ok {
		cur = MediaStreamDescriptor{CallToken: s.Token, StreamID: key}
		s.StreamsOpened++
	}
	if m.Type != "" {
		cur.Type = m.Type
	}
	if m.Format != "" {
		cur.Format = m.Format
	}
	if m.State != message.MediaStateNoChange {
		cur.State = m.State
	}
	if m.Volume != 0 {
		cur.Volume = m.Volume
	}
	s.Streams[key] = cur
}
