package events

import (
	"encoding/json"
	"time"

	"github.com/joegen/opalvoip-opal/internal/message"
)

// Delivery is one event handed to the consumer, in queue order.
type Delivery struct {
	Seq      uint64
	Envelope message.Envelope
	// Diagnostic is non-nil when the event did not fit the call state it names.
	Diagnostic error
	At         time.Time
}

func (d Delivery) MarshalJSON() ([]byte, error) {
	out := struct {
		Seq        uint64           `json:"seq"`
		At         time.Time        `json:"at"`
		Envelope   message.Envelope `json:"envelope"`
		Diagnostic string           `json:"diagnostic,omitempty"`
	}{Seq: d.Seq, At: d.At, Envelope: d.Envelope}
	if d.Diagnostic != nil {
		out.Diagnostic = d.Diagnostic.Error()
	}
	return json.Marshal(out)
}
