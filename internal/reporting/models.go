package reporting

import (
	"time"

	"github.com/joegen/opalvoip-opal/internal/calls"
)

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics for calls that ended
// inside Range. Direction and Protocol narrow the set when non-empty.
type CallsSummaryRequest struct {
	Range     TimeRange       `json:"range"`
	Direction calls.Direction `json:"direction,omitempty"`
	Protocol  string          `json:"protocol,omitempty"`
}

type CallsSummary struct {
	Range TimeRange `json:"range"`

	TotalCalls     int `json:"total_calls"`
	IncomingCalls  int `json:"incoming_calls"`
	OutgoingCalls  int `json:"outgoing_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	NoAnswerCalls  int `json:"no_answer_calls"`
	BusyCalls      int `json:"busy_calls"`
	CanceledCalls  int `json:"canceled_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	RecordedCalls int `json:"recorded_calls"`

	ByEndReason map[string]int `json:"by_end_reason"`
	ByProtocol  map[string]int `json:"by_protocol"`
}
