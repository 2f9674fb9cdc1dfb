package routing

import "github.com/joegen/opalvoip-opal/internal/message"

// Decision is the policy's answer for one incoming call.
//
// It must contain only what the endpoint needs to apply it through the
// dispatcher: answer the call, clear it with a reason, or transfer it.
type Decision struct {
	CallToken string `json:"call_token"`

	Action    Action                `json:"action"`
	ForwardTo string                `json:"forward_to,omitempty"`
	EndReason message.CallEndReason `json:"end_reason,omitempty"`

	// Reason is optional and intended for internal logs.
	Reason string `json:"reason,omitempty"`
}

type Action string

const (
	ActionAnswer  Action = "answer"
	ActionReject  Action = "reject"
	ActionForward Action = "forward"
)

// ParseAction accepts the lower-case action names used in profiles.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionAnswer, ActionReject, ActionForward:
		return a, true
	}
	return "", false
}
