package routing

import (
	"context"
	"errors"

	"github.com/joegen/opalvoip-opal/internal/message"
)

var ErrInvalidInbound = errors.New("routing: invalid inbound call")

// Inbound is what the policy knows about an incoming call when it decides.
type Inbound struct {
	CallToken string
	// From is the remote party, To the local address that was called.
	From     string
	To       string
	Protocol message.Prefix
}

// InboundFrom builds the policy input from an IncomingCall event.
func InboundFrom(p message.IncomingCall) Inbound {
	to := p.CalledAddress
	if to == "" {
		to = p.LocalAddress
	}
	in := Inbound{CallToken: p.CallToken, From: p.RemoteAddress, To: to}
	if pr, _, err := message.ParseAddress(p.RemoteAddress); err == nil {
		in.Protocol = pr
	}
	return in
}

// Engine decides what to do with an incoming call.
//
// Implementations return a decision only. Applying it is the endpoint's job.
type Engine interface {
	Route(ctx context.Context, in Inbound) (Decision, error)
}

// NewNoopEngine returns an engine that answers every call.
func NewNoopEngine() Engine { return noopEngine{} }

type noopEngine struct{}

func (noopEngine) Route(ctx context.Context, in Inbound) (Decision, error) {
	if in.CallToken == "" {
		return Decision{}, ErrInvalidInbound
	}
	return Decision{CallToken: in.CallToken, Action: ActionAnswer}, nil
}
