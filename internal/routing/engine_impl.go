package routing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/joegen/opalvoip-opal/internal/message"
)

// RoutingEngine evaluates the incoming-call policy.
//
// Priority:
//  1. Active override
//  2. Capacity
//  3. Prefix rules, first match wins
//  4. Weighted destination selection for forward rules
//
// Return routing decision only. No side effects besides the override audit.
type RoutingEngine struct {
	Overrides *AdminOverrideEngine

	// MaxActive caps concurrent calls; zero disables the check.
	MaxActive   int
	ActiveCalls func() int

	Rules []Rule
	// Default applies when no rule matches. Empty means reject.
	Default Action

	mu  sync.Mutex
	RNG *rand.Rand
	Now func() time.Time
}

// Rule matches the called address by prefix. "*" matches every call.
type Rule struct {
	Match        string
	Action       Action
	Destinations []WeightedDestination
}

type WeightedDestination struct {
	// Target is a dialable address, for example sip:agent-123@pbx.example.com.
	Target string

	// Weight must be > 0.
	Weight int
}

func NewRoutingEngine(rules []Rule, rng *rand.Rand) *RoutingEngine {
	return &RoutingEngine{Rules: rules, RNG: rng, Now: time.Now}
}

// Validate reports rules that can never produce a decision.
func (e *RoutingEngine) Validate() error {
	var errs []error
	for i, r := range e.Rules {
		if r.Match == "" {
			errs = append(errs, fmt.Errorf("routing: rule %d has empty match", i))
		}
		if _, ok := ParseAction(string(r.Action)); !ok {
			errs = append(errs, fmt.Errorf("routing: rule %d has unknown action %q", i, r.Action))
		}
		if r.Action == ActionForward && len(r.Destinations) == 0 {
			errs = append(errs, fmt.Errorf("routing: forward rule %d has no destinations", i))
		}
	}
	if e.Default != "" {
		if _, ok := ParseAction(string(e.Default)); !ok || e.Default == ActionForward {
			errs = append(errs, errors.New("routing: default action must be answer or reject"))
		}
	}
	return errors.Join(errs...)
}

func (e *RoutingEngine) Route(ctx context.Context, in Inbound) (Decision, error) {
	if in.CallToken == "" {
		return Decision{}, ErrInvalidInbound
	}

	// 1) Silent, expiry-based overrides
	if e.Overrides != nil {
		d, applied, err := e.Overrides.Decide(ctx, in)
		if err != nil {
			return Decision{}, err
		}
		if applied {
			return d, nil
		}
	}

	// 2) Capacity
	if e.MaxActive > 0 && e.ActiveCalls != nil && e.ActiveCalls() > e.MaxActive {
		return Decision{CallToken: in.CallToken, Action: ActionReject, EndReason: message.EndedByLocalBusy, Reason: "capacity"}, nil
	}

	// 3) Prefix rules
	for _, r := range e.Rules {
		if !r.matches(in.To) {
			continue
		}
		switch r.Action {
		case ActionAnswer:
			return Decision{CallToken: in.CallToken, Action: ActionAnswer, Reason: "rule:" + r.Match}, nil
		case ActionReject:
			return Decision{CallToken: in.CallToken, Action: ActionReject, EndReason: message.EndedByAnswerDenied, Reason: "rule:" + r.Match}, nil
		case ActionForward:
			// 4) Weighted destination selection
			if dest, ok := e.pickDestination(r.Destinations); ok {
				return Decision{CallToken: in.CallToken, Action: ActionForward, ForwardTo: dest, Reason: "rule:" + r.Match}, nil
			}
			return Decision{CallToken: in.CallToken, Action: ActionReject, EndReason: message.EndedByNoEndPoint, Reason: "no_eligible_destination"}, nil
		default:
			return Decision{}, errors.New("routing: unknown rule action " + string(r.Action))
		}
	}

	if e.Default == ActionAnswer {
		return Decision{CallToken: in.CallToken, Action: ActionAnswer, Reason: "default"}, nil
	}
	return Decision{CallToken: in.CallToken, Action: ActionReject, EndReason: message.EndedByNoUser, Reason: "no_matching_rule"}, nil
}

func (r Rule) matches(addr string) bool {
	return r.Match == "*" || strings.HasPrefix(addr, r.Match)
}

func (e *RoutingEngine) pickDestination(dests []WeightedDestination) (string, bool) {
	var total int
	for _, d := range dests {
		if d.Weight <= 0 {
			continue
		}
		total += d.Weight
	}
	if total <= 0 {
		return "", false
	}

	e.mu.Lock()
	if e.RNG == nil {
		e.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	r := e.RNG.Intn(total) // 0..total-1
	e.mu.Unlock()

	var acc int
	for _, d := range dests {
		if d.Weight <= 0 {
			continue
		}
		acc += d.Weight
		if r < acc {
			return d.Target, true
		}
	}
	return "", false
}
