package routing

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/joegen/opalvoip-opal/internal/message"
)

func inbound(to string) Inbound {
	return Inbound{CallToken: "tok", From: "sip:carol@example.com", To: to, Protocol: message.PrefixSIP}
}

func TestRoutingEngine_OverrideWins(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	store := NewMemoryOverrideStore()
	if err := store.Put(Override{ID: "o", Match: "*", ForwardTo: "sip:night@example.com", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	e := NewRoutingEngine([]Rule{{Match: "*", Action: ActionReject}}, rand.New(rand.NewSource(1)))
	e.Overrides = NewAdminOverrideEngine(store, nil)
	e.Overrides.Now = func() time.Time { return now }

	d, err := e.Route(context.Background(), inbound("pcss:alice"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionForward || d.ForwardTo != "sip:night@example.com" {
		t.Fatalf("expected override forward, got %+v", d)
	}
}

func TestRoutingEngine_CapacityRejects(t *testing.T) {
	e := NewRoutingEngine([]Rule{{Match: "*", Action: ActionAnswer}}, nil)
	e.MaxActive = 2
	e.ActiveCalls = func() int { return 3 }

	d, err := e.Route(context.Background(), inbound("pcss:alice"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionReject || d.EndReason != message.EndedByLocalBusy {
		t.Fatalf("expected busy reject, got %+v", d)
	}
	if d.Reason != "capacity" {
		t.Fatalf("expected capacity reason, got %q", d.Reason)
	}
}

func TestRoutingEngine_FirstMatchingRule(t *testing.T) {
	e := NewRoutingEngine([]Rule{
		{Match: "pcss:alice", Action: ActionAnswer},
		{Match: "pcss:", Action: ActionReject},
	}, nil)

	d, _ := e.Route(context.Background(), inbound("pcss:alice"))
	if d.Action != ActionAnswer {
		t.Fatalf("expected answer, got %q", d.Action)
	}
	d, _ = e.Route(context.Background(), inbound("pcss:bob"))
	if d.Action != ActionReject || d.EndReason != message.EndedByAnswerDenied {
		t.Fatalf("expected reject, got %+v", d)
	}
	d, _ = e.Route(context.Background(), inbound("sip:desk@example.com"))
	if d.Action != ActionReject || d.Reason != "no_matching_rule" {
		t.Fatalf("expected default reject, got %+v", d)
	}

	e.Default = ActionAnswer
	d, _ = e.Route(context.Background(), inbound("sip:desk@example.com"))
	if d.Action != ActionAnswer {
		t.Fatalf("expected default answer, got %+v", d)
	}
}

func TestRoutingEngine_WeightedForward(t *testing.T) {
	e := NewRoutingEngine([]Rule{{Match: "*", Action: ActionForward, Destinations: []WeightedDestination{
		{Target: "sip:a@example.com", Weight: 1},
		{Target: "sip:b@example.com", Weight: 3},
		{Target: "sip:never@example.com", Weight: 0},
	}}}, rand.New(rand.NewSource(1)))

	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		d, err := e.Route(context.Background(), inbound("pcss:alice"))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if d.Action != ActionForward {
			t.Fatalf("expected forward, got %q", d.Action)
		}
		seen[d.ForwardTo]++
	}
	if seen["sip:never@example.com"] != 0 {
		t.Fatalf("zero-weight destination was picked")
	}
	if seen["sip:a@example.com"] == 0 || seen["sip:b@example.com"] <= seen["sip:a@example.com"] {
		t.Fatalf("unexpected distribution: %v", seen)
	}
}

func TestRoutingEngine_ForwardWithoutDestinationRejects(t *testing.T) {
	e := NewRoutingEngine([]Rule{{Match: "*", Action: ActionForward, Destinations: []WeightedDestination{{Target: "sip:x@example.com"}}}}, nil)
	d, err := e.Route(context.Background(), inbound("pcss:alice"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionReject || d.Reason != "no_eligible_destination" {
		t.Fatalf("expected reject, got %+v", d)
	}
}

func TestRoutingEngine_RequiresToken(t *testing.T) {
	if _, err := NewRoutingEngine(nil, nil).Route(context.Background(), Inbound{}); err != ErrInvalidInbound {
		t.Fatalf("expected ErrInvalidInbound, got %v", err)
	}
}

func TestRoutingEngine_Validate(t *testing.T) {
	e := NewRoutingEngine([]Rule{{Match: "", Action: "maybe"}, {Match: "*", Action: ActionForward}}, nil)
	e.Default = ActionForward
	if err := e.Validate(); err == nil {
		t.Fatalf("expected validation errors")
	}
	ok := NewRoutingEngine([]Rule{{Match: "pcss:", Action: ActionAnswer}}, nil)
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestInboundFrom(t *testing.T) {
	in := InboundFrom(message.IncomingCall{CallToken: "tok", RemoteAddress: "sip:carol@example.com", LocalAddress: "pcss:alice"})
	if in.To != "pcss:alice" || in.Protocol != message.PrefixSIP || in.From != "sip:carol@example.com" {
		t.Fatalf("unexpected inbound: %+v", in)
	}
}
