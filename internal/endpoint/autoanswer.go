package endpoint

import (
	"github.com/joegen/opalvoip-opal/internal/dispatch"
	"github.com/joegen/opalvoip-opal/internal/events"
	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/routing"
)

// incomingMirror feeds IncomingCall events to the auto-answer loop.
type incomingMirror struct{ h *Handle }

func (m incomingMirror) Offer(d events.Delivery) {
	p, ok := d.Envelope.Payload.(message.IncomingCall)
	if !ok || d.Diagnostic != nil {
		return
	}
	select {
	case m.h.incoming <- p:
	default:
		m.h.log.Warn("auto-answer backlog full, call left to the application", "token", p.CallToken)
	}
}

func (h *Handle) autoAnswer() {
	defer h.wg.Done()
	for {
		select {
		case <-h.bg.Done():
			return
		case p := <-h.incoming:
			h.decide(p)
		}
	}
}

func (h *Handle) decide(p message.IncomingCall) {
	ctx := h.bg
	d, err := h.router.Route(ctx, routing.InboundFrom(p))
	if err != nil {
		h.log.Error("routing failed", "token", p.CallToken, "err", err)
		return
	}

	var resp message.Envelope
	switch d.Action {
	case routing.ActionAnswer:
		resp = h.dispatch.AnswerCall(ctx, message.AnswerCall{CallToken: p.CallToken})
	case routing.ActionReject:
		resp = h.dispatch.ClearCall(ctx, message.ClearCall{CallToken: p.CallToken, Reason: d.EndReason})
	case routing.ActionForward:
		resp = h.dispatch.TransferCall(ctx, message.TransferCall{CallToken: p.CallToken, PartyB: d.ForwardTo})
	default:
		h.log.Error("unknown routing action", "token", p.CallToken, "action", string(d.Action))
		return
	}
	if err := dispatch.Err(resp); err != nil {
		h.log.Warn("routing decision not applied", "token", p.CallToken, "action", string(d.Action), "err", err)
		return
	}
	h.log.Info("incoming call routed", "token", p.CallToken, "action", string(d.Action), "reason", d.Reason)
}
