package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/joegen/opalvoip-opal/internal/audit"
)

// AuditAdapter bridges routing's override audit hook to the shared audit.Service.
//
// This keeps routing internals from depending on persistence or on any user-facing surface.
type AuditAdapter struct {
	Audit *audit.Service
}

func (a AuditAdapter) LogOverrideApplied(ctx context.Context, e OverrideAuditEvent) error {
	if a.Audit == nil {
		return nil
	}
	meta := e.Metadata
	if meta == "" {
		meta = fmt.Sprintf(`{"from":%q,"to":%q,"expires_at":%q}`, e.From, e.To, e.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return a.Audit.LogOverride(ctx, e.CallToken, e.OverrideID, e.ForwardTo, meta)
}
