package routing

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// AdminOverrideEngine applies silent, expiry-based routing overrides.
//
// Requirements:
//   - Silent routing: the decision carries no reason that reveals the override.
//   - Expiry based: overrides must be time-bounded.
//   - Internal audit logging: every applied override is recorded.
//
// It is placed ahead of normal routing evaluation.
type AdminOverrideEngine struct {
	Store OverrideStore
	Audit AuditLogger
	Now   func() time.Time
}

// OverrideStore resolves currently-active overrides.
//
// SECURITY NOTE:
// Keep this data plane accessible only to privileged internal services.
type OverrideStore interface {
	// GetActiveOverride returns an active override if one exists for this call.
	// If none exists, it returns (Override{}, false, nil).
	GetActiveOverride(ctx context.Context, in Inbound, now time.Time) (Override, bool, error)
}

// AuditLogger records internal-only audit events.
type AuditLogger interface {
	LogOverrideApplied(ctx context.Context, e OverrideAuditEvent) error
}

type Override struct {
	// ID is optional but recommended for correlating audit logs.
	ID string `json:"id"`

	// Match selects calls by called-address prefix, like Rule.Match.
	Match string `json:"match"`

	// ForwardTo is the forced transfer target.
	ForwardTo string `json:"forward_to"`

	ExpiresAt time.Time `json:"expires_at"`

	// Metadata is optional JSON for internal audit correlation.
	Metadata string `json:"metadata,omitempty"`
}

type OverrideAuditEvent struct {
	OverrideID string
	CallToken  string
	From       string
	To         string

	ForwardTo string
	AppliedAt time.Time
	ExpiresAt time.Time

	Metadata string
}

var ErrInvalidOverride = errors.New("routing: invalid override")

func NewAdminOverrideEngine(store OverrideStore, audit AuditLogger) *AdminOverrideEngine {
	return &AdminOverrideEngine{Store: store, Audit: audit, Now: time.Now}
}

// Decide returns (decision, true, nil) if an active override was applied.
// Returns (Decision{}, false, nil) if no override applies.
func (e *AdminOverrideEngine) Decide(ctx context.Context, in Inbound) (Decision, bool, error) {
	if e.Store == nil {
		return Decision{}, false, nil
	}
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	o, ok, err := e.Store.GetActiveOverride(ctx, in, now)
	if err != nil {
		return Decision{}, false, err
	}
	if !ok {
		return Decision{}, false, nil
	}
	if !o.ExpiresAt.After(now) {
		// Treat as not found; store should ideally filter these out.
		return Decision{}, false, nil
	}
	if o.ForwardTo == "" {
		return Decision{}, false, errors.New("routing: override forward_to empty")
	}

	d := Decision{CallToken: in.CallToken, Action: ActionForward, ForwardTo: o.ForwardTo}

	if e.Audit != nil {
		_ = e.Audit.LogOverrideApplied(ctx, OverrideAuditEvent{
			OverrideID: o.ID,
			CallToken:  in.CallToken,
			From:       in.From,
			To:         in.To,
			ForwardTo:  o.ForwardTo,
			AppliedAt:  now,
			ExpiresAt:  o.ExpiresAt,
			Metadata:   o.Metadata,
		})
	}
	return d, true, nil
}

// MemoryOverrideStore keeps overrides in process. The longest matching
// prefix wins.
type MemoryOverrideStore struct {
	mu        sync.RWMutex
	overrides map[string]Override
}

func NewMemoryOverrideStore() *MemoryOverrideStore {
	return &MemoryOverrideStore{overrides: make(map[string]Override)}
}

// Put adds or replaces the override with the same ID.
func (s *MemoryOverrideStore) Put(o Override) error {
	if o.ID == "" || o.Match == "" || o.ForwardTo == "" || o.ExpiresAt.IsZero() {
		return ErrInvalidOverride
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[o.ID] = o
	return nil
}

func (s *MemoryOverrideStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, id)
}

// List returns the overrides still active at now, by ID.
func (s *MemoryOverrideStore) List(now time.Time) []Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Override, 0, len(s.overrides))
	for _, o := range s.overrides {
		if o.ExpiresAt.After(now) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryOverrideStore) GetActiveOverride(ctx context.Context, in Inbound, now time.Time) (Override, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best Override
	found := false
	for _, o := range s.overrides {
		if !o.ExpiresAt.After(now) {
			continue
		}
		if o.Match != "*" && !strings.HasPrefix(in.To, o.Match) {
			continue
		}
		if !found || len(o.Match) > len(best.Match) || (len(o.Match) == len(best.Match) && o.ID < best.ID) {
			best, found = o, true
		}
	}
	return best, found, nil
}
