package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Audit is internal-only. Callers treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.Type == EventTypeCommand && e.Kind == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogCommand records a command and whether it was accepted. The actor is
// taken from ctx.
func (s *Service) LogCommand(ctx context.Context, kind, callToken string, accepted bool, message string) error {
	a := ActorFromContext(ctx)
	return s.Append(ctx, Event{
		Type:        EventTypeCommand,
		ActorUserID: a.UserID,
		ActorRole:   a.Role,
		IPAddress:   a.IP,
		Kind:        kind,
		CallToken:   callToken,
		Accepted:    accepted,
		Message:     message,
	})
}

// LogAdminAction records an admin action (including hidden roles).
func (s *Service) LogAdminAction(ctx context.Context, message, metadata string) error {
	a := ActorFromContext(ctx)
	return s.Append(ctx, Event{
		Type:        EventTypeAdminAction,
		ActorUserID: a.UserID,
		ActorRole:   a.Role,
		IPAddress:   a.IP,
		Accepted:    true,
		Message:     message,
		Metadata:    metadata,
	})
}

// LogOverride records an internal routing override usage.
func (s *Service) LogOverride(ctx context.Context, callToken, overrideID, forwardTo, metadata string) error {
	a := ActorFromContext(ctx)
	return s.Append(ctx, Event{
		Type:        EventTypeOverride,
		ActorUserID: a.UserID,
		ActorRole:   a.Role,
		IPAddress:   a.IP,
		CallToken:   callToken,
		OverrideID:  overrideID,
		Accepted:    true,
		Message:     "override applied: " + forwardTo,
		Metadata:    metadata,
	})
}
