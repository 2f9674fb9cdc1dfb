package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - type is required.
// - actor and ip capture are best-effort; do not block call control on audit failures.
//
// Storage (Postgres): table audit_events with an INSERT-only policy, see PostgresRepo.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated operator causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	// ActorRole may include hidden roles.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Kind is the message kind of a command event.
	Kind      string `json:"kind,omitempty" db:"kind"`
	CallToken string `json:"call_token,omitempty" db:"call_token"`
	// Accepted is false when the command was answered with a CommandError.
	Accepted   bool   `json:"accepted" db:"accepted"`
	OverrideID string `json:"override_id,omitempty" db:"override_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCommand     EventType = "command"
	EventTypeAdminAction EventType = "admin_action"
	EventTypeOverride    EventType = "routing_override"
)
