package audit

import (
	"context"
	"database/sql"
)

// Schema creates the table PostgresRepo writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  actor_user_id TEXT NOT NULL DEFAULT '',
  actor_role TEXT NOT NULL DEFAULT '',
  ip_address TEXT NOT NULL DEFAULT '',
  kind TEXT NOT NULL DEFAULT '',
  call_token TEXT NOT NULL DEFAULT '',
  accepted BOOLEAN NOT NULL,
  override_id TEXT NOT NULL DEFAULT '',
  message TEXT NOT NULL DEFAULT '',
  metadata TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
)`

// PostgresRepo appends audit events through database/sql (pgx stdlib driver).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events
  (id, type, actor_user_id, actor_role, ip_address, kind, call_token,
   accepted, override_id, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.Kind,
		e.CallToken,
		e.Accepted,
		e.OverrideID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
