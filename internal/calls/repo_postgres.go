package calls

import (
	"context"
	"database/sql"
	"time"

	"github.com/joegen/opalvoip-opal/pkg/utils"
)

// Schema creates the call_records table. Rows are never updated or deleted.
const Schema = `
CREATE TABLE IF NOT EXISTS call_records (
  id TEXT PRIMARY KEY,
  call_token TEXT NOT NULL,
  direction TEXT NOT NULL,
  protocol TEXT NOT NULL DEFAULT '',
  party_a TEXT NOT NULL,
  party_b TEXT NOT NULL,
  status TEXT NOT NULL,
  end_reason TEXT NOT NULL DEFAULT '',
  duration INT NOT NULL DEFAULT 0,
  media_streams INT NOT NULL DEFAULT 0,
  recording_file TEXT NOT NULL DEFAULT '',
  started_at TIMESTAMPTZ NOT NULL,
  ended_at TIMESTAMPTZ NOT NULL
)`

// SchemaIndex backs the range scan in List.
const SchemaIndex = `CREATE INDEX IF NOT EXISTS call_records_ended_at ON call_records (ended_at)`

// PostgresRecordRepo stores records through database/sql (pgx stdlib driver).
type PostgresRecordRepo struct {
	db *sql.DB
}

func NewPostgresRecordRepo(db *sql.DB) *PostgresRecordRepo { return &PostgresRecordRepo{db: db} }

func (r *PostgresRecordRepo) Append(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	const q = `
INSERT INTO call_records
  (id, call_token, direction, protocol, party_a, party_b, status, end_reason,
   duration, media_streams, recording_file, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING
`
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			rec.ID,
			rec.CallToken,
			string(rec.Direction),
			rec.Protocol,
			rec.PartyA,
			rec.PartyB,
			string(rec.Status),
			rec.EndReason,
			rec.DurationSeconds,
			rec.MediaStreams,
			rec.RecordingFile,
			rec.StartedAt,
			rec.EndedAt,
		)
		return err
	})
}

func (r *PostgresRecordRepo) List(ctx context.Context, from, to time.Time) ([]Record, error) {
	const q = `
SELECT id, call_token, direction, protocol, party_a, party_b, status, end_reason,
       duration, media_streams, recording_file, started_at, ended_at
FROM call_records
WHERE ended_at >= $1 AND ended_at < $2
ORDER BY ended_at
`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		var dir, status string
		if err := rows.Scan(
			&rec.ID,
			&rec.CallToken,
			&dir,
			&rec.Protocol,
			&rec.PartyA,
			&rec.PartyB,
			&status,
			&rec.EndReason,
			&rec.DurationSeconds,
			&rec.MediaStreams,
			&rec.RecordingFile,
			&rec.StartedAt,
			&rec.EndedAt,
		); err != nil {
			return nil, err
		}
		rec.Direction = Direction(dir)
		rec.Status = CallStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
