package calls

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidRecord = errors.New("calls: invalid record")

// RecordRepository stores call detail records. It MUST be append-only.
type RecordRepository interface {
	Append(ctx context.Context, rec Record) error
	// List returns records that ended in [from, to).
	List(ctx context.Context, from, to time.Time) ([]Record, error)
}

func validateRecord(rec Record) error {
	if rec.ID == "" || rec.CallToken == "" || rec.EndedAt.IsZero() {
		return ErrInvalidRecord
	}
	return nil
}
