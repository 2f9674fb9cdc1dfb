package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryRecordRepo is an in-memory record store for tests and local runs.
type MemoryRecordRepo struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryRecordRepo() *MemoryRecordRepo { return &MemoryRecordRepo{} }

func (r *MemoryRecordRepo) Append(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRecordRepo) List(ctx context.Context, from, to time.Time) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0)
	for _, rec := range r.records {
		if rec.EndedAt.Before(from) || !rec.EndedAt.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Records returns a copy of everything appended so far.
func (r *MemoryRecordRepo) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
