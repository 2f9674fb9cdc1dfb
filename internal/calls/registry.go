package calls

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry is the single source of truth for which calls exist.
//
// One registry-wide lock is held for the duration of a single operation.
// Callers get copies; the only way to mutate a record is Update.
type Registry struct {
	mu     sync.RWMutex
	calls  map[string]*CallState
	closed bool

	Now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{calls: make(map[string]*CallState), Now: time.Now}
}

// Create inserts a new call. The token in initial is overwritten with token.
func (r *Registry) Create(token string, initial CallState) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidToken
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.calls[token]; ok {
		return ErrDuplicateToken
	}

	now := r.now()
	s := initial.Clone()
	s.Token = token
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	for id, m := range s.Streams {
		m.CallToken = token
		s.Streams[id] = m
	}
	r.calls[token] = &s
	return nil
}

// Lookup returns a copy of the call state.
func (r *Registry) Lookup(token string) (CallState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return CallState{}, ErrClosed
	}
	s, ok := r.calls[token]
	if !ok {
		return CallState{}, ErrNotFound
	}
	return s.Clone(), nil
}

// Exists reports whether token is registered.
func (r *Registry) Exists(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.calls[token]
	return ok && !r.closed
}

// Update applies fn atomically. If fn fails the record is left unchanged.
func (r *Registry) Update(token string, fn func(*CallState) error) (CallState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return CallState{}, ErrClosed
	}
	cur, ok := r.calls[token]
	if !ok {
		return CallState{}, ErrNotFound
	}

	next := cur.Clone()
	if err := fn(&next); err != nil {
		return cur.Clone(), err
	}
	next.Token = token
	if next.UpdatedAt.Equal(cur.UpdatedAt) {
		next.UpdatedAt = r.now()
	}
	r.calls[token] = &next
	return next.Clone(), nil
}

// Remove deletes a call. Removing an absent token is a no-op.
func (r *Registry) Remove(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	delete(r.calls, token)
	return nil
}

// List returns copies of every call ordered by creation time.
func (r *Registry) List() []CallState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CallState, 0, len(r.calls))
	for _, s := range r.calls {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Token < out[j].Token
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.calls)
}

// Close drops every call. Any later operation returns ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.calls = make(map[string]*CallState)
}

func (r *Registry) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
