package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joegen/opalvoip-opal/internal/message"
)

// Observer inspects each event as it is pushed and returns a diagnostic for
// events that do not fit the current call state.
type Observer interface {
	Observe(env message.Envelope) error
}

// Mirror receives a copy of every delivery. Offer must not block.
type Mirror interface {
	Offer(d Delivery)
}

// Queue is the FIFO between the connection manager and the application.
//
// Push never blocks. Get waits for an event, the timeout, cancellation or
// Shutdown, whichever comes first.
type Queue struct {
	mu      sync.Mutex
	items   []Delivery
	seq     uint64
	signal  chan struct{}
	closed  bool
	obs     Observer
	mirrors []Mirror

	log *slog.Logger
	Now func() time.Time
}

func NewQueue(obs Observer, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{obs: obs, signal: make(chan struct{}), log: log, Now: time.Now}
}

// AddMirror registers m for every later delivery.
func (q *Queue) AddMirror(m Mirror) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.mirrors = append(q.mirrors, m)
}

// Emit makes the queue usable as a connection manager event sink.
func (q *Queue) Emit(env message.Envelope) { q.Push(env) }

// Push appends env. It reports false when the queue has shut down.
func (q *Queue) Push(env message.Envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.log.Debug("event dropped after shutdown", "kind", env.Kind.String(), "token", env.CallToken())
		return false
	}

	var diag error
	if q.obs != nil {
		diag = q.obs.Observe(env)
	}
	q.seq++
	d := Delivery{Seq: q.seq, Envelope: env, Diagnostic: diag, At: q.Now()}
	q.items = append(q.items, d)
	close(q.signal)
	q.signal = make(chan struct{})

	for _, m := range q.mirrors {
		m.Offer(d)
	}
	if diag != nil {
		q.log.Warn("event does not match call state", "kind", env.Kind.String(), "token", env.CallToken(), "err", diag)
	}
	return true
}

// Get removes the oldest delivery.
//
// A zero timeout returns ErrTimeout at once when the queue is empty. A
// negative timeout waits until ctx is done.
func (q *Queue) Get(ctx context.Context, timeout time.Duration) (Delivery, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Delivery{}, ErrShuttingDown
		}
		if len(q.items) > 0 {
			d := q.items[0]
			q.items[0] = Delivery{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return d, nil
		}
		sig := q.signal
		q.mu.Unlock()

		if timeout == 0 {
			return Delivery{}, ErrTimeout
		}
		select {
		case <-sig:
		case <-deadline:
			return Delivery{}, ErrTimeout
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		}
	}
}

// Shutdown discards pending events and wakes every waiting Get.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	close(q.signal)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
