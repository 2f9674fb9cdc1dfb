package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel deliveries are published on.
const DefaultChannel = "opal:events"

// Publisher is the part of a redis client the mirror needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisMirror publishes every delivery as JSON on a redis channel so other
// processes can follow the event stream. It implements Mirror.
type RedisMirror struct {
	pub     Publisher
	channel string
	timeout time.Duration
	backlog chan Delivery
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	log *slog.Logger
}

func NewRedisMirror(pub Publisher, channel string, log *slog.Logger) *RedisMirror {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = slog.Default()
	}
	m := &RedisMirror{
		pub:     pub,
		channel: channel,
		timeout: 2 * time.Second,
		backlog: make(chan Delivery, 1024),
		done:    make(chan struct{}),
		log:     log,
	}
	go m.run()
	return m
}

func (m *RedisMirror) Offer(d Delivery) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.backlog <- d:
	default:
		m.log.Warn("redis mirror backlog full, dropping event", "seq", d.Seq)
	}
}

func (m *RedisMirror) run() {
	defer close(m.done)
	for d := range m.backlog {
		body, err := json.Marshal(d)
		if err != nil {
			m.log.Error("redis mirror encode failed", "seq", d.Seq, "err", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		err = m.pub.Publish(ctx, m.channel, body).Err()
		cancel()
		if err != nil {
			m.log.Warn("redis mirror publish failed", "seq", d.Seq, "err", err)
		}
	}
}

// Close publishes what is already queued and stops the mirror. Later
// offers are ignored.
func (m *RedisMirror) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.backlog)
	}
	m.mu.Unlock()
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
