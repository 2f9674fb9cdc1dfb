package endpoint

import (
	"fmt"
	"sync/atomic"

	"github.com/joegen/opalvoip-opal/internal/events"
)

// Ownership says whether the holder of a Message must release it.
type Ownership int

const (
	// Owned messages come from GetMessage and are released exactly once
	// with FreeMessage.
	Owned Ownership = iota
	// Borrowed views share the owner's delivery and are never released.
	Borrowed
)

func (o Ownership) String() string {
	switch o {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	default:
		return fmt.Sprintf("Ownership(%d)", int(o))
	}
}

// Message is an event delivered to the application.
type Message struct {
	events.Delivery

	ownership Ownership
	released  *atomic.Bool
}

func newOwned(d events.Delivery) *Message {
	return &Message{Delivery: d, ownership: Owned, released: new(atomic.Bool)}
}

func (m *Message) Ownership() Ownership { return m.ownership }

// Borrow returns a view of m for code that must not release it.
func (m *Message) Borrow() *Message {
	return &Message{Delivery: m.Delivery, ownership: Borrowed, released: m.released}
}

// Released reports whether the owning message has been freed.
func (m *Message) Released() bool { return m.released.Load() }
