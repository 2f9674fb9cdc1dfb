package events

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is one subscriber of the live event stream.
type Client interface {
	ID() string
	Send(d Delivery) error
	Close() error
}

type wsClient struct {
	id   string
	conn *websocket.Conn
}

func (c *wsClient) ID() string { return c.id }

func (c *wsClient) Send(d Delivery) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(d)
}

func (c *wsClient) Close() error { return c.conn.Close() }

// Hub fans deliveries out to websocket clients. It implements Mirror.
// Clients only observe; they never consume from the queue.
type Hub struct {
	clients    map[Client]bool
	broadcast  chan Delivery
	register   chan Client
	unregister chan Client
	quit       chan struct{}

	log *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients:    make(map[Client]bool),
		broadcast:  make(chan Delivery, 256),
		register:   make(chan Client),
		unregister: make(chan Client),
		quit:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Offer(d Delivery) {
	select {
	case h.broadcast <- d:
	default:
		h.log.Warn("event stream backlog full, dropping event", "seq", d.Seq, "kind", d.Envelope.Kind.String())
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for c := range h.clients {
				_ = c.Close()
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.log.Info("event stream client registered", "client_id", c.ID())

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				_ = c.Close()
				h.log.Info("event stream client unregistered", "client_id", c.ID())
			}

		case d := <-h.broadcast:
			for c := range h.clients {
				if err := c.Send(d); err != nil {
					h.log.Warn("event stream send failed", "client_id", c.ID(), "err", err)
					_ = c.Close()
					delete(h.clients, c)
				}
			}
		}
	}
}

// Register adds c to the fan-out. It reports false once the hub is stopped,
// in which case c is left for the caller to close.
func (h *Hub) Register(c Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Unregister(c Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

// ServeWS upgrades the request and streams deliveries until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	c := &wsClient{id: uuid.NewString(), conn: conn}
	if !h.Register(c) {
		return
	}
	defer h.Unregister(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("event stream closed unexpectedly", "client_id", c.ID(), "err", err)
			}
			return
		}
	}
}
