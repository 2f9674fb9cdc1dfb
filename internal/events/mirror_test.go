package events

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joegen/opalvoip-opal/internal/message"
)

type fakeClient struct {
	id   string
	sent chan Delivery
	fail bool
}

func (c *fakeClient) ID() string { return c.id }

func (c *fakeClient) Send(d Delivery) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.sent <- d
	return nil
}

func (c *fakeClient) Close() error { return nil }

func TestHub_BroadcastsToRegisteredClients(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	a := &fakeClient{id: "a", sent: make(chan Delivery, 4)}
	bad := &fakeClient{id: "bad", fail: true}
	require.True(t, h.Register(a))
	require.True(t, h.Register(bad))

	h.Offer(Delivery{Seq: 1, Envelope: message.Of(message.CallCleared{CallToken: "t"})})
	select {
	case d := <-a.sent:
		assert.Equal(t, uint64(1), d.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not receive delivery")
	}

	h.Unregister(a)
	h.Offer(Delivery{Seq: 2})
	select {
	case <-a.sent:
		t.Fatal("unregistered client received delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_StoppedHubClosesNewStreams(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	h.Stop()
	assert.False(t, h.Register(&fakeClient{id: "late"}))

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		t.Fatal("server kept the stream open after the hub stopped")
	}
}

type stubPublisher struct {
	got chan string
}

func (s *stubPublisher) Publish(ctx context.Context, channel string, msg interface{}) *redis.IntCmd {
	s.got <- channel + " " + string(msg.([]byte))
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func TestRedisMirror_PublishesJSON(t *testing.T) {
	pub := &stubPublisher{got: make(chan string, 4)}
	m := NewRedisMirror(pub, "", nil)

	m.Offer(Delivery{Seq: 3, Envelope: message.Of(message.OnHold{CallToken: "t"})})
	require.NoError(t, m.Close(context.Background()))
	m.Offer(Delivery{Seq: 4})

	require.Len(t, pub.got, 1)
	line := <-pub.got
	prefix := DefaultChannel + " "
	require.True(t, len(line) > len(prefix))
	assert.Equal(t, prefix, line[:len(prefix)])

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(line[len(prefix):]), &body))
	assert.EqualValues(t, 3, body["seq"])
}

func TestRedisMirror_SatisfiesPublisherWithClient(t *testing.T) {
	var _ Publisher = (*redis.Client)(nil)
}
