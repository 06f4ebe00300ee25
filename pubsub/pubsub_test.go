package pubsub

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type echoHandler struct {
	mu     sync.Mutex
	events []string
	closed chan struct{}
}

func newEchoHandler() *echoHandler { return &echoHandler{closed: make(chan struct{}, 8)} }

func (h *echoHandler) record(ev string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *echoHandler) HandleOpen(Sender) { h.record("open") }

func (h *echoHandler) HandleMessage(_ context.Context, msg Message, from Sender) {
	h.record("message:" + msg.Topic)
	_ = from.Send(Message{Topic: "echo", Payload: msg.Payload})
}

func (h *echoHandler) HandleClose(Sender) {
	h.record("close")
	h.closed <- struct{}{}
}

func (h *echoHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func startServer(t *testing.T, h Handler) (*Server, string) {
	t.Helper()
	srv := NewServer(h, zaptest.NewLogger(t))
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		hs.Close()
	})
	return srv, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	require.NoError(t, err)
	return c
}

func TestHandlerSeesOpenMessagesClose(t *testing.T) {
	h := newEchoHandler()
	_, url := startServer(t, h)

	c := dial(t, url)
	reply, err := c.Request(Message{Topic: "a", Payload: []byte("1")})
	require.NoError(t, err)
	require.Equal(t, Message{Topic: "echo", Payload: []byte("1")}, reply)

	reply, err = c.Request(Message{Topic: "b"})
	require.NoError(t, err)
	require.Equal(t, "echo", reply.Topic)

	require.NoError(t, c.Close())
	select {
	case <-h.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("HandleClose not called")
	}
	require.Equal(t, []string{"open", "message:a", "message:b", "close"}, h.snapshot())
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	h := newEchoHandler()
	srv, url := startServer(t, h)

	a, b := dial(t, url), dial(t, url)
	defer a.Close()
	defer b.Close()
	require.Eventually(t, func() bool { return srv.Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Broadcast(Message{Topic: "news", Payload: []byte("x")}))
	for _, c := range []*Client{a, b} {
		msg, err := c.Next()
		require.NoError(t, err)
		require.Equal(t, "news", msg.Topic)
	}
}

func TestServerCloseDisconnectsClients(t *testing.T) {
	h := newEchoHandler()
	srv := NewServer(h, zaptest.NewLogger(t))
	hs := httptest.NewServer(srv)
	defer hs.Close()

	c := dial(t, "ws"+strings.TrimPrefix(hs.URL, "http"))
	defer c.Close()
	require.Eventually(t, func() bool { return srv.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Close())
	_, err := c.Next()
	require.ErrorIs(t, err, ErrClosed)
	require.Equal(t, 0, srv.Len())
}

// panicHandler echoes like echoHandler but panics on the "boom" topic.
type panicHandler struct{ *echoHandler }

func (h panicHandler) HandleMessage(ctx context.Context, msg Message, from Sender) {
	if msg.Topic == "boom" {
		panic("bad frame")
	}
	h.echoHandler.HandleMessage(ctx, msg, from)
}

func TestHandlerPanicClosesOnlyItsConnection(t *testing.T) {
	h := panicHandler{newEchoHandler()}
	srv, url := startServer(t, h)

	bad, good := dial(t, url), dial(t, url)
	defer bad.Close()
	defer good.Close()
	require.Eventually(t, func() bool { return srv.Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	_, err := bad.Request(Message{Topic: "boom"})
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, websocket.CloseInternalServerErr, ce.Code)

	select {
	case <-h.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("HandleClose not called after panic")
	}
	require.Eventually(t, func() bool { return srv.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	reply, err := good.Request(Message{Topic: "still-up", Payload: []byte("y")})
	require.NoError(t, err)
	require.Equal(t, Message{Topic: "echo", Payload: []byte("y")}, reply)
}
