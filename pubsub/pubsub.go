// Package pubsub is the websocket transport participants use to exchange
// signed messages and witnesses.
//
// A Server accepts connections and hands every frame to a Handler; a Client
// dials a server and publishes frames. Frames are JSON encoded Messages.
package pubsub

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("pubsub: closed")

// Message is one frame.
//
// JSON note: Payload is encoded as base64 by encoding/json.
type Message struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload,omitempty"`
}

// Sender is the replying side of one connection.
type Sender interface {
	ID() string
	Send(msg Message) error
}

// Handler receives connection events.
//
// Contract:
//   - HandleOpen is called once before any HandleMessage of that connection.
//   - HandleMessage calls for one connection are sequential, in arrival order.
//   - HandleClose is called once, after the last HandleMessage.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message, from Sender)
	HandleOpen(from Sender)
	HandleClose(from Sender)
}

type conn struct {
	id string
	ws *websocket.Conn

	mu sync.Mutex // gorilla allows one concurrent writer
}

func (c *conn) ID() string { return c.id }

func (c *conn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(msg)
}

// Server is an http.Handler upgrading requests to pubsub connections.
type Server struct {
	handler  Handler
	log      *zap.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	conns  map[string]*conn
	closed bool
}

func NewServer(h Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handler: h,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[string]*conn),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &conn{id: uuid.NewString(), ws: ws}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ws.Close()
		return
	}
	s.conns[c.id] = c
	s.wg.Add(1)
	s.mu.Unlock()

	go s.serve(c)
}

func (s *Server) serve(c *conn) {
	defer s.wg.Done()
	log := s.log.With(zap.String("conn", c.id))
	log.Debug("connection opened")
	s.handler.HandleOpen(c)

	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && s.ctx.Err() == nil {
				log.Warn("websocket read failed", zap.Error(err))
			}
			break
		}
		if !s.dispatch(log, msg, c) {
			break
		}
	}

	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	_ = c.ws.Close()
	s.handler.HandleClose(c)
	log.Debug("connection closed")
}

// dispatch runs the handler for one frame. A panicking handler costs only
// its connection: dispatch reports false and the peer gets a 1011 close.
func (s *Server) dispatch(log *zap.Logger, msg Message, c *conn) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ok = false
		log.Error("handler panicked",
			zap.String("topic", msg.Topic),
			zap.Any("panic", r),
			zap.StackSkip("stack", 1),
		)
		c.mu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "handler failed"))
		c.mu.Unlock()
	}()
	s.handler.HandleMessage(s.ctx, msg, c)
	return true
}

// Broadcast sends msg to every open connection. Connections that fail to
// accept it are closed; the first error is returned.
func (s *Server) Broadcast(msg Message) error {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var first error
	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			s.log.Warn("broadcast failed", zap.String("conn", c.id), zap.Error(err))
			_ = c.ws.Close()
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Len returns the number of open connections.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close disconnects every connection and waits for their handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	for _, c := range s.conns {
		c.mu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
		c.mu.Unlock()
		_ = c.ws.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}
