package pubsub

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one connection to a Server. Publish may be called concurrently;
// Next must not.
type Client struct {
	ws *websocket.Conn

	mu sync.Mutex
}

// Dial connects to a ws:// or wss:// url.
func Dial(ctx context.Context, url string) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Client{ws: ws}, nil
}

func (c *Client) Publish(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(msg)
}

// Next blocks until the server sends a frame. After the server closes the
// connection it returns ErrClosed.
func (c *Client) Next() (Message, error) {
	var msg Message
	if err := c.ws.ReadJSON(&msg); err != nil {
		if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			return Message{}, ErrClosed
		}
		return Message{}, err
	}
	return msg, nil
}

// Request publishes msg and returns the next frame.
func (c *Client) Request(msg Message) (Message, error) {
	if err := c.Publish(msg); err != nil {
		return Message{}, err
	}
	return c.Next()
}

func (c *Client) Close() error {
	c.mu.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mu.Unlock()
	return c.ws.Close()
}
