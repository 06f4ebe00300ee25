package grpckv

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/ovm/storage"
)

// Client implements storage.KeyValueStore over the KV gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client KVClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.KeyValueStore = (*Client)(nil)

type DialOptions struct {
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

// Dial creates a client for target. The connection is established lazily on
// the first RPC.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection. Close closes cc.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewKVClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, storage.ErrEmptyKey
	}
	ctx, cancel := c.ctx()
	defer cancel()
	reply, err := c.client.Get(ctx, wrapperspb.Bytes(key))
	if err != nil {
		return nil, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, storage.ErrEmptyKey
	}
	ctx, cancel := c.ctx()
	defer cancel()
	reply, err := c.client.Has(ctx, wrapperspb.Bytes(key))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Put(key, value []byte) error {
	if len(key) == 0 {
		return storage.ErrEmptyKey
	}
	ctx, cancel := c.ctx()
	defer cancel()
	_, err := c.client.Put(ctx, wrapperspb.Bytes(encodeKV(key, value)))
	return mapRPC(err)
}

func (c *Client) Delete(key []byte) error {
	if len(key) == 0 {
		return storage.ErrEmptyKey
	}
	ctx, cancel := c.ctx()
	defer cancel()
	_, err := c.client.Delete(ctx, wrapperspb.Bytes(key))
	return mapRPC(err)
}

func (c *Client) Batch(ops []storage.Op) error {
	for _, op := range ops {
		if len(op.Key) == 0 {
			return storage.ErrEmptyKey
		}
	}
	ctx, cancel := c.ctx()
	defer cancel()
	_, err := c.client.Batch(ctx, wrapperspb.Bytes(encodeOps(ops)))
	return mapRPC(err)
}

// Iterate pages through the server's entries and applies visit locally.
// Pages are separate RPCs, so concurrent writers may be observed between pages.
func (c *Client) Iterate(prefix []byte, visit func(key, value []byte) bool) ([]storage.KeyValue, error) {
	var out []storage.KeyValue
	req := pageRequest{Prefix: prefix}
	for {
		ctx, cancel := c.ctx()
		reply, err := c.client.Iterate(ctx, wrapperspb.Bytes(req.encode()))
		cancel()
		if err != nil {
			return nil, mapRPC(err)
		}
		p, err := decodePage(reply.GetValue())
		if err != nil {
			return nil, err
		}
		for _, e := range p.Entries {
			if !visit(e.Key, e.Value) {
				return out, nil
			}
			out = append(out, e)
		}
		if !p.More || len(p.Entries) == 0 {
			return out, nil
		}
		req.StartAfter = p.Entries[len(p.Entries)-1].Key
	}
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
