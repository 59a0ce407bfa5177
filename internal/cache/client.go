package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Client implements KV over a Unix socket.
type Client struct {
	socketPath string
}

var _ KV = (*Client)(nil)

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// do sends one request on a fresh connection and decodes the reply.
func (c *Client) do(ctx context.Context, req Request) (Response, error) {
	var resp Response
	d := net.Dialer{Timeout: 500 * time.Millisecond}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return resp, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return resp, err
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return resp, err
	}
	if !resp.OK {
		if known, ok := wireErrors[resp.Error]; ok {
			return resp, known
		}
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.do(ctx, Request{Op: "get", Key: key})
	if err != nil {
		return nil, err
	}
	return append([]byte{}, resp.Value...), nil
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.do(ctx, Request{Op: "set", Key: key, Value: value, TTLSeconds: ttl.Seconds()})
	return err
}

func (c *Client) MSet(ctx context.Context, entries []Entry) error {
	_, err := c.do(ctx, Request{Op: "mset", Entries: entries})
	return err
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	resp, err := c.do(ctx, Request{Op: "incr", Key: key})
	return resp.Int, err
}

func (c *Client) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	resp, err := c.do(ctx, Request{Op: "rpush", Key: key, Value: value})
	return resp.Int, err
}

func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	resp, err := c.do(ctx, Request{Op: "lrange", Key: key, Start: start, Stop: stop})
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := c.do(ctx, Request{Op: "exists", Key: key})
	return resp.Bool, err
}

func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.do(ctx, Request{Op: "delete", Key: key})
	return err
}

func (c *Client) FlushAll(ctx context.Context) error {
	_, err := c.do(ctx, Request{Op: "flushall"})
	return err
}
