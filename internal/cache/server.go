package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Serve accepts connections on l and answers requests against kv until ctx
// is cancelled or the listener fails.
func Serve(ctx context.Context, l net.Listener, kv KV) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			continue
		}
		go handleConn(ctx, conn, kv)
	}
}

func handleConn(ctx context.Context, conn net.Conn, kv KV) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		_ = enc.Encode(dispatch(ctx, kv, req))
	}
}

func dispatch(ctx context.Context, kv KV, req Request) Response {
	var (
		resp Response
		err  error
	)
	switch req.Op {
	case "get":
		resp.Value, err = kv.Get(ctx, req.Key)
	case "set":
		ttl := time.Duration(req.TTLSeconds * float64(time.Second))
		err = kv.Set(ctx, req.Key, req.Value, ttl)
	case "mset":
		err = kv.MSet(ctx, req.Entries)
	case "incr":
		resp.Int, err = kv.Incr(ctx, req.Key)
	case "rpush":
		resp.Int, err = kv.RPush(ctx, req.Key, req.Value)
	case "lrange":
		resp.Values, err = kv.LRange(ctx, req.Key, req.Start, req.Stop)
	case "exists":
		resp.Bool, err = kv.Exists(ctx, req.Key)
	case "delete":
		err = kv.Delete(ctx, req.Key)
	case "flushall":
		err = kv.FlushAll(ctx)
	default:
		return Response{OK: false, Error: "unknown op"}
	}
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	resp.OK = true
	return resp
}
