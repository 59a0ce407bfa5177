// Package store keeps arbitrary values under random keys in a cache.KV
// backend and tracks every call to Store.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/leonardcser/kvtrack/internal/cache"
	"github.com/leonardcser/kvtrack/internal/track"
)

// StoreOp is the tracking name of Cache.Store.
const StoreOp = "Cache.store"

// ErrUnsupportedValue is returned by Store for values it cannot encode.
var ErrUnsupportedValue = errors.New("store: unsupported value type")

// Cache stores values under UUID keys.
type Cache struct {
	kv    cache.KV
	store *track.History
}

// New flushes every key in kv before returning. Anything already in the
// backend, including other users' data, is lost.
func New(ctx context.Context, kv cache.KV) (*Cache, error) {
	if err := kv.FlushAll(ctx); err != nil {
		return nil, fmt.Errorf("flush backend: %w", err)
	}
	c := &Cache{kv: kv}
	c.store = track.CallHistory(kv, StoreOp, track.CountCalls(kv, StoreOp, track.StorerFunc(c.put)))
	return c, nil
}

// Store writes value under a fresh random key and returns the key.
// Supported values are strings, byte slices, integers, floats and bools.
func (c *Cache) Store(ctx context.Context, value any) (string, error) {
	return c.store.Store(ctx, value)
}

// StoreOp returns the tracked Store operation, for Replay.
func (c *Cache) StoreOp() track.Storer { return c.store }

// Replay writes the call history of Store to w.
func (c *Cache) Replay(ctx context.Context, w io.Writer) error {
	return track.Replay(ctx, w, c.store)
}

func (c *Cache) put(ctx context.Context, value any) (string, error) {
	raw, err := Encode(value)
	if err != nil {
		return "", err
	}
	key := uuid.NewString()
	if err := c.kv.Set(ctx, key, raw, 0); err != nil {
		return "", err
	}
	return key, nil
}

// Get returns the raw bytes under key. A missing or expired key reports
// ok == false with a nil error.
func (c *Cache) Get(ctx context.Context, key string) (raw []byte, ok bool, err error) {
	raw, err = c.kv.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) || errors.Is(err, cache.ErrExpired) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Decoder turns stored bytes back into a value.
type Decoder[T any] func([]byte) (T, error)

// Decode reads key and applies dec. The decoder never sees a missing key;
// that case returns the zero T with ok == false.
func Decode[T any](ctx context.Context, c *Cache, key string, dec Decoder[T]) (v T, ok bool, err error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	v, err = dec(raw)
	if err != nil {
		return v, true, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// String decodes UTF-8 text.
func String(raw []byte) (string, error) { return string(raw), nil }

// Int decodes a base 10 integer.
func Int(raw []byte) (int, error) { return strconv.Atoi(string(raw)) }

// GetStr reads key as text.
func (c *Cache) GetStr(ctx context.Context, key string) (string, bool, error) {
	return Decode(ctx, c, key, String)
}

// GetInt reads key as an integer.
func (c *Cache) GetInt(ctx context.Context, key string) (int, bool, error) {
	return Decode(ctx, c, key, Int)
}

// Encode converts a storable value to its byte form.
func Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), nil
	case float32:
		return []byte(track.FormatFloat(float64(v), 32)), nil
	case float64:
		return []byte(track.FormatFloat(v, 64)), nil
	case bool:
		return strconv.AppendBool(nil, v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}
