package cache

import (
	"context"
	"time"
)

// KV defines the key-value backend contract: TTL strings, integer counters,
// append-only lists and a destructive flush.
// Implementations must be safe for concurrent use by multiple goroutines.
// Each method is atomic on its own; sequences of calls are not.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; a ttl <= 0 falls back to the implementation default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// MSet writes all entries or none of them.
	MSet(ctx context.Context, entries []Entry) error
	// Incr adds one to the integer at key, creating it at 0 first, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// RPush appends value to the list at key and returns the new length.
	RPush(ctx context.Context, key string, value []byte) (int64, error)
	// LRange returns list elements between start and stop inclusive.
	// Negative indices count from the end of the list.
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// FlushAll removes every key.
	FlushAll(ctx context.Context) error
}

// Entry is one write of an MSet batch.
type Entry struct {
	Key   string        `json:"key"`
	Value []byte        `json:"value,omitempty"`
	TTL   time.Duration `json:"ttl,omitempty"`
}
