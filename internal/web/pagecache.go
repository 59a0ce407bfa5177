package web

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/leonardcser/kvtrack/internal/cache"
	"github.com/leonardcser/kvtrack/internal/logger"
)

// DefaultPageTTL is how long a fetched page is served from the cache.
const DefaultPageTTL = 10 * time.Second

// PageCache fetches pages through a Transport, caching each body for a fixed
// TTL and counting every request per URL.
//
// Keys: "count:<url>" (never expires) and "result:<url>" (expires after TTL).
type PageCache struct {
	kv          cache.KV
	transport   Transport
	ttl         time.Duration
	atomicReset bool
}

type PageCacheOptions struct {
	// TTL of cached bodies. Defaults to DefaultPageTTL.
	TTL time.Duration
	// AtomicReset writes the counter reset and the fresh body in one batch.
	// Without it the counter is reset first and reads in between see a zero
	// count with no cached body.
	AtomicReset bool
}

func NewPageCache(kv cache.KV, transport Transport, opts PageCacheOptions) *PageCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{kv: kv, transport: transport, ttl: ttl, atomicReset: opts.AtomicReset}
}

func countKey(rawURL string) string  { return "count:" + rawURL }
func resultKey(rawURL string) string { return "result:" + rawURL }

// Fetch returns the body of rawURL, from the cache when a live entry exists.
// Transport errors are returned as is and nothing is cached for them.
func (p *PageCache) Fetch(ctx context.Context, rawURL string) (string, error) {
	if _, err := p.kv.Incr(ctx, countKey(rawURL)); err != nil {
		return "", fmt.Errorf("count %s: %w", rawURL, err)
	}
	v, err := p.kv.Get(ctx, resultKey(rawURL))
	switch {
	case err == nil && len(v) > 0:
		return string(v), nil
	case err != nil && !errors.Is(err, cache.ErrNotFound) && !errors.Is(err, cache.ErrExpired):
		return "", fmt.Errorf("cached page %s: %w", rawURL, err)
	}

	body, err := p.transport.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	logger.Infof("page cache miss: fetched %s (%d bytes)", rawURL, len(body))

	if p.atomicReset {
		err = p.kv.MSet(ctx, []cache.Entry{
			{Key: countKey(rawURL), Value: []byte("0")},
			{Key: resultKey(rawURL), Value: []byte(body), TTL: p.ttl},
		})
		if err != nil {
			return "", fmt.Errorf("cache page %s: %w", rawURL, err)
		}
		return body, nil
	}
	if err := p.kv.Set(ctx, countKey(rawURL), []byte("0"), 0); err != nil {
		return "", fmt.Errorf("reset count %s: %w", rawURL, err)
	}
	if err := p.kv.Set(ctx, resultKey(rawURL), []byte(body), p.ttl); err != nil {
		return "", fmt.Errorf("cache page %s: %w", rawURL, err)
	}
	return body, nil
}

// Count returns the number of requests for rawURL since its last fresh fetch.
func (p *PageCache) Count(ctx context.Context, rawURL string) (int64, error) {
	v, err := p.kv.Get(ctx, countKey(rawURL))
	if errors.Is(err, cache.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(v), 10, 64)
}
