package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/kvtrack/internal/cache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingTransport serves "body-<n>" for the n-th call, or err if set.
type countingTransport struct {
	calls int
	err   error
}

func (t *countingTransport) Get(_ context.Context, rawURL string) (string, error) {
	t.calls++
	if t.err != nil {
		return "", t.err
	}
	return fmt.Sprintf("body-%d", t.calls), nil
}

func newPageCache(t *testing.T, tr Transport, atomicReset bool) (*PageCache, *clock) {
	t.Helper()
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	kv, err := cache.Open(filepath.Join(t.TempDir(), "pages.bbolt"), cache.Options{Now: clk.Now})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewPageCache(kv, tr, PageCacheOptions{AtomicReset: atomicReset}), clk
}

func TestPageCache_HitMissExpire(t *testing.T) {
	for _, atomicReset := range []bool{false, true} {
		t.Run(fmt.Sprintf("atomic=%v", atomicReset), func(t *testing.T) {
			ctx := context.Background()
			tr := &countingTransport{}
			pc, clk := newPageCache(t, tr, atomicReset)
			const u = "http://example.com/"

			body, err := pc.Fetch(ctx, u)
			require.NoError(t, err)
			assert.Equal(t, "body-1", body)
			assert.Equal(t, 1, tr.calls)

			clk.Advance(5 * time.Second)
			body, err = pc.Fetch(ctx, u)
			require.NoError(t, err)
			assert.Equal(t, "body-1", body, "served from cache")
			assert.Equal(t, 1, tr.calls)

			clk.Advance(5 * time.Second)
			body, err = pc.Fetch(ctx, u)
			require.NoError(t, err)
			assert.Equal(t, "body-2", body, "refetched after ttl")
			assert.Equal(t, 2, tr.calls)
		})
	}
}

func TestPageCache_Counter(t *testing.T) {
	ctx := context.Background()
	tr := &countingTransport{}
	pc, clk := newPageCache(t, tr, false)
	const u = "http://example.com/counted"

	n, err := pc.Count(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// A miss resets the counter after the fetch.
	_, err = pc.Fetch(ctx, u)
	require.NoError(t, err)
	n, err = pc.Count(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// Hits only increment.
	for want := int64(1); want <= 3; want++ {
		_, err = pc.Fetch(ctx, u)
		require.NoError(t, err)
		n, err = pc.Count(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	clk.Advance(DefaultPageTTL)
	_, err = pc.Fetch(ctx, u)
	require.NoError(t, err)
	n, err = pc.Count(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestPageCache_TransportErrorNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	tr := &countingTransport{err: boom}
	pc, _ := newPageCache(t, tr, false)
	const u = "http://example.com/down"

	_, err := pc.Fetch(ctx, u)
	require.ErrorIs(t, err, boom)
	_, err = pc.Fetch(ctx, u)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, tr.calls, "failures are retried")

	n, err := pc.Count(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "failed requests still count")

	tr.err = nil
	body, err := pc.Fetch(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "body-3", body)
}

func TestPageCache_URLsAreIndependent(t *testing.T) {
	ctx := context.Background()
	tr := &countingTransport{}
	pc, _ := newPageCache(t, tr, false)

	a, err := pc.Fetch(ctx, "http://a.test/")
	require.NoError(t, err)
	b, err := pc.Fetch(ctx, "http://b.test/")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, tr.calls)
}

// recordingKV logs the writes PageCache makes and lets a test look at the
// backend right after each Set.
type recordingKV struct {
	cache.KV
	ops      []string
	afterSet func(key string)
}

func (r *recordingKV) Incr(ctx context.Context, key string) (int64, error) {
	r.ops = append(r.ops, "Incr "+key)
	return r.KV.Incr(ctx, key)
}

func (r *recordingKV) Get(ctx context.Context, key string) ([]byte, error) {
	r.ops = append(r.ops, "Get "+key)
	return r.KV.Get(ctx, key)
}

func (r *recordingKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.ops = append(r.ops, "Set "+key)
	if err := r.KV.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if r.afterSet != nil {
		r.afterSet(key)
	}
	return nil
}

func (r *recordingKV) MSet(ctx context.Context, entries []cache.Entry) error {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	r.ops = append(r.ops, fmt.Sprintf("MSet %v", keys))
	return r.KV.MSet(ctx, entries)
}

func TestPageCache_MissWriteOrder(t *testing.T) {
	const u = "http://example.com/order"
	tests := []struct {
		name        string
		atomicReset bool
		want        []string
	}{
		{
			name: "reset then set",
			want: []string{"Incr count:" + u, "Get result:" + u, "Set count:" + u, "Set result:" + u},
		},
		{
			name:        "single batch",
			atomicReset: true,
			want:        []string{"Incr count:" + u, "Get result:" + u, "MSet [count:" + u + " result:" + u + "]"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, err := cache.Open(filepath.Join(t.TempDir(), "order.bbolt"), cache.Options{})
			require.NoError(t, err)
			defer store.Close()

			// Count reads the backend directly so the window check is not recorded.
			direct := NewPageCache(store, nil, PageCacheOptions{})
			windowSeen := false
			rec := &recordingKV{KV: store, afterSet: func(key string) {
				if key != countKey(u) {
					return
				}
				n, err := direct.Count(ctx, u)
				require.NoError(t, err)
				assert.Equal(t, int64(0), n)
				_, err = store.Get(ctx, resultKey(u))
				assert.ErrorIs(t, err, cache.ErrNotFound, "body is not cached yet")
				windowSeen = true
			}}

			pc := NewPageCache(rec, &countingTransport{}, PageCacheOptions{AtomicReset: tt.atomicReset})
			_, err = pc.Fetch(ctx, u)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.ops)
			assert.Equal(t, !tt.atomicReset, windowSeen)
		})
	}
}

func TestPageCache_CachesErrorPages(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	pc, _ := newPageCache(t, NewCollyTransport(), false)
	for i := 0; i < 2; i++ {
		body, err := pc.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "gone\n", body)
	}
	assert.Equal(t, 1, hits)
}
