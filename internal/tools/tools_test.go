package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/kvtrack/internal/cache"
	"github.com/leonardcser/kvtrack/internal/store"
	"github.com/leonardcser/kvtrack/internal/web"
)

func newKV(t *testing.T) *cache.Store {
	t.Helper()
	kv, err := cache.Open(filepath.Join(t.TempDir(), "tools.bbolt"), cache.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestKVTools(t *testing.T) {
	c, err := store.New(context.Background(), newKV(t))
	require.NoError(t, err)

	key, isErr := call(t, KVStoreHandler(c), map[string]any{"value": "hello"})
	require.False(t, isErr, key)
	got, isErr := call(t, KVGetHandler(c), map[string]any{"key": key})
	require.False(t, isErr)
	assert.Equal(t, "hello", got)

	intKey, isErr := call(t, KVStoreHandler(c), map[string]any{"value": "42", "as": "int"})
	require.False(t, isErr)
	got, isErr = call(t, KVGetHandler(c), map[string]any{"key": intKey, "as": "int"})
	require.False(t, isErr)
	assert.Equal(t, "42", got)

	_, isErr = call(t, KVStoreHandler(c), map[string]any{"value": "x", "as": "int"})
	assert.True(t, isErr)
	_, isErr = call(t, KVGetHandler(c), map[string]any{"key": "missing"})
	assert.True(t, isErr)
	_, isErr = call(t, KVStoreHandler(c), map[string]any{})
	assert.True(t, isErr)

	out, isErr := call(t, KVReplayHandler(c), nil)
	require.False(t, isErr)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Cache.store was called 2 times:", lines[0])
	assert.Equal(t, "Cache.store(('hello',)) -> "+key, lines[1])
	assert.Equal(t, "Cache.store((42,)) -> "+intKey, lines[2])
}

func TestWebTools(t *testing.T) {
	calls := 0
	tr := web.TransportFunc(func(_ context.Context, rawURL string) (string, error) {
		calls++
		return fmt.Sprintf("<html><head><title>T%d</title></head><body><p>hi</p></body></html>", calls), nil
	})
	pages := web.NewPageCache(newKV(t), tr, web.PageCacheOptions{})
	const u = "https://example.com/"

	raw, isErr := call(t, WebFetchHandler(pages), map[string]any{"url": u})
	require.False(t, isErr)
	assert.Contains(t, raw, "<title>T1</title>")

	md, isErr := call(t, WebFetchHandler(pages), map[string]any{"url": u, "format": "markdown"})
	require.False(t, isErr)
	assert.True(t, strings.HasPrefix(md, "# T1\n\n"), md)
	assert.Equal(t, 1, calls)

	count, isErr := call(t, PageCountHandler(pages), map[string]any{"url": u})
	require.False(t, isErr)
	assert.Equal(t, "1", count)

	_, isErr = call(t, WebFetchHandler(pages), map[string]any{"url": u, "format": "pdf"})
	assert.True(t, isErr)
	_, isErr = call(t, WebFetchHandler(pages), map[string]any{})
	assert.True(t, isErr)
}
