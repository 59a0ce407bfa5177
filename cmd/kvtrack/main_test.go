package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/kvtrack/internal/config"
)

func run(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	return config.Config{
		CacheSocket: filepath.Join(dir, "none.sock"),
		CacheBucket: "test",
		DocsDB:      filepath.Join(dir, "docs.sqlite"),
		PageTTL:     10 * time.Second,
	}
}

func TestDemo(t *testing.T) {
	cfg := testConfig(t)
	bolt := filepath.Join(t.TempDir(), "kv.bbolt")

	out, err := run(t, cfg, "--bolt", bolt, "demo", "hello", "42")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasSuffix(lines[0], " = hello"))
	assert.True(t, strings.HasSuffix(lines[1], " = 42"))
	assert.Equal(t, "Cache.store was called 2 times:", lines[2])
	key := strings.TrimSuffix(lines[0], " = hello")
	assert.Equal(t, "Cache.store(('hello',)) -> "+key, lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "Cache.store((42,)) -> "))

	// A second run starts from a flushed backend.
	out, err = run(t, cfg, "--bolt", bolt, "demo", "again")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache.store was called 1 times:")
}

func TestDemo_NoDaemon(t *testing.T) {
	_, err := run(t, testConfig(t), "demo", "x")
	assert.Error(t, err)
}

func TestDocsCommands(t *testing.T) {
	cfg := testConfig(t)

	for _, name := range []string{"UCSF", "Holberton"} {
		_, err := run(t, cfg, "docs", "insert", "school", "name="+name)
		require.NoError(t, err)
	}
	out, err := run(t, cfg, "docs", "update-topics", "Holberton", "C", "Python")
	require.NoError(t, err)
	assert.Equal(t, "1 updated\n", out)

	out, err = run(t, cfg, "docs", "schools-by-topic", "Python")
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"Holberton"`)
	assert.NotContains(t, out, "UCSF")

	out, err = run(t, cfg, "docs", "list", "school")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	_, err = run(t, cfg, "docs", "insert", "students", "_id=s1", "name=Ann", "scores=[3,5]")
	require.NoError(t, err)
	out, err = run(t, cfg, "docs", "top-students")
	require.NoError(t, err)
	assert.Equal(t, "[s1] Ann => 4\n", out)

	_, err = run(t, cfg, "docs", "insert", "nginx", "method=GET", "path=/status")
	require.NoError(t, err)
	out, err = run(t, cfg, "docs", "log-stats")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1 logs\n\tmethod GET: 1\n"))
	assert.True(t, strings.HasSuffix(out, "1 status check\n"))
}

func TestParseFields(t *testing.T) {
	doc, err := parseFields([]string{"name=Bob", "age=30", "tags=[\"a\"]"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", doc["name"])
	assert.Equal(t, float64(30), doc["age"])
	assert.Equal(t, []any{"a"}, doc["tags"])

	_, err = parseFields([]string{"novalue"})
	assert.Error(t, err)
}

func TestFetchMarkdown(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html><head><title>Missing</title></head><body><p>no such page</p></body></html>"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	bolt := filepath.Join(t.TempDir(), "kv.bbolt")

	out, err := run(t, cfg, "--bolt", bolt, "fetch", "--markdown", srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Missing\n\nSource: <"+srv.URL+">\n\n"), out)
	assert.Contains(t, out, "no such page")

	_, err = run(t, cfg, "--bolt", bolt, "fetch", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	out, err = run(t, cfg, "--bolt", bolt, "page-count", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}
