package main

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/kvtrack/internal/cache"
	"github.com/leonardcser/kvtrack/internal/config"
	"github.com/leonardcser/kvtrack/internal/logger"
	"github.com/leonardcser/kvtrack/internal/store"
	tools "github.com/leonardcser/kvtrack/internal/tools"
	web "github.com/leonardcser/kvtrack/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.LogPath != "" {
		err = logger.Init(cfg.LogPath)
	} else {
		err = logger.InitFromEnv()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting kvtrack MCP server")

	kv, err := ensureCache(cfg.CacheSocket)
	if err != nil {
		logger.Errorf("Failed to connect to cache daemon after startup attempt: %v", err)
		panic(err)
	}
	logger.Infof("Successfully connected to cache daemon")

	ctx := context.Background()
	// store.New flushes the daemon's database, page cache included.
	values, err := store.New(ctx, kv)
	if err != nil {
		logger.Errorf("Failed to initialize store: %v", err)
		panic(err)
	}
	pages := web.NewPageCache(kv, web.NewCollyTransport(), web.PageCacheOptions{
		TTL:         cfg.PageTTL,
		AtomicReset: cfg.AtomicPageReset,
	})
	logger.Infof("Initialized store and page cache (ttl=%s, atomic reset=%v)", cfg.PageTTL, cfg.AtomicPageReset)

	s := server.NewMCPServer(
		"kvtrack",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("web-fetch",
		mcp.WithDescription(multiline(
			"Fetches a URL and returns its body",
			"- Each response is cached for a short time (default 10 seconds)",
			"- Every request for a URL is counted; see page-count",
			"- format=markdown extracts title, description, links and text from HTML",
		)),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to fetch")),
		mcp.WithString("format", mcp.Enum("raw", "markdown"), mcp.Description("Output format, raw by default")),
	), tools.WebFetchHandler(pages))

	s.AddTool(mcp.NewTool("page-count",
		mcp.WithDescription("Returns how many times a URL was requested since it was last fetched fresh"),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL")),
	), tools.PageCountHandler(pages))

	s.AddTool(mcp.NewTool("kv-store",
		mcp.WithDescription("Stores a value under a new random key and returns the key"),
		mcp.WithString("value", mcp.Required(), mcp.Description("The value to store")),
		mcp.WithString("as", mcp.Enum("str", "int", "float"), mcp.Description("How to type the value, str by default")),
	), tools.KVStoreHandler(values))

	s.AddTool(mcp.NewTool("kv-get",
		mcp.WithDescription("Reads a value stored with kv-store"),
		mcp.WithString("key", mcp.Required(), mcp.Description("Key returned by kv-store")),
		mcp.WithString("as", mcp.Enum("str", "int"), mcp.Description("How to decode the value, str by default")),
	), tools.KVGetHandler(values))

	s.AddTool(mcp.NewTool("kv-replay",
		mcp.WithDescription("Shows how many times kv-store was called and the input and output of each call"),
	), tools.KVReplayHandler(values))
	logger.Infof("Registered tools")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

// ensureCache connects to the cache daemon, starting it if needed.
func ensureCache(sock string) (cache.KV, error) {
	logger.Infof("Attempting to connect to cache daemon at %s", sock)
	client, err := connectCache(sock)
	if err == nil {
		return client, nil
	}
	logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
	if startErr := startCacheDaemon(); startErr != nil {
		logger.Errorf("Failed to start cache daemon: %v", startErr)
	} else {
		logger.Infof("Cache daemon started successfully")
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if client, err = connectCache(sock); err == nil {
			return client, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil, err
}

func connectCache(sock string) (cache.KV, error) {
	// health check
	conn, err := net.DialTimeout("unix", sock, 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return cache.NewClient(sock), nil
}

const daemonBinary = "kvtrack-cache"

// startCacheDaemon looks for the daemon next to this executable, then on
// PATH, then in the working directory.
func startCacheDaemon() error {
	var candidates []string
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), daemonBinary))
	}
	if path, err := exec.LookPath(daemonBinary); err == nil {
		candidates = append(candidates, path)
	}
	candidates = append(candidates, "./"+daemonBinary)

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cmd := exec.Command(path)
		cmd.Env = os.Environ()
		return cmd.Start()
	}
	return exec.ErrNotFound
}
