package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leonardcser/kvtrack/internal/cache"
	"github.com/leonardcser/kvtrack/internal/config"
	"github.com/leonardcser/kvtrack/internal/logger"
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

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(cfg.CacheSocket), 0o755)
	_ = os.MkdirAll(filepath.Dir(cfg.CacheDB), 0o755)
	_ = os.Remove(cfg.CacheSocket)

	l, err := net.Listen("unix", cfg.CacheSocket)
	if err != nil {
		logger.Errorf("listen on %s: %v", cfg.CacheSocket, err)
		panic(err)
	}
	_ = os.Chmod(cfg.CacheSocket, 0o600)

	// No default TTL: counters, history and stored values never expire.
	store, err := cache.Open(cfg.CacheDB, cache.Options{Bucket: cfg.CacheBucket})
	if err != nil {
		logger.Errorf("open %s: %v", cfg.CacheDB, err)
		panic(err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("cache daemon serving %s on %s", cfg.CacheDB, cfg.CacheSocket)
	if err := cache.Serve(ctx, l, store); err != nil {
		logger.Errorf("serve: %v", err)
	}
	_ = os.Remove(cfg.CacheSocket)
	logger.Infof("cache daemon stopped")
}
