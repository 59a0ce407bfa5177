// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is shared by the daemon, the MCP server and the CLI.
type Config struct {
	// CacheSocket is the Unix socket of the cache daemon.
	CacheSocket string `env:"KVTRACK_CACHE_SOCK,expand" envDefault:"${HOME}/.cache/kvtrack/cache.sock"`
	// CacheDB is the bbolt file the daemon serves.
	CacheDB string `env:"KVTRACK_CACHE_DB,expand" envDefault:"${HOME}/.cache/kvtrack/cache.bbolt"`
	// CacheBucket names the bbolt bucket holding all keys.
	CacheBucket string `env:"KVTRACK_CACHE_BUCKET" envDefault:"kvtrack"`
	// DocsDB is the SQLite file behind the document collections.
	DocsDB string `env:"KVTRACK_DOCS_DB,expand" envDefault:"${HOME}/.cache/kvtrack/docs.sqlite"`
	// PageTTL is how long fetched pages stay cached.
	PageTTL time.Duration `env:"KVTRACK_PAGE_TTL" envDefault:"10s"`
	// AtomicPageReset writes the page counter reset and the cached body together.
	AtomicPageReset bool `env:"KVTRACK_ATOMIC_PAGE_RESET" envDefault:"false"`
	// LogPath overrides the log file location.
	LogPath string `env:"KVTRACK_LOG,expand"`
}

// Load parses Config from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PageTTL <= 0 {
		return Config{}, fmt.Errorf("KVTRACK_PAGE_TTL must be positive, got %s", cfg.PageTTL)
	}
	return cfg, nil
}
