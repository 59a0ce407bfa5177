// Command kvtrack exercises the instrumented store, the page cache and the
// document collections from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leonardcser/kvtrack/internal/cache"
	"github.com/leonardcser/kvtrack/internal/config"
	"github.com/leonardcser/kvtrack/internal/logger"
)

// app carries what subcommands share.
type app struct {
	cfg    config.Config
	boltDB string
}

func newRootCmd(cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg}
	root := &cobra.Command{
		Use:           "kvtrack",
		Short:         "Key-value and document store tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.boltDB, "bolt", "", "Use this bbolt file directly instead of the cache daemon")
	root.PersistentFlags().StringVar(&a.cfg.DocsDB, "docs-db", cfg.DocsDB, "SQLite file holding document collections")

	root.AddCommand(a.demoCmd(), a.fetchCmd(), a.pageCountCmd(), a.docsCmd())
	return root
}

// backend opens the KV backend: a local bbolt file if --bolt is set,
// otherwise the cache daemon.
func (a *app) backend() (cache.KV, func() error, error) {
	if a.boltDB != "" {
		s, err := cache.Open(a.boltDB, cache.Options{Bucket: a.cfg.CacheBucket})
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", a.boltDB, err)
		}
		return s, s.Close, nil
	}
	return cache.NewClient(a.cfg.CacheSocket), func() error { return nil }, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.InitWriter(os.Stderr)
	if cfg.LogPath != "" {
		_ = logger.Close()
		if err := logger.Init(cfg.LogPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	defer logger.Close()

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
