package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leonardcser/kvtrack/internal/store"
	"github.com/leonardcser/kvtrack/internal/web"
)

func (a *app) demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo VALUE...",
		Short: "Flush the backend, store each value, read it back and replay the calls",
		Long: "Flush the backend, store each value, read it back and replay the calls.\n" +
			"Values that parse as integers are stored as integers.\n" +
			"WARNING: this deletes every key in the backend.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kv, closeKV, err := a.backend()
			if err != nil {
				return err
			}
			defer closeKV()

			c, err := store.New(ctx, kv)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, arg := range args {
				var value any = arg
				if n, err := strconv.Atoi(arg); err == nil {
					value = n
				}
				key, err := c.Store(ctx, value)
				if err != nil {
					return err
				}
				got, _, err := c.GetStr(ctx, key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s = %s\n", key, got)
			}
			return c.Replay(ctx, out)
		},
	}
}

func (a *app) pageCache() (*web.PageCache, func() error, error) {
	kv, closeKV, err := a.backend()
	if err != nil {
		return nil, nil, err
	}
	return web.NewPageCache(kv, web.NewCollyTransport(), web.PageCacheOptions{
		TTL:         a.cfg.PageTTL,
		AtomicReset: a.cfg.AtomicPageReset,
	}), closeKV, nil
}

func (a *app) fetchCmd() *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a page through the page cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, closeKV, err := a.pageCache()
			if err != nil {
				return err
			}
			defer closeKV()

			body, err := pages.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if markdown {
				ps, err := web.Summarize(args[0], body)
				if err != nil {
					return err
				}
				body = ps.Markdown()
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(body, "\n"))
			return err
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Convert HTML to markdown")
	return cmd
}

func (a *app) pageCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page-count URL",
		Short: "Show how many times URL was requested since its last fresh fetch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, closeKV, err := a.pageCache()
			if err != nil {
				return err
			}
			defer closeKV()

			n, err := pages.Count(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
}
