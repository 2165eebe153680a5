package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CTAG07/Mimic/pkg/crawler"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var crawlLimit int

func init() {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Backfill corpora from the configured feeds",
		Args:  cobra.NoArgs,
		RunE:  runCrawl,
	}
	cmd.Flags().IntVarP(&crawlLimit, "limit", "n", -1, "Stop after this many new messages (0 for no limit, default from config)")

	RootCmd.AddCommand(cmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	config, secrets, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	app, err := newApp(config, secrets, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close corpus store", slog.String("error", err.Error()))
		}
	}()

	limit := config.Feeds.CrawlLimit
	if crawlLimit >= 0 {
		limit = crawlLimit
	}
	cr, err := app.newCrawler(limit)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(config.Feeds.MonitorIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := cr.Crawl(gctx)
		if errors.Is(err, context.Canceled) {
			logger.Info("Crawl interrupted")
			return nil
		}
		return err
	})
	g.Go(func() error {
		cr.Monitor(gctx, interval, func(p crawler.Progress) {
			logger.Info("Crawl progress",
				slog.Int("collected", p.Collected),
				slog.Int("limit", p.Limit),
				slog.Bool("running", p.Running),
			)
		})
		return nil
	})
	return g.Wait()
}
