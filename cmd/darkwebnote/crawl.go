package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ewdlop/DarkWebNote/internal/config"
	"github.com/ewdlop/DarkWebNote/internal/crawler"
	"github.com/ewdlop/DarkWebNote/internal/knowledge"
	"github.com/ewdlop/DarkWebNote/internal/storage"
)

// NewCrawlCmd creates the crawl subcommand.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl from seed URLs and store accepted pages in the knowledge base",
		Long: `Crawl traverses breadth-first from the given seed URLs (or the seeds in the
configuration file when none are given), honours robots.txt and the
configured depth/page budgets, and stores every accepted page in the
knowledge base. The store is saved once at the end of the run.`,
		RunE: runCrawl,
	}
	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	seeds := args
	if len(seeds) == 0 {
		seeds = cfg.Crawl.Seeds
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no seed URLs: pass them as arguments or set crawl.seeds")
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	filter, err := crawler.FilterFromConfig(cfg.Crawl)
	if err != nil {
		return fmt.Errorf("build url filter: %w", err)
	}

	engine := crawler.NewEngine(*cfg, logger)

	if cfg.Archive.Enabled() {
		archive, err := storage.Open(cfg.Archive)
		if err != nil {
			return fmt.Errorf("open page archive: %w", err)
		}
		defer archive.Close()
		engine.SetArchive(archive)
	}

	store := knowledge.Open(cfg.Knowledge.Path, logger)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats, err := engine.CrawlAndStore(ctx, seeds, store, filter, cfg.Knowledge.MinContentLength)
	if err != nil {
		return err
	}
	if ctx.Err() == context.Canceled {
		logger.Warn("crawl interrupted, partial results saved")
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"crawled %d pages: %d stored, %d skipped, %d errors (%d URLs visited)\n",
		stats.TotalCrawled, stats.Stored, stats.Skipped, stats.Errors, stats.VisitedURLs)
	return nil
}
