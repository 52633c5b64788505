package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ewdlop/DarkWebNote/internal/config"
	"github.com/ewdlop/DarkWebNote/internal/extractor"
	"github.com/ewdlop/DarkWebNote/internal/fetcher"
	robotsgate "github.com/ewdlop/DarkWebNote/internal/robots"
	"github.com/ewdlop/DarkWebNote/pkg/types"
)

// errFetchDenied is the user-visible error string for a fetch that was
// blocked by robots, failed on the network, or returned non-text content.
const errFetchDenied = "fetch failed or disallowed"

// DocumentStore receives accepted crawl results. Implemented by
// knowledge.Store.
type DocumentStore interface {
	AddDocument(content string, metadata map[string]any) string
	Save() error
}

// PageArchiver optionally persists every stored crawl result into a
// relational archive.
type PageArchiver interface {
	SavePage(ctx context.Context, result types.CrawlResult) error
}

// Engine owns the crawl frontier, the visited set, and the budget
// invariants. The visited set grows monotonically for the lifetime of one
// Engine instance and is never shared between engines.
type Engine struct {
	cfg     config.Config
	fetcher *fetcher.HTTPFetcher
	robots  *robotsgate.Gate
	limiter *OriginLimiter
	archive PageArchiver
	logger  *slog.Logger

	mu      sync.Mutex
	visited map[string]struct{}
	claimed int
}

// NewEngine builds a crawler engine from configuration. The robots gate
// reuses the fetcher's HTTP client.
func NewEngine(cfg config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	httpFetcher := fetcher.New(fetcher.Options{
		UserAgent:           cfg.Crawl.UserAgent,
		Timeout:             cfg.Crawl.RequestTimeout.Duration,
		MaxBodyBytes:        cfg.Crawl.MaxBodyBytes,
		AllowedContentTypes: cfg.Crawl.AllowedContentTypes,
	})

	// In sequential mode the fixed delay is applied between frontier
	// iterations; the limiter then only carries the optional token bucket.
	// Concurrent workers instead space requests per origin.
	limiterDelay := time.Duration(0)
	if cfg.Worker.Concurrency > 1 {
		limiterDelay = cfg.Crawl.Delay.Duration
	}

	return &Engine{
		cfg:     cfg,
		fetcher: httpFetcher,
		robots:  robotsgate.NewGate(cfg.Robots, httpFetcher.Client()),
		limiter: NewOriginLimiter(limiterDelay, cfg.Crawl.RateLimitPerOrigin),
		logger:  logger,
		visited: make(map[string]struct{}),
	}
}

// SetArchive attaches an optional page archive consulted by CrawlAndStore.
func (e *Engine) SetArchive(archive PageArchiver) {
	e.archive = archive
}

// VisitedCount reports how many URLs have been marked visited so far.
func (e *Engine) VisitedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.visited)
}

// Crawl traverses breadth-first from the seed URLs and returns one result
// per visited URL. With worker.concurrency == 1 the traversal is strictly
// sequential FIFO; duplicates may be enqueued but are discarded at dequeue
// time against the visited set. No error escapes for a single bad URL.
func (e *Engine) Crawl(ctx context.Context, seeds []string, filter Filter) []types.CrawlResult {
	if e.cfg.Worker.Concurrency > 1 {
		return e.crawlConcurrent(ctx, seeds, filter)
	}
	return e.crawlSequential(ctx, seeds, filter)
}

func (e *Engine) crawlSequential(ctx context.Context, seeds []string, filter Filter) []types.CrawlResult {
	maxDepth := e.cfg.Crawl.MaxDepth
	maxPages := e.cfg.Crawl.MaxPages
	delay := e.cfg.Crawl.Delay.Duration

	frontier := make([]types.CrawlTarget, 0, len(seeds))
	for _, seed := range seeds {
		frontier = append(frontier, types.CrawlTarget{URL: seed, Depth: 0})
	}

	var results []types.CrawlResult
	for len(frontier) > 0 && len(results) < maxPages {
		if ctx.Err() != nil {
			e.logger.Warn("crawl cancelled", "visited", e.VisitedCount())
			break
		}

		target := frontier[0]
		frontier = frontier[1:]

		if e.isVisited(target.URL) {
			continue
		}
		if target.Depth > maxDepth {
			continue
		}
		if filter != nil && !filter.Accept(target.URL) {
			continue
		}

		// Mark before fetching so in-flight duplicates already queued are
		// discarded at their own dequeue.
		e.markVisited(target.URL)

		result := e.crawlURL(ctx, target)
		results = append(results, result)

		if result.Success && target.Depth < maxDepth {
			for _, link := range result.Links {
				if !e.isVisited(link) {
					frontier = append(frontier, types.CrawlTarget{URL: link, Depth: target.Depth + 1})
				}
			}
		}

		// Politeness pause, skipped after the final queued item and once
		// the page budget is spent.
		if len(frontier) > 0 && len(results) < maxPages && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
			}
			timer.Stop()
		}
	}
	return results
}

func (e *Engine) crawlConcurrent(ctx context.Context, seeds []string, filter Filter) []types.CrawlResult {
	pool, err := newWorkerPool(ctx, e.cfg.Worker.Concurrency, e.cfg.Worker.QueueSize)
	if err != nil {
		e.logger.Error("worker pool init failed", "error", err)
		return nil
	}
	defer pool.close()

	var (
		resultsMu sync.Mutex
		results   []types.CrawlResult
		wg        sync.WaitGroup
	)

	var spawn func(parent context.Context, target types.CrawlTarget, blocking bool)
	spawn = func(parent context.Context, target types.CrawlTarget, blocking bool) {
		if target.Depth > e.cfg.Crawl.MaxDepth {
			return
		}
		if filter != nil && !filter.Accept(target.URL) {
			return
		}
		if !e.claim(target.URL) {
			return
		}

		run := func(workerCtx context.Context) {
			defer wg.Done()
			if workerCtx.Err() != nil {
				return
			}
			result := e.crawlURL(workerCtx, target)

			resultsMu.Lock()
			results = append(results, result)
			resultsMu.Unlock()

			if result.Success && target.Depth < e.cfg.Crawl.MaxDepth {
				for _, link := range result.Links {
					spawn(workerCtx, types.CrawlTarget{URL: link, Depth: target.Depth + 1}, false)
				}
			}
		}

		wg.Add(1)
		var submitErr error
		if blocking {
			submitErr = pool.submit(parent, run)
		} else {
			submitErr = pool.trySubmit(run)
		}
		if submitErr != nil {
			wg.Done()
			e.unclaim(target.URL)
			e.logger.Warn("frontier target dropped", "url", target.URL, "error", submitErr)
		}
	}

	for _, seed := range seeds {
		spawn(ctx, types.CrawlTarget{URL: seed, Depth: 0}, true)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		e.logger.Warn("crawl cancelled, draining workers")
		<-done
	case <-done:
	}

	resultsMu.Lock()
	defer resultsMu.Unlock()
	return results
}

// claim performs the single authoritative check-and-mark: visited membership
// and the page budget are decided under one lock, so the same URL is never
// fetched twice and len(results) never exceeds max_pages.
func (e *Engine) claim(rawURL string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.visited[rawURL]; ok {
		return false
	}
	if e.claimed >= e.cfg.Crawl.MaxPages {
		return false
	}
	e.visited[rawURL] = struct{}{}
	e.claimed++
	return true
}

func (e *Engine) unclaim(rawURL string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.visited, rawURL)
	e.claimed--
}

func (e *Engine) isVisited(rawURL string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.visited[rawURL]
	return ok
}

func (e *Engine) markVisited(rawURL string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visited[rawURL] = struct{}{}
}

// crawlURL fetches and extracts a single URL. Every failure mode is folded
// into a failed CrawlResult; this function never returns an error.
func (e *Engine) crawlURL(ctx context.Context, target types.CrawlTarget) types.CrawlResult {
	if !e.robots.Allowed(ctx, target.URL) {
		e.logger.Debug("blocked by robots", "url", target.URL)
		return failedResult(target, errFetchDenied)
	}

	if err := e.limiter.Wait(ctx, originOf(target.URL)); err != nil {
		return failedResult(target, err.Error())
	}

	page, err := e.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		e.logger.Debug("fetch failed", "url", target.URL, "error", err)
		return failedResult(target, errFetchDenied)
	}

	content := extractor.Extract(page.Body, target.URL)

	metadata := map[string]any{
		"url":            target.URL,
		"title":          content.Title,
		"crawled_at":     time.Now().Unix(),
		"content_length": len(content.Text),
		"num_links":      len(content.Links),
	}

	return types.CrawlResult{
		URL:      target.URL,
		Content:  content.Text,
		Title:    content.Title,
		Metadata: metadata,
		Links:    content.Links,
		Success:  true,
		Depth:    target.Depth,
	}
}

func failedResult(target types.CrawlTarget, errMsg string) types.CrawlResult {
	return types.CrawlResult{
		URL:      target.URL,
		Metadata: map[string]any{},
		Success:  false,
		Error:    errMsg,
		Depth:    target.Depth,
	}
}

func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Scheme + "://" + parsed.Host)
}

// CrawlAndStore crawls from the seeds and feeds accepted results into the
// document store. Failed results count as errors, successes shorter than
// minContentLength are skipped, the rest are stored with crawl provenance
// metadata. The store is saved at the end; a save failure is the one error
// this method propagates.
func (e *Engine) CrawlAndStore(ctx context.Context, seeds []string, store DocumentStore, filter Filter, minContentLength int) (types.CrawlStats, error) {
	runID := uuid.NewString()
	results := e.Crawl(ctx, seeds, filter)

	stats := types.CrawlStats{
		TotalCrawled: len(results),
		RunID:        runID,
	}

	for _, result := range results {
		if !result.Success {
			stats.Errors++
			continue
		}
		if len(result.Content) < minContentLength {
			stats.Skipped++
			continue
		}

		metadata := make(map[string]any, len(result.Metadata)+3)
		for k, v := range result.Metadata {
			metadata[k] = v
		}
		metadata["source"] = "crawler"
		metadata["crawl_url"] = result.URL
		metadata["crawl_run"] = runID

		store.AddDocument(result.Content, metadata)
		stats.Stored++

		if e.archive != nil {
			if err := e.archive.SavePage(ctx, result); err != nil {
				e.logger.Error("archive write failed", "url", result.URL, "error", err)
			}
		}
	}

	stats.VisitedURLs = e.VisitedCount()

	if err := store.Save(); err != nil {
		return stats, fmt.Errorf("save knowledge store: %w", err)
	}

	e.logger.Info("crawl finished",
		"run_id", runID,
		"total", stats.TotalCrawled,
		"stored", stats.Stored,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"visited", stats.VisitedURLs,
	)
	return stats, nil
}
