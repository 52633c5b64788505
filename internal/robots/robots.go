package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/ewdlop/DarkWebNote/internal/config"
)

// Gate evaluates robots.txt rules with a per-origin cache.
//
// The cache is keyed by scheme+host and populated lazily, at most once per
// origin for the lifetime of the gate. A fetch or parse failure is cached as
// an allow-all sentinel: failure to retrieve policy is an implicit allow.
type Gate struct {
	client    *http.Client
	userAgent string
	respect   bool

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData // nil value = allow-all sentinel
}

// NewGate constructs a robots gate from configuration.
func NewGate(cfg config.RobotsConfig, client *http.Client) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gate{
		client:    client,
		userAgent: cfg.UserAgent,
		respect:   cfg.Respect,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the target URL is permitted. It never fails:
// unknown or unavailable policy is treated as allow.
func (g *Gate) Allowed(ctx context.Context, rawURL string) bool {
	if !g.respect {
		return true
	}

	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() || target.Host == "" {
		return true
	}

	rules := g.rules(ctx, target)
	if rules == nil {
		return true
	}

	group := rules.FindGroup(g.userAgent)
	if group == nil {
		group = rules.FindGroup("*")
		if group == nil {
			return true
		}
	}
	path := target.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (g *Gate) rules(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	origin := strings.ToLower(target.Scheme + "://" + target.Host)

	g.mu.RLock()
	rules, ok := g.cache[origin]
	g.mu.RUnlock()
	if ok {
		return rules
	}

	rules = g.fetch(ctx, target)

	// Last-writer-safe: a racing fetch for the same origin overwrites with
	// an equivalent value.
	g.mu.Lock()
	g.cache[origin] = rules
	g.mu.Unlock()

	return rules
}

func (g *Gate) fetch(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}

// CachedOrigins returns the number of origins with a resolved policy,
// counting allow-all sentinels.
func (g *Gate) CachedOrigins() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cache)
}

// String describes the gate for logging.
func (g *Gate) String() string {
	return fmt.Sprintf("robots.Gate(respect=%t, agent=%q)", g.respect, g.userAgent)
}
