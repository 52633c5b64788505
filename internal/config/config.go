package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration required to initialise the crawler
// engine and the knowledge store.
type Config struct {
	Crawl     CrawlConfig     `yaml:"crawl"`
	Worker    WorkerConfig    `yaml:"worker"`
	Robots    RobotsConfig    `yaml:"robots"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CrawlConfig controls the crawl frontier, limits, and throttling.
type CrawlConfig struct {
	Seeds               []string        `yaml:"seeds"`
	MaxDepth            int             `yaml:"max_depth"`
	MaxPages            int             `yaml:"max_pages"`
	UserAgent           string          `yaml:"user_agent"`
	Delay               Duration        `yaml:"delay"`
	RequestTimeout      Duration        `yaml:"request_timeout"`
	MaxBodyBytes        int64           `yaml:"max_body_bytes"`
	AllowedContentTypes []string        `yaml:"allowed_content_types"`
	AllowedDomains      []string        `yaml:"allowed_domains"`
	URLPatterns         []string        `yaml:"url_patterns"`
	RateLimitPerOrigin  RateLimitConfig `yaml:"rate_limit_per_origin"`
}

// WorkerConfig controls concurrency and frontier sizing for concurrent runs.
// Concurrency 1 keeps the strict sequential breadth-first traversal.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
	QueueSize   int `yaml:"queue_size"`
}

// RobotsConfig configures robots.txt handling.
type RobotsConfig struct {
	Respect   bool   `yaml:"respect"`
	UserAgent string `yaml:"user_agent"`
}

// RateLimitConfig applies a token bucket per origin on top of the fixed delay.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// KnowledgeConfig locates the knowledge store file and tunes ingestion.
type KnowledgeConfig struct {
	Path             string `yaml:"path"`
	MinContentLength int    `yaml:"min_content_length"`
	TopK             int    `yaml:"top_k"`
}

// ArchiveConfig describes an optional relational archive for raw crawl pages.
type ArchiveConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
}

// Enabled reports whether the archive is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Driver != "" && a.DSN != ""
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Enabled reports whether per-origin rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Crawl: CrawlConfig{
			MaxDepth:       2,
			MaxPages:       100,
			UserAgent:      "DarkWebCrawler/1.0",
			Delay:          DurationFrom(1 * time.Second),
			RequestTimeout: DurationFrom(10 * time.Second),
			MaxBodyBytes:   6 * 1024 * 1024,
			AllowedContentTypes: []string{
				"text/html",
				"application/xhtml+xml",
				"text/plain",
			},
		},
		Worker: WorkerConfig{
			Concurrency: 1,
			QueueSize:   2048,
		},
		Robots: RobotsConfig{
			Respect:   true,
			UserAgent: "DarkWebCrawler/1.0",
		},
		Knowledge: KnowledgeConfig{
			Path:             "dark_knowledge_base.json",
			MinContentLength: 100,
			TopK:             3,
		},
		Archive: ArchiveConfig{
			AutoMigrate: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants for the crawler configuration.
func (c Config) Validate() error {
	if c.Crawl.MaxDepth < 0 {
		return fmt.Errorf("crawl.max_depth must be >= 0 (got %d)", c.Crawl.MaxDepth)
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0 (got %d)", c.Crawl.MaxPages)
	}
	if strings.TrimSpace(c.Crawl.UserAgent) == "" {
		return errors.New("crawl.user_agent must be set")
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("crawl.max_body_bytes must be > 0 (got %d)", c.Crawl.MaxBodyBytes)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0 (got %d)", c.Worker.Concurrency)
	}
	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker.queue_size must be > 0 (got %d)", c.Worker.QueueSize)
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	if strings.TrimSpace(c.Knowledge.Path) == "" {
		return errors.New("knowledge.path must be set")
	}
	if c.Knowledge.MinContentLength < 0 {
		return fmt.Errorf("knowledge.min_content_length must be >= 0 (got %d)", c.Knowledge.MinContentLength)
	}
	if rl := c.Crawl.RateLimitPerOrigin; rl.Requests < 0 {
		return fmt.Errorf("crawl.rate_limit_per_origin.requests must be >= 0 (got %d)", rl.Requests)
	}
	if (c.Archive.Driver == "") != (c.Archive.DSN == "") {
		return errors.New("archive.driver and archive.dsn must be set together")
	}
	return nil
}

func (c *Config) normalise() {
	cleaned := make([]string, 0, len(c.Crawl.Seeds))
	for _, seed := range c.Crawl.Seeds {
		seed = strings.TrimSpace(seed)
		if seed != "" {
			cleaned = append(cleaned, seed)
		}
	}
	c.Crawl.Seeds = cleaned

	c.Crawl.UserAgent = strings.TrimSpace(c.Crawl.UserAgent)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	if c.Robots.UserAgent == "" {
		c.Robots.UserAgent = c.Crawl.UserAgent
	}
	c.Knowledge.Path = strings.TrimSpace(c.Knowledge.Path)
	c.Archive.Driver = strings.TrimSpace(c.Archive.Driver)

	if len(c.Crawl.AllowedContentTypes) > 0 {
		c.Crawl.AllowedContentTypes = dedupeLower(c.Crawl.AllowedContentTypes)
	}
	if len(c.Crawl.AllowedDomains) > 0 {
		c.Crawl.AllowedDomains = dedupeLower(c.Crawl.AllowedDomains)
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
