package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 2, cfg.Crawl.MaxDepth)
	assert.Equal(t, 100, cfg.Crawl.MaxPages)
	assert.Equal(t, "DarkWebCrawler/1.0", cfg.Crawl.UserAgent)
	assert.Equal(t, time.Second, cfg.Crawl.Delay.Duration)
	assert.Equal(t, 10*time.Second, cfg.Crawl.RequestTimeout.Duration)
	assert.Equal(t, 1, cfg.Worker.Concurrency)
	assert.True(t, cfg.Robots.Respect)
	assert.Equal(t, "dark_knowledge_base.json", cfg.Knowledge.Path)
	assert.Equal(t, 100, cfg.Knowledge.MinContentLength)
	assert.Equal(t, 3, cfg.Knowledge.TopK)
	assert.False(t, cfg.Archive.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	raw := `
crawl:
  seeds:
    - "https://example.com"
    - "   "
  max_depth: 4
  delay: 250ms
  request_timeout: 5
worker:
  concurrency: 8
knowledge:
  path: /tmp/kb.json
`
	cfg, err := LoadFromReader(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com"}, cfg.Crawl.Seeds)
	assert.Equal(t, 4, cfg.Crawl.MaxDepth)
	assert.Equal(t, 250*time.Millisecond, cfg.Crawl.Delay.Duration)
	// Bare numbers parse as seconds.
	assert.Equal(t, 5*time.Second, cfg.Crawl.RequestTimeout.Duration)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, "/tmp/kb.json", cfg.Knowledge.Path)
	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Crawl.MaxPages)
	assert.True(t, cfg.Robots.Respect)
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("crawl:\n  max_dpeth: 3\n"))
	assert.Error(t, err)
}

func TestLoadFromReaderRejectsBadDuration(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("crawl:\n  delay: soon\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative depth", func(c *Config) { c.Crawl.MaxDepth = -1 }, "max_depth"},
		{"zero pages", func(c *Config) { c.Crawl.MaxPages = 0 }, "max_pages"},
		{"blank user agent", func(c *Config) { c.Crawl.UserAgent = "  " }, "user_agent"},
		{"zero body limit", func(c *Config) { c.Crawl.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"zero concurrency", func(c *Config) { c.Worker.Concurrency = 0 }, "concurrency"},
		{"zero queue", func(c *Config) { c.Worker.QueueSize = 0 }, "queue_size"},
		{"blank knowledge path", func(c *Config) { c.Knowledge.Path = "" }, "knowledge.path"},
		{"negative min content", func(c *Config) { c.Knowledge.MinContentLength = -1 }, "min_content_length"},
		{"archive driver without dsn", func(c *Config) { c.Archive.Driver = "postgres" }, "archive"},
		{"archive dsn without driver", func(c *Config) { c.Archive.DSN = "postgres://x" }, "archive"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRobotsUserAgentFallsBackToCrawlAgent(t *testing.T) {
	raw := `
crawl:
  user_agent: "CustomBot/2.0"
robots:
  user_agent: ""
`
	cfg, err := LoadFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "CustomBot/2.0", cfg.Robots.UserAgent)
}

func TestNormaliseDedupesContentTypesAndDomains(t *testing.T) {
	raw := `
crawl:
  allowed_content_types: ["Text/HTML", "text/html", " text/plain "]
  allowed_domains: ["Example.COM", "example.com", "other.net"]
`
	cfg, err := LoadFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"text/html", "text/plain"}, cfg.Crawl.AllowedContentTypes)
	assert.Equal(t, []string{"example.com", "other.net"}, cfg.Crawl.AllowedDomains)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  max_pages: 7\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Crawl.MaxPages)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRateLimitEnabled(t *testing.T) {
	assert.False(t, RateLimitConfig{}.Enabled())
	assert.False(t, RateLimitConfig{Requests: 5}.Enabled())
	assert.True(t, RateLimitConfig{Requests: 5, Window: DurationFrom(time.Second)}.Enabled())
}
