package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewdlop/DarkWebNote/internal/config"
)

func TestDomainFilter(t *testing.T) {
	filter := NewDomainFilter([]string{"example.com"})

	assert.True(t, filter.Accept("https://example.com/page1"))
	assert.True(t, filter.Accept("https://www.example.com/page"))
	assert.True(t, filter.Accept("https://docs.example.com"))
	assert.False(t, filter.Accept("https://notexample.com/page"))
	assert.False(t, filter.Accept("https://example.com.evil.net/"))
}

func TestDomainFilterCaseInsensitiveHost(t *testing.T) {
	filter := NewDomainFilter([]string{"Example.COM"})
	assert.True(t, filter.Accept("https://EXAMPLE.com/x"))
}

func TestPatternFilter(t *testing.T) {
	filter, err := NewPatternFilter([]string{`/articles/.*`})
	require.NoError(t, err)

	assert.True(t, filter.Accept("https://x.com/articles/1"))
	assert.False(t, filter.Accept("https://x.com/about"))
}

func TestPatternFilterSearchSemantics(t *testing.T) {
	filter, err := NewPatternFilter([]string{`news`})
	require.NoError(t, err)

	// Match anywhere in the URL string, not a full-string match.
	assert.True(t, filter.Accept("https://x.com/some/news/today"))
}

func TestPatternFilterInvalidPattern(t *testing.T) {
	_, err := NewPatternFilter([]string{`([unclosed`})
	assert.Error(t, err)
}

func TestCombinators(t *testing.T) {
	domains := NewDomainFilter([]string{"example.com"})
	patterns, err := NewPatternFilter([]string{`/articles/`})
	require.NoError(t, err)

	both := All(domains, patterns)
	assert.True(t, both.Accept("https://example.com/articles/1"))
	assert.False(t, both.Accept("https://example.com/about"))
	assert.False(t, both.Accept("https://other.com/articles/1"))

	either := Any(domains, patterns)
	assert.True(t, either.Accept("https://example.com/about"))
	assert.True(t, either.Accept("https://other.com/articles/1"))
	assert.False(t, either.Accept("https://other.com/about"))
}

func TestAllOfNothingAcceptsEverything(t *testing.T) {
	assert.True(t, All().Accept("https://anything.example"))
	assert.False(t, Any().Accept("https://anything.example"))
}

func TestFilterFromConfig(t *testing.T) {
	filter, err := FilterFromConfig(config.CrawlConfig{})
	require.NoError(t, err)
	assert.Nil(t, filter)

	filter, err = FilterFromConfig(config.CrawlConfig{
		AllowedDomains: []string{"example.com"},
		URLPatterns:    []string{`/docs/`},
	})
	require.NoError(t, err)
	require.NotNil(t, filter)
	assert.True(t, filter.Accept("https://example.com/docs/intro"))
	assert.False(t, filter.Accept("https://example.com/blog"))

	_, err = FilterFromConfig(config.CrawlConfig{URLPatterns: []string{`([`}})
	assert.Error(t, err)
}
