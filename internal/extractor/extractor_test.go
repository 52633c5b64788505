package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTitleTextAndLinks(t *testing.T) {
	markup := `<html><head><title>  Dark Pages  </title>
<script>var hidden = "ignored";</script>
<style>.x { color: red; }</style></head>
<body>
<h1>Welcome</h1>
<p>Some visible text.</p>
<a href="/relative">rel</a>
<a href="https://other.example/abs">abs</a>
</body></html>`

	content := Extract(markup, "https://example.com/base/")

	assert.Equal(t, "Dark Pages", content.Title)
	assert.Contains(t, content.Text, "Welcome")
	assert.Contains(t, content.Text, "Some visible text.")
	assert.NotContains(t, content.Text, "hidden")
	assert.NotContains(t, content.Text, "color: red")
	assert.NotContains(t, content.Text, "Dark Pages")

	assert.Equal(t, []string{
		"https://example.com/relative",
		"https://other.example/abs",
	}, content.Links)
}

func TestExtractMissingTitle(t *testing.T) {
	content := Extract("<html><body>no title here</body></html>", "https://example.com")
	assert.Empty(t, content.Title)
	assert.Contains(t, content.Text, "no title here")
}

func TestExtractDropsNonHTTPSchemes(t *testing.T) {
	markup := `<body>
<a href="mailto:x@example.com">mail</a>
<a href="javascript:alert(1)">js</a>
<a href="ftp://example.com/file">ftp</a>
<a href="https://example.com/keep">keep</a>
</body>`

	content := Extract(markup, "https://example.com")
	assert.Equal(t, []string{"https://example.com/keep"}, content.Links)
}

func TestExtractPreservesDocumentOrderAndDuplicates(t *testing.T) {
	markup := `<body>
<a href="/b">1</a>
<a href="/a">2</a>
<a href="/b">3</a>
</body>`

	content := Extract(markup, "http://example.com")
	// Dedup is the traversal engine's job, not the extractor's.
	assert.Equal(t, []string{
		"http://example.com/b",
		"http://example.com/a",
		"http://example.com/b",
	}, content.Links)
}

func TestExtractMalformedMarkup(t *testing.T) {
	content := Extract(`<html><body><p>truncated <a href="/x">link`, "https://example.com")
	assert.Contains(t, content.Text, "truncated")
	require.Len(t, content.Links, 1)
	assert.Equal(t, "https://example.com/x", content.Links[0])
}

func TestExtractEmptyInput(t *testing.T) {
	content := Extract("", "https://example.com")
	assert.Empty(t, content.Text)
	assert.Empty(t, content.Title)
	assert.Empty(t, content.Links)
}

func TestExtractTextJoinedBySingleSpaces(t *testing.T) {
	markup := "<body><p>  one  </p><p>two</p><div>three</div></body>"
	content := Extract(markup, "https://example.com")
	assert.Equal(t, "one two three", content.Text)
}
