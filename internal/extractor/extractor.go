package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Content is the extraction outcome for one page. Extraction is tolerant:
// malformed or truncated markup yields whatever was accumulated, never an
// error that could fail the crawl.
type Content struct {
	Text  string
	Title string
	Links []string
}

// Extract parses raw markup into plain text, the page title, and outbound
// absolute links.
//
// Text inside script and style regions is skipped. Links preserve document
// order and are not de-duplicated here; that is the traversal engine's job.
// Every href is resolved against baseURL and anything that does not resolve
// to http or https is dropped.
func Extract(markup, baseURL string) Content {
	var out Content

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return out
	}

	out.Title = strings.TrimSpace(doc.Find("title").First().Text())
	out.Text = collectText(doc)
	out.Links = collectLinks(doc, baseURL)
	return out
}

func collectText(doc *goquery.Document) string {
	var parts []string
	for _, root := range doc.Nodes {
		accumulateText(root, &parts)
	}
	return strings.Join(parts, " ")
}

func accumulateText(node *html.Node, parts *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.ElementNode {
		switch strings.ToLower(node.Data) {
		case "script", "style", "title":
			return
		}
	}
	if node.Type == html.TextNode {
		if text := strings.TrimSpace(node.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		accumulateText(child, parts)
	}
}

func collectLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		resolved := resolve(base, href)
		if resolved == "" {
			return
		}
		links = append(links, resolved)
	})
	return links
}

func resolve(base *url.URL, href string) string {
	var target *url.URL
	var err error
	if base != nil {
		target, err = base.Parse(href)
	} else {
		target, err = url.Parse(href)
	}
	if err != nil {
		return ""
	}
	switch strings.ToLower(target.Scheme) {
	case "http", "https":
		return target.String()
	}
	return ""
}
