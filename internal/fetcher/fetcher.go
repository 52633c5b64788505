package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// ErrUnsupportedContentType marks responses whose Content-Type lacks a
// configured markup/text indicator. The engine records such fetches as
// "no body", not as a crawl-aborting failure.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Page is the decoded outcome of a single fetch.
type Page struct {
	URL         string
	FinalURL    string
	Body        string
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
}

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent           string
	Timeout             time.Duration
	MaxBodyBytes        int64
	AllowedContentTypes []string
}

// HTTPFetcher performs single bounded GET requests. It has no retry logic;
// a failed fetch surfaces as an error the caller records and moves past.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	allowedTypes []string
}

// New constructs an HTTP fetcher using the provided options.
func New(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 6 * 1024 * 1024
	}
	allowed := opts.AllowedContentTypes
	if len(allowed) == 0 {
		allowed = []string{"text/html", "application/xhtml+xml", "text/plain"}
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
		allowedTypes: allowed,
	}
}

// Fetch downloads a single URL. The body is decoded to UTF-8 text on a
// best-effort basis; invalid byte sequences are dropped rather than failing
// the decode.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http fetch failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !f.contentTypeAllowed(contentType) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	body, err := f.readBody(resp, contentType)
	if err != nil {
		return nil, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Page{
		URL:         rawURL,
		FinalURL:    finalURL,
		Body:        body,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
		FetchedAt:   time.Now(),
	}, nil
}

func (f *HTTPFetcher) contentTypeAllowed(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, allowed := range f.allowedTypes {
		if strings.Contains(ct, allowed) {
			return true
		}
	}
	return false
}

func (f *HTTPFetcher) readBody(resp *http.Response, contentType string) (string, error) {
	if resp == nil || resp.Body == nil {
		return "", errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	// Best-effort charset conversion; on sniffing failure fall back to the
	// raw bytes rather than erroring out.
	if converted, err := charset.NewReader(reader, contentType); err == nil {
		reader = converted
	}

	limited := io.LimitReader(reader, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return "", fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)
	}

	return string(bytes.ToValidUTF8(body, nil)), nil
}

// Client exposes the underlying HTTP client for reuse (eg. robots.txt fetches).
func (f *HTTPFetcher) Client() *http.Client {
	if f == nil {
		return nil
	}
	return f.client
}
