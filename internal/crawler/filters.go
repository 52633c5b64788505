package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ewdlop/DarkWebNote/internal/config"
)

// Filter decides whether a candidate URL should be crawled. Implementations
// must be side-effect-free; the engine invokes Accept once per candidate
// before fetching.
type Filter interface {
	Accept(rawURL string) bool
}

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc func(rawURL string) bool

// Accept calls f.
func (f FilterFunc) Accept(rawURL string) bool { return f(rawURL) }

// NewDomainFilter accepts URLs whose host equals one of the given domains or
// is a subdomain of one (suffix match on "."+domain). Matching is
// case-insensitive on the host.
func NewDomainFilter(domains []string) Filter {
	allowed := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			allowed = append(allowed, d)
		}
	}
	return FilterFunc(func(rawURL string) bool {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		host := strings.ToLower(parsed.Host)
		for _, domain := range allowed {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return true
			}
		}
		return false
	})
}

// NewPatternFilter accepts URLs matched by at least one of the given regular
// expressions. Patterns use search semantics: a match anywhere in the URL
// string accepts it.
func NewPatternFilter(patterns []string) (Filter, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, raw := range patterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		pat, err := regexp.Compile(raw)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, pat)
	}
	return FilterFunc(func(rawURL string) bool {
		for _, pat := range compiled {
			if pat.MatchString(rawURL) {
				return true
			}
		}
		return false
	}), nil
}

// All combines filters with logical AND. With no filters it accepts
// everything.
func All(filters ...Filter) Filter {
	return FilterFunc(func(rawURL string) bool {
		for _, f := range filters {
			if f != nil && !f.Accept(rawURL) {
				return false
			}
		}
		return true
	})
}

// Any combines filters with logical OR. With no filters it accepts nothing.
func Any(filters ...Filter) Filter {
	return FilterFunc(func(rawURL string) bool {
		for _, f := range filters {
			if f != nil && f.Accept(rawURL) {
				return true
			}
		}
		return false
	})
}

// FilterFromConfig builds the caller-side filter implied by crawl
// configuration: a domain filter when allowed_domains is set and a pattern
// filter when url_patterns is set, combined with AND. Returns nil when the
// configuration implies no filtering.
func FilterFromConfig(cfg config.CrawlConfig) (Filter, error) {
	var filters []Filter
	if len(cfg.AllowedDomains) > 0 {
		filters = append(filters, NewDomainFilter(cfg.AllowedDomains))
	}
	if len(cfg.URLPatterns) > 0 {
		pf, err := NewPatternFilter(cfg.URLPatterns)
		if err != nil {
			return nil, err
		}
		filters = append(filters, pf)
	}
	switch len(filters) {
	case 0:
		return nil, nil
	case 1:
		return filters[0], nil
	default:
		return All(filters...), nil
	}
}
