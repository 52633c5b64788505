package types

// CrawlTarget is a frontier entry: a URL paired with its discovery depth.
type CrawlTarget struct {
	URL   string
	Depth int
}

// CrawlResult aggregates the outcome of processing a single dequeued URL.
// It is immutable once the engine has appended it to the result list.
type CrawlResult struct {
	URL      string         `json:"url"`
	Content  string         `json:"content"`
	Title    string         `json:"title,omitempty"`
	Metadata map[string]any `json:"metadata"`
	Links    []string       `json:"links"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Depth    int            `json:"depth"`
}

// CrawlStats summarises a crawl-and-store run.
// Stored + Skipped + Errors always equals TotalCrawled.
type CrawlStats struct {
	TotalCrawled int    `json:"total_crawled"`
	Stored       int    `json:"stored"`
	Skipped      int    `json:"skipped"`
	Errors       int    `json:"errors"`
	VisitedURLs  int    `json:"visited_urls"`
	RunID        string `json:"run_id"`
}
