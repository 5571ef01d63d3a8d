package domain

import (
	"path"
	"strings"
	"time"
)

// Fetch strategy identifiers, selected by configuration.
const (
	// FetchStrategyLightweight issues plain HTTP requests.
	FetchStrategyLightweight = "lightweight"

	// FetchStrategyRendering drives a headless browser for sources that
	// block non-rendering clients.
	FetchStrategyRendering = "rendering"
)

// SeedConfig pairs a topic with its starting URLs and crawl policy.
type SeedConfig struct {
	// Topic is the collection identifier the crawl writes to.
	Topic string

	// SeedURLs are the depth-0 starting points.
	SeedURLs []string

	// Policy bounds and filters the traversal.
	Policy CrawlPolicy
}

// CrawlPolicy bounds one topic's traversal.
type CrawlPolicy struct {
	// MaxDepth is the deepest link distance from a seed that will be fetched.
	MaxDepth int

	// MaxDocsPerTopic caps accepted documents for the run.
	MaxDocsPerTopic int

	// RequiredKeywords gate acceptance: a page is accepted only if its text
	// contains at least one of them. An empty set accepts everything.
	RequiredKeywords []string

	// OptionalKeywords bias frontier ordering towards pages whose text
	// contains them, but never gate acceptance.
	OptionalKeywords []string

	// ExcludePatterns are glob-like path/extension filters checked before
	// fetching (e.g. "*.pdf", "*/login/*").
	ExcludePatterns []string

	// FetchStrategy selects the fetcher implementation.
	FetchStrategy string

	// MinDelay is the minimum interval between fetches within the run.
	MinDelay time.Duration

	// MinContentLength rejects pages with less extracted text than this.
	MinContentLength int
}

// WithDefaults fills zero values with sane bounds.
func (p CrawlPolicy) WithDefaults() CrawlPolicy {
	if p.MaxDepth <= 0 {
		p.MaxDepth = 2
	}
	if p.MaxDocsPerTopic <= 0 {
		p.MaxDocsPerTopic = 100
	}
	if p.FetchStrategy == "" {
		p.FetchStrategy = FetchStrategyLightweight
	}
	if p.MinDelay <= 0 {
		p.MinDelay = time.Second
	}
	if p.MinContentLength <= 0 {
		p.MinContentLength = 200
	}
	return p
}

// Excluded reports whether a URL matches any exclusion pattern.
// Patterns match as path globs against the full URL and, for robustness
// against loosely written configs, as plain substrings.
func (p CrawlPolicy) Excluded(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, pattern := range p.ExcludePatterns {
		pattern = strings.ToLower(pattern)
		if ok, err := path.Match(pattern, lower); err == nil && ok {
			return true
		}
		if trimmed := strings.Trim(pattern, "*"); trimmed != "" && strings.Contains(lower, trimmed) {
			return true
		}
	}
	return false
}

// Relevant applies the required-keyword policy: logical OR across the set.
func (p CrawlPolicy) Relevant(text string) bool {
	if len(p.RequiredKeywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range p.RequiredKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// OptionalHits counts the optional keywords present in the text. Hits bias
// frontier ordering so that links from promising pages are fetched first,
// which matters once a document cap cuts the run short.
func (p CrawlPolicy) OptionalHits(text string) int {
	if len(p.OptionalKeywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range p.OptionalKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	return hits
}

// CrawlSummary is the sole externally observable crawl result besides
// stored documents.
type CrawlSummary struct {
	Topic    string `json:"topic"`
	Fetched  int    `json:"fetched"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
	Errored  int    `json:"errored"`
}

// FetchResult is what a fetch strategy returns for one URL.
type FetchResult struct {
	// URL is the fetched location (after normalisation).
	URL string

	// Status is the HTTP status code, or 200-equivalent for rendered pages.
	Status int

	// Title is the page title.
	Title string

	// Text is the extracted plain text.
	Text string

	// HTML is the raw markup.
	HTML string

	// Links are absolute same-origin hyperlinks discovered on the page.
	Links []string

	// Attachments are discovered downloadable document links (pdf, docx, ...).
	Attachments []string
}

// StoreStats summarises current content store state.
type StoreStats struct {
	LatestDocuments int `json:"latest_documents"`
	LatestRecords   int `json:"latest_records"`
	Topics          int `json:"topics"`
}
