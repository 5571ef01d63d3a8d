package domain

import (
	"net/url"
	"strings"
	"time"
)

// Document represents one fetched page, stored append-only with version history.
// For a given URL exactly one version carries IsLatest = true; prior versions
// are retained and never mutated.
type Document struct {
	// ID is the unique identifier for this document version.
	ID string

	// URL is the source location. Together with Version it identifies
	// one row; URL alone identifies the logical document.
	URL string

	// Topic is the owning collection identifier (e.g., one jurisdiction).
	Topic string

	// Title is the page title.
	Title string

	// Content is the extracted plain text.
	Content string

	// HTML is the raw markup, truncated to a storage cap by the frontier.
	HTML string

	// Links are the discovered same-origin outbound links.
	Links []string

	// Depth is the traversal depth at which the page was fetched.
	Depth int

	// Version increases monotonically per URL, starting at 1.
	Version int

	// IsLatest marks the current version among this URL's history.
	IsLatest bool

	// Metadata contains auxiliary crawl data (attachments, fetch strategy, status).
	Metadata map[string]any

	// FetchedAt is when the page was fetched.
	FetchedAt time.Time
}

// NormalizeURL canonicalises a URL for visited-set membership and for the
// document's logical key: lowercases scheme and host, strips fragments and
// trailing slashes. Invalid URLs are returned trimmed but otherwise as-is so
// the frontier can still dedup on them.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// SameOrigin reports whether two URLs share a scheme and host.
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Host, ub.Host) && ua.Host != ""
}
