// Package html converts raw page markup into the plain text, title and link
// set the crawl frontier works with. Both fetch strategies share it so a
// rendered page and a plain-HTTP page normalise identically.
package html

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parse limits, mirroring the storage caps applied at crawl time.
const (
	maxLinksPerPage       = 50
	maxAttachmentsPerPage = 20
)

// attachmentExtensions mark links worth recording as downloadable documents.
var attachmentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// Page is the normalised view of one fetched document.
type Page struct {
	// Title is the <title> text, falling back to the URL path.
	Title string

	// Text is the readable content with boilerplate elements removed.
	Text string

	// Links are absolute, normalised, same-origin hyperlinks in document
	// order, deduplicated and capped.
	Links []string

	// Attachments are absolute links to downloadable documents.
	Attachments []string

	// Breadcrumbs are the navigation trail entries, when present.
	Breadcrumbs []string
}

// Parse normalises raw markup fetched from baseURL.
func Parse(baseURL, rawHTML string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Title:       extractTitle(doc, base),
		Breadcrumbs: extractBreadcrumbs(doc),
	}
	page.Links, page.Attachments = extractLinks(doc, base)

	// Strip boilerplate before text extraction. Order matters: the link
	// pass above must see the full document.
	doc.Find("script, style, noscript, svg, nav, header, footer").Remove()
	page.Text = collapseWhitespace(doc.Find("body").Text())
	if page.Text == "" {
		page.Text = collapseWhitespace(doc.Text())
	}

	return page, nil
}

func extractTitle(doc *goquery.Document, base *url.URL) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}

	// Fall back to the last path segment.
	name := path.Base(base.Path)
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	if name == "." || name == "/" || name == "" {
		return base.Host
	}
	return name
}

func extractBreadcrumbs(doc *goquery.Document) []string {
	var crumbs []string
	for _, selector := range []string{`nav[aria-label*="readcrumb"] a`, ".breadcrumb a"} {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				crumbs = append(crumbs, text)
			}
		})
		if len(crumbs) > 0 {
			break
		}
	}
	return crumbs
}

func extractLinks(doc *goquery.Document, base *url.URL) (links, attachments []string) {
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}

		abs.Fragment = ""
		normalized := strings.TrimSuffix(abs.String(), "/")
		if normalized == "" || seen[normalized] {
			return
		}

		if attachmentExtensions[strings.ToLower(path.Ext(abs.Path))] {
			if len(attachments) < maxAttachmentsPerPage {
				seen[normalized] = true
				attachments = append(attachments, normalized)
			}
			return
		}

		// Traversal stays on the seed's origin.
		if !strings.EqualFold(abs.Host, base.Host) {
			return
		}
		if len(links) < maxLinksPerPage {
			seen[normalized] = true
			links = append(links, normalized)
		}
	})

	return links, attachments
}

// collapseWhitespace squeezes runs of whitespace and drops empty lines so the
// text is stable across fetch strategies.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
