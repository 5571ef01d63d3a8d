package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
	"github.com/baransitours-bot/webcra/internal/normalisers/html"
)

// Ensure LightweightFetcher implements the interface.
var _ driven.Fetcher = (*LightweightFetcher)(nil)

const (
	defaultUserAgent = "webcra/1.0 (+https://github.com/baransitours-bot/webcra)"
	defaultTimeout   = 30 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 4 * 1024 * 1024
)

// LightweightFetcher issues plain HTTP requests with an identifying header.
// Fast and cheap; reports blocked on anti-automation responses so callers
// can escalate to the rendering strategy.
type LightweightFetcher struct {
	client    *http.Client
	userAgent string
}

// NewLightweightFetcher creates a plain-HTTP fetcher.
// Empty userAgent and zero timeout fall back to defaults.
func NewLightweightFetcher(userAgent string, timeout time.Duration) *LightweightFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LightweightFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Strategy returns the strategy identifier.
func (f *LightweightFetcher) Strategy() string {
	return domain.FetchStrategyLightweight
}

// Fetch retrieves a URL and extracts its title, text and links.
func (f *LightweightFetcher) Fetch(ctx context.Context, url string) (*domain.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchOther, url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(classifyTransportError(err), url, err)
	}
	defer resp.Body.Close()

	if kind, bad := classifyStatus(resp.StatusCode); bad {
		return nil, domain.NewFetchError(kind, url,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, domain.NewFetchError(classifyTransportError(err), url, err)
	}

	page, err := html.Parse(url, string(body))
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchOther, url, err)
	}

	return &domain.FetchResult{
		URL:         url,
		Status:      resp.StatusCode,
		Title:       page.Title,
		Text:        page.Text,
		HTML:        string(body),
		Links:       page.Links,
		Attachments: page.Attachments,
	}, nil
}

// Close releases idle connections.
func (f *LightweightFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// classifyStatus maps HTTP statuses to failure kinds. The second return
// value is false for statuses that carry usable content.
func classifyStatus(status int) (domain.FetchErrorKind, bool) {
	switch {
	case status >= 200 && status < 300:
		return "", false
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return domain.FetchBlocked, true
	case status == http.StatusNotFound || status == http.StatusGone:
		return domain.FetchNotFound, true
	default:
		return domain.FetchOther, true
	}
}

// classifyTransportError separates timeouts from other transport failures.
func classifyTransportError(err error) domain.FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FetchTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FetchTimeout
	}
	return domain.FetchOther
}
