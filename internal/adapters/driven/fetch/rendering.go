package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
	"github.com/baransitours-bot/webcra/internal/normalisers/html"
)

// Ensure RenderingFetcher implements the interface.
var _ driven.Fetcher = (*RenderingFetcher)(nil)

// renderSettle is how long the renderer waits after load for dynamic
// content to settle.
const renderSettle = 2 * time.Second

// RenderingFetcher drives a headless browser to load pages that block plain
// HTTP clients. Slower and heavier than the lightweight fetcher; the browser
// process starts lazily on first use.
type RenderingFetcher struct {
	userAgent string
	timeout   time.Duration

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewRenderingFetcher creates a headless-browser fetcher.
// Empty userAgent and zero timeout fall back to defaults.
func NewRenderingFetcher(userAgent string, timeout time.Duration) *RenderingFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RenderingFetcher{
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Strategy returns the strategy identifier.
func (f *RenderingFetcher) Strategy() string {
	return domain.FetchStrategyRendering
}

// allocator starts the shared browser allocator on first use.
func (f *RenderingFetcher) allocator() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.allocCtx == nil {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(f.userAgent),
			chromedp.Flag("blink-settings", "imagesEnabled=false"),
		)
		f.allocCtx, f.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return f.allocCtx
}

// Fetch renders a URL in a fresh browser tab, waits for the page to settle
// and extracts the rendered markup.
func (f *RenderingFetcher) Fetch(ctx context.Context, url string) (*domain.FetchResult, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.allocator())
	defer cancelTab()

	runCtx, cancel := context.WithTimeout(tabCtx, f.timeout)
	defer cancel()

	// Honour caller cancellation alongside the per-fetch timeout.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var rendered string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(renderSettle),
		chromedp.OuterHTML("html", &rendered, chromedp.ByQuery),
	)
	if err != nil {
		kind := domain.FetchOther
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.FetchTimeout
		}
		return nil, domain.NewFetchError(kind, url, err)
	}

	page, err := html.Parse(url, rendered)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchOther, url, err)
	}

	return &domain.FetchResult{
		URL:         url,
		Status:      http.StatusOK,
		Title:       page.Title,
		Text:        page.Text,
		HTML:        rendered,
		Links:       page.Links,
		Attachments: page.Attachments,
	}, nil
}

// Close shuts down the browser process.
func (f *RenderingFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.allocCancel != nil {
		f.allocCancel()
		f.allocCtx = nil
		f.allocCancel = nil
	}
	return nil
}
