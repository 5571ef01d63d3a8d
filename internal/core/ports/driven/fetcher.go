package driven

import (
	"context"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

// Fetcher retrieves one page and extracts its text and links.
// The crawl frontier depends only on this interface and never branches on
// strategy identity; implementations are selected by configuration.
//
// Implementations:
//   - lightweight: plain HTTP request with an identifying header
//   - rendering: headless browser for sources that block non-rendering clients
type Fetcher interface {
	// Strategy returns the strategy identifier
	// (domain.FetchStrategyLightweight or domain.FetchStrategyRendering).
	Strategy() string

	// Fetch retrieves url. Failures return a *domain.FetchError carrying
	// one of the typed kinds (timeout, blocked, notFound, other).
	Fetch(ctx context.Context, url string) (*domain.FetchResult, error)

	// Close releases resources (browser processes, idle connections).
	Close() error
}

// FetcherFactory resolves a strategy name to a Fetcher. Rendering fetchers
// are expensive to start, so factories may construct them lazily.
type FetcherFactory interface {
	// Create returns the fetcher for a strategy name, or
	// domain.ErrUnsupportedStrategy.
	Create(strategy string) (Fetcher, error)

	// Close shuts down every fetcher the factory has created.
	Close() error
}
