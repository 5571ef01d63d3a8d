package fetch

import (
	"fmt"
	"sync"
	"time"

	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.FetcherFactory = (*Factory)(nil)

// Factory resolves strategy names to fetchers. Fetchers are created once and
// reused; the rendering fetcher's browser process only starts when a crawl
// actually asks for it.
type Factory struct {
	userAgent string
	timeout   time.Duration

	mu       sync.Mutex
	fetchers map[string]driven.Fetcher
}

// NewFactory creates a fetcher factory.
func NewFactory(userAgent string, timeout time.Duration) *Factory {
	return &Factory{
		userAgent: userAgent,
		timeout:   timeout,
		fetchers:  make(map[string]driven.Fetcher),
	}
}

// Create returns the fetcher for a strategy name.
func (f *Factory) Create(strategy string) (driven.Fetcher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if fetcher, ok := f.fetchers[strategy]; ok {
		return fetcher, nil
	}

	var fetcher driven.Fetcher
	switch strategy {
	case domain.FetchStrategyLightweight:
		fetcher = NewLightweightFetcher(f.userAgent, f.timeout)
	case domain.FetchStrategyRendering:
		fetcher = NewRenderingFetcher(f.userAgent, f.timeout)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedStrategy, strategy)
	}

	f.fetchers[strategy] = fetcher
	return fetcher, nil
}

// Close shuts down every fetcher the factory has created.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for _, fetcher := range f.fetchers {
		if err := fetcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.fetchers = make(map[string]driven.Fetcher)
	return firstErr
}
