package driving

import (
	"context"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

// CrawlService runs bounded breadth-first crawls.
type CrawlService interface {
	// Crawl traverses one topic's seed set under its policy. The run always
	// completes and reports counts, even with 100% per-document rejection;
	// only store failures on the version-flip path abort it.
	Crawl(ctx context.Context, cfg domain.SeedConfig) (*domain.CrawlSummary, error)

	// CrawlAll runs independent topic crawls concurrently, each with its
	// own frontier state, and returns one summary per topic in input order.
	CrawlAll(ctx context.Context, cfgs []domain.SeedConfig) ([]domain.CrawlSummary, error)
}
