package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
	"github.com/baransitours-bot/webcra/internal/core/ports/driving"
	"github.com/baransitours-bot/webcra/internal/logger"
)

// Ensure CrawlerService implements the interface.
var _ driving.CrawlService = (*CrawlerService)(nil)

// maxStoredHTML caps the raw markup persisted per document version.
const maxStoredHTML = 512 * 1024

// frontierItem is one queued URL with its traversal depth and the optional
// keyword hit count of the page that linked to it.
type frontierItem struct {
	url   string
	depth int
	boost int
}

// CrawlerService runs bounded breadth-first crawls per topic. Each run owns
// its own visited-set, queue and rate limiter, so independent topic crawls
// never interfere with each other.
type CrawlerService struct {
	store    driven.DocumentStore
	fetchers driven.FetcherFactory

	// sharedLimiter, when set, coordinates all runs against one global
	// rate budget instead of one limiter per run.
	sharedLimiter *rate.Limiter
}

// NewCrawlerService creates a new crawler service.
func NewCrawlerService(store driven.DocumentStore, fetchers driven.FetcherFactory) *CrawlerService {
	return &CrawlerService{
		store:    store,
		fetchers: fetchers,
	}
}

// SetSharedLimiter makes all crawl runs draw from one rate limiter.
// By default each run gets its own limiter built from the policy's MinDelay.
func (s *CrawlerService) SetSharedLimiter(l *rate.Limiter) {
	s.sharedLimiter = l
}

// Crawl traverses one topic's seed set breadth-first under its policy.
// Per-URL fetch failures are counted and skipped; only store write failures
// abort the run.
func (s *CrawlerService) Crawl(ctx context.Context, cfg domain.SeedConfig) (*domain.CrawlSummary, error) {
	if cfg.Topic == "" || len(cfg.SeedURLs) == 0 {
		return nil, fmt.Errorf("%w: topic and seed URLs are required", domain.ErrInvalidInput)
	}

	policy := cfg.Policy.WithDefaults()

	logger.Section("Crawl: " + cfg.Topic)
	logger.Debug("Seeds: %d, maxDepth: %d, maxDocs: %d, strategy: %s",
		len(cfg.SeedURLs), policy.MaxDepth, policy.MaxDocsPerTopic, policy.FetchStrategy)

	fetcher, err := s.fetchers.Create(policy.FetchStrategy)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	limiter := s.sharedLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(policy.MinDelay), 1)
	}

	summary := &domain.CrawlSummary{Topic: cfg.Topic}
	visited := make(map[string]bool)
	queue := make([]frontierItem, 0, len(cfg.SeedURLs))
	for _, seed := range cfg.SeedURLs {
		queue = append(queue, frontierItem{url: seed, depth: 0})
	}

	for len(queue) > 0 {
		// Cooperative cancellation, checked between pops. An in-flight
		// fetch completes before the signal is honoured.
		if ctx.Err() != nil {
			logger.Warn("Crawl %s cancelled: %v", cfg.Topic, ctx.Err())
			return summary, ctx.Err()
		}

		if summary.Accepted >= policy.MaxDocsPerTopic {
			logger.Debug("Document cap reached for %s (%d)", cfg.Topic, policy.MaxDocsPerTopic)
			break
		}

		// Breadth-first with a bias: shallowest depth wins, then links
		// discovered on pages with more optional keyword hits, then
		// insertion order.
		best := 0
		for i := 1; i < len(queue); i++ {
			if queue[i].depth < queue[best].depth ||
				(queue[i].depth == queue[best].depth && queue[i].boost > queue[best].boost) {
				best = i
			}
		}
		item := queue[best]
		queue = append(queue[:best], queue[best+1:]...)

		normalized := domain.NormalizeURL(item.url)
		if visited[normalized] {
			continue
		}
		visited[normalized] = true

		if item.depth > policy.MaxDepth {
			continue
		}

		if policy.Excluded(normalized) {
			logger.Debug("Excluded by pattern: %s", normalized)
			summary.Rejected++
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return summary, err
		}

		result, err := fetcher.Fetch(ctx, normalized)
		if err != nil {
			// Per-URL failures never abort the run. The URL stays in
			// the visited set, so it is not retried within this run.
			logger.Warn("Fetch failed (%s): %v", domain.FetchKind(err), err)
			summary.Errored++
			continue
		}
		summary.Fetched++

		if len(result.Text) < policy.MinContentLength {
			logger.Debug("Rejected (too short, %d chars): %s", len(result.Text), normalized)
			summary.Rejected++
			continue
		}
		if !policy.Relevant(result.Text) {
			logger.Debug("Rejected (no required keyword): %s", normalized)
			summary.Rejected++
			continue
		}

		hits := policy.OptionalHits(result.Text)
		doc := s.buildDocument(cfg.Topic, normalized, item.depth, policy.FetchStrategy, hits, result)
		if err := s.store.PutDocument(ctx, doc); err != nil {
			// Store failures on the version-flip path are the one hard
			// failure in a crawl run.
			return summary, fmt.Errorf("store document %s: %w", normalized, err)
		}
		summary.Accepted++
		logger.Info("Accepted [%d/%d] depth=%d %s",
			summary.Accepted, policy.MaxDocsPerTopic, item.depth, normalized)

		if item.depth < policy.MaxDepth {
			for _, link := range result.Links {
				link = domain.NormalizeURL(link)
				if !visited[link] {
					queue = append(queue, frontierItem{url: link, depth: item.depth + 1, boost: hits})
				}
			}
		}
	}

	logger.Info("Crawl %s done: fetched=%d accepted=%d rejected=%d errored=%d",
		summary.Topic, summary.Fetched, summary.Accepted, summary.Rejected, summary.Errored)

	return summary, nil
}

// CrawlAll runs one crawl per config concurrently. Each run owns its own
// frontier state; summaries come back in input order. Per-topic failures are
// joined rather than cancelling sibling runs.
func (s *CrawlerService) CrawlAll(ctx context.Context, cfgs []domain.SeedConfig) ([]domain.CrawlSummary, error) {
	summaries := make([]domain.CrawlSummary, len(cfgs))
	errs := make([]error, len(cfgs))

	done := make(chan int, len(cfgs))
	for i := range cfgs {
		go func(i int) {
			defer func() { done <- i }()
			sum, err := s.Crawl(ctx, cfgs[i])
			if sum != nil {
				summaries[i] = *sum
			} else {
				summaries[i] = domain.CrawlSummary{Topic: cfgs[i].Topic}
			}
			if err != nil {
				errs[i] = fmt.Errorf("topic %s: %w", cfgs[i].Topic, err)
			}
		}(i)
	}
	for range cfgs {
		<-done
	}

	return summaries, errors.Join(errs...)
}

// buildDocument assembles a Document version from a fetch result. The store
// assigns Version and IsLatest on write.
func (s *CrawlerService) buildDocument(
	topic, url string, depth int, strategy string, optionalHits int, result *domain.FetchResult,
) *domain.Document {
	html := result.HTML
	if len(html) > maxStoredHTML {
		html = html[:maxStoredHTML]
	}

	metadata := map[string]any{
		"fetch_strategy": strategy,
		"status":         result.Status,
	}
	if len(result.Attachments) > 0 {
		metadata["attachments"] = result.Attachments
	}
	if optionalHits > 0 {
		metadata["optional_keyword_hits"] = optionalHits
	}

	return &domain.Document{
		ID:        uuid.NewString(),
		URL:       url,
		Topic:     topic,
		Title:     result.Title,
		Content:   result.Text,
		HTML:      html,
		Links:     result.Links,
		Depth:     depth,
		Metadata:  metadata,
		FetchedAt: time.Now().UTC(),
	}
}
