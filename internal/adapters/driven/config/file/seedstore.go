package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
	"github.com/baransitours-bot/webcra/internal/logger"
)

// Ensure SeedStore implements the interface.
var _ driven.SeedStore = (*SeedStore)(nil)

// SeedStore is a file-based implementation of driven.SeedStore using TOML.
// Seed configuration lives in seeds.toml within the webcra config directory.
// Parsed configs are cached; an active Watch invalidates the cache when the
// file changes, so long-running processes pick up edits without re-parsing
// on every Load.
type SeedStore struct {
	mu       sync.Mutex
	filePath string
	watcher  *fsnotify.Watcher
	cache    []domain.SeedConfig
}

// seedsFile is the on-disk TOML shape.
type seedsFile struct {
	Topics []topicEntry `toml:"topics"`
}

type topicEntry struct {
	Topic    string      `toml:"topic"`
	SeedURLs []string    `toml:"seed_urls"`
	Policy   policyEntry `toml:"policy"`
}

type policyEntry struct {
	MaxDepth         int      `toml:"max_depth"`
	MaxDocs          int      `toml:"max_docs"`
	RequiredKeywords []string `toml:"required_keywords"`
	OptionalKeywords []string `toml:"optional_keywords"`
	ExcludePatterns  []string `toml:"exclude_patterns"`
	FetchStrategy    string   `toml:"fetch_strategy"`
	MinDelay         string   `toml:"min_delay"`
	MinContentLength int      `toml:"min_content_length"`
}

// NewSeedStore creates a new TOML-based seed store.
// If configDir is empty, defaults to ~/.webcra/seeds.toml.
func NewSeedStore(configDir string) (*SeedStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".webcra")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &SeedStore{
		filePath: filepath.Join(configDir, "seeds.toml"),
	}, nil
}

// Path returns the seed file path.
func (s *SeedStore) Path() string {
	return s.filePath
}

// Load returns the current seed configuration, reading and parsing the file
// only when the cache is empty or has been invalidated by a watch event.
func (s *SeedStore) Load(_ context.Context) ([]domain.SeedConfig, error) {
	s.mu.Lock()
	cached := s.cache
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("reading seed config: %w", err)
	}

	var parsed seedsFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	configs := make([]domain.SeedConfig, 0, len(parsed.Topics))
	for i, entry := range parsed.Topics {
		if entry.Topic == "" || len(entry.SeedURLs) == 0 {
			return nil, fmt.Errorf("%w: topics[%d] needs topic and seed_urls", domain.ErrInvalidInput, i)
		}

		policy := domain.CrawlPolicy{
			MaxDepth:         entry.Policy.MaxDepth,
			MaxDocsPerTopic:  entry.Policy.MaxDocs,
			RequiredKeywords: entry.Policy.RequiredKeywords,
			OptionalKeywords: entry.Policy.OptionalKeywords,
			ExcludePatterns:  entry.Policy.ExcludePatterns,
			FetchStrategy:    entry.Policy.FetchStrategy,
			MinContentLength: entry.Policy.MinContentLength,
		}
		if entry.Policy.MinDelay != "" {
			delay, err := time.ParseDuration(entry.Policy.MinDelay)
			if err != nil {
				return nil, fmt.Errorf("%w: topics[%d] min_delay %q: %v",
					domain.ErrInvalidInput, i, entry.Policy.MinDelay, err)
			}
			policy.MinDelay = delay
		}

		configs = append(configs, domain.SeedConfig{
			Topic:    entry.Topic,
			SeedURLs: entry.SeedURLs,
			Policy:   policy,
		})
	}

	s.mu.Lock()
	s.cache = configs
	s.mu.Unlock()

	return configs, nil
}

// invalidate drops the cached configs so the next Load re-reads the file.
func (s *SeedStore) invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

// Watch invalidates the config cache and invokes onChange whenever the seed
// file is written, until ctx is cancelled. Editors replace files on save, so
// the parent directory is watched rather than the file itself.
func (s *SeedStore) Watch(ctx context.Context, onChange func()) error {
	s.mu.Lock()
	if s.watcher != nil {
		s.mu.Unlock()
		return fmt.Errorf("seed store already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		watcher.Close()
		s.mu.Unlock()
		return fmt.Errorf("watching config directory: %w", err)
	}
	s.watcher = watcher
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.filePath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				logger.Debug("Seed config changed: %s", event.Op)
				s.invalidate()
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Seed watcher error: %v", err)
		}
	}
}

// Close stops any active watch.
func (s *SeedStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}
