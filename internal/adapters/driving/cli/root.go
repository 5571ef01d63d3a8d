// Package cli implements the webcra command line interface.
package cli

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/baransitours-bot/webcra/internal/adapters/driven/config/file"
	embedollama "github.com/baransitours-bot/webcra/internal/adapters/driven/embedding/ollama"
	embedopenai "github.com/baransitours-bot/webcra/internal/adapters/driven/embedding/openai"
	"github.com/baransitours-bot/webcra/internal/adapters/driven/fetch"
	"github.com/baransitours-bot/webcra/internal/adapters/driven/llm/anthropic"
	llmollama "github.com/baransitours-bot/webcra/internal/adapters/driven/llm/ollama"
	llmopenai "github.com/baransitours-bot/webcra/internal/adapters/driven/llm/openai"
	"github.com/baransitours-bot/webcra/internal/adapters/driven/rerank/httpapi"
	"github.com/baransitours-bot/webcra/internal/adapters/driven/storage/sqlite"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
	"github.com/baransitours-bot/webcra/internal/core/ports/driving"
	"github.com/baransitours-bot/webcra/internal/core/services"
	"github.com/baransitours-bot/webcra/internal/logger"
)

var version = "0.1.0"

var (
	verbose   bool
	dataDir   string
	configDir string
)

// Services the commands run against. Wired by initServices on first use;
// tests swap in mocks directly.
var (
	contentStore      driven.ContentStore
	seedStore         driven.SeedStore
	crawlService      driving.CrawlService
	extractionService driving.ExtractionService
	retrievalService  driving.RetrievalService
)

// closers collects adapters that need teardown after the command finishes.
var closers []func() error

// skipInit disables real adapter construction; tests wire mocks directly.
var skipInit bool

var rootCmd = &cobra.Command{
	Use:   "webcra",
	Short: "Topic-focused web crawler with versioned storage and hybrid retrieval",
	Long: `webcra crawls configured seed sources politely, stores every fetched
page with full version history, extracts structured records from the
stored content, and answers natural-language queries with a ranked,
citation-tagged context bundle.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if skipInit {
			return nil
		}
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.webcra/data)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.webcra)")
}

// Execute runs the root command.
func Execute() error {
	// Missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	closeServices()
	return err
}

// initServices wires the real adapters. Service variables already set (by a
// previous command in the same process, or by tests) are left alone.
func initServices() error {
	if contentStore == nil {
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return err
		}
		contentStore = store
		closers = append(closers, store.Close)
		logger.Debug("Content store: %s", store.Path())
	}

	if seedStore == nil {
		store, err := file.NewSeedStore(configDir)
		if err != nil {
			return err
		}
		seedStore = store
		closers = append(closers, store.Close)
	}

	if crawlService == nil {
		factory := fetch.NewFactory("", 30*time.Second)
		closers = append(closers, factory.Close)
		crawlService = services.NewCrawlerService(contentStore, factory)
	}

	// Model-backed services degrade silently when their backend is absent,
	// so they are always wired.
	if extractionService == nil {
		llm := newLLMService()
		closers = append(closers, llm.Close)
		extractionService = services.NewExtractorService(contentStore, contentStore, llm)
	}

	if retrievalService == nil {
		embedder := newEmbeddingService()
		closers = append(closers, embedder.Close)

		var reranker driven.RerankService
		if url := os.Getenv("WEBCRA_RERANK_URL"); url != "" {
			svc := httpapi.NewRerankService(httpapi.Config{
				BaseURL: url,
				APIKey:  os.Getenv("WEBCRA_RERANK_API_KEY"),
				Model:   os.Getenv("WEBCRA_RERANK_MODEL"),
			})
			closers = append(closers, svc.Close)
			reranker = svc
		}
		retrievalService = services.NewRetrieverService(contentStore, contentStore, embedder, reranker)
	}

	return nil
}

// newLLMService selects the completion backend. Ollama is the default so a
// fresh install works without any API keys.
func newLLMService() driven.LLMService {
	switch os.Getenv("WEBCRA_LLM_PROVIDER") {
	case "openai":
		return llmopenai.NewLLMService(llmopenai.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("WEBCRA_LLM_URL"),
			Model:   os.Getenv("WEBCRA_LLM_MODEL"),
		})
	case "anthropic":
		return anthropic.NewLLMService(anthropic.Config{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			BaseURL: os.Getenv("WEBCRA_LLM_URL"),
			Model:   os.Getenv("WEBCRA_LLM_MODEL"),
		})
	default:
		return llmollama.NewLLMService(llmollama.Config{
			BaseURL: os.Getenv("WEBCRA_OLLAMA_URL"),
			Model:   os.Getenv("WEBCRA_LLM_MODEL"),
		})
	}
}

// newEmbeddingService selects the embedding backend.
func newEmbeddingService() driven.EmbeddingService {
	switch os.Getenv("WEBCRA_EMBED_PROVIDER") {
	case "openai":
		return embedopenai.NewEmbeddingService(embedopenai.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("WEBCRA_EMBED_URL"),
			Model:   os.Getenv("WEBCRA_EMBED_MODEL"),
		})
	default:
		return embedollama.NewEmbeddingService(embedollama.Config{
			BaseURL: os.Getenv("WEBCRA_OLLAMA_URL"),
			Model:   os.Getenv("WEBCRA_EMBED_MODEL"),
		})
	}
}

func closeServices() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("Close failed: %v", err)
		}
	}
	closers = nil
}
