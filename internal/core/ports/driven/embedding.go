package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, retrieval silently degrades to
// keyword-overlap-only scoring.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI-compatible inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// RerankService scores query/candidate pairs with a cross-encoder style
// model. This is an optional service - when nil, the rerank stage is skipped
// and retrieval returns the top hybrid-scored candidates directly.
type RerankService interface {
	// Rerank returns one relevance score per candidate, in candidate order.
	Rerank(ctx context.Context, query string, candidates []string) ([]float64, error)

	// ModelName returns the name of the reranking model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
