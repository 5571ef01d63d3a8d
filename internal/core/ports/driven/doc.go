// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - Fetcher: Fetches one URL and extracts content and links
//   - DocumentStore: Versioned document persistence
//   - RecordStore: Versioned record persistence
//   - SeedStore: Seed/topic configuration
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - EmbeddingService: Vector embeddings. Without it, retrieval scores on
//     keyword overlap only.
//   - RerankService: Pairwise query/candidate scoring. Without it, retrieval
//     returns hybrid-scored results directly.
//   - LLMService: Assisted extraction. Without it, extraction uses pattern
//     rules only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
