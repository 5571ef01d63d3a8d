// Package driving defines the interfaces through which the outside world
// calls INTO the core (primary ports in hexagonal architecture).
//
// The CLI and REST adapters depend on these interfaces; the core services
// implement them.
//
//   - CrawlService: runs bounded, polite crawls per topic
//   - ExtractionService: classifies documents and extracts records
//   - RetrievalService: answers queries with ranked context bundles
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package, driven ports
package driving
