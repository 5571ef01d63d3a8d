// Package domain defines the core business entities for webcra.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A fetched and versioned web page
//   - Record: A structured entity extracted from one or more Documents
//   - SeedConfig / CrawlPolicy: Per-topic crawl configuration
//   - ContextBundle: The ranked, citation-tagged retrieval output
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
