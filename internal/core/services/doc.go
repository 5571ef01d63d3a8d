// Package services implements the driving port interfaces.
//
// Three services make up the pipeline: CrawlerService walks seed sources and
// fills the document store, ExtractorService turns stored documents into
// structured records, and RetrieverService answers queries from those
// records. Each depends only on driven port interfaces and degrades
// gracefully when optional backends are absent.
package services
