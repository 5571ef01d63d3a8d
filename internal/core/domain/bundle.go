package domain

// ProvenanceType tags a context item with the kind of source it came from,
// for citation by the answer generator.
type ProvenanceType string

const (
	// ProvenanceProgram marks a categorized-entity record.
	ProvenanceProgram ProvenanceType = "program"

	// ProvenanceGeneral marks a general informational record.
	ProvenanceGeneral ProvenanceType = "general"
)

// ContextItem is one ranked entry in a bundle.
type ContextItem struct {
	// Title is the entry's display name.
	Title string `json:"title"`

	// Text is the rendered entry body.
	Text string `json:"text"`

	// Score is the final relevance score the entry was ranked by.
	Score float64 `json:"score"`

	// Provenance tags the entry kind for citation.
	Provenance ProvenanceType `json:"provenance"`

	// SourceURLs cite the documents the entry was derived from.
	SourceURLs []string `json:"source_urls"`
}

// ContextBundle is the ephemeral output of the retrieval engine: an ordered,
// citation-tagged payload for an external answer generator. Never persisted.
type ContextBundle struct {
	// Query is the question the bundle was assembled for.
	Query string `json:"query"`

	// Items are the selected entries in rank order.
	Items []ContextItem `json:"items"`

	// Rendered is the single labeled text block handed to the generator.
	Rendered string `json:"rendered"`
}

// Empty reports whether retrieval found nothing. An empty bundle is a valid
// terminal state, not an error.
func (b *ContextBundle) Empty() bool {
	return len(b.Items) == 0
}

// RetrieveOptions configures a retrieval query.
type RetrieveOptions struct {
	// Topic restricts candidates to one topic. Empty means auto-detect
	// from the query, falling back to the full corpus.
	Topic string

	// Category restricts candidates to one category. Empty means auto-detect.
	Category string

	// MaxItems caps the bundle size. Defaults to 5.
	MaxItems int

	// CharBudget approximately caps the rendered block size. Defaults to 8000.
	CharBudget int
}

// WithDefaults fills zero values.
func (o RetrieveOptions) WithDefaults() RetrieveOptions {
	if o.MaxItems <= 0 {
		o.MaxItems = 5
	}
	if o.CharBudget <= 0 {
		o.CharBudget = 8000
	}
	return o
}
