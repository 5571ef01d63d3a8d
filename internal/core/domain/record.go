package domain

import (
	"sort"
	"strings"
	"time"
)

// RecordKind distinguishes the two shapes of extracted knowledge.
type RecordKind string

const (
	// RecordKindProgram is a categorizable entity with typed requirement fields.
	RecordKindProgram RecordKind = "program"

	// RecordKindGeneral is informational content (guide, FAQ, overview) with
	// a summary and key points instead of typed fields.
	RecordKindGeneral RecordKind = "general"
)

// Well-known field names for program records. Extraction rules write these;
// the retriever and renderers read them.
const (
	FieldAgeMin          = "age_min"
	FieldAgeMax          = "age_max"
	FieldEducation       = "education"
	FieldExperienceYears = "experience_years"
	FieldFee             = "fee"
	FieldProcessingTime  = "processing_time"
	FieldLanguage        = "language"
)

// Record is a structured entity derived from one or more Documents.
// Records are versioned like Documents: identity is the Key, and exactly one
// version per Key carries IsLatest = true.
type Record struct {
	// ID is the unique identifier for this record version.
	ID string

	// Key is the stable logical identity: normalized entity name + topic.
	Key string

	// Kind is program or general.
	Kind RecordKind

	// Topic is the owning collection identifier.
	Topic string

	// Name is the entity's display name (e.g., a program title).
	Name string

	// Category classifies program records (work, study, family, ...).
	// Empty for general records.
	Category string

	// Fields maps requirement names to extracted values for program records.
	Fields map[string]string

	// Summary is a short abstract for general records.
	Summary string

	// KeyPoints is an ordered list of salient points for general records.
	KeyPoints []string

	// SourceURLs lists every document URL that contributed to this record.
	// New versions carry forward all prior source URLs.
	SourceURLs []string

	// Version increases monotonically per Key, starting at 1.
	Version int

	// IsLatest marks the current version among this Key's history.
	IsLatest bool

	// CreatedAt is when this version was written.
	CreatedAt time.Time
}

// recordStopWords are dropped when normalising entity names for grouping.
var recordStopWords = map[string]bool{
	"visa": true, "subclass": true, "program": true, "programme": true,
	"the": true, "a": true, "an": true, "for": true, "to": true,
	"in": true, "of": true, "and": true, "or": true,
}

// NormalizeEntityName reduces an entity title to a stable grouping key:
// lowercase, stop words removed, first five significant words.
func NormalizeEntityName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		w = strings.Trim(w, ".,:;!?()[]\"'")
		if w == "" || recordStopWords[w] {
			continue
		}
		words = append(words, w)
		if len(words) == 5 {
			break
		}
	}
	if len(words) == 0 {
		return strings.ToLower(strings.TrimSpace(name))
	}
	return strings.Join(words, " ")
}

// RecordKey builds the stable logical key for an entity within a topic.
func RecordKey(topic, name string) string {
	return strings.ToLower(strings.TrimSpace(topic)) + "/" + NormalizeEntityName(name)
}

// AddSourceURL appends a URL to the record's source list if not already present.
// Source lists only ever grow.
func (r *Record) AddSourceURL(u string) {
	u = NormalizeURL(u)
	for _, existing := range r.SourceURLs {
		if existing == u {
			return
		}
	}
	r.SourceURLs = append(r.SourceURLs, u)
}

// SearchText renders the record as one text blob for keyword and semantic scoring.
func (r *Record) SearchText() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteByte(' ')
	b.WriteString(r.Topic)
	b.WriteByte(' ')
	b.WriteString(r.Category)
	if len(r.Fields) > 0 {
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteByte(' ')
			b.WriteString(r.Fields[k])
		}
	}
	if r.Summary != "" {
		b.WriteByte(' ')
		b.WriteString(r.Summary)
	}
	for _, p := range r.KeyPoints {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	return b.String()
}
