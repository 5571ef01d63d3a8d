package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
	"github.com/baransitours-bot/webcra/internal/core/ports/driving"
	"github.com/baransitours-bot/webcra/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.RetrievalService = (*RetrieverService)(nil)

const (
	// Hybrid score weights. When no embedding service is configured the
	// keyword weight becomes 1.0.
	defaultSemanticWeight = 0.6
	defaultKeywordWeight  = 0.4

	// rerankDepth is how many hybrid-scored candidates the reranker sees.
	defaultRerankDepth = 20

	// embedCacheSize bounds the query/candidate embedding cache.
	embedCacheSize = 512
)

// candidate is one scorable entry flowing through the retrieval cascade.
type candidate struct {
	title      string
	body       string
	searchText string
	provenance domain.ProvenanceType
	topic      string
	category   string
	sources    []string
	createdAt  time.Time
	score      float64
}

// RetrieverService turns a query into a ranked, citation-tagged context
// bundle. It is read-only; concurrent queries need no coordination.
type RetrieverService struct {
	records driven.RecordStore
	docs    driven.DocumentStore

	// embedder and reranker are optional; each absent stage degrades to
	// the next cheaper one without failing the query.
	embedder driven.EmbeddingService
	reranker driven.RerankService

	semanticWeight float64
	keywordWeight  float64
	rerankDepth    int

	embedCache *lru.Cache[string, []float32]
}

// NewRetrieverService creates a new retrieval service.
// The embedder and reranker parameters are optional (can be nil).
func NewRetrieverService(
	records driven.RecordStore,
	docs driven.DocumentStore,
	embedder driven.EmbeddingService,
	reranker driven.RerankService,
) *RetrieverService {
	cache, _ := lru.New[string, []float32](embedCacheSize)
	return &RetrieverService{
		records:        records,
		docs:           docs,
		embedder:       embedder,
		reranker:       reranker,
		semanticWeight: defaultSemanticWeight,
		keywordWeight:  defaultKeywordWeight,
		rerankDepth:    defaultRerankDepth,
		embedCache:     cache,
	}
}

// SetWeights overrides the hybrid score weights.
func (s *RetrieverService) SetWeights(semantic, keyword float64) {
	if semantic >= 0 && keyword >= 0 && semantic+keyword > 0 {
		s.semanticWeight = semantic
		s.keywordWeight = keyword
	}
}

// Retrieve runs the filter, hybrid-score and rerank cascade and renders the
// winners into one labeled text block. A query with no matches returns an
// empty bundle, never an error.
func (s *RetrieverService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) (*domain.ContextBundle, error) {
	opts = opts.WithDefaults()
	bundle := &domain.ContextBundle{Query: query}

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning empty bundle")
		return bundle, nil
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q, topic: %q, category: %q, maxItems: %d",
		query, opts.Topic, opts.Category, opts.MaxItems)

	candidates, err := s.loadCandidates(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	logger.Debug("Candidates loaded: %d", len(candidates))

	candidates = filterCandidates(candidates, query, opts)
	logger.Debug("Candidates after filter: %d", len(candidates))
	if len(candidates) == 0 {
		return bundle, nil
	}

	s.scoreCandidates(ctx, query, candidates)
	sortCandidates(candidates)

	selected := s.rerank(ctx, query, candidates, opts.MaxItems)

	for _, c := range selected {
		bundle.Items = append(bundle.Items, domain.ContextItem{
			Title:      c.title,
			Text:       c.body,
			Score:      c.score,
			Provenance: c.provenance,
			SourceURLs: c.sources,
		})
	}
	bundle.Items, bundle.Rendered = render(bundle.Items, opts.CharBudget)

	logger.Info("Retrieval done: %d items, %d rendered chars", len(bundle.Items), len(bundle.Rendered))
	return bundle, nil
}

// loadCandidates reads the current corpus. Records are preferred; when no
// records exist yet the latest documents stand in as general content.
func (s *RetrieverService) loadCandidates(
	ctx context.Context, opts domain.RetrieveOptions,
) ([]*candidate, error) {
	records, err := s.records.GetLatestRecords(ctx, opts.Topic, opts.Category)
	if err != nil {
		return nil, err
	}

	if len(records) > 0 {
		candidates := make([]*candidate, 0, len(records))
		for i := range records {
			candidates = append(candidates, recordCandidate(&records[i]))
		}
		return candidates, nil
	}

	logger.Debug("No records yet, falling back to raw documents")
	docs, err := s.docs.GetLatestDocuments(ctx, opts.Topic)
	if err != nil {
		return nil, err
	}
	candidates := make([]*candidate, 0, len(docs))
	for i := range docs {
		candidates = append(candidates, documentCandidate(&docs[i]))
	}
	return candidates, nil
}

func recordCandidate(rec *domain.Record) *candidate {
	provenance := domain.ProvenanceGeneral
	if rec.Kind == domain.RecordKindProgram {
		provenance = domain.ProvenanceProgram
	}
	return &candidate{
		title:      rec.Name,
		body:       renderRecordBody(rec),
		searchText: rec.SearchText(),
		provenance: provenance,
		topic:      rec.Topic,
		category:   rec.Category,
		sources:    rec.SourceURLs,
		createdAt:  rec.CreatedAt,
	}
}

func documentCandidate(doc *domain.Document) *candidate {
	body := doc.Content
	if len(body) > 600 {
		body = body[:600] + "..."
	}
	return &candidate{
		title:      doc.Title,
		body:       body,
		searchText: doc.Title + " " + doc.Content,
		provenance: domain.ProvenanceGeneral,
		topic:      doc.Topic,
		sources:    []string{doc.URL},
		createdAt:  doc.FetchedAt,
	}
}

// filterCandidates narrows the set to a topic or category detected in the
// query, using the corpus's own vocabulary. Explicit options were already
// applied at load time; with nothing detected the full set passes through.
func filterCandidates(candidates []*candidate, query string, opts domain.RetrieveOptions) []*candidate {
	lower := strings.ToLower(query)

	detectTopic := opts.Topic == ""
	detectCategory := opts.Category == ""

	var topic, category string
	for _, c := range candidates {
		if detectTopic && topic == "" && c.topic != "" &&
			strings.Contains(lower, strings.ToLower(c.topic)) {
			topic = c.topic
		}
		if detectCategory && category == "" && c.category != "" &&
			strings.Contains(lower, strings.ToLower(c.category)) {
			category = c.category
		}
	}
	if topic == "" && category == "" {
		return candidates
	}
	logger.Debug("Query filter detected: topic=%q category=%q", topic, category)

	filtered := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		if topic != "" && !strings.EqualFold(c.topic, topic) {
			continue
		}
		if category != "" && !strings.EqualFold(c.category, category) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

// scoreCandidates assigns each candidate its hybrid score. When embeddings
// are unavailable the keyword score alone decides, silently.
func (s *RetrieverService) scoreCandidates(ctx context.Context, query string, candidates []*candidate) {
	queryVec := s.embed(ctx, query)
	if queryVec == nil {
		logger.Debug("Semantic scoring unavailable, keyword-only ranking")
		for _, c := range candidates {
			c.score = keywordOverlap(query, c.searchText)
		}
		return
	}

	for _, c := range candidates {
		kw := keywordOverlap(query, c.searchText)
		vec := s.embed(ctx, c.searchText)
		if vec == nil {
			c.score = kw
			continue
		}
		c.score = s.semanticWeight*cosineSimilarity(queryVec, vec) + s.keywordWeight*kw
	}
}

// embed returns a cached embedding, or nil when the service is absent or
// failing. A nil return downgrades scoring rather than failing the query.
func (s *RetrieverService) embed(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	if vec, ok := s.embedCache.Get(text); ok {
		return vec
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.Warn("Embedding failed: %v", err)
		return nil
	}
	s.embedCache.Add(text, vec)
	return vec
}

// rerank re-scores the top hybrid candidates pairwise and returns the final
// top-K. Without a reranker the hybrid order stands.
func (s *RetrieverService) rerank(
	ctx context.Context, query string, candidates []*candidate, maxItems int,
) []*candidate {
	if s.reranker == nil {
		return head(candidates, maxItems)
	}

	shortlist := head(candidates, s.rerankDepth)
	texts := make([]string, len(shortlist))
	for i, c := range shortlist {
		texts[i] = c.searchText
	}

	scores, err := s.reranker.Rerank(ctx, query, texts)
	if err != nil || len(scores) != len(shortlist) {
		logger.Warn("Rerank unavailable, keeping hybrid order: %v", err)
		return head(candidates, maxItems)
	}

	for i, c := range shortlist {
		c.score = scores[i]
	}
	sortCandidates(shortlist)
	return head(shortlist, maxItems)
}

func head(candidates []*candidate, n int) []*candidate {
	if len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}

// sortCandidates orders by score descending, stable, with ties broken by
// most recent version timestamp.
func sortCandidates(candidates []*candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].createdAt.After(candidates[j].createdAt)
	})
}

// keywordOverlap scores the fraction of query terms present in the text,
// normalized to 0..1.
func keywordOverlap(query, text string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		term = strings.Trim(term, ".,:;!?\"'")
		if term == "" {
			continue
		}
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// cosineSimilarity computes similarity between two vectors, mapped to 0..1.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}

// renderRecordBody renders one record's content for inclusion in a bundle.
func renderRecordBody(rec *domain.Record) string {
	var b strings.Builder

	if rec.Kind == domain.RecordKindProgram {
		if rec.Category != "" {
			fmt.Fprintf(&b, "Category: %s\n", rec.Category)
		}
		keys := make([]string, 0, len(rec.Fields))
		for k := range rec.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", strings.ReplaceAll(k, "_", " "), rec.Fields[k])
		}
		return strings.TrimRight(b.String(), "\n")
	}

	if rec.Summary != "" {
		b.WriteString(rec.Summary)
	}
	for _, p := range rec.KeyPoints {
		b.WriteString("\n- ")
		b.WriteString(p)
	}
	return strings.TrimSpace(b.String())
}

// render builds the labeled text block, separating program entries from
// general content, and trims items that do not fit the character budget.
func render(items []domain.ContextItem, charBudget int) ([]domain.ContextItem, string) {
	if len(items) == 0 {
		return items, ""
	}

	sections := []struct {
		label      string
		provenance domain.ProvenanceType
	}{
		{"PROGRAMS", domain.ProvenanceProgram},
		{"GENERAL INFORMATION", domain.ProvenanceGeneral},
	}

	var b strings.Builder
	kept := make([]domain.ContextItem, 0, len(items))

	for _, section := range sections {
		wroteHeader := false
		for _, item := range items {
			if item.Provenance != section.provenance {
				continue
			}

			entry := fmt.Sprintf("## %s\n%s\nSources: %s\n\n",
				item.Title, item.Text, strings.Join(item.SourceURLs, ", "))
			header := ""
			if !wroteHeader {
				header = fmt.Sprintf("=== %s ===\n\n", section.label)
			}

			if b.Len()+len(header)+len(entry) > charBudget && len(kept) > 0 {
				return kept, strings.TrimSpace(b.String())
			}

			b.WriteString(header)
			b.WriteString(entry)
			wroteHeader = true
			kept = append(kept, item)
		}
	}

	return kept, strings.TrimSpace(b.String())
}
