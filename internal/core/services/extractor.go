package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/google/uuid"

	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
	"github.com/baransitours-bot/webcra/internal/core/ports/driving"
	"github.com/baransitours-bot/webcra/internal/logger"
)

// Ensure ExtractorService implements the interface.
var _ driving.ExtractionService = (*ExtractorService)(nil)

// defaultMinCategoryScore is the minimum matched-keyword count for a document
// to classify at all. Tunable via SetMinCategoryScore.
const defaultMinCategoryScore = 2

// entitySimilarityThreshold groups near-identical entity names that differ
// only in spelling or minor wording.
const entitySimilarityThreshold = 0.88

// defaultCategoryKeywords drive classification. The category with the highest
// matched-keyword count wins.
var defaultCategoryKeywords = map[string][]string{
	"work":     {"work", "worker", "employment", "employer", "skilled", "occupation", "job offer", "labour"},
	"study":    {"study", "student", "education", "university", "college", "course", "tuition", "enrol"},
	"family":   {"family", "partner", "spouse", "parent", "child", "dependent", "sponsor", "marriage"},
	"business": {"business", "investor", "investment", "entrepreneur", "startup", "trade", "innovation"},
	"visit":    {"visit", "visitor", "tourist", "tourism", "holiday", "travel", "short stay", "transit"},
}

// programIndicators suggest a page describes one enumerable offering;
// generalIndicators suggest guide/FAQ/overview content.
var (
	programIndicators = []string{
		"requirements", "eligibility", "eligible", "you must", "applicant must",
		"subclass", "stream", "apply for this", "criteria",
	}
	generalIndicators = []string{
		"guide", "overview", "faq", "frequently asked", "how to", "learn about",
		"what is", "general information", "compare",
	}
)

// fieldRule is one ordered extraction rule: the first matching rule per
// field wins. Captures failing validate are discarded, not stored.
type fieldRule struct {
	field    string
	re       *regexp.Regexp
	validate func(string) bool
}

var (
	reAgeBetween = regexp.MustCompile(`(?i)between\s+(\d{1,2})\s+and\s+(\d{1,2})\s+years`)

	fieldRules = []fieldRule{
		{domain.FieldAgeMin, regexp.MustCompile(`(?i)(?:at least|minimum age of|aged at least)\s+(\d{1,2})`), validAge},
		{domain.FieldAgeMin, regexp.MustCompile(`(?i)(\d{1,2})\s+years\s+(?:of age\s+)?or\s+older`), validAge},
		{domain.FieldAgeMax, regexp.MustCompile(`(?i)(?:under|younger than|maximum age of)\s+(\d{1,2})`), validAge},
		{domain.FieldAgeMax, regexp.MustCompile(`(?i)not\s+(?:be\s+)?older than\s+(\d{1,2})`), validAge},
		{domain.FieldEducation, regexp.MustCompile(`(?i)\b(doctorate|phd|master'?s degree|bachelor'?s degree|graduate diploma|diploma|trade qualification|secondary school|high school)\b`), nil},
		{domain.FieldExperienceYears, regexp.MustCompile(`(?i)(\d{1,2})\+?\s+years?(?:\s+of)?\s+(?:relevant\s+|skilled\s+|work\s+)?experience`), validYears},
		{domain.FieldFee, regexp.MustCompile(`(?i)(?:fee|cost|charge)s?[^.\n]{0,60}?((?:AUD|CAD|USD|NZD|EUR|GBP)?\s?[$€£]\s?[\d,]+(?:\.\d{2})?)`), nil},
		{domain.FieldFee, regexp.MustCompile(`((?:AUD|CAD|USD|NZD)\s?[\d,]{3,})`), nil},
		{domain.FieldProcessingTime, regexp.MustCompile(`(?i)(?:process(?:ing|ed)[^.\n]{0,40}?)(\d{1,3}\s*(?:to|-|–)\s*\d{1,3}\s*(?:business\s+)?(?:days?|weeks?|months?))`), nil},
		{domain.FieldProcessingTime, regexp.MustCompile(`(?i)(?:within|takes?|allow)\s+(\d{1,3}\s*(?:business\s+)?(?:days?|weeks?|months?))`), nil},
		{domain.FieldLanguage, regexp.MustCompile(`(?i)(IELTS\s+(?:score\s+of\s+|band\s+)?\d(?:\.\d)?|CLB\s+\d{1,2}|TOEFL\s+(?:iBT\s+)?\d{2,3}|PTE\s+\d{2})`), nil},
	}
)

func validAge(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 14 && n <= 99
}

func validYears(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n <= 40
}

// ExtractorService classifies stored documents and extracts typed records,
// merging multi-document entities under one logical key.
type ExtractorService struct {
	docs    driven.DocumentStore
	records driven.RecordStore

	// llm is optional; when nil extraction runs on pattern rules only.
	llm driven.LLMService

	minCategoryScore int
	categoryKeywords map[string][]string
}

// NewExtractorService creates a new extraction service.
// The llmService parameter is optional (can be nil).
func NewExtractorService(
	docs driven.DocumentStore,
	records driven.RecordStore,
	llmService driven.LLMService,
) *ExtractorService {
	return &ExtractorService{
		docs:             docs,
		records:          records,
		llm:              llmService,
		minCategoryScore: defaultMinCategoryScore,
		categoryKeywords: defaultCategoryKeywords,
	}
}

// SetMinCategoryScore tunes the classification confidence threshold.
func (s *ExtractorService) SetMinCategoryScore(n int) {
	if n > 0 {
		s.minCategoryScore = n
	}
}

// SetCategoryKeywords replaces the default category keyword sets.
func (s *ExtractorService) SetCategoryKeywords(kw map[string][]string) {
	if len(kw) > 0 {
		s.categoryKeywords = kw
	}
}

// ClassifyAndExtract processes one document. A (nil, nil) return means the
// document produced no confident classification, which is a normal outcome.
func (s *ExtractorService) ClassifyAndExtract(
	ctx context.Context, doc *domain.Document,
) (*domain.Record, error) {
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: document with content is required", domain.ErrInvalidInput)
	}

	category, score := s.classify(doc.Content)
	if score < s.minCategoryScore {
		logger.Debug("No confident classification for %s (best=%q score=%d)", doc.URL, category, score)
		return nil, nil
	}

	kind := classifyKind(doc.Content)
	logger.Debug("Classified %s: kind=%s category=%s score=%d", doc.URL, kind, category, score)

	name := strings.TrimSpace(doc.Title)
	if name == "" {
		name = doc.URL
	}

	rec := &domain.Record{
		ID:       uuid.NewString(),
		Key:      domain.RecordKey(doc.Topic, name),
		Kind:     kind,
		Topic:    doc.Topic,
		Name:     name,
		Category: category,
	}
	rec.AddSourceURL(doc.URL)

	switch kind {
	case domain.RecordKindProgram:
		rec.Fields = s.extractFields(ctx, doc.Content)
	case domain.RecordKindGeneral:
		rec.Category = ""
		rec.Summary = summarise(doc.Content)
		rec.KeyPoints = keyPoints(doc.Content, 5)
	}

	return rec, nil
}

// ExtractTopic runs extraction over every latest document in a topic and
// merges the results into the record store. Per-document failures are
// logged and skipped; only record store write failures abort the run.
func (s *ExtractorService) ExtractTopic(
	ctx context.Context, topic string,
) (*driving.ExtractionSummary, error) {
	logger.Section("Extraction: " + topicLabel(topic))

	docs, err := s.docs.GetLatestDocuments(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	summary := &driving.ExtractionSummary{Topic: topic}
	for i := range docs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Processed++

		rec, err := s.ClassifyAndExtract(ctx, &docs[i])
		if err != nil {
			logger.Warn("Extraction failed for %s: %v", docs[i].URL, err)
			summary.Skipped++
			continue
		}
		if rec == nil {
			summary.Skipped++
			continue
		}

		merged, err := s.mergeAndStore(ctx, rec)
		if err != nil {
			return summary, fmt.Errorf("store record %s: %w", rec.Key, err)
		}
		if merged {
			summary.Merged++
		} else {
			summary.Extracted++
		}
	}

	logger.Info("Extraction %s done: processed=%d extracted=%d merged=%d skipped=%d",
		topicLabel(topic), summary.Processed, summary.Extracted, summary.Merged, summary.Skipped)

	return summary, nil
}

// classify returns the best-matching category and its keyword hit count.
func (s *ExtractorService) classify(text string) (string, int) {
	lower := strings.ToLower(text)

	best := ""
	bestScore := 0
	// Deterministic iteration keeps tie-breaks stable across runs.
	categories := make([]string, 0, len(s.categoryKeywords))
	for c := range s.categoryKeywords {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		score := 0
		for _, kw := range s.categoryKeywords[category] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = category
			bestScore = score
		}
	}
	return best, bestScore
}

// classifyKind splits confident documents into single-offering pages versus
// general informational content.
func classifyKind(text string) domain.RecordKind {
	lower := strings.ToLower(text)

	programScore := 0
	for _, kw := range programIndicators {
		if strings.Contains(lower, kw) {
			programScore++
		}
	}
	generalScore := 0
	for _, kw := range generalIndicators {
		if strings.Contains(lower, kw) {
			generalScore++
		}
	}

	if programScore >= generalScore && programScore > 0 {
		return domain.RecordKindProgram
	}
	return domain.RecordKindGeneral
}

// extractFields runs the ordered pattern rules, then lets the LLM fill
// fields the patterns missed. First write per field wins.
func (s *ExtractorService) extractFields(ctx context.Context, text string) map[string]string {
	fields := make(map[string]string)

	if m := reAgeBetween.FindStringSubmatch(text); m != nil {
		if validAge(m[1]) && validAge(m[2]) {
			fields[domain.FieldAgeMin] = m[1]
			fields[domain.FieldAgeMax] = m[2]
		}
	}

	for _, rule := range fieldRules {
		if _, ok := fields[rule.field]; ok {
			continue
		}
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if rule.validate != nil && !rule.validate(value) {
			continue
		}
		fields[rule.field] = value
	}

	if s.llm != nil {
		s.fillFieldsWithLLM(ctx, text, fields)
	}

	return fields
}

// llmExtractionFields lists the field names the assisted prompt may fill.
var llmExtractionFields = map[string]bool{
	domain.FieldAgeMin:          true,
	domain.FieldAgeMax:          true,
	domain.FieldEducation:       true,
	domain.FieldExperienceYears: true,
	domain.FieldFee:             true,
	domain.FieldProcessingTime:  true,
	domain.FieldLanguage:        true,
}

// fillFieldsWithLLM asks the model for fields the pattern rules missed.
// Failures are silent: the pattern results stand on their own.
func (s *ExtractorService) fillFieldsWithLLM(ctx context.Context, text string, fields map[string]string) {
	missing := make([]string, 0, len(llmExtractionFields))
	for f := range llmExtractionFields {
		if _, ok := fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return
	}
	sort.Strings(missing)

	excerpt := text
	if len(excerpt) > 4000 {
		excerpt = excerpt[:4000]
	}

	prompt := fmt.Sprintf(
		"Extract requirement values from the page text below.\n"+
			"Reply with one line per field in the form \"field: value\".\n"+
			"Write \"field: none\" when the page does not state a value.\n"+
			"Fields: %s\n\nPage text:\n%s",
		strings.Join(missing, ", "), excerpt)

	out, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		logger.Debug("Assisted extraction unavailable: %v", err)
		return
	}

	for _, line := range strings.Split(out, "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if !llmExtractionFields[name] || value == "" || strings.EqualFold(value, "none") {
			continue
		}
		if _, ok := fields[name]; ok {
			continue
		}
		if name == domain.FieldAgeMin || name == domain.FieldAgeMax {
			if !validAge(value) {
				continue
			}
		}
		if name == domain.FieldExperienceYears && !validYears(value) {
			continue
		}
		fields[name] = value
	}
}

// mergeAndStore merges a freshly extracted record into any existing current
// record for the same entity and writes a new version. The second return
// value reports whether an existing record was merged into. Unchanged
// records are not rewritten, keeping re-extraction idempotent.
func (s *ExtractorService) mergeAndStore(ctx context.Context, rec *domain.Record) (bool, error) {
	existing, err := s.findCurrent(ctx, rec)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, s.records.PutRecord(ctx, rec)
	}

	merged := mergeRecords(existing, rec)
	if recordsEquivalent(existing, merged) {
		logger.Debug("Record %s unchanged, skipping write", merged.Key)
		return true, nil
	}
	return true, s.records.PutRecord(ctx, merged)
}

// findCurrent locates the current record this extraction belongs to: an
// exact key match first, then a near-identical entity name within the topic.
func (s *ExtractorService) findCurrent(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	history, err := s.records.GetRecordHistory(ctx, rec.Key)
	if err == nil && len(history) > 0 {
		return &history[0], nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	current, err := s.records.GetLatestRecords(ctx, rec.Topic, "")
	if err != nil {
		return nil, err
	}
	name := domain.NormalizeEntityName(rec.Name)
	for i := range current {
		if current[i].Kind != rec.Kind {
			continue
		}
		other := domain.NormalizeEntityName(current[i].Name)
		if levenshtein.Similarity(name, other, nil) >= entitySimilarityThreshold {
			logger.Debug("Grouping %q with existing entity %q", rec.Name, current[i].Name)
			return &current[i], nil
		}
	}
	return nil, nil
}

// mergeRecords combines an existing current record with new extraction
// output. Field values are first-write-wins; the source list only grows.
func mergeRecords(existing, incoming *domain.Record) *domain.Record {
	merged := &domain.Record{
		ID:       uuid.NewString(),
		Key:      existing.Key,
		Kind:     existing.Kind,
		Topic:    existing.Topic,
		Name:     existing.Name,
		Category: existing.Category,
		Summary:  existing.Summary,
	}
	if merged.Category == "" {
		merged.Category = incoming.Category
	}
	if merged.Summary == "" {
		merged.Summary = incoming.Summary
	}

	merged.KeyPoints = append(merged.KeyPoints, existing.KeyPoints...)
	if len(merged.KeyPoints) == 0 {
		merged.KeyPoints = append(merged.KeyPoints, incoming.KeyPoints...)
	}

	if len(existing.Fields) > 0 || len(incoming.Fields) > 0 {
		merged.Fields = make(map[string]string, len(existing.Fields)+len(incoming.Fields))
		for k, v := range existing.Fields {
			merged.Fields[k] = v
		}
		for k, v := range incoming.Fields {
			if _, ok := merged.Fields[k]; !ok {
				merged.Fields[k] = v
			}
		}
	}

	for _, u := range existing.SourceURLs {
		merged.AddSourceURL(u)
	}
	for _, u := range incoming.SourceURLs {
		merged.AddSourceURL(u)
	}

	return merged
}

// recordsEquivalent reports whether two record versions carry identical
// content, ignoring version bookkeeping.
func recordsEquivalent(a, b *domain.Record) bool {
	if a.Key != b.Key || a.Kind != b.Kind || a.Category != b.Category ||
		a.Summary != b.Summary || len(a.Fields) != len(b.Fields) ||
		len(a.KeyPoints) != len(b.KeyPoints) || len(a.SourceURLs) != len(b.SourceURLs) {
		return false
	}
	for k, v := range a.Fields {
		if b.Fields[k] != v {
			return false
		}
	}
	for i := range a.KeyPoints {
		if a.KeyPoints[i] != b.KeyPoints[i] {
			return false
		}
	}
	for i := range a.SourceURLs {
		if a.SourceURLs[i] != b.SourceURLs[i] {
			return false
		}
	}
	return true
}

// summarise produces a short abstract from the opening sentences.
func summarise(text string) string {
	const maxLen = 300

	var b strings.Builder
	for _, sentence := range splitSentences(text) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
		if b.Len() >= maxLen/2 {
			break
		}
	}
	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen] + "..."
	}
	return out
}

// keyPoints selects up to max salient sentences: those naming requirements,
// amounts or durations.
func keyPoints(text string, max int) []string {
	markers := []string{"must", "require", "need", "fee", "cost", "minimum", "at least", "eligible"}

	var points []string
	for _, sentence := range splitSentences(text) {
		if len(sentence) < 20 {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, m := range markers {
			if strings.Contains(lower, m) {
				if len(sentence) > 200 {
					sentence = sentence[:200] + "..."
				}
				points = append(points, sentence)
				break
			}
		}
		if len(points) >= max {
			break
		}
	}
	return points
}

// splitSentences splits content into sentences.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func topicLabel(topic string) string {
	if topic == "" {
		return "all topics"
	}
	return topic
}
