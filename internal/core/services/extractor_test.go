package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baransitours-bot/webcra/internal/adapters/driven/storage/memory"
	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
)

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	response    string
	generateErr error
	prompts     []string
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.response, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Close() error {
	return nil
}

// --- Fixtures ---

const programText = `Skilled Worker Visa requirements and eligibility criteria.
To qualify for this skilled employment visa you must meet the occupation rules.
Applicants must be at least 18 years of age and not be older than 45.
You need 3 years of relevant experience in a skilled occupation.
A bachelor's degree is required. The application fee is AUD $4,640 in total.
Processing takes 8 months on average for most employer nominated applications.`

const generalText = `A general guide and overview of the immigration system.
This frequently asked questions page explains how to choose between work,
employment and skilled occupation pathways for workers and their employers.
You must read the official sources before applying. The minimum fee depends
on the visa type, and most applicants need certified documents.`

func programDocument(url, title string) *domain.Document {
	return &domain.Document{
		ID:      "doc-" + url,
		URL:     url,
		Topic:   "australia",
		Title:   title,
		Content: programText,
	}
}

func newExtractor(store *memory.Store, llm driven.LLMService) *ExtractorService {
	return NewExtractorService(store, store, llm)
}

// --- Tests ---

func TestExtractorService_ClassifyAndExtract_Program(t *testing.T) {
	svc := newExtractor(memory.NewStore(), nil)

	doc := programDocument("https://immi.example.gov.au/189", "Skilled Worker Visa Subclass 189")
	rec, err := svc.ClassifyAndExtract(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, domain.RecordKindProgram, rec.Kind)
	assert.Equal(t, "work", rec.Category)
	assert.Equal(t, "australia", rec.Topic)
	assert.Equal(t, domain.RecordKey("australia", "Skilled Worker Visa Subclass 189"), rec.Key)
	assert.Equal(t, []string{"https://immi.example.gov.au/189"}, rec.SourceURLs)

	assert.Equal(t, "18", rec.Fields[domain.FieldAgeMin])
	assert.Equal(t, "45", rec.Fields[domain.FieldAgeMax])
	assert.Equal(t, "3", rec.Fields[domain.FieldExperienceYears])
	assert.Equal(t, "bachelor's degree", rec.Fields[domain.FieldEducation])
	assert.Equal(t, "AUD $4,640", rec.Fields[domain.FieldFee])
	assert.Equal(t, "8 months", rec.Fields[domain.FieldProcessingTime])
}

func TestExtractorService_ClassifyAndExtract_General(t *testing.T) {
	svc := newExtractor(memory.NewStore(), nil)

	doc := &domain.Document{
		ID:      "doc-guide",
		URL:     "https://immi.example.gov.au/guide",
		Topic:   "australia",
		Title:   "Immigration Guide",
		Content: generalText,
	}
	rec, err := svc.ClassifyAndExtract(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, domain.RecordKindGeneral, rec.Kind)
	assert.Empty(t, rec.Category)
	assert.Empty(t, rec.Fields)
	assert.NotEmpty(t, rec.Summary)
	assert.NotEmpty(t, rec.KeyPoints)
}

func TestExtractorService_ClassifyAndExtract_NoConfidentClassification(t *testing.T) {
	svc := newExtractor(memory.NewStore(), nil)

	doc := &domain.Document{
		ID:      "doc-recipes",
		URL:     "https://cooking.example.com/pasta",
		Topic:   "australia",
		Title:   "Pasta Recipes",
		Content: "Boil water, add salt, cook the pasta for nine minutes and serve with sauce.",
	}
	rec, err := svc.ClassifyAndExtract(context.Background(), doc)
	require.NoError(t, err)
	assert.Nil(t, rec, "unclassifiable documents produce no record and no error")
}

func TestExtractorService_ClassifyAndExtract_InvalidInput(t *testing.T) {
	svc := newExtractor(memory.NewStore(), nil)

	_, err := svc.ClassifyAndExtract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.ClassifyAndExtract(context.Background(), &domain.Document{Content: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtractorService_FieldRules_DiscardOutOfRange(t *testing.T) {
	svc := newExtractor(memory.NewStore(), nil)

	fields := svc.extractFields(context.Background(),
		"Applicants must be at least 7 years of age to use the playground.")
	_, ok := fields[domain.FieldAgeMin]
	assert.False(t, ok, "implausible ages are discarded, not stored")
}

func TestExtractorService_ExtractTopic_MergesEntities(t *testing.T) {
	// Two documents about the same entity contribute disjoint fields; the
	// merged record carries all of them and both source URLs.
	store := memory.NewStore()
	ctx := context.Background()

	doc1 := &domain.Document{
		ID: "d1", URL: "https://immi.example.gov.au/189/about", Topic: "australia",
		Title: "Skilled Worker Visa Subclass 189",
		Content: `Skilled Worker Visa requirements and eligibility for skilled employment.
You must work in an eligible occupation. Applicants must be at least 18 years of age.`,
	}
	doc2 := &domain.Document{
		ID: "d2", URL: "https://immi.example.gov.au/189/fees", Topic: "australia",
		Title: "Skilled Worker Visa (Subclass 189)",
		Content: `Skilled Worker Visa requirements and eligibility for skilled employment.
Applicants must not be older than 45. The application fee is $100 for this occupation stream.`,
	}
	require.NoError(t, store.PutDocument(ctx, doc1))
	require.NoError(t, store.PutDocument(ctx, doc2))

	svc := newExtractor(store, nil)
	summary, err := svc.ExtractTopic(ctx, "australia")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Extracted)
	assert.Equal(t, 1, summary.Merged)

	records, err := store.GetLatestRecords(ctx, "australia", "")
	require.NoError(t, err)
	require.Len(t, records, 1, "both documents fold into one logical record")

	rec := records[0]
	assert.Equal(t, "18", rec.Fields[domain.FieldAgeMin])
	assert.Equal(t, "45", rec.Fields[domain.FieldAgeMax])
	assert.Equal(t, "$100", rec.Fields[domain.FieldFee])
	assert.Len(t, rec.SourceURLs, 2)
}

func TestExtractorService_ExtractTopic_FirstWriteWinsPerField(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	existing := &domain.Record{
		ID:         "r1",
		Key:        domain.RecordKey("australia", "Skilled Worker Visa Subclass 189"),
		Kind:       domain.RecordKindProgram,
		Topic:      "australia",
		Name:       "Skilled Worker Visa Subclass 189",
		Category:   "work",
		Fields:     map[string]string{domain.FieldAgeMin: "21"},
		SourceURLs: []string{"https://immi.example.gov.au/original"},
	}
	require.NoError(t, store.PutRecord(ctx, existing))
	require.NoError(t, store.PutDocument(ctx,
		programDocument("https://immi.example.gov.au/189", "Skilled Worker Visa Subclass 189")))

	svc := newExtractor(store, nil)
	_, err := svc.ExtractTopic(ctx, "australia")
	require.NoError(t, err)

	records, err := store.GetLatestRecords(ctx, "australia", "")
	require.NoError(t, err)
	require.Len(t, records, 1)

	// The earlier source's value stands; the new document only fills gaps.
	assert.Equal(t, "21", records[0].Fields[domain.FieldAgeMin])
	assert.Equal(t, "45", records[0].Fields[domain.FieldAgeMax])
	assert.Contains(t, records[0].SourceURLs, "https://immi.example.gov.au/original")
	assert.Contains(t, records[0].SourceURLs, "https://immi.example.gov.au/189")
}

func TestExtractorService_ExtractTopic_Idempotent(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx,
		programDocument("https://immi.example.gov.au/189", "Skilled Worker Visa Subclass 189")))

	svc := newExtractor(store, nil)
	_, err := svc.ExtractTopic(ctx, "australia")
	require.NoError(t, err)

	first, err := store.GetLatestRecords(ctx, "australia", "")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Re-running over unchanged documents writes no new version and does
	// not duplicate source URLs.
	_, err = svc.ExtractTopic(ctx, "australia")
	require.NoError(t, err)

	history, err := store.GetRecordHistory(ctx, first[0].Key)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, first[0].Fields, history[0].Fields)
	assert.Len(t, history[0].SourceURLs, 1)
}

func TestExtractorService_GroupsNearIdenticalNames(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	existing := &domain.Record{
		ID:         "r1",
		Key:        domain.RecordKey("australia", "Skilled Worker Visa Subclass 189"),
		Kind:       domain.RecordKindProgram,
		Topic:      "australia",
		Name:       "Skilled Worker Visa Subclass 189",
		Category:   "work",
		Fields:     map[string]string{domain.FieldAgeMin: "18"},
		SourceURLs: []string{"https://immi.example.gov.au/a"},
	}
	require.NoError(t, store.PutRecord(ctx, existing))

	// Same entity with a typo in the title normalizes to a different key
	// but groups by name similarity.
	doc := programDocument("https://immi.example.gov.au/b", "Skilled Workr Visa Subclass 189")
	require.NoError(t, store.PutDocument(ctx, doc))

	svc := newExtractor(store, nil)
	_, err := svc.ExtractTopic(ctx, "australia")
	require.NoError(t, err)

	records, err := store.GetLatestRecords(ctx, "australia", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, existing.Key, records[0].Key)
	assert.Len(t, records[0].SourceURLs, 2)
}

func TestExtractorService_LLMFillsMissingFields(t *testing.T) {
	llm := &mockLLMService{response: "language: IELTS 6.5\nfee: ignored\nage_min: 12\nbogus: x"}
	svc := newExtractor(memory.NewStore(), llm)

	doc := programDocument("https://immi.example.gov.au/189", "Skilled Worker Visa")
	rec, err := svc.ClassifyAndExtract(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// The model fills fields the patterns missed.
	assert.Equal(t, "IELTS 6.5", rec.Fields[domain.FieldLanguage])
	// Pattern results win over model output, and unknown field names
	// are ignored.
	assert.Equal(t, "AUD $4,640", rec.Fields[domain.FieldFee])
	assert.Equal(t, "18", rec.Fields[domain.FieldAgeMin])
	assert.NotContains(t, rec.Fields, "bogus")
	require.Len(t, llm.prompts, 1)
}

func TestExtractorService_LLMFailureIsSilent(t *testing.T) {
	llm := &mockLLMService{generateErr: errors.New("connection refused")}
	svc := newExtractor(memory.NewStore(), llm)

	doc := programDocument("https://immi.example.gov.au/189", "Skilled Worker Visa")
	rec, err := svc.ClassifyAndExtract(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "18", rec.Fields[domain.FieldAgeMin], "pattern results stand on their own")
}

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.RecordKind
	}{
		{"requirements page", "eligibility requirements: you must apply", domain.RecordKindProgram},
		{"guide page", "a general guide and overview, frequently asked questions", domain.RecordKindGeneral},
		{"neither leans general", "plain informational text", domain.RecordKindGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyKind(tt.text))
		})
	}
}
