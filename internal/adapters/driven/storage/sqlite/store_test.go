package sqlite

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "webcra-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	})

	return store
}

func testDocument(url, topic string) *domain.Document {
	return &domain.Document{
		ID:      fmt.Sprintf("doc-%s-%s", topic, url),
		URL:     url,
		Topic:   topic,
		Title:   "Test Page",
		Content: "test content",
		Links:   []string{"https://example.com/other"},
		Metadata: map[string]any{
			"fetch_strategy": "lightweight",
		},
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store := setupTestStore(t)

	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "webcra-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening re-runs the migration path against the same file.
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestStore_PutDocument_AssignsVersions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := testDocument("https://example.com/page", "australia")
	require.NoError(t, store.PutDocument(ctx, doc))
	assert.Equal(t, 1, doc.Version)
	assert.True(t, doc.IsLatest)

	doc2 := testDocument("https://example.com/page", "australia")
	doc2.ID = "doc-2"
	doc2.Content = "updated content"
	require.NoError(t, store.PutDocument(ctx, doc2))
	assert.Equal(t, 2, doc2.Version)

	history, err := store.GetDocumentHistory(ctx, "https://example.com/page")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "updated content", history[0].Content)
	assert.True(t, history[0].IsLatest)
	assert.False(t, history[1].IsLatest)
	assert.Equal(t, []string{"https://example.com/other"}, history[0].Links)
	assert.Equal(t, "lightweight", history[0].Metadata["fetch_strategy"])
}

func TestStore_PutDocument_NormalizesURL(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := testDocument("https://EXAMPLE.com/Page/", "australia")
	require.NoError(t, store.PutDocument(ctx, doc))
	assert.Equal(t, "https://example.com/Page", doc.URL)

	docs, err := store.GetLatestDocuments(ctx, "australia")
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestStore_PutDocument_RequiresURL(t *testing.T) {
	store := setupTestStore(t)

	err := store.PutDocument(context.Background(), &domain.Document{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_GetLatestDocuments_TopicFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx, testDocument("https://a.com/1", "australia")))
	require.NoError(t, store.PutDocument(ctx, testDocument("https://b.com/1", "canada")))

	canada, err := store.GetLatestDocuments(ctx, "canada")
	require.NoError(t, err)
	require.Len(t, canada, 1)
	assert.Equal(t, "https://b.com/1", canada[0].URL)

	all, err := store.GetLatestDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_GetDocumentHistory_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetDocumentHistory(context.Background(), "https://missing.example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SingleLatestInvariant_ConcurrentWriters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := testDocument("https://example.com/contested", "australia")
			doc.ID = fmt.Sprintf("doc-%d", i)
			errs[i] = store.PutDocument(ctx, doc)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	history, err := store.GetDocumentHistory(ctx, "https://example.com/contested")
	require.NoError(t, err)
	require.Len(t, history, writers)

	latest := 0
	for _, doc := range history {
		if doc.IsLatest {
			latest++
		}
	}
	assert.Equal(t, 1, latest, "exactly one version must be latest")
}

func TestStore_PutRecord_AssignsVersions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := &domain.Record{
		ID:         "r1",
		Key:        domain.RecordKey("australia", "Skilled Independent Visa"),
		Kind:       domain.RecordKindProgram,
		Topic:      "australia",
		Name:       "Skilled Independent Visa",
		Category:   "work",
		Fields:     map[string]string{domain.FieldAgeMin: "18"},
		SourceURLs: []string{"https://example.com/189"},
	}
	require.NoError(t, store.PutRecord(ctx, rec))
	assert.Equal(t, 1, rec.Version)
	assert.True(t, rec.IsLatest)

	rec2 := *rec
	rec2.ID = "r2"
	rec2.Fields = map[string]string{domain.FieldAgeMin: "18", domain.FieldAgeMax: "45"}
	require.NoError(t, store.PutRecord(ctx, &rec2))

	history, err := store.GetRecordHistory(ctx, rec.Key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "45", history[0].Fields[domain.FieldAgeMax])
	assert.True(t, history[0].IsLatest)
	assert.False(t, history[1].IsLatest)
}

func TestStore_GetLatestRecords_Filters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	put := func(key, topic, category string) {
		require.NoError(t, store.PutRecord(ctx, &domain.Record{
			ID: "id-" + key, Key: key, Kind: domain.RecordKindProgram,
			Topic: topic, Category: category,
		}))
	}
	put("australia/skilled worker", "australia", "work")
	put("australia/student 500", "australia", "study")
	put("canada/express entry", "canada", "work")

	work, err := store.GetLatestRecords(ctx, "", "work")
	require.NoError(t, err)
	assert.Len(t, work, 2)

	australiaWork, err := store.GetLatestRecords(ctx, "australia", "work")
	require.NoError(t, err)
	require.Len(t, australiaWork, 1)
	assert.Equal(t, "australia/skilled worker", australiaWork[0].Key)
}

func TestStore_Stats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx, testDocument("https://a.com/1", "australia")))
	require.NoError(t, store.PutDocument(ctx, testDocument("https://a.com/1", "australia")))
	require.NoError(t, store.PutRecord(ctx, &domain.Record{
		ID: "r1", Key: "canada/express entry", Kind: domain.RecordKindProgram, Topic: "canada",
	}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LatestDocuments)
	assert.Equal(t, 1, stats.LatestRecords)
	assert.Equal(t, 2, stats.Topics)
}
