package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

func TestStore_PutDocument_Versioning(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := &domain.Document{ID: "a", URL: "https://example.com/page/", Topic: "australia", Content: "v1"}
	require.NoError(t, store.PutDocument(ctx, first))
	assert.Equal(t, 1, first.Version)
	assert.True(t, first.IsLatest)

	// Same logical URL after normalisation.
	second := &domain.Document{ID: "b", URL: "https://EXAMPLE.com/page", Topic: "australia", Content: "v2"}
	require.NoError(t, store.PutDocument(ctx, second))
	assert.Equal(t, 2, second.Version)

	history, err := store.GetDocumentHistory(ctx, "https://example.com/page")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "v2", history[0].Content)
	assert.True(t, history[0].IsLatest)
	assert.False(t, history[1].IsLatest)
}

func TestStore_GetLatestDocuments_TopicFilter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx, &domain.Document{URL: "https://a.com/1", Topic: "australia"}))
	require.NoError(t, store.PutDocument(ctx, &domain.Document{URL: "https://b.com/1", Topic: "canada"}))

	docs, err := store.GetLatestDocuments(ctx, "canada")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://b.com/1", docs[0].URL)

	all, err := store.GetLatestDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_GetDocumentHistory_NotFound(t *testing.T) {
	store := NewStore()

	_, err := store.GetDocumentHistory(context.Background(), "https://missing.example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_PutRecord_Versioning(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	key := domain.RecordKey("australia", "Skilled Worker Program")
	first := &domain.Record{ID: "r1", Key: key, Kind: domain.RecordKindProgram, Topic: "australia", Name: "Skilled Worker Program"}
	require.NoError(t, store.PutRecord(ctx, first))
	assert.Equal(t, 1, first.Version)

	second := &domain.Record{ID: "r2", Key: key, Kind: domain.RecordKindProgram, Topic: "australia", Name: "Skilled Worker Program"}
	require.NoError(t, store.PutRecord(ctx, second))

	history, err := store.GetRecordHistory(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].IsLatest)
	assert.False(t, history[1].IsLatest)
}

func TestStore_SingleLatestInvariant_ConcurrentWriters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const writers = 20
	done := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			done <- store.PutDocument(ctx, &domain.Document{
				URL:   "https://example.com/contested",
				Topic: "australia",
			})
		}()
	}
	for i := 0; i < writers; i++ {
		require.NoError(t, <-done)
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
	assert.Equal(t, writers, history[0].Version)
}

func TestStore_GetLatestRecords_Filters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.PutRecord(ctx, &domain.Record{
		Key: "australia/skilled worker", Topic: "australia", Category: "work",
	}))
	require.NoError(t, store.PutRecord(ctx, &domain.Record{
		Key: "australia/student 500", Topic: "australia", Category: "study",
	}))
	require.NoError(t, store.PutRecord(ctx, &domain.Record{
		Key: "canada/express entry", Topic: "canada", Category: "work",
	}))

	work, err := store.GetLatestRecords(ctx, "", "work")
	require.NoError(t, err)
	assert.Len(t, work, 2)

	australiaWork, err := store.GetLatestRecords(ctx, "australia", "work")
	require.NoError(t, err)
	require.Len(t, australiaWork, 1)
	assert.Equal(t, "australia/skilled worker", australiaWork[0].Key)
}

func TestStore_Stats(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx, &domain.Document{URL: "https://a.com/1", Topic: "australia"}))
	require.NoError(t, store.PutDocument(ctx, &domain.Document{URL: "https://a.com/1", Topic: "australia"}))
	require.NoError(t, store.PutDocument(ctx, &domain.Document{URL: "https://b.com/1", Topic: "canada"}))
	require.NoError(t, store.PutRecord(ctx, &domain.Record{Key: "canada/express entry", Topic: "canada"}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.LatestDocuments)
	assert.Equal(t, 1, stats.LatestRecords)
	assert.Equal(t, 2, stats.Topics)
}
