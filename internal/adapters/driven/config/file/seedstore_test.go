package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

const sampleSeeds = `
[[topics]]
topic = "australia"
seed_urls = ["https://immi.example.gov.au/visas"]

[topics.policy]
max_depth = 3
max_docs = 50
required_keywords = ["visa", "permit"]
optional_keywords = ["fees"]
exclude_patterns = ["*.pdf", "*/login/*"]
fetch_strategy = "rendering"
min_delay = "2s"
min_content_length = 150

[[topics]]
topic = "canada"
seed_urls = ["https://ircc.example.ca/immigrate"]
`

func writeSeeds(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seeds.toml"), []byte(content), 0600))
}

func TestSeedStore_Load(t *testing.T) {
	dir := t.TempDir()
	writeSeeds(t, dir, sampleSeeds)

	store, err := NewSeedStore(dir)
	require.NoError(t, err)
	defer store.Close()

	configs, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 2)

	australia := configs[0]
	assert.Equal(t, "australia", australia.Topic)
	assert.Equal(t, []string{"https://immi.example.gov.au/visas"}, australia.SeedURLs)
	assert.Equal(t, 3, australia.Policy.MaxDepth)
	assert.Equal(t, 50, australia.Policy.MaxDocsPerTopic)
	assert.Equal(t, []string{"visa", "permit"}, australia.Policy.RequiredKeywords)
	assert.Equal(t, domain.FetchStrategyRendering, australia.Policy.FetchStrategy)
	assert.Equal(t, 2*time.Second, australia.Policy.MinDelay)
	assert.Equal(t, 150, australia.Policy.MinContentLength)

	// Zero policy values are filled by WithDefaults at crawl time.
	canada := configs[1]
	assert.Equal(t, "canada", canada.Topic)
	assert.Zero(t, canada.Policy.MaxDepth)
}

func TestSeedStore_Load_MissingFile(t *testing.T) {
	store, err := NewSeedStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	assert.Error(t, err)
}

func TestSeedStore_Load_InvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing topic", "[[topics]]\nseed_urls = [\"https://a.example.com\"]\n"},
		{"missing seeds", "[[topics]]\ntopic = \"australia\"\n"},
		{"bad min_delay", sampleSeeds + "\n[[topics]]\ntopic = \"x\"\nseed_urls = [\"https://x.example.com\"]\n[topics.policy]\nmin_delay = \"soon\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSeeds(t, dir, tt.content)

			store, err := NewSeedStore(dir)
			require.NoError(t, err)

			_, err = store.Load(context.Background())
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSeedStore_Load_CachedUntilWatchInvalidates(t *testing.T) {
	dir := t.TempDir()
	writeSeeds(t, dir, sampleSeeds)

	store, err := NewSeedStore(dir)
	require.NoError(t, err)
	defer store.Close()

	configs, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 2)

	// A second Load is served from cache even if the file disappears.
	require.NoError(t, os.Remove(filepath.Join(dir, "seeds.toml")))
	configs, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, configs, 2)
	writeSeeds(t, dir, sampleSeeds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	go func() {
		_ = store.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	writeSeeds(t, dir, sampleSeeds+`
[[topics]]
topic = "germany"
seed_urls = ["https://make-it.example.de/visa"]
`)

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	// The watch event invalidated the cache, so Load sees the new topic.
	configs, err = store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 3)
	assert.Equal(t, "germany", configs[2].Topic)
}

func TestSeedStore_Watch_DetectsChanges(t *testing.T) {
	dir := t.TempDir()
	writeSeeds(t, dir, sampleSeeds)

	store, err := NewSeedStore(dir)
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeSeeds(t, dir, sampleSeeds+"\n# updated\n")

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}
