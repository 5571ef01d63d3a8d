package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCrawlCmd_Use(t *testing.T) {
	assert.Equal(t, "crawl [topic]", crawlCmd.Use)
}

func TestCrawlCmd_AllTopics(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("crawl")

	require.NoError(t, err)
	assert.Contains(t, out, "australia")
	assert.Contains(t, out, "accepted=8")
	assert.Contains(t, out, "canada")

	mock := crawlService.(*mockCrawlService)
	assert.Len(t, mock.configs, 2, "all configured topics are crawled")
}

func TestCrawlCmd_SingleTopic(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	crawlService.(*mockCrawlService).summaries = []domain.CrawlSummary{
		{Topic: "canada", Fetched: 5, Accepted: 5},
	}

	_, err := execute("crawl", "canada")

	require.NoError(t, err)
	mock := crawlService.(*mockCrawlService)
	require.Len(t, mock.configs, 1)
	assert.Equal(t, "canada", mock.configs[0].Topic)
}

func TestCrawlCmd_UnknownTopic(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("crawl", "atlantis")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestCrawlCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer func() { crawlJSON = false }()

	out, err := execute("crawl", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"topic": "australia"`)
	assert.Contains(t, out, `"accepted": 8`)
}

func TestCrawlCmd_PartialFailureStillPrintsSummaries(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mock := crawlService.(*mockCrawlService)
	mock.err = errors.New("australia: connection refused")

	out, err := execute("crawl")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl finished with errors")
	assert.Contains(t, out, "canada", "summaries for healthy topics still print")
}

func TestCrawlCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	crawlService = nil

	_, err := execute("crawl")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl service not configured")
}

func TestCrawlCmd_NoTopicsConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	seedStore = &mockSeedStore{}

	_, err := execute("crawl")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no topics configured")
}
