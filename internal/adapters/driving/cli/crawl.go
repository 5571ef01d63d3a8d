package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

var crawlJSON bool

var crawlCmd = &cobra.Command{
	Use:   "crawl [topic]",
	Short: "Crawl configured seed sources",
	Long: `Runs the bounded breadth-first crawl for one configured topic, or for
every configured topic when none is given. Topics crawl concurrently,
each with its own frontier and rate limit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().BoolVar(&crawlJSON, "json", false, "output summaries as JSON")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if crawlService == nil || seedStore == nil {
		return errors.New("crawl service not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	configs, err := seedStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load seed configuration: %w", err)
	}
	if len(args) > 0 {
		configs = selectTopic(configs, args[0])
		if len(configs) == 0 {
			return fmt.Errorf("topic %q is not configured", args[0])
		}
	}
	if len(configs) == 0 {
		return errors.New("no topics configured; add entries to seeds.toml")
	}

	summaries, runErr := crawlService.CrawlAll(ctx, configs)

	if crawlJSON {
		if err := outputJSON(cmd, summaries); err != nil {
			return err
		}
	} else {
		outputCrawlSummaries(cmd, summaries)
	}

	if runErr != nil {
		return fmt.Errorf("crawl finished with errors: %w", runErr)
	}
	return nil
}

func selectTopic(configs []domain.SeedConfig, topic string) []domain.SeedConfig {
	for _, cfg := range configs {
		if cfg.Topic == topic {
			return []domain.SeedConfig{cfg}
		}
	}
	return nil
}

func outputCrawlSummaries(cmd *cobra.Command, summaries []domain.CrawlSummary) {
	for _, s := range summaries {
		cmd.Printf("%-20s fetched=%d accepted=%d rejected=%d errored=%d\n",
			s.Topic, s.Fetched, s.Accepted, s.Rejected, s.Errored)
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
