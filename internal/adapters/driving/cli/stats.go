package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show content store statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if contentStore == nil {
		return errors.New("content store not configured")
	}

	stats, err := contentStore.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("stats unavailable: %w", err)
	}

	if statsJSON {
		return outputJSON(cmd, stats)
	}

	cmd.Printf("Documents: %d\n", stats.LatestDocuments)
	cmd.Printf("Records:   %d\n", stats.LatestRecords)
	cmd.Printf("Topics:    %d\n", stats.Topics)
	return nil
}
