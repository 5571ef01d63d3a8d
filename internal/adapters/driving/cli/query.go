package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

var (
	queryTopic    string
	queryCategory string
	queryMaxItems int
	queryBudget   int
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Retrieve ranked context for a question",
	Long: `Runs the retrieval cascade over the extracted records: filter, hybrid
keyword and semantic scoring, and optional reranking. The result is a
labeled, citation-tagged text block ready for an answer generator.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryTopic, "topic", "t", "", "restrict to one topic")
	queryCmd.Flags().StringVarP(&queryCategory, "category", "c", "", "restrict to one category")
	queryCmd.Flags().IntVarP(&queryMaxItems, "max-items", "n", 5, "maximum bundle entries")
	queryCmd.Flags().IntVar(&queryBudget, "budget", 8000, "approximate rendered size in characters")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the full bundle as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	bundle, err := retrievalService.Retrieve(context.Background(), args[0], domain.RetrieveOptions{
		Topic:      queryTopic,
		Category:   queryCategory,
		MaxItems:   queryMaxItems,
		CharBudget: queryBudget,
	})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, bundle)
	}

	if bundle.Empty() {
		cmd.Println("No matching content found.")
		return nil
	}
	cmd.Println(bundle.Rendered)
	return nil
}
