package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var (
	recordTopic    string
	recordCategory string
	recordJSON     bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Inspect extracted records",
	Long:  `List current records or show the full version history for one logical key.`,
}

var recordListCmd = &cobra.Command{
	Use:   "list",
	Short: "List current records",
	RunE:  runRecordList,
}

var recordHistoryCmd = &cobra.Command{
	Use:   "history [key]",
	Short: "Show every stored version for a record key",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordHistory,
}

func init() {
	recordListCmd.Flags().StringVarP(&recordTopic, "topic", "t", "", "restrict to one topic")
	recordListCmd.Flags().StringVarP(&recordCategory, "category", "c", "", "restrict to one category")
	recordListCmd.Flags().BoolVar(&recordJSON, "json", false, "output records as JSON")

	recordCmd.AddCommand(recordListCmd)
	recordCmd.AddCommand(recordHistoryCmd)
	rootCmd.AddCommand(recordCmd)
}

func runRecordList(cmd *cobra.Command, _ []string) error {
	if contentStore == nil {
		return errors.New("content store not configured")
	}

	records, err := contentStore.GetLatestRecords(context.Background(), recordTopic, recordCategory)
	if err != nil {
		return fmt.Errorf("list records failed: %w", err)
	}

	if recordJSON {
		return outputJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No records stored. Run extract first.")
		return nil
	}

	for i := range records {
		rec := &records[i]
		cmd.Printf("[%s] %s\n", rec.Kind, rec.Name)
		cmd.Printf("    key: %s  v%d  sources: %d\n", rec.Key, rec.Version, len(rec.SourceURLs))
		if rec.Category != "" {
			cmd.Printf("    category: %s\n", rec.Category)
		}
		if len(rec.Fields) > 0 {
			keys := make([]string, 0, len(rec.Fields))
			for k := range rec.Fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				cmd.Printf("    %s: %s\n", strings.ReplaceAll(k, "_", " "), rec.Fields[k])
			}
		}
	}
	return nil
}

func runRecordHistory(cmd *cobra.Command, args []string) error {
	if contentStore == nil {
		return errors.New("content store not configured")
	}

	history, err := contentStore.GetRecordHistory(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("history lookup failed: %w", err)
	}

	for i := range history {
		marker := " "
		if history[i].IsLatest {
			marker = "*"
		}
		cmd.Printf("%s v%-3d %s  fields: %d  sources: %d\n",
			marker, history[i].Version,
			history[i].CreatedAt.Format("2006-01-02 15:04:05"),
			len(history[i].Fields), len(history[i].SourceURLs))
	}
	return nil
}
