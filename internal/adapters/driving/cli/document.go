package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentTopic string

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect stored documents",
	Long:  `List current document versions or show the full history for one URL.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List current document versions",
	RunE:  runDocumentList,
}

var documentHistoryCmd = &cobra.Command{
	Use:   "history [url]",
	Short: "Show every stored version for a URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentHistory,
}

func init() {
	documentListCmd.Flags().StringVarP(&documentTopic, "topic", "t", "", "restrict to one topic")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentHistoryCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if contentStore == nil {
		return errors.New("content store not configured")
	}

	docs, err := contentStore.GetLatestDocuments(context.Background(), documentTopic)
	if err != nil {
		return fmt.Errorf("list documents failed: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}

	for i := range docs {
		title := docs[i].Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("v%-3d d%d  %-12s %s  %s\n",
			docs[i].Version, docs[i].Depth, docs[i].Topic, docs[i].URL, title)
	}
	return nil
}

func runDocumentHistory(cmd *cobra.Command, args []string) error {
	if contentStore == nil {
		return errors.New("content store not configured")
	}

	history, err := contentStore.GetDocumentHistory(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("history lookup failed: %w", err)
	}

	for i := range history {
		marker := " "
		if history[i].IsLatest {
			marker = "*"
		}
		cmd.Printf("%s v%-3d %s  %d chars\n",
			marker, history[i].Version,
			history[i].FetchedAt.Format("2006-01-02 15:04:05"),
			len(history[i].Content))
	}
	return nil
}
