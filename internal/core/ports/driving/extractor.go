package driving

import (
	"context"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

// ExtractionService turns stored documents into structured records.
type ExtractionService interface {
	// ClassifyAndExtract processes one document. A nil record with nil
	// error means the document produced no confident classification;
	// that is a normal outcome, not a failure.
	ClassifyAndExtract(ctx context.Context, doc *domain.Document) (*domain.Record, error)

	// ExtractTopic runs ClassifyAndExtract over every latest document in
	// a topic (all topics when empty) and merges results into the record
	// store. Per-document failures are logged and skipped.
	ExtractTopic(ctx context.Context, topic string) (*ExtractionSummary, error)
}

// ExtractionSummary reports one batch extraction run.
type ExtractionSummary struct {
	Topic     string `json:"topic"`
	Processed int    `json:"processed"`
	Extracted int    `json:"extracted"`
	Merged    int    `json:"merged"`
	Skipped   int    `json:"skipped"`
}
