package driving

import (
	"context"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

// RetrievalService answers natural-language queries with ranked context.
// It is read-only and side-effect-free; a query with no matches returns an
// empty bundle, never an error.
type RetrievalService interface {
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) (*domain.ContextBundle, error)
}
