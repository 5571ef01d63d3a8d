package driven

import (
	"context"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

// SeedStore loads the ordered per-topic seed configuration.
type SeedStore interface {
	// Load reads the current seed configuration.
	Load(ctx context.Context) ([]domain.SeedConfig, error)

	// Watch invokes onChange whenever the underlying configuration changes,
	// until ctx is cancelled. Implementations without change detection
	// return immediately with no error.
	Watch(ctx context.Context, onChange func()) error

	// Close releases resources.
	Close() error
}
