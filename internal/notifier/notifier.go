package notifier

import (
	"context"

	"SolanaPredictor/internal/model"
)

// Notifier delivers human-readable run reports.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Publisher announces a newly saved model to downstream consumers.
type Publisher interface {
	PublishModelUpdate(ctx context.Context, info *model.ModelInfo) error
	Close() error
}

// Noop discards everything. Used when Telegram or Redis is not configured.
type Noop struct{}

func (Noop) Notify(context.Context, string) error                       { return nil }
func (Noop) PublishModelUpdate(context.Context, *model.ModelInfo) error { return nil }
func (Noop) Close() error                                               { return nil }
