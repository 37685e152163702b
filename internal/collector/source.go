package collector

import (
	"context"

	"SolanaPredictor/internal/model"
)

// Source provides the primary historical daily bars.
type Source interface {
	FetchDailyBars(ctx context.Context) ([]model.PriceBar, error)
	Name() string
}
