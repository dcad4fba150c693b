package marketdata

import (
	"context"

	"agromarket/internal/domain"
)

// OracleInterface supplies indicative market prices for a crop. PriceStats
// always succeeds: unknown crops get a deterministic synthetic estimate.
type OracleInterface interface {
	PriceStats(ctx context.Context, cropName string) (*domain.PriceStats, error)
}

var _ OracleInterface = (*Client)(nil)
