package domain

import "github.com/shopspring/decimal"

// PriceStats is the indicative market price band for a crop. Values are
// deterministic for a given crop name.
type PriceStats struct {
	CropName    string          `json:"cropName"`
	MinPrice    decimal.Decimal `json:"minPrice"`
	AvgPrice    decimal.Decimal `json:"avgPrice"`
	MaxPrice    decimal.Decimal `json:"maxPrice"`
	SampleCount int             `json:"sampleCount"`
}

type PriceSignal string

const (
	SignalCompetitive PriceSignal = "competitive"
	SignalFair        PriceSignal = "fair"
	SignalHigh        PriceSignal = "high"
)

// Competitiveness rates a listing price against the market average:
// below 0.8x avg is competitive, above 1.2x avg is high, otherwise fair.
func Competitiveness(price decimal.Decimal, stats *PriceStats) PriceSignal {
	low := stats.AvgPrice.Mul(decimal.NewFromFloat(0.8))
	high := stats.AvgPrice.Mul(decimal.NewFromFloat(1.2))
	switch {
	case price.LessThan(low):
		return SignalCompetitive
	case price.GreaterThan(high):
		return SignalHigh
	default:
		return SignalFair
	}
}
