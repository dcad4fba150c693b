package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"agromarket/internal/domain"
	"agromarket/internal/infra/marketdata"
)

const priceStatsTTL = time.Hour

// PricingService fronts the market data oracle with a redis cache. Stats are
// deterministic per crop, so caching them is safe.
type PricingService struct {
	oracle      marketdata.OracleInterface
	redisClient *redis.Client
	log         *logrus.Entry
}

func NewPricingService(oracle marketdata.OracleInterface, log *logrus.Entry) *PricingService {
	return &PricingService{oracle: oracle, log: log}
}

func (s *PricingService) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

func (s *PricingService) PriceStats(ctx context.Context, cropName string) (*domain.PriceStats, error) {
	if strings.TrimSpace(cropName) == "" {
		return nil, domain.NewValidationError("crop", "required")
	}

	cacheKey := "pricestats:" + strings.ToLower(strings.TrimSpace(cropName))
	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var stats domain.PriceStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.oracle.PriceStats(ctx, cropName)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(stats); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, priceStatsTTL)
		}
	}
	return stats, nil
}
