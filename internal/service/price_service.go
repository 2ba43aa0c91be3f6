package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ladderplan/ladderd/internal/domain"
	"github.com/ladderplan/ladderd/internal/pricing"
)

// PriceService fronts the consensus fetcher with a short-lived cache so that
// handlers and the alert loop do not hammer the upstream exchanges.
type PriceService struct {
	consensus *pricing.Consensus
	cache     domain.PriceCache
	bus       domain.SignalBus
	freshFor  time.Duration
	logger    *slog.Logger
}

func NewPriceService(consensus *pricing.Consensus, cache domain.PriceCache, bus domain.SignalBus, freshFor time.Duration, logger *slog.Logger) *PriceService {
	if freshFor <= 0 {
		freshFor = 15 * time.Second
	}
	return &PriceService{
		consensus: consensus,
		cache:     cache,
		bus:       bus,
		freshFor:  freshFor,
		logger:    logger.With(slog.String("component", "price_service")),
	}
}

// GetPrice returns the current consensus price for asset quoted in currency.
// A cached quote younger than the freshness window is served as-is. On a
// consensus failure a stale cached quote, when present, is returned rather
// than an error so that views degrade instead of breaking.
func (s *PriceService) GetPrice(ctx context.Context, asset, currency string) (float64, time.Time, error) {
	cached, cachedAt, cacheErr := s.cache.GetPrice(ctx, asset, currency)
	if cacheErr == nil && time.Since(cachedAt) <= s.freshFor {
		return cached, cachedAt, nil
	}

	price, err := s.consensus.Price(ctx, asset, currency)
	if err != nil {
		if cacheErr == nil {
			s.logger.Warn("consensus failed, serving stale quote",
				slog.String("asset", asset),
				slog.Time("as_of", cachedAt),
				slog.String("error", err.Error()))
			return cached, cachedAt, nil
		}
		return 0, time.Time{}, fmt.Errorf("price_service: get price %s/%s: %w", asset, currency, err)
	}

	now := time.Now().UTC()
	if err := s.cache.SetPrice(ctx, asset, currency, price, now); err != nil {
		s.logger.Warn("failed to cache price", slog.String("error", err.Error()))
	}
	if s.bus != nil {
		msg := fmt.Sprintf(`{"asset":%q,"currency":%q,"price":%g,"as_of":%q}`, asset, currency, price, now.Format(time.RFC3339))
		if err := s.bus.Publish(ctx, "prices", []byte(msg)); err != nil {
			s.logger.Warn("failed to publish price", slog.String("error", err.Error()))
		}
	}
	return price, now, nil
}
