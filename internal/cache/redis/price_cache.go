package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ladderplan/ladderd/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each consensus
// price is stored as a hash at key "price:{asset}:{currency}" with fields
// "price" and "ts" (Unix nanosecond timestamp), expiring after the configured
// TTL so stale quotes age out on their own.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client. A zero ttl
// means entries never expire.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func priceKey(assetID, currency string) string {
	return "price:" + strings.ToUpper(assetID) + ":" + strings.ToUpper(currency)
}

// SetPrice stores the latest consensus price for an asset/currency pair.
func (pc *PriceCache) SetPrice(ctx context.Context, assetID, currency string, price float64, ts time.Time) error {
	key := priceKey(assetID, currency)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if pc.ttl > 0 {
		pipe.Expire(ctx, key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s/%s: %w", assetID, currency, err)
	}
	return nil
}

// GetPrice retrieves the latest cached price and its timestamp. It returns
// domain.ErrNotFound when no price is cached for the pair.
func (pc *PriceCache) GetPrice(ctx context.Context, assetID, currency string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(assetID, currency)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s/%s: %w", assetID, currency, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s/%s: %w", assetID, currency, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s/%s: %w", assetID, currency, err)
	}

	return price, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
