package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest consensus prices, keyed by
// asset and quote currency.
type PriceCache interface {
	SetPrice(ctx context.Context, assetID, currency string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, assetID, currency string) (float64, time.Time, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locks with a TTL. It doubles as the alert
// cooldown tracker: an alert that acquires "alert:{planner}:{level}" with the
// cooldown as TTL suppresses duplicates until the lock expires.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of domain events (price updates, alerts,
// planner changes) to interested consumers such as the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
