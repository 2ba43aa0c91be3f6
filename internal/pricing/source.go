// Package pricing implements the consensus price service. Several exchange
// REST endpoints are queried concurrently; the median of the successful
// answers is the consensus price. The rest of the system consumes prices
// only through PriceService, which fronts the consensus with a Redis cache.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Source is a single upstream exchange quote provider.
type Source interface {
	// Name returns a short identifier like "binance".
	Name() string
	// FetchPrice returns the latest traded price for an asset in the given
	// quote currency, e.g. ("BTC", "USD").
	FetchPrice(ctx context.Context, assetID, currency string) (float64, error)
}

// httpSource bundles the pieces every REST source shares: a client with a
// timeout and a per-source rate limiter so ladderd stays inside each
// exchange's public API budget.
type httpSource struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPSource(requestsPerMinute int) httpSource {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return httpSource{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
	}
}

// doGet waits for rate-limit headroom, performs the GET, and returns the
// response body for 2xx statuses.
func (h httpSource) doGet(ctx context.Context, url string) ([]byte, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// decodeJSON unmarshals body into v with a consistent error message.
func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
