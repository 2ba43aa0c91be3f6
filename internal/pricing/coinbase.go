package pricing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// CoinbaseSource fetches spot prices from the Coinbase Exchange public
// ticker endpoint.
type CoinbaseSource struct {
	httpSource
	baseURL string
}

// NewCoinbaseSource creates a CoinbaseSource. baseURL defaults to the public
// API when empty.
func NewCoinbaseSource(baseURL string, requestsPerMinute int) *CoinbaseSource {
	if baseURL == "" {
		baseURL = "https://api.exchange.coinbase.com"
	}
	return &CoinbaseSource{
		httpSource: newHTTPSource(requestsPerMinute),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the source identifier.
func (c *CoinbaseSource) Name() string { return "coinbase" }

// coinbaseTicker is the /products/{id}/ticker response shape.
type coinbaseTicker struct {
	Price string `json:"price"`
	Time  string `json:"time"`
}

// FetchPrice returns the latest traded price for e.g. ("BTC", "USD").
func (c *CoinbaseSource) FetchPrice(ctx context.Context, assetID, currency string) (float64, error) {
	product := strings.ToUpper(assetID) + "-" + strings.ToUpper(currency)

	u := fmt.Sprintf("%s/products/%s/ticker", c.baseURL, url.PathEscape(product))
	body, err := c.doGet(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("coinbase: ticker %s: %w", product, err)
	}

	var ticker coinbaseTicker
	if err := decodeJSON(body, &ticker); err != nil {
		return 0, fmt.Errorf("coinbase: ticker %s: %w", product, err)
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return 0, fmt.Errorf("coinbase: parse price %q: %w", ticker.Price, err)
	}
	f, _ := price.Float64()
	if f <= 0 {
		return 0, fmt.Errorf("coinbase: non-positive price %q for %s", ticker.Price, product)
	}
	return f, nil
}

// Compile-time interface check.
var _ Source = (*CoinbaseSource)(nil)
