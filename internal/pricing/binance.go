package pricing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// BinanceSource fetches spot prices from the Binance public ticker endpoint.
type BinanceSource struct {
	httpSource
	baseURL string
}

// NewBinanceSource creates a BinanceSource. baseURL defaults to the public
// API when empty.
func NewBinanceSource(baseURL string, requestsPerMinute int) *BinanceSource {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceSource{
		httpSource: newHTTPSource(requestsPerMinute),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the source identifier.
func (b *BinanceSource) Name() string { return "binance" }

// binanceTicker is the /api/v3/ticker/price response shape. Binance reports
// the price as a decimal string.
type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// FetchPrice returns the latest traded price for e.g. ("BTC", "USD").
// USD maps to the USDT book, which is Binance's deepest dollar market.
func (b *BinanceSource) FetchPrice(ctx context.Context, assetID, currency string) (float64, error) {
	quote := strings.ToUpper(currency)
	if quote == "USD" {
		quote = "USDT"
	}
	symbol := strings.ToUpper(assetID) + quote

	u := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", b.baseURL, url.QueryEscape(symbol))
	body, err := b.doGet(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("binance: ticker %s: %w", symbol, err)
	}

	var ticker binanceTicker
	if err := decodeJSON(body, &ticker); err != nil {
		return 0, fmt.Errorf("binance: ticker %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return 0, fmt.Errorf("binance: parse price %q: %w", ticker.Price, err)
	}
	f, _ := price.Float64()
	if f <= 0 {
		return 0, fmt.Errorf("binance: non-positive price %q for %s", ticker.Price, symbol)
	}
	return f, nil
}

// Compile-time interface check.
var _ Source = (*BinanceSource)(nil)
