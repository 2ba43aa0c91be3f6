package pricing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// KrakenSource fetches spot prices from the Kraken public ticker endpoint.
type KrakenSource struct {
	httpSource
	baseURL string
}

// NewKrakenSource creates a KrakenSource. baseURL defaults to the public API
// when empty.
func NewKrakenSource(baseURL string, requestsPerMinute int) *KrakenSource {
	if baseURL == "" {
		baseURL = "https://api.kraken.com"
	}
	return &KrakenSource{
		httpSource: newHTTPSource(requestsPerMinute),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the source identifier.
func (k *KrakenSource) Name() string { return "kraken" }

// krakenTicker is the /0/public/Ticker response shape. The result maps the
// (Kraken-normalized) pair name to ticker data; "c" is [last price, volume].
type krakenTicker struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Close []string `json:"c"`
	} `json:"result"`
}

// FetchPrice returns the latest traded price for e.g. ("BTC", "USD").
// Kraken calls Bitcoin XBT; other assets pass through unchanged.
func (k *KrakenSource) FetchPrice(ctx context.Context, assetID, currency string) (float64, error) {
	asset := strings.ToUpper(assetID)
	if asset == "BTC" {
		asset = "XBT"
	}
	pair := asset + strings.ToUpper(currency)

	u := fmt.Sprintf("%s/0/public/Ticker?pair=%s", k.baseURL, url.QueryEscape(pair))
	body, err := k.doGet(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("kraken: ticker %s: %w", pair, err)
	}

	var ticker krakenTicker
	if err := decodeJSON(body, &ticker); err != nil {
		return 0, fmt.Errorf("kraken: ticker %s: %w", pair, err)
	}
	if len(ticker.Error) > 0 {
		return 0, fmt.Errorf("kraken: ticker %s: api error: %s", pair, strings.Join(ticker.Error, "; "))
	}

	// Kraken translates pair names (e.g. XBTUSD becomes XXBTZUSD), so take
	// the first entry rather than looking the request pair up by name.
	for _, data := range ticker.Result {
		if len(data.Close) == 0 {
			continue
		}
		price, err := decimal.NewFromString(data.Close[0])
		if err != nil {
			return 0, fmt.Errorf("kraken: parse price %q: %w", data.Close[0], err)
		}
		f, _ := price.Float64()
		if f <= 0 {
			return 0, fmt.Errorf("kraken: non-positive price %q for %s", data.Close[0], pair)
		}
		return f, nil
	}
	return 0, fmt.Errorf("kraken: ticker %s: empty result", pair)
}

// Compile-time interface check.
var _ Source = (*KrakenSource)(nil)
