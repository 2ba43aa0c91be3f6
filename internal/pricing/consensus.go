package pricing

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ladderplan/ladderd/internal/domain"
	"github.com/ladderplan/ladderd/internal/metrics"
)

// Consensus queries every configured source concurrently and settles on the
// median of the successful answers. It is a pure fan-out/aggregate: no
// caching happens here (see PriceService).
type Consensus struct {
	sources []Source
	quorum  int
	logger  *slog.Logger
}

// NewConsensus creates a Consensus over the given sources. quorum is the
// minimum number of successful answers required; it is clamped to
// [1, len(sources)].
func NewConsensus(sources []Source, quorum int, logger *slog.Logger) *Consensus {
	if quorum < 1 {
		quorum = 1
	}
	if quorum > len(sources) && len(sources) > 0 {
		quorum = len(sources)
	}
	return &Consensus{
		sources: sources,
		quorum:  quorum,
		logger:  logger.With(slog.String("component", "price_consensus")),
	}
}

// Price returns the consensus price for an asset/currency pair. Individual
// source failures are logged and tolerated as long as the quorum is met;
// otherwise domain.ErrNoConsensus is returned.
func (c *Consensus) Price(ctx context.Context, assetID, currency string) (float64, error) {
	if len(c.sources) == 0 {
		return 0, domain.ErrNoConsensus
	}

	var (
		mu     sync.Mutex
		quotes []float64
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range c.sources {
		g.Go(func() error {
			price, err := src.FetchPrice(ctx, assetID, currency)
			if err != nil {
				c.logger.WarnContext(ctx, "price source failed",
					slog.String("source", src.Name()),
					slog.String("asset_id", assetID),
					slog.String("currency", currency),
					slog.String("error", err.Error()),
				)
				return nil // a single source failure must not cancel the others
			}
			mu.Lock()
			quotes = append(quotes, price)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(quotes) < c.quorum {
		metrics.ConsensusFailuresTotal.Inc()
		return 0, domain.ErrNoConsensus
	}
	return median(quotes), nil
}

// median returns the middle value of quotes (average of the two middle
// values for even counts). quotes must be non-empty; it is sorted in place.
func median(quotes []float64) float64 {
	sort.Float64s(quotes)
	n := len(quotes)
	if n%2 == 1 {
		return quotes[n/2]
	}
	return (quotes[n/2-1] + quotes[n/2]) / 2
}
