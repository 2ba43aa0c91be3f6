package pricing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource returns a fixed price or error.
type stubSource struct {
	name  string
	price float64
	err   error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) FetchPrice(ctx context.Context, assetID, currency string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsensusMedianOddCount(t *testing.T) {
	c := NewConsensus([]Source{
		stubSource{name: "a", price: 100},
		stubSource{name: "b", price: 104},
		stubSource{name: "c", price: 90},
	}, 2, discardLogger())

	price, err := c.Price(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 100, price, 1e-9)
}

func TestConsensusMedianEvenCount(t *testing.T) {
	c := NewConsensus([]Source{
		stubSource{name: "a", price: 100},
		stubSource{name: "b", price: 102},
	}, 2, discardLogger())

	price, err := c.Price(context.Background(), "ETH", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 101, price, 1e-9)
}

func TestConsensusToleratesFailuresAboveQuorum(t *testing.T) {
	c := NewConsensus([]Source{
		stubSource{name: "a", price: 100},
		stubSource{name: "b", err: errors.New("boom")},
		stubSource{name: "c", price: 102},
	}, 2, discardLogger())

	price, err := c.Price(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 101, price, 1e-9)
}

func TestConsensusQuorumNotMet(t *testing.T) {
	c := NewConsensus([]Source{
		stubSource{name: "a", price: 100},
		stubSource{name: "b", err: errors.New("down")},
		stubSource{name: "c", err: errors.New("down")},
	}, 2, discardLogger())

	_, err := c.Price(context.Background(), "BTC", "USD")
	assert.Error(t, err)
}

func TestConsensusNoSources(t *testing.T) {
	c := NewConsensus(nil, 2, discardLogger())
	_, err := c.Price(context.Background(), "BTC", "USD")
	assert.Error(t, err)
}

func TestConsensusQuorumClamped(t *testing.T) {
	// Quorum above the source count clamps down so a single-source setup
	// still works.
	c := NewConsensus([]Source{stubSource{name: "a", price: 50}}, 3, discardLogger())

	price, err := c.Price(context.Background(), "SOL", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 50, price, 1e-9)
}

func TestMedianSingle(t *testing.T) {
	assert.InDelta(t, 42.0, median([]float64{42}), 1e-9)
}
