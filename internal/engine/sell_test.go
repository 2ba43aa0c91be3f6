package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sellLadder mirrors the buy reference fixture: two sell levels at 50 and 60,
// each planning to distribute 10 tokens.
func sellLadder() []Level {
	return []Level{
		{Index: 1, TargetPrice: 50, Capacity: 10},
		{Index: 2, TargetPrice: 60, Capacity: 10},
	}
}

func sellTrade(price, qty float64) Trade {
	return Trade{Price: price, Quantity: qty, TradeTime: time.Unix(1700000000, 0)}
}

func TestComputeSellFillsNearestLevelOnly(t *testing.T) {
	// A sell at the near rung's price touches only that rung.
	res := ComputeSellFills(sellLadder(), []Trade{sellTrade(50, 15)}, 0)

	require.Len(t, res.Levels, 2)
	assert.InDelta(t, 10, res.Levels[0].Allocated, 1e-9)
	assert.InDelta(t, 1.0, res.Levels[0].FillPct, 1e-9)
	assert.InDelta(t, 0, res.Levels[1].Allocated, 1e-9)
	assert.InDelta(t, 5, res.OffPlan, 1e-9)
	assert.InDelta(t, 50, res.OnPlanAvgCost, 1e-9)
}

func TestComputeSellFillsMirrorSaturation(t *testing.T) {
	// A sell at the far rung's price saturates the near rung first, then its
	// own, leaving nothing off-plan — the mirror of the buy backfill case.
	res := ComputeSellFills(sellLadder(), []Trade{sellTrade(60, 18)}, 0)

	require.Len(t, res.Levels, 2)
	assert.InDelta(t, 10, res.Levels[0].Allocated, 1e-9)
	assert.InDelta(t, 1.0, res.Levels[0].FillPct, 1e-9)
	assert.InDelta(t, 8, res.Levels[1].Allocated, 1e-9)
	assert.InDelta(t, 0.8, res.Levels[1].FillPct, 1e-9)
	assert.InDelta(t, 0, res.OffPlan, 1e-9)
	assert.InDelta(t, 18, res.AllocatedTotal, 1e-9)
	assert.False(t, res.FullyAllocated)
}

func TestComputeSellFillsStrictBelowNeverCounts(t *testing.T) {
	res := ComputeSellFills(sellLadder(), []Trade{sellTrade(49, 5)}, 0)
	assert.Zero(t, res.AllocatedTotal)
	assert.InDelta(t, 5, res.OffPlan, 1e-9)
}

func TestComputeSellFillsToleranceAdmitsNearMiss(t *testing.T) {
	// 49 is within 3% below the 50 rung but far from the 60 rung.
	res := ComputeSellFills(sellLadder(), []Trade{sellTrade(49, 5)}, 0.03)
	assert.InDelta(t, 5, res.Levels[0].Allocated, 1e-9)
	assert.InDelta(t, 0, res.Levels[1].Allocated, 1e-9)
}

func TestComputeSellFillsConservation(t *testing.T) {
	trades := []Trade{
		sellTrade(48, 2),
		sellTrade(52, 6),
		sellTrade(61, 9),
		sellTrade(55, 4),
	}
	var totalQty float64
	for _, tr := range trades {
		totalQty += tr.Quantity
	}

	for _, tol := range []float64{0, 0.01, 0.03, 0.1} {
		res := ComputeSellFills(sellLadder(), trades, tol)
		assert.InDelta(t, totalQty, res.AllocatedTotal+res.OffPlan, 1e-9)
	}
}

func TestComputeSellFillsIdempotent(t *testing.T) {
	trades := []Trade{sellTrade(52, 6), sellTrade(61, 9)}
	a := ComputeSellFills(sellLadder(), trades, 0.01)
	b := ComputeSellFills(sellLadder(), trades, 0.01)
	assert.Equal(t, a, b)
}

func TestComputeSellFillsToleranceMonotonicity(t *testing.T) {
	trades := []Trade{sellTrade(49, 3), sellTrade(58, 7), sellTrade(59.5, 5)}
	tolerances := []float64{0, 0.01, 0.03, 0.05, 0.1}

	prev := ComputeSellFills(sellLadder(), trades, tolerances[0])
	for _, tol := range tolerances[1:] {
		cur := ComputeSellFills(sellLadder(), trades, tol)
		for i := range cur.Levels {
			assert.GreaterOrEqual(t, cur.Levels[i].FillPct+1e-12, prev.Levels[i].FillPct)
		}
		prev = cur
	}
}

func TestComputeSellFillsOnPlanAvgCost(t *testing.T) {
	// 10 tokens absorbed at 50 and 10 at 60 saturate the ladder exactly;
	// the average weights all 20 absorbed tokens.
	trades := []Trade{sellTrade(50, 10), sellTrade(60, 10)}
	res := ComputeSellFills(sellLadder(), trades, 0)

	want := (10*50.0 + 10*60.0) / 20.0
	assert.InDelta(t, want, res.OnPlanAvgCost, 1e-9)
	assert.True(t, res.FullyAllocated)
}

func TestComputeSellFillsEmptyInputs(t *testing.T) {
	empty := ComputeSellFills(nil, nil, 0)
	assert.Empty(t, empty.Levels)
	assert.Zero(t, empty.OffPlan)
	assert.False(t, empty.FullyAllocated)

	noTrades := ComputeSellFills(sellLadder(), nil, 0)
	require.Len(t, noTrades.Levels, 2)
	assert.Zero(t, noTrades.AllocatedTotal)
}

func TestComputeSellFillsUnsortedLevelInput(t *testing.T) {
	shuffled := []Level{
		{Index: 2, TargetPrice: 60, Capacity: 10},
		{Index: 1, TargetPrice: 50, Capacity: 10},
	}
	res := ComputeSellFills(shuffled, []Trade{sellTrade(60, 18)}, 0)

	require.Len(t, res.Levels, 2)
	assert.Equal(t, 1, res.Levels[0].Index, "output is near to far regardless of input order")
	assert.InDelta(t, 10, res.Levels[0].Allocated, 1e-9)
	assert.InDelta(t, 8, res.Levels[1].Allocated, 1e-9)
}

func TestComputeSellFillsBuiltLadderEndToEnd(t *testing.T) {
	levels := BuildSellLevels(100, 20, Depth70, DefaultGrowth)
	require.Len(t, levels, LevelCount)

	ceil := levels[LevelCount-1].TargetPrice
	res := ComputeSellFills(levels, []Trade{sellTrade(ceil, 25)}, 0)

	for _, lf := range res.Levels {
		assert.InDelta(t, 1.0, lf.FillPct, 1e-9)
	}
	assert.InDelta(t, 20, res.AllocatedTotal, 1e-9)
	assert.InDelta(t, 5, res.OffPlan, 1e-9)
	assert.True(t, res.FullyAllocated)
}
