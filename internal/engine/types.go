// Package engine implements the planner fill engine: ladder construction and
// the deterministic matching of executed trades against buy-side and
// sell-side ladders. Every function here is pure — no I/O, no shared state,
// no clock — so results are reproducible from the inputs alone and safe to
// compute concurrently across planners.
//
// Callers are expected to normalize inputs at the boundary: nullable or
// missing numeric fields become zero before they reach this package.
package engine

import "time"

// Depth is the maximum cumulative drawdown (buy) or rise (sell) a ladder
// spans, as a percentage of the top-of-cycle price. Only three depths are
// permitted.
type Depth int

const (
	Depth70 Depth = 70
	Depth75 Depth = 75
	Depth90 Depth = 90
)

// Valid reports whether d is one of the permitted ladder depths.
func (d Depth) Valid() bool {
	switch d {
	case Depth70, Depth75, Depth90:
		return true
	}
	return false
}

// LevelCount is the fixed number of rungs in every ladder.
const LevelCount = 8

// DefaultGrowth is the capacity weighting applied when a planner does not
// specify one: each deeper level receives 1.25x the share of its neighbor.
const DefaultGrowth = 1.25

// Level is one planned ladder rung. Capacity is USD notional for buy ladders
// and token quantity for sell ladders.
type Level struct {
	Index       int // 1-based, shallowest = 1
	TargetPrice float64
	Capacity    float64
}

// Trade is one executed fill, already normalized: positive price and
// quantity, non-negative fee. Fee is informational only; it never reduces
// the filled notional or quantity.
type Trade struct {
	Price     float64
	Quantity  float64
	Fee       float64
	TradeTime time.Time
}

// Notional returns the trade's quote-currency value.
func (t Trade) Notional() float64 {
	return t.Price * t.Quantity
}

// LevelFill is the derived fill state of a single level.
type LevelFill struct {
	Index       int     `json:"index"`
	TargetPrice float64 `json:"target_price"`
	Capacity    float64 `json:"capacity"`
	Allocated   float64 `json:"allocated"`
	FillPct     float64 `json:"fill_pct"` // Allocated/Capacity clamped to [0,1]; 0 when Capacity is 0
}

// FillResult is the outcome of matching a trade history against a ladder.
// It is recomputed on every call and never persisted.
type FillResult struct {
	Levels         []LevelFill `json:"levels"`
	AllocatedTotal float64     `json:"allocated_total"`
	OffPlan        float64     `json:"off_plan"`         // volume no level could absorb (USD for buy, tokens for sell)
	OnPlanAvgCost  float64     `json:"on_plan_avg_cost"` // volume-weighted price of exactly the absorbed volume
	FullyAllocated bool        `json:"fully_allocated"`
}

// capacityEpsilon is the slack below which remaining capacity counts as zero.
// It absorbs float64 rounding from repeated add/subtract cycles.
const capacityEpsilon = 1e-9

// fillPct returns allocated/capacity clamped to [0,1], short-circuiting to 0
// for zero-capacity levels so the result never becomes NaN or Inf.
func fillPct(allocated, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	pct := allocated / capacity
	if pct < 0 {
		return 0
	}
	if pct > 1 {
		return 1
	}
	return pct
}
