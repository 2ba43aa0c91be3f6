// Package domain defines the core entities and the store/cache interfaces of
// the ladder planner. Entities are plain value structs; all persistence and
// caching happens behind the interfaces in store.go and cache.go.
package domain

import "time"

// PlannerSide says which direction a ladder trades.
type PlannerSide string

const (
	SideBuy  PlannerSide = "buy"  // accumulation: levels below the top price
	SideSell PlannerSide = "sell" // distribution: levels above the top price
)

// PlannerStatus is the lifecycle state of a planner.
type PlannerStatus string

const (
	PlannerActive   PlannerStatus = "active"
	PlannerDone     PlannerStatus = "done" // every level fully allocated
	PlannerArchived PlannerStatus = "archived"
)

// Planner is a user-defined ladder of target price levels for one asset.
// The ladder itself (level rows) is derived from TopPrice, Budget, DepthPct
// and Growth whenever the planner is created or reconfigured; fill state is
// never stored, it is recomputed from the trade history on every read.
type Planner struct {
	ID            string
	Owner         string
	AssetID       string // e.g. "BTC"
	QuoteCurrency string // e.g. "USD"
	Side          PlannerSide
	TopPrice      float64
	Budget        float64 // USD for buy ladders, token quantity for sell ladders
	DepthPct      int     // maximum cumulative drawdown/rise, one of 70, 75, 90
	Growth        float64 // geometric capacity weighting between levels, >= 1.0
	Tolerance     float64 // price slippage band for live fill highlighting
	AlertPct      float64 // proximity (fraction) that triggers a near-level alert
	Status        PlannerStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AlertEvent is published on the signal bus when a live price comes within a
// planner's alert proximity of an unfilled level.
type AlertEvent struct {
	PlannerID   string    `json:"planner_id"`
	AssetID     string    `json:"asset_id"`
	LevelIndex  int       `json:"level_index"`
	TargetPrice float64   `json:"target_price"`
	LivePrice   float64   `json:"live_price"`
	FillPct     float64   `json:"fill_pct"`
	At          time.Time `json:"at"`
}
