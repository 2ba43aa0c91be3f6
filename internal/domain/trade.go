package domain

import "time"

// TradeSource records how a trade entered the system.
type TradeSource string

const (
	TradeManual    TradeSource = "manual"
	TradeCSVImport TradeSource = "csv_import"
)

// Trade is one executed fill recorded against a planner. Trades are
// append-only facts: editing the history means deleting or adding rows, which
// simply changes the input of the next fill recomputation. Fee is denominated
// in the planner's quote currency and does not reduce the filled notional or
// quantity in the matching engine.
type Trade struct {
	ID        string
	PlannerID string
	Price     float64
	Quantity  float64
	Fee       float64
	TradeTime time.Time
	Source    TradeSource
	Note      string
	CreatedAt time.Time
}

// Notional returns the trade's quote-currency value.
func (t Trade) Notional() float64 {
	return t.Price * t.Quantity
}
