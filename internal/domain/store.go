package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PlannerStore persists planner configurations.
type PlannerStore interface {
	Create(ctx context.Context, p Planner) error
	Update(ctx context.Context, p Planner) error
	UpdateStatus(ctx context.Context, id string, status PlannerStatus) error
	GetByID(ctx context.Context, id string) (Planner, error)
	// ListByOwner lists planners newest first; an empty owner lists all.
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Planner, error)
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]Planner, error)
}

// LevelStore persists the ladder rungs of each planner.
type LevelStore interface {
	// ReplaceForPlanner atomically swaps a planner's ladder for the given
	// levels. The previous rungs are removed in the same transaction.
	ReplaceForPlanner(ctx context.Context, plannerID string, levels []Level) error
	ListByPlanner(ctx context.Context, plannerID string) ([]Level, error)
}

// TradeStore persists executed trades per planner.
type TradeStore interface {
	Insert(ctx context.Context, t Trade) error
	InsertBatch(ctx context.Context, trades []Trade) error
	// ListByPlanner returns trades in ascending trade_time order, which is
	// the order the fill engine consumes them in.
	ListByPlanner(ctx context.Context, plannerID string, opts ListOpts) ([]Trade, error)
	Delete(ctx context.Context, plannerID, tradeID string) error
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of planner mutations.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
