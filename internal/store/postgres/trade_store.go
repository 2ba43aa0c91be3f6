package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ladderplan/ladderd/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, planner_id, price, quantity, fee, trade_time, source, note, created_at`

const tradeInsertQuery = `
	INSERT INTO trades (id, planner_id, price, quantity, fee, trade_time, source, note, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (planner_id, price, quantity, trade_time) DO NOTHING`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.ID, &t.PlannerID, &t.Price, &t.Quantity, &t.Fee,
			&t.TradeTime, &t.Source, &t.Note, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert records a single trade. A row identical in (planner, price,
// quantity, trade_time) to an existing one is silently skipped, which makes
// repeated CSV imports idempotent.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	_, err := s.pool.Exec(ctx, tradeInsertQuery,
		t.ID, t.PlannerID, t.Price, t.Quantity, t.Fee,
		t.TradeTime, t.Source, t.Note, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade: %w", err)
	}
	return nil
}

// InsertBatch inserts multiple trades efficiently using pgx Batch, with the
// same duplicate-skipping behavior as Insert.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(tradeInsertQuery,
			t.ID, t.PlannerID, t.Price, t.Quantity, t.Fee,
			t.TradeTime, t.Source, t.Note, t.CreatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListByPlanner returns a planner's trades in ascending trade_time order —
// the chronological order the fill engine consumes. Ties preserve insertion
// order via created_at.
func (s *TradeStore) ListByPlanner(ctx context.Context, plannerID string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE planner_id = $1`
	args := []any{plannerID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND trade_time >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND trade_time <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY trade_time ASC, created_at ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for %s: %w", plannerID, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades for %s: %w", plannerID, err)
	}
	return trades, nil
}

// Delete removes one trade from a planner's history.
func (s *TradeStore) Delete(ctx context.Context, plannerID, tradeID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM trades WHERE planner_id = $1 AND id = $2`, plannerID, tradeID)
	if err != nil {
		return fmt.Errorf("postgres: delete trade %s: %w", tradeID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListBefore returns all trades executed strictly before the given time (for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE trade_time < $1 ORDER BY trade_time ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades executed before the given time. Returns the number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE trade_time < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
