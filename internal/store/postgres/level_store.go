package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ladderplan/ladderd/internal/domain"
)

// LevelStore implements domain.LevelStore using PostgreSQL.
type LevelStore struct {
	pool *pgxpool.Pool
}

// NewLevelStore creates a new LevelStore backed by the given connection pool.
func NewLevelStore(pool *pgxpool.Pool) *LevelStore {
	return &LevelStore{pool: pool}
}

// ReplaceForPlanner swaps a planner's ladder atomically: the old rungs are
// deleted and the new ones batch-inserted in a single transaction, so a
// reader never observes a half-built ladder.
func (s *LevelStore) ReplaceForPlanner(ctx context.Context, plannerID string, levels []domain.Level) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin replace levels: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM levels WHERE planner_id = $1`, plannerID); err != nil {
		return fmt.Errorf("postgres: delete levels for %s: %w", plannerID, err)
	}

	if len(levels) > 0 {
		batch := &pgx.Batch{}
		const query = `
			INSERT INTO levels (planner_id, idx, target_price, capacity)
			VALUES ($1, $2, $3, $4)`
		for _, lv := range levels {
			batch.Queue(query, plannerID, lv.Index, lv.TargetPrice, lv.Capacity)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range levels {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: insert level batch item %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close level batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit replace levels: %w", err)
	}
	return nil
}

// ListByPlanner returns a planner's ladder ordered shallowest first.
func (s *LevelStore) ListByPlanner(ctx context.Context, plannerID string) ([]domain.Level, error) {
	const query = `
		SELECT planner_id, idx, target_price, capacity
		FROM levels WHERE planner_id = $1 ORDER BY idx ASC`
	rows, err := s.pool.Query(ctx, query, plannerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list levels for %s: %w", plannerID, err)
	}
	defer rows.Close()

	var levels []domain.Level
	for rows.Next() {
		var lv domain.Level
		if err := rows.Scan(&lv.PlannerID, &lv.Index, &lv.TargetPrice, &lv.Capacity); err != nil {
			return nil, fmt.Errorf("postgres: scan level: %w", err)
		}
		levels = append(levels, lv)
	}
	return levels, rows.Err()
}

// Compile-time interface check.
var _ domain.LevelStore = (*LevelStore)(nil)
