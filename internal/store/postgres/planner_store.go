package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ladderplan/ladderd/internal/domain"
)

// PlannerStore implements domain.PlannerStore using PostgreSQL.
type PlannerStore struct {
	pool *pgxpool.Pool
}

// NewPlannerStore creates a new PlannerStore backed by the given connection pool.
func NewPlannerStore(pool *pgxpool.Pool) *PlannerStore {
	return &PlannerStore{pool: pool}
}

const plannerSelectCols = `id, owner, asset_id, quote_currency, side, top_price,
	budget, depth_pct, growth, tolerance, alert_pct, status, created_at, updated_at`

func scanPlanner(row pgx.Row) (domain.Planner, error) {
	var p domain.Planner
	err := row.Scan(
		&p.ID, &p.Owner, &p.AssetID, &p.QuoteCurrency, &p.Side, &p.TopPrice,
		&p.Budget, &p.DepthPct, &p.Growth, &p.Tolerance, &p.AlertPct,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// Create inserts a new planner row.
func (s *PlannerStore) Create(ctx context.Context, p domain.Planner) error {
	const query = `
		INSERT INTO planners (
			id, owner, asset_id, quote_currency, side, top_price,
			budget, depth_pct, growth, tolerance, alert_pct, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14
		)`
	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Owner, p.AssetID, p.QuoteCurrency, p.Side, p.TopPrice,
		p.Budget, p.DepthPct, p.Growth, p.Tolerance, p.AlertPct, p.Status,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create planner: %w", err)
	}
	return nil
}

// Update overwrites the planner's configuration fields.
func (s *PlannerStore) Update(ctx context.Context, p domain.Planner) error {
	const query = `
		UPDATE planners SET
			asset_id = $2, quote_currency = $3, side = $4, top_price = $5,
			budget = $6, depth_pct = $7, growth = $8, tolerance = $9,
			alert_pct = $10, status = $11, updated_at = $12
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.AssetID, p.QuoteCurrency, p.Side, p.TopPrice,
		p.Budget, p.DepthPct, p.Growth, p.Tolerance,
		p.AlertPct, p.Status, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update planner %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus changes only the planner's lifecycle status.
func (s *PlannerStore) UpdateStatus(ctx context.Context, id string, status domain.PlannerStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE planners SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: update planner status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a single planner by its ID.
func (s *PlannerStore) GetByID(ctx context.Context, id string) (domain.Planner, error) {
	query := `SELECT ` + plannerSelectCols + ` FROM planners WHERE id = $1`
	p, err := scanPlanner(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Planner{}, domain.ErrNotFound
		}
		return domain.Planner{}, fmt.Errorf("postgres: get planner %s: %w", id, err)
	}
	return p, nil
}

// ListByOwner returns planners with pagination, newest first. An empty
// owner means no owner filter and lists every planner.
func (s *PlannerStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Planner, error) {
	query := `SELECT ` + plannerSelectCols + ` FROM planners`
	var args []any

	if owner != "" {
		args = append(args, owner)
		query += fmt.Sprintf(" WHERE owner = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list planners by owner: %w", err)
	}
	defer rows.Close()

	var planners []domain.Planner
	for rows.Next() {
		p, err := scanPlanner(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan planner: %w", err)
		}
		planners = append(planners, p)
	}
	return planners, rows.Err()
}

// ListActive returns every planner in 'active' status, for the alert checker.
func (s *PlannerStore) ListActive(ctx context.Context) ([]domain.Planner, error) {
	query := `SELECT ` + plannerSelectCols + ` FROM planners WHERE status = $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, domain.PlannerActive)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active planners: %w", err)
	}
	defer rows.Close()

	var planners []domain.Planner
	for rows.Next() {
		p, err := scanPlanner(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan planner: %w", err)
		}
		planners = append(planners, p)
	}
	return planners, rows.Err()
}

// Delete removes a planner; level and trade rows cascade.
func (s *PlannerStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM planners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete planner %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.PlannerStore = (*PlannerStore)(nil)
