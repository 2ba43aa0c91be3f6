package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ladderplan/ladderd/internal/domain"
	"github.com/ladderplan/ladderd/internal/engine"
	"github.com/ladderplan/ladderd/internal/metrics"
)

// LivePrices is the subset of the price service the planner view needs.
type LivePrices interface {
	GetPrice(ctx context.Context, asset, currency string) (float64, time.Time, error)
}

// PlannerService owns planner lifecycle: creation, reconfiguration and the
// derived fill view. Ladders are rebuilt from the configuration on every
// mutation; fill state is recomputed from the trade history on every read.
type PlannerService struct {
	planners domain.PlannerStore
	levels   domain.LevelStore
	trades   domain.TradeStore
	audit    domain.AuditStore
	prices   LivePrices
	bus      domain.SignalBus
	logger   *slog.Logger
}

func NewPlannerService(
	planners domain.PlannerStore,
	levels domain.LevelStore,
	trades domain.TradeStore,
	audit domain.AuditStore,
	prices LivePrices,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PlannerService {
	return &PlannerService{
		planners: planners,
		levels:   levels,
		trades:   trades,
		audit:    audit,
		prices:   prices,
		bus:      bus,
		logger:   logger.With(slog.String("component", "planner_service")),
	}
}

// PlannerInput carries the user-editable planner configuration.
type PlannerInput struct {
	Owner         string  `json:"owner"`
	AssetID       string  `json:"asset_id"`
	QuoteCurrency string  `json:"quote_currency"`
	Side          string  `json:"side"`
	TopPrice      float64 `json:"top_price"`
	Budget        float64 `json:"budget"`
	DepthPct      int     `json:"depth_pct"`
	Growth        float64 `json:"growth"`
	Tolerance     float64 `json:"tolerance"`
	AlertPct      float64 `json:"alert_pct"`
}

func (in *PlannerInput) normalize() error {
	in.AssetID = strings.ToUpper(strings.TrimSpace(in.AssetID))
	in.QuoteCurrency = strings.ToUpper(strings.TrimSpace(in.QuoteCurrency))
	if in.QuoteCurrency == "" {
		in.QuoteCurrency = "USD"
	}
	if in.Side == "" {
		in.Side = string(domain.SideBuy)
	}
	if in.Growth == 0 {
		in.Growth = engine.DefaultGrowth
	}
	switch {
	case in.AssetID == "":
		return fmt.Errorf("planner_service: asset_id is required: %w", domain.ErrInvalidInput)
	case in.Side != string(domain.SideBuy) && in.Side != string(domain.SideSell):
		return fmt.Errorf("planner_service: side must be %q or %q: %w", domain.SideBuy, domain.SideSell, domain.ErrInvalidInput)
	case in.TopPrice <= 0:
		return fmt.Errorf("planner_service: top_price must be positive: %w", domain.ErrInvalidInput)
	case in.Budget <= 0:
		return fmt.Errorf("planner_service: budget must be positive: %w", domain.ErrInvalidInput)
	case !engine.Depth(in.DepthPct).Valid():
		return fmt.Errorf("planner_service: depth_pct must be one of 70, 75, 90: %w", domain.ErrInvalidInput)
	case in.Growth < 1.0:
		return fmt.Errorf("planner_service: growth must be >= 1.0: %w", domain.ErrInvalidInput)
	case in.Tolerance < 0 || in.AlertPct < 0:
		return fmt.Errorf("planner_service: tolerance and alert_pct must be non-negative: %w", domain.ErrInvalidInput)
	}
	return nil
}

// buildLadder runs the ladder construction for the planner's side.
func buildLadder(p domain.Planner) []engine.Level {
	switch p.Side {
	case domain.SideSell:
		return engine.BuildSellLevels(p.TopPrice, p.Budget, engine.Depth(p.DepthPct), p.Growth)
	default:
		return engine.BuildLevels(p.TopPrice, p.Budget, engine.Depth(p.DepthPct), p.Growth)
	}
}

// Create validates the configuration, builds the ladder and persists both.
func (s *PlannerService) Create(ctx context.Context, in PlannerInput) (domain.Planner, error) {
	if err := in.normalize(); err != nil {
		return domain.Planner{}, err
	}

	now := time.Now().UTC()
	p := domain.Planner{
		ID:            uuid.NewString(),
		Owner:         in.Owner,
		AssetID:       in.AssetID,
		QuoteCurrency: in.QuoteCurrency,
		Side:          domain.PlannerSide(in.Side),
		TopPrice:      in.TopPrice,
		Budget:        in.Budget,
		DepthPct:      in.DepthPct,
		Growth:        in.Growth,
		Tolerance:     in.Tolerance,
		AlertPct:      in.AlertPct,
		Status:        domain.PlannerActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ladder := buildLadder(p)
	if len(ladder) == 0 {
		return domain.Planner{}, fmt.Errorf("planner_service: configuration yields no ladder: %w", domain.ErrNoPlan)
	}

	if err := s.planners.Create(ctx, p); err != nil {
		return domain.Planner{}, fmt.Errorf("planner_service: create planner: %w", err)
	}
	if err := s.levels.ReplaceForPlanner(ctx, p.ID, toDomainLevels(p.ID, ladder)); err != nil {
		return domain.Planner{}, fmt.Errorf("planner_service: persist ladder: %w", err)
	}

	s.auditLog(ctx, "planner.created", map[string]any{
		"planner_id": p.ID,
		"asset_id":   p.AssetID,
		"side":       string(p.Side),
		"top_price":  p.TopPrice,
		"budget":     p.Budget,
		"depth_pct":  p.DepthPct,
	})
	s.publishPlannerEvent(ctx, "created", p)

	s.logger.Info("planner created",
		slog.String("planner_id", p.ID),
		slog.String("asset", p.AssetID),
		slog.String("side", string(p.Side)))
	return p, nil
}

// Update reconfigures a planner and rebuilds its ladder. The trade history is
// untouched; the next view simply reconciles it against the new rungs.
func (s *PlannerService) Update(ctx context.Context, id string, in PlannerInput) (domain.Planner, error) {
	if err := in.normalize(); err != nil {
		return domain.Planner{}, err
	}

	p, err := s.planners.GetByID(ctx, id)
	if err != nil {
		return domain.Planner{}, fmt.Errorf("planner_service: load planner: %w", err)
	}

	p.AssetID = in.AssetID
	p.QuoteCurrency = in.QuoteCurrency
	p.Side = domain.PlannerSide(in.Side)
	p.TopPrice = in.TopPrice
	p.Budget = in.Budget
	p.DepthPct = in.DepthPct
	p.Growth = in.Growth
	p.Tolerance = in.Tolerance
	p.AlertPct = in.AlertPct
	p.Status = domain.PlannerActive
	p.UpdatedAt = time.Now().UTC()

	ladder := buildLadder(p)
	if len(ladder) == 0 {
		return domain.Planner{}, fmt.Errorf("planner_service: configuration yields no ladder: %w", domain.ErrNoPlan)
	}

	if err := s.planners.Update(ctx, p); err != nil {
		return domain.Planner{}, fmt.Errorf("planner_service: update planner: %w", err)
	}
	if err := s.levels.ReplaceForPlanner(ctx, p.ID, toDomainLevels(p.ID, ladder)); err != nil {
		return domain.Planner{}, fmt.Errorf("planner_service: rebuild ladder: %w", err)
	}

	s.auditLog(ctx, "planner.updated", map[string]any{
		"planner_id": p.ID,
		"top_price":  p.TopPrice,
		"budget":     p.Budget,
		"depth_pct":  p.DepthPct,
	})
	s.publishPlannerEvent(ctx, "updated", p)
	return p, nil
}

func (s *PlannerService) Get(ctx context.Context, id string) (domain.Planner, error) {
	p, err := s.planners.GetByID(ctx, id)
	if err != nil {
		return domain.Planner{}, fmt.Errorf("planner_service: get planner: %w", err)
	}
	return p, nil
}

func (s *PlannerService) List(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Planner, error) {
	planners, err := s.planners.ListByOwner(ctx, owner, opts)
	if err != nil {
		return nil, fmt.Errorf("planner_service: list planners: %w", err)
	}
	return planners, nil
}

func (s *PlannerService) Delete(ctx context.Context, id string) error {
	if err := s.planners.Delete(ctx, id); err != nil {
		return fmt.Errorf("planner_service: delete planner: %w", err)
	}
	s.auditLog(ctx, "planner.deleted", map[string]any{"planner_id": id})
	return nil
}

// Archive marks a planner archived. Archived planners are skipped by the
// alert loop and eligible for trade archival.
func (s *PlannerService) Archive(ctx context.Context, id string) error {
	if err := s.planners.UpdateStatus(ctx, id, domain.PlannerArchived); err != nil {
		return fmt.Errorf("planner_service: archive planner: %w", err)
	}
	s.auditLog(ctx, "planner.archived", map[string]any{"planner_id": id})
	return nil
}

// PlannerView is a planner with its derived fill state and, when a live
// quote is available, the levels currently inside the tolerance band.
type PlannerView struct {
	Planner    domain.Planner    `json:"planner"`
	Fills      engine.FillResult `json:"fills"`
	LivePrice  float64           `json:"live_price,omitempty"`
	PriceAsOf  time.Time         `json:"price_as_of,omitempty"`
	NearLevels []int             `json:"near_levels,omitempty"`
}

// GetView reconciles the planner's full trade history against its ladder.
// Official fill state uses zero tolerance; the planner's configured tolerance
// only drives the NearLevels highlight against the live price. When every
// level is full the planner's status flips to done.
func (s *PlannerService) GetView(ctx context.Context, id string) (PlannerView, error) {
	p, err := s.planners.GetByID(ctx, id)
	if err != nil {
		return PlannerView{}, fmt.Errorf("planner_service: load planner: %w", err)
	}

	levels, err := s.levels.ListByPlanner(ctx, id)
	if err != nil {
		return PlannerView{}, fmt.Errorf("planner_service: load ladder: %w", err)
	}
	trades, err := s.trades.ListByPlanner(ctx, id, domain.ListOpts{})
	if err != nil {
		return PlannerView{}, fmt.Errorf("planner_service: load trades: %w", err)
	}

	fills := computeFills(p.Side, levels, trades, 0)

	view := PlannerView{Planner: p, Fills: fills}
	if s.prices != nil {
		if live, asOf, perr := s.prices.GetPrice(ctx, p.AssetID, p.QuoteCurrency); perr == nil {
			view.LivePrice = live
			view.PriceAsOf = asOf
			view.NearLevels = nearLevelIndexes(p.Side, fills.Levels, live, p.Tolerance)
		} else {
			s.logger.Warn("live price unavailable for view",
				slog.String("planner_id", id),
				slog.String("error", perr.Error()))
		}
	}

	if fills.FullyAllocated && p.Status == domain.PlannerActive {
		if err := s.planners.UpdateStatus(ctx, id, domain.PlannerDone); err != nil {
			s.logger.Warn("failed to mark planner done", slog.String("planner_id", id), slog.String("error", err.Error()))
		} else {
			view.Planner.Status = domain.PlannerDone
			s.auditLog(ctx, "planner.done", map[string]any{"planner_id": id})
			s.publishPlannerEvent(ctx, "done", view.Planner)
		}
	}
	return view, nil
}

// computeFills maps store rows into engine inputs and runs the matcher for
// the planner's side.
func computeFills(side domain.PlannerSide, levels []domain.Level, trades []domain.Trade, tolerance float64) engine.FillResult {
	el := make([]engine.Level, 0, len(levels))
	for _, l := range levels {
		el = append(el, engine.Level{Index: l.Index, TargetPrice: l.TargetPrice, Capacity: l.Capacity})
	}
	et := make([]engine.Trade, 0, len(trades))
	for _, t := range trades {
		et = append(et, engine.Trade{Price: t.Price, Quantity: t.Quantity, Fee: t.Fee, TradeTime: t.TradeTime})
	}
	metrics.FillComputationsTotal.WithLabelValues(string(side)).Inc()
	if side == domain.SideSell {
		return engine.ComputeSellFills(el, et, tolerance)
	}
	return engine.ComputeBuyFills(el, et, tolerance)
}

// nearLevelIndexes returns the indexes of unfilled levels whose target the
// live price is currently eligible for under the tolerance band.
func nearLevelIndexes(side domain.PlannerSide, fills []engine.LevelFill, live, tolerance float64) []int {
	var near []int
	for _, lf := range fills {
		if lf.FillPct >= 1 {
			continue
		}
		eligible := false
		if side == domain.SideSell {
			eligible = live >= lf.TargetPrice*(1-tolerance)
		} else {
			eligible = live <= lf.TargetPrice*(1+tolerance)
		}
		if eligible {
			near = append(near, lf.Index)
		}
	}
	return near
}

func toDomainLevels(plannerID string, ladder []engine.Level) []domain.Level {
	out := make([]domain.Level, 0, len(ladder))
	for _, l := range ladder {
		out = append(out, domain.Level{
			PlannerID:   plannerID,
			Index:       l.Index,
			TargetPrice: l.TargetPrice,
			Capacity:    l.Capacity,
		})
	}
	return out
}

func (s *PlannerService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.Warn("audit log failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}

func (s *PlannerService) publishPlannerEvent(ctx context.Context, kind string, p domain.Planner) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"event":      kind,
		"planner_id": p.ID,
		"asset_id":   p.AssetID,
		"status":     string(p.Status),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, "planners", payload); err != nil {
		s.logger.Warn("failed to publish planner event", slog.String("error", err.Error()))
	}
}
