package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ladderplan/ladderd/internal/domain"
	"github.com/ladderplan/ladderd/internal/engine"
	"github.com/ladderplan/ladderd/internal/metrics"
	"github.com/ladderplan/ladderd/internal/notify"
)

// AlertService watches every active planner: on each tick it fetches the
// live price, reconciles the trade history and raises a notification when
// the price comes within a planner's alert proximity of an unfilled level.
// A distributed lock per (planner, level) with the cooldown as TTL keeps
// repeated ticks from re-alerting the same rung.
type AlertService struct {
	planners domain.PlannerStore
	levels   domain.LevelStore
	trades   domain.TradeStore
	prices   LivePrices
	locks    domain.LockManager
	bus      domain.SignalBus
	notifier *notify.Notifier
	interval time.Duration
	cooldown time.Duration
	logger   *slog.Logger
}

func NewAlertService(
	planners domain.PlannerStore,
	levels domain.LevelStore,
	trades domain.TradeStore,
	prices LivePrices,
	locks domain.LockManager,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	interval, cooldown time.Duration,
	logger *slog.Logger,
) *AlertService {
	if interval <= 0 {
		interval = time.Minute
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}
	return &AlertService{
		planners: planners,
		levels:   levels,
		trades:   trades,
		prices:   prices,
		locks:    locks,
		bus:      bus,
		notifier: notifier,
		interval: interval,
		cooldown: cooldown,
		logger:   logger.With(slog.String("component", "alert_service")),
	}
}

// Run ticks until the context is cancelled. Call in a goroutine.
func (a *AlertService) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.checkPlanners(ctx); err != nil {
				a.logger.ErrorContext(ctx, "alert sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (a *AlertService) checkPlanners(ctx context.Context) error {
	active, err := a.planners.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("alert_service: list active planners: %w", err)
	}
	for _, p := range active {
		if err := a.checkPlanner(ctx, p); err != nil {
			a.logger.DebugContext(ctx, "planner check failed",
				slog.String("planner_id", p.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (a *AlertService) checkPlanner(ctx context.Context, p domain.Planner) error {
	live, _, err := a.prices.GetPrice(ctx, p.AssetID, p.QuoteCurrency)
	if err != nil {
		return fmt.Errorf("live price: %w", err)
	}

	levels, err := a.levels.ListByPlanner(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load ladder: %w", err)
	}
	trades, err := a.trades.ListByPlanner(ctx, p.ID, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}

	fills := computeFills(p.Side, levels, trades, 0)
	if fills.FullyAllocated {
		if err := a.planners.UpdateStatus(ctx, p.ID, domain.PlannerDone); err != nil {
			return fmt.Errorf("mark done: %w", err)
		}
		a.logger.InfoContext(ctx, "planner completed",
			slog.String("planner_id", p.ID),
			slog.String("asset", p.AssetID))
		a.notify(ctx, "planner_done",
			fmt.Sprintf("Ladder complete: %s", p.AssetID),
			fmt.Sprintf("Planner %s has every level fully allocated (avg cost %.2f).", p.ID, fills.OnPlanAvgCost))
		return nil
	}

	for _, lf := range proximityHits(p, fills.Levels, live) {
		key := fmt.Sprintf("alert:%s:%d", p.ID, lf.Index)
		unlock, err := a.locks.Acquire(ctx, key, a.cooldown)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				continue // still cooling down
			}
			return fmt.Errorf("acquire cooldown lock: %w", err)
		}
		// The lock's expiry IS the cooldown; never release it early.
		_ = unlock

		evt := domain.AlertEvent{
			PlannerID:   p.ID,
			AssetID:     p.AssetID,
			LevelIndex:  lf.Index,
			TargetPrice: lf.TargetPrice,
			LivePrice:   live,
			FillPct:     lf.FillPct,
			At:          time.Now().UTC(),
		}
		metrics.AlertsFiredTotal.Inc()
		a.publishAlert(ctx, evt)
		a.notify(ctx, "level_near",
			fmt.Sprintf("%s near level %d", p.AssetID, lf.Index),
			fmt.Sprintf("Price %.2f is within %.1f%% of level %d target %.2f (%.0f%% filled).",
				live, p.AlertPct*100, lf.Index, lf.TargetPrice, lf.FillPct*100))
		a.logger.InfoContext(ctx, "level proximity alert",
			slog.String("planner_id", p.ID),
			slog.Int("level", lf.Index),
			slog.Float64("live", live),
			slog.Float64("target", lf.TargetPrice))
	}
	return nil
}

// proximityHits returns the unfilled levels whose target the live price is
// within the planner's alert proximity of, on the correct side.
func proximityHits(p domain.Planner, fills []engine.LevelFill, live float64) []engine.LevelFill {
	if p.AlertPct <= 0 || live <= 0 {
		return nil
	}
	var hits []engine.LevelFill
	for _, lf := range fills {
		if lf.FillPct >= 1 || lf.TargetPrice <= 0 {
			continue
		}
		var dist float64
		if p.Side == domain.SideSell {
			// Approaching from below; prices above target are already eligible.
			dist = (lf.TargetPrice - live) / lf.TargetPrice
		} else {
			dist = (live - lf.TargetPrice) / lf.TargetPrice
		}
		if dist <= p.AlertPct {
			hits = append(hits, lf)
		}
	}
	return hits
}

func (a *AlertService) publishAlert(ctx context.Context, evt domain.AlertEvent) {
	if a.bus == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := a.bus.Publish(ctx, "alerts", payload); err != nil {
		a.logger.Warn("failed to publish alert", slog.String("error", err.Error()))
	}
}

func (a *AlertService) notify(ctx context.Context, event, title, body string) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Notify(ctx, event, title, body); err != nil {
		a.logger.Warn("notification delivery failed", slog.String("error", err.Error()))
	}
}
