package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ladderplan/ladderd/internal/domain"
	"github.com/ladderplan/ladderd/internal/engine"
)

func newAlertFixture(t *testing.T, live float64, p domain.Planner, ladder []domain.Level) (*AlertService, *memPlannerStore, *memTradeStore, *memBus, *memLocks) {
	t.Helper()
	planners := newMemPlannerStore()
	levels := newMemLevelStore()
	trades := newMemTradeStore()
	bus := &memBus{}
	locks := newMemLocks()

	require.NoError(t, planners.Create(context.Background(), p))
	require.NoError(t, levels.ReplaceForPlanner(context.Background(), p.ID, ladder))

	svc := NewAlertService(planners, levels, trades, &stubPrices{price: live, asOf: time.Now()},
		locks, bus, nil, time.Minute, 30*time.Minute, discardLogger())
	return svc, planners, trades, bus, locks
}

func buyPlanner() domain.Planner {
	return domain.Planner{
		ID: "p1", AssetID: "BTC", QuoteCurrency: "USD",
		Side: domain.SideBuy, TopPrice: 100, Budget: 1000,
		DepthPct: 70, Growth: 1.0, AlertPct: 0.02,
		Status: domain.PlannerActive,
	}
}

func flatLadder(plannerID string) []domain.Level {
	return []domain.Level{
		{PlannerID: plannerID, Index: 1, TargetPrice: 80, Capacity: 500},
		{PlannerID: plannerID, Index: 2, TargetPrice: 60, Capacity: 500},
	}
}

func TestAlertFiresOnProximity(t *testing.T) {
	p := buyPlanner()
	svc, _, _, bus, _ := newAlertFixture(t, 81, p, flatLadder(p.ID)) // within 2% of 80

	require.NoError(t, svc.checkPlanners(context.Background()))

	alerts := bus.onChannel("alerts")
	require.Len(t, alerts, 1)
	var evt domain.AlertEvent
	require.NoError(t, json.Unmarshal(alerts[0].Payload, &evt))
	assert.Equal(t, p.ID, evt.PlannerID)
	assert.Equal(t, 1, evt.LevelIndex)
	assert.Equal(t, 80.0, evt.TargetPrice)
	assert.Equal(t, 81.0, evt.LivePrice)
}

func TestAlertCooldownSuppressesRepeat(t *testing.T) {
	p := buyPlanner()
	svc, _, _, bus, locks := newAlertFixture(t, 81, p, flatLadder(p.ID))

	require.NoError(t, svc.checkPlanners(context.Background()))
	require.NoError(t, svc.checkPlanners(context.Background()))
	assert.Len(t, bus.onChannel("alerts"), 1)

	// Cooldown expiry re-arms the level.
	locks.held = map[string]bool{}
	require.NoError(t, svc.checkPlanners(context.Background()))
	assert.Len(t, bus.onChannel("alerts"), 2)
}

func TestAlertSkipsFilledLevels(t *testing.T) {
	p := buyPlanner()
	svc, _, trades, bus, _ := newAlertFixture(t, 81, p, flatLadder(p.ID))

	// Fill level 1 completely; proximity to it must no longer alert.
	require.NoError(t, trades.Insert(context.Background(), domain.Trade{
		ID: "t1", PlannerID: p.ID, Price: 80, Quantity: 500.0 / 80, TradeTime: time.Now(),
	}))

	require.NoError(t, svc.checkPlanners(context.Background()))
	assert.Empty(t, bus.onChannel("alerts"))
}

func TestAlertMarksCompletedPlannerDone(t *testing.T) {
	p := buyPlanner()
	svc, planners, trades, bus, _ := newAlertFixture(t, 81, p, flatLadder(p.ID))

	ts := time.Now()
	require.NoError(t, trades.Insert(context.Background(), domain.Trade{
		ID: "t1", PlannerID: p.ID, Price: 80, Quantity: 500.0 / 80, TradeTime: ts,
	}))
	require.NoError(t, trades.Insert(context.Background(), domain.Trade{
		ID: "t2", PlannerID: p.ID, Price: 60, Quantity: 500.0 / 60, TradeTime: ts.Add(time.Second),
	}))

	require.NoError(t, svc.checkPlanners(context.Background()))

	stored, err := planners.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlannerDone, stored.Status)
	assert.Empty(t, bus.onChannel("alerts"))

	// A done planner drops out of the next sweep entirely.
	require.NoError(t, svc.checkPlanners(context.Background()))
	assert.Empty(t, bus.onChannel("alerts"))
}

func TestProximityHits(t *testing.T) {
	fills := []engine.LevelFill{
		{Index: 1, TargetPrice: 80, FillPct: 0},
		{Index: 2, TargetPrice: 60, FillPct: 0},
	}

	buy := buyPlanner()
	// 81 is within 2% above 80; 60 is far below.
	hits := proximityHits(buy, fills, 81)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Index)

	// Price already below a target counts as in proximity.
	hits = proximityHits(buy, fills, 59)
	assert.Len(t, hits, 2)

	// Zero alert proximity disables alerting.
	off := buy
	off.AlertPct = 0
	assert.Empty(t, proximityHits(off, fills, 81))

	sell := buy
	sell.Side = domain.SideSell
	sellFills := []engine.LevelFill{
		{Index: 1, TargetPrice: 110, FillPct: 0},
		{Index: 2, TargetPrice: 130, FillPct: 0},
	}
	hits = proximityHits(sell, sellFills, 108)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Index)
}
