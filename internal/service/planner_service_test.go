package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ladderplan/ladderd/internal/domain"
	"github.com/ladderplan/ladderd/internal/engine"
)

func newPlannerFixture(prices LivePrices) (*PlannerService, *memPlannerStore, *memLevelStore, *memTradeStore, *memAuditStore, *memBus) {
	planners := newMemPlannerStore()
	levels := newMemLevelStore()
	trades := newMemTradeStore()
	audit := &memAuditStore{}
	bus := &memBus{}
	svc := NewPlannerService(planners, levels, trades, audit, prices, bus, discardLogger())
	return svc, planners, levels, trades, audit, bus
}

func validInput() PlannerInput {
	return PlannerInput{
		Owner:    "ops",
		AssetID:  "btc",
		Side:     "buy",
		TopPrice: 100,
		Budget:   10000,
		DepthPct: 70,
	}
}

func TestCreateBuildsEightLevelLadder(t *testing.T) {
	svc, _, levels, _, audit, bus := newPlannerFixture(nil)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "BTC", p.AssetID)
	assert.Equal(t, "USD", p.QuoteCurrency)
	assert.Equal(t, domain.PlannerActive, p.Status)
	assert.Equal(t, engine.DefaultGrowth, p.Growth)

	ladder, err := levels.ListByPlanner(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, ladder, engine.LevelCount)

	var total float64
	for i, l := range ladder {
		assert.Equal(t, i+1, l.Index)
		assert.Less(t, l.TargetPrice, p.TopPrice)
		total += l.Capacity
	}
	assert.InDelta(t, p.Budget, total, 1e-6)

	assert.Contains(t, audit.events(), "planner.created")
	assert.NotEmpty(t, bus.onChannel("planners"))
}

func TestCreateRejectsBadConfig(t *testing.T) {
	svc, _, _, _, _, _ := newPlannerFixture(nil)

	cases := []struct {
		name   string
		mutate func(*PlannerInput)
	}{
		{"missing asset", func(in *PlannerInput) { in.AssetID = "" }},
		{"bad side", func(in *PlannerInput) { in.Side = "short" }},
		{"zero top price", func(in *PlannerInput) { in.TopPrice = 0 }},
		{"zero budget", func(in *PlannerInput) { in.Budget = 0 }},
		{"bad depth", func(in *PlannerInput) { in.DepthPct = 50 }},
		{"growth below one", func(in *PlannerInput) { in.Growth = 0.9 }},
		{"negative tolerance", func(in *PlannerInput) { in.Tolerance = -0.01 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assert.Error(t, err)
		})
	}
}

func TestUpdateRebuildsLadder(t *testing.T) {
	svc, _, levels, _, _, _ := newPlannerFixture(nil)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	before, err := levels.ListByPlanner(context.Background(), p.ID)
	require.NoError(t, err)

	in := validInput()
	in.TopPrice = 200
	updated, err := svc.Update(context.Background(), p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 200.0, updated.TopPrice)

	after, err := levels.ListByPlanner(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, after, engine.LevelCount)
	assert.NotEqual(t, before[0].TargetPrice, after[0].TargetPrice)
}

func TestGetViewReconcilesTrades(t *testing.T) {
	svc, _, levels, trades, _, _ := newPlannerFixture(&stubPrices{price: 55, asOf: time.Now()})

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	ladder, err := levels.ListByPlanner(context.Background(), p.ID)
	require.NoError(t, err)
	l1 := ladder[0]

	// Fill half of level 1 with a trade exactly at its target.
	qty := (l1.Capacity / 2) / l1.TargetPrice
	require.NoError(t, trades.Insert(context.Background(), domain.Trade{
		ID: "t1", PlannerID: p.ID, Price: l1.TargetPrice, Quantity: qty, TradeTime: time.Now(),
	}))

	view, err := svc.GetView(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, view.Fills.Levels, engine.LevelCount)
	assert.InDelta(t, 0.5, view.Fills.Levels[0].FillPct, 1e-9)
	assert.InDelta(t, l1.Capacity/2, view.Fills.AllocatedTotal, 1e-6)
	assert.Zero(t, view.Fills.OffPlan)
	assert.Equal(t, 55.0, view.LivePrice)
	assert.False(t, view.Fills.FullyAllocated)
}

func TestGetViewMarksPlannerDone(t *testing.T) {
	svc, planners, levels, trades, audit, _ := newPlannerFixture(nil)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	ladder, err := levels.ListByPlanner(context.Background(), p.ID)
	require.NoError(t, err)
	ts := time.Now()
	for _, l := range ladder {
		ts = ts.Add(time.Second)
		require.NoError(t, trades.Insert(context.Background(), domain.Trade{
			ID: "t" + l.PlannerID + string(rune('0'+l.Index)), PlannerID: p.ID,
			Price: l.TargetPrice, Quantity: l.Capacity / l.TargetPrice, TradeTime: ts,
		}))
	}

	view, err := svc.GetView(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, view.Fills.FullyAllocated)
	assert.Equal(t, domain.PlannerDone, view.Planner.Status)

	stored, err := planners.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlannerDone, stored.Status)
	assert.Contains(t, audit.events(), "planner.done")
}

func TestGetViewSurvivesPriceOutage(t *testing.T) {
	svc, _, _, _, _, _ := newPlannerFixture(&stubPrices{err: domain.ErrNoConsensus})

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	view, err := svc.GetView(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Zero(t, view.LivePrice)
	assert.Empty(t, view.NearLevels)
}

func TestNearLevelIndexes(t *testing.T) {
	fills := []engine.LevelFill{
		{Index: 1, TargetPrice: 90, FillPct: 1.0},
		{Index: 2, TargetPrice: 80, FillPct: 0.2},
		{Index: 3, TargetPrice: 70, FillPct: 0},
	}

	// Live price 81 with 2% band reaches level 2 but not level 3, and the
	// full level 1 never re-alerts.
	got := nearLevelIndexes(domain.SideBuy, fills, 81, 0.02)
	assert.Equal(t, []int{2}, got)

	// Below level 3 everything unfilled is eligible.
	got = nearLevelIndexes(domain.SideBuy, fills, 60, 0)
	assert.Equal(t, []int{2, 3}, got)

	sellFills := []engine.LevelFill{
		{Index: 1, TargetPrice: 110, FillPct: 0},
		{Index: 2, TargetPrice: 120, FillPct: 0},
	}
	got = nearLevelIndexes(domain.SideSell, sellFills, 109, 0.01)
	assert.Equal(t, []int{1}, got)
}

func TestDeleteAndArchive(t *testing.T) {
	svc, planners, _, _, _, _ := newPlannerFixture(nil)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Archive(context.Background(), p.ID))
	stored, err := planners.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlannerArchived, stored.Status)

	require.NoError(t, svc.Delete(context.Background(), p.ID))
	_, err = svc.Get(context.Background(), p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersByOwner(t *testing.T) {
	svc, _, _, _, _, _ := newPlannerFixture(nil)

	first := validInput()
	first.Owner = "alice"
	_, err := svc.Create(context.Background(), first)
	require.NoError(t, err)

	second := validInput()
	second.Owner = "bob"
	_, err = svc.Create(context.Background(), second)
	require.NoError(t, err)

	// No owner filter returns every planner.
	all, err := svc.List(context.Background(), "", domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.List(context.Background(), "alice", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "alice", mine[0].Owner)
}
