package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLevelsBudgetConservation(t *testing.T) {
	tests := []struct {
		name     string
		topPrice float64
		budget   float64
		depth    Depth
		growth   float64
	}{
		{"flat weights", 100, 10000, Depth70, 1.0},
		{"default growth", 68000, 25000, Depth75, DefaultGrowth},
		{"steep growth", 3500, 1200, Depth90, 2.0},
		{"zero budget", 50, 0, Depth70, 1.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels := BuildLevels(tt.topPrice, tt.budget, tt.depth, tt.growth)
			require.Len(t, levels, LevelCount)

			var total float64
			for _, lv := range levels {
				assert.GreaterOrEqual(t, lv.Capacity, 0.0)
				total += lv.Capacity
			}
			assert.InDelta(t, tt.budget, total, 1e-6)
		})
	}
}

func TestBuildLevelsPricesStrictlyDecreasing(t *testing.T) {
	levels := BuildLevels(68000, 25000, Depth75, DefaultGrowth)
	require.Len(t, levels, LevelCount)

	assert.Less(t, levels[0].TargetPrice, 68000.0, "level 1 sits at the first drawdown step, below the top price")
	for i := 1; i < len(levels); i++ {
		assert.Less(t, levels[i].TargetPrice, levels[i-1].TargetPrice)
	}
	assert.InDelta(t, 68000*0.25, levels[LevelCount-1].TargetPrice, 1e-9, "deepest level lands on the max drawdown")
}

func TestBuildLevelsDeeperLevelsGetLargerShares(t *testing.T) {
	levels := BuildLevels(100, 1000, Depth70, 1.5)
	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].Capacity, levels[i-1].Capacity)
		assert.InDelta(t, 1.5, levels[i].Capacity/levels[i-1].Capacity, 1e-9)
	}
}

func TestBuildLevelsIndexing(t *testing.T) {
	levels := BuildLevels(100, 1000, Depth70, 1.25)
	for i, lv := range levels {
		assert.Equal(t, i+1, lv.Index)
	}
}

func TestBuildLevelsDeterministic(t *testing.T) {
	a := BuildLevels(68000, 25000, Depth75, DefaultGrowth)
	b := BuildLevels(68000, 25000, Depth75, DefaultGrowth)
	assert.Equal(t, a, b)
}

func TestBuildLevelsDegenerateInputs(t *testing.T) {
	tests := []struct {
		name     string
		topPrice float64
		budget   float64
		depth    Depth
		growth   float64
	}{
		{"zero top price", 0, 1000, Depth70, 1.25},
		{"negative top price", -5, 1000, Depth70, 1.25},
		{"negative budget", 100, -1, Depth70, 1.25},
		{"invalid depth", 100, 1000, Depth(50), 1.25},
		{"growth below one", 100, 1000, Depth70, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, BuildLevels(tt.topPrice, tt.budget, tt.depth, tt.growth))
		})
	}
}

func TestBuildSellLevelsMirror(t *testing.T) {
	levels := BuildSellLevels(100, 12.5, Depth70, DefaultGrowth)
	require.Len(t, levels, LevelCount)

	assert.Greater(t, levels[0].TargetPrice, 100.0)
	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].TargetPrice, levels[i-1].TargetPrice)
	}
	assert.InDelta(t, 170.0, levels[LevelCount-1].TargetPrice, 1e-9)

	var total float64
	for _, lv := range levels {
		total += lv.Capacity
	}
	assert.InDelta(t, 12.5, total, 1e-9)
}

func TestBuildSellLevelsDegenerateInputs(t *testing.T) {
	assert.Empty(t, BuildSellLevels(0, 10, Depth70, 1.25))
	assert.Empty(t, BuildSellLevels(100, -1, Depth70, 1.25))
	assert.Empty(t, BuildSellLevels(100, 10, Depth(80), 1.25))
}

func TestDepthValid(t *testing.T) {
	assert.True(t, Depth70.Valid())
	assert.True(t, Depth75.Valid())
	assert.True(t, Depth90.Valid())
	assert.False(t, Depth(0).Valid())
	assert.False(t, Depth(100).Valid())
}
