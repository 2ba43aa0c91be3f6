package engine

import "math"

// BuildLevels turns a buy-ladder configuration into discrete price levels.
// The band [topPrice*(1-depth/100), topPrice] is partitioned into LevelCount
// geometric steps: level 1 sits at the first drawdown step and the deepest
// level lands exactly on the maximum drawdown. Capacities follow geometric
// weights growth^(i-1), so deeper levels receive larger shares of the budget
// when growth > 1, and the shares sum to the full budget.
//
// Degenerate inputs (non-positive top price, negative budget, invalid depth,
// growth below 1) yield an empty ladder rather than an error: the caller is
// ultimately a UI that must render "no plan" gracefully.
func BuildLevels(topPrice, budget float64, depth Depth, growth float64) []Level {
	if topPrice <= 0 || budget < 0 || !depth.Valid() || growth < 1.0 {
		return nil
	}

	floor := topPrice * (1 - float64(depth)/100)
	// Per-step price ratio so that topPrice*ratio^LevelCount == floor.
	ratio := math.Pow(floor/topPrice, 1.0/float64(LevelCount))

	weights, weightSum := capacityWeights(growth)

	levels := make([]Level, LevelCount)
	price := topPrice
	for i := 0; i < LevelCount; i++ {
		price *= ratio
		levels[i] = Level{
			Index:       i + 1,
			TargetPrice: price,
			Capacity:    budget * weights[i] / weightSum,
		}
	}
	// Pin the deepest level to the exact floor; the iterated product can
	// drift by a few ULPs.
	levels[LevelCount-1].TargetPrice = floor
	return levels
}

// BuildSellLevels is the distribution-side mirror of BuildLevels: prices rise
// geometrically from the first step above topPrice to topPrice*(1+depth/100),
// and capacities are token quantities instead of USD notional.
func BuildSellLevels(topPrice, budget float64, depth Depth, growth float64) []Level {
	if topPrice <= 0 || budget < 0 || !depth.Valid() || growth < 1.0 {
		return nil
	}

	ceil := topPrice * (1 + float64(depth)/100)
	ratio := math.Pow(ceil/topPrice, 1.0/float64(LevelCount))

	weights, weightSum := capacityWeights(growth)

	levels := make([]Level, LevelCount)
	price := topPrice
	for i := 0; i < LevelCount; i++ {
		price *= ratio
		levels[i] = Level{
			Index:       i + 1,
			TargetPrice: price,
			Capacity:    budget * weights[i] / weightSum,
		}
	}
	levels[LevelCount-1].TargetPrice = ceil
	return levels
}

// capacityWeights returns the geometric weights growth^(i-1) for each level
// and their sum.
func capacityWeights(growth float64) ([LevelCount]float64, float64) {
	var weights [LevelCount]float64
	sum := 0.0
	w := 1.0
	for i := 0; i < LevelCount; i++ {
		weights[i] = w
		sum += w
		w *= growth
	}
	return weights, sum
}
