package engine

import "sort"

// ComputeSellFills is the token-denominated mirror of ComputeBuyFills: it
// matches a chronological sell-trade history against a sell-side ladder whose
// levels sit above the entry price. Levels are processed near to far (price
// ascending); input order does not matter.
//
// A sell at price P is eligible for a level with target L when
// P >= L*(1-tolerance): a rung is "reached" once the execution price rises to
// meet it. Matching mirrors the buy waterfall:
//
//  1. locate the highest (farthest) level the trade is eligible for;
//  2. distribute the trade's token quantity from the nearest rung up to that
//     highest eligible rung, skipping saturated rungs.
//
// Tokens beyond the eligible rungs' combined capacity are off-plan.
func ComputeSellFills(levels []Level, trades []Trade, tolerance float64) FillResult {
	if tolerance < 0 {
		tolerance = 0
	}

	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TargetPrice < sorted[j].TargetPrice
	})

	remaining := make([]float64, len(sorted))
	allocated := make([]float64, len(sorted))
	for i, lv := range sorted {
		remaining[i] = lv.Capacity
	}

	var offPlan, absorbedPQ, absorbedQty float64

	for _, t := range trades {
		if t.Price <= 0 || t.Quantity <= 0 {
			continue
		}

		// Pass 1: highest eligible index. Sell levels are price-ascending,
		// so a trade that reached a far rung has reached every nearer rung.
		highest := -1
		for i, lv := range sorted {
			if t.Price >= lv.TargetPrice*(1-tolerance) {
				highest = i
			}
		}
		if highest < 0 {
			offPlan += t.Quantity
			continue
		}

		// Pass 2: nearest eligible rung first, walking outward.
		left := t.Quantity
		for i := 0; i <= highest && left > capacityEpsilon; i++ {
			take := remaining[i]
			if take > left {
				take = left
			}
			if take <= 0 {
				continue
			}
			remaining[i] -= take
			allocated[i] += take
			left -= take
		}

		absorbed := t.Quantity - left
		if absorbed > 0 {
			absorbedPQ += absorbed * t.Price
			absorbedQty += absorbed
		}
		offPlan += left
	}

	return assemble(sorted, allocated, remaining, offPlan, absorbedPQ, absorbedQty)
}
