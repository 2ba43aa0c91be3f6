package engine

import "sort"

// ComputeBuyFills matches a chronological buy-trade history against a
// buy-side ladder and returns the derived fill state. Levels are processed
// shallow to deep (price descending); the input order of levels does not
// matter, they are re-sorted defensively.
//
// A trade at price P is eligible for a level with target L when
// P <= L*(1+tolerance). Matching is a two-pass waterfall per trade:
//
//  1. locate the deepest (lowest-priced) level the trade is eligible for;
//  2. distribute the trade's USD notional from the shallowest level down to
//     that deepest eligible level, skipping already-saturated rungs.
//
// A trade executed at the top of the ladder therefore fills only the top
// rung, while a trade that reached the deepest rung backfills every
// shallower rung before its own. Notional that no eligible rung can absorb
// is off-plan; it never spills into deeper rungs the trade did not reach.
//
// With tolerance 0 a trade strictly above a level's price never counts for
// that level, which is the mode used for canonical reconciliation; small
// positive tolerances are for live near-miss display only.
func ComputeBuyFills(levels []Level, trades []Trade, tolerance float64) FillResult {
	if tolerance < 0 {
		tolerance = 0
	}

	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TargetPrice > sorted[j].TargetPrice
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
		notional := t.Notional()

		// Pass 1: deepest eligible index. Buy levels are price-descending,
		// so eligibility is a prefix: every level shallower than the deepest
		// eligible one is eligible too.
		deepest := -1
		for i, lv := range sorted {
			if t.Price <= lv.TargetPrice*(1+tolerance) {
				deepest = i
			}
		}
		if deepest < 0 {
			offPlan += notional
			continue
		}

		// Pass 2: waterfall from the top down to the deepest eligible rung.
		left := notional
		for i := 0; i <= deepest && left > capacityEpsilon; i++ {
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

		absorbed := notional - left
		if absorbed > 0 {
			absorbedPQ += absorbed
			absorbedQty += absorbed / t.Price
		}
		offPlan += left
	}

	return assemble(sorted, allocated, remaining, offPlan, absorbedPQ, absorbedQty)
}

// assemble builds the FillResult shared by both matchers. For buy ladders
// absorbedPQ is the absorbed USD notional and absorbedQty the implied token
// quantity; for sell ladders absorbedPQ is Σ price*tokens and absorbedQty the
// absorbed tokens. Either way their ratio is the volume-weighted average
// price of exactly the on-plan volume.
func assemble(levels []Level, allocated, remaining []float64, offPlan, absorbedPQ, absorbedQty float64) FillResult {
	res := FillResult{
		Levels:  make([]LevelFill, len(levels)),
		OffPlan: offPlan,
	}

	full := len(levels) > 0
	for i, lv := range levels {
		res.Levels[i] = LevelFill{
			Index:       lv.Index,
			TargetPrice: lv.TargetPrice,
			Capacity:    lv.Capacity,
			Allocated:   allocated[i],
			FillPct:     fillPct(allocated[i], lv.Capacity),
		}
		res.AllocatedTotal += allocated[i]
		if remaining[i] > capacityEpsilon {
			full = false
		}
	}
	if absorbedQty > 0 {
		res.OnPlanAvgCost = absorbedPQ / absorbedQty
	}
	res.FullyAllocated = full
	return res
}
