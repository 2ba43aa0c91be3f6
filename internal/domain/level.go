package domain

// Level is one persisted rung of a planner's ladder. Target prices are
// strictly decreasing by index for buy ladders and strictly increasing for
// sell ladders. Capacity is USD notional for buy ladders and token quantity
// for sell ladders. Prices and capacities are fixed once the ladder is built;
// only derived fill state changes as trades accrue, and that is never stored
// on the level.
type Level struct {
	PlannerID   string
	Index       int // 1-based, shallowest level = 1
	TargetPrice float64
	Capacity    float64
}
