package domain

// TierInfo is the derived tier for a point total. Tier is never stored as a
// source of truth: it is a pure function of lifetime points, so a point loss
// can lower it (no hysteresis).
type TierInfo struct {
	Tier         int    `json:"tier"`
	Name         string `json:"name"`
	PointsToNext int64  `json:"points_to_next"` // 0 at the top tier
}

// tierThresholds maps tier 1..5 to the points required to hold it.
var tierThresholds = []struct {
	points int64
	name   string
}{
	{0, "Newcomer"},
	{100, "Regular"},
	{500, "Enthusiast"},
	{1500, "Gourmand"},
	{4000, "Connoisseur"},
}

// TierFor returns the highest tier whose threshold is at or below the given
// point total. Monotonic in points; O(1) over the fixed table.
func TierFor(points int64) TierInfo {
	if points < 0 {
		points = 0
	}
	idx := 0
	for i, t := range tierThresholds {
		if points >= t.points {
			idx = i
		}
	}

	info := TierInfo{Tier: idx + 1, Name: tierThresholds[idx].name}
	if idx+1 < len(tierThresholds) {
		info.PointsToNext = tierThresholds[idx+1].points - points
	}
	return info
}

// TierCount is the number of defined tiers.
const TierCount = 5
