package rating

// DefaultRating is assigned to accounts that have never played a ranked battle.
const DefaultRating = 800

const (
	// MatchRange is the widest rating gap two queued players may have and still be paired.
	MatchRange = 200

	pointsMultiplier = 5
	minForfeitDelta  = 25
)

type Tier string

const (
	TierBeginner Tier = "Beginner"
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
	TierDiamond  Tier = "Diamond"
)

var tierFloors = []struct {
	floor int
	tier  Tier
}{
	{2000, TierDiamond},
	{1700, TierPlatinum},
	{1400, TierGold},
	{1200, TierSilver},
	{1000, TierBronze},
}

// TierFor maps a rating onto its tier. Anything below the lowest floor is Beginner.
func TierFor(rating int) Tier {
	for _, b := range tierFloors {
		if rating >= b.floor {
			return b.tier
		}
	}

	return TierBeginner
}

// InRange reports whether two ratings are close enough to be matched.
func InRange(a, b int) bool {
	return abs(a-b) <= MatchRange
}

// SettlementDelta is the rating transfer at the normal end of a ranked battle.
// Equal scores yield zero.
func SettlementDelta(s1, s2 int) int {
	return abs(s1-s2) * pointsMultiplier
}

// ForfeitDelta is the rating transfer when a ranked battle ends because the
// opponent abandoned it.
func ForfeitDelta(winnerScore, loserScore int) int {
	return max(SettlementDelta(winnerScore, loserScore), minForfeitDelta)
}

// Lower subtracts delta from rating without going below zero.
func Lower(rating, delta int) int {
	return max(rating-delta, 0)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
