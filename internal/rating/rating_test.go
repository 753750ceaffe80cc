package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	tcases := []struct {
		rating int
		tier   Tier
	}{
		{0, TierBeginner},
		{DefaultRating, TierBeginner},
		{999, TierBeginner},
		{1000, TierBronze},
		{1199, TierBronze},
		{1200, TierSilver},
		{1400, TierGold},
		{1700, TierPlatinum},
		{1999, TierPlatinum},
		{2000, TierDiamond},
		{5000, TierDiamond},
	}

	for _, tc := range tcases {
		assert.Equalf(t, tc.tier, TierFor(tc.rating), "unexpected tier for rating %d", tc.rating)
	}
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(800, 1000), "expected a gap of exactly 200 to match")
	assert.True(t, InRange(1000, 800), "expected range check to be symmetric")
	assert.False(t, InRange(800, 1001), "expected a gap of 201 not to match")
}

func TestSettlementDelta(t *testing.T) {
	assert.Equal(t, 0, SettlementDelta(10, 10))
	assert.Equal(t, 45, SettlementDelta(5, 14))
	assert.Equal(t, 45, SettlementDelta(14, 5))
}

func TestForfeitDelta(t *testing.T) {
	tcases := []struct {
		name   string
		winner int
		loser  int
		delta  int
	}{
		{name: "no points scored", winner: 0, loser: 0, delta: 25},
		{name: "small lead uses minimum", winner: 8, loser: 5, delta: 25},
		{name: "large lead uses formula", winner: 27, loser: 5, delta: 110},
		{name: "leaver ahead", winner: 0, loser: 14, delta: 70},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.delta, ForfeitDelta(tc.winner, tc.loser))
		})
	}
}

func TestLower(t *testing.T) {
	assert.Equal(t, 775, Lower(800, 25))
	assert.Equal(t, 0, Lower(20, 25), "expected rating to be floored at zero")
}
