package server

import (
	"github.com/npezzotti/go-codeduel/internal/database"
	"github.com/npezzotti/go-codeduel/internal/rating"
	"github.com/npezzotti/go-codeduel/internal/stats"
)

// settle applies the normal rating settlement to an ended room. It is only
// called from the transition that set SessionEnded, so it runs once per room.
// Failures are logged; the ended state is already persisted.
func (bs *BattleServer) settle(room database.Room) {
	bs.stats.Incr(stats.Settlements)

	if room.Mode != database.ModeAshes || len(room.Participants) != 2 {
		return
	}

	a, b := room.Participants[0], room.Participants[1]
	sa, sb := room.Scores[a], room.Scores[b]
	if sa == sb {
		bs.log.Printf("room %q ended in a draw (%d-%d), ratings unchanged", room.Code, sa, sb)
		return
	}

	winner, loser := a, b
	if sb > sa {
		winner, loser = b, a
	}

	bs.adjustRatings(room.Code, winner, loser, rating.SettlementDelta(sa, sb))
}

// settleForfeit awards the remaining participant a win after the other left
// an ashes battle.
func (bs *BattleServer) settleForfeit(room database.Room, winnerId, loserId, loserScore int) {
	bs.stats.Incr(stats.Settlements)

	if room.Mode != database.ModeAshes {
		return
	}

	delta := rating.ForfeitDelta(room.Scores[winnerId], loserScore)
	bs.adjustRatings(room.Code, winnerId, loserId, delta)
}

func (bs *BattleServer) adjustRatings(code string, winnerId, loserId, delta int) {
	winner, loser, err := bs.db.AdjustRatings(winnerId, loserId, delta)
	if err != nil {
		bs.log.Printf("AdjustRatings for room %q: %v", code, err)
		return
	}

	bs.log.Printf("room %q settled: %s +%d (%d), %s -%d (%d)",
		code, winner.Username, delta, winner.Rating, loser.Username, delta, loser.Rating)
}
