package server

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/npezzotti/go-codeduel/internal/database"
)

type LeaveResult struct {
	RoomDeleted  bool
	NewHost      *int
	SessionEnded bool
	Winner       *database.Account
}

// LeaveRoom removes userId from the room. When inBattle is set the departure
// is announced to the remaining pollers, and a lone remaining participant
// wins by default.
func (bs *BattleServer) LeaveRoom(ctx context.Context, code string, userId int, inBattle bool) (LeaveResult, error) {
	var res LeaveResult
	err := bs.withRoom(ctx, code, func() error {
		room, err := bs.loadRoom(code)
		if err != nil {
			return err
		}
		if !room.HasParticipant(userId) {
			return ErrNotParticipant
		}

		// a battle that already ran out settles with everyone still present
		if bs.expireSession(&room) {
			if err := bs.saveRoom(room); err != nil {
				return err
			}
			bs.log.Printf("room %q timer expired before user %d left", code, userId)
			bs.settle(room)
		}

		leaverScore := room.Scores[userId]
		room.Participants = slices.DeleteFunc(room.Participants, func(id int) bool {
			return id == userId
		})
		delete(room.Scores, userId)

		if len(room.Participants) == 0 {
			if err := bs.db.DeleteRoom(code); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return upstream("delete room", err)
			}
			bs.log.Printf("room %q deleted after last participant left", code)
			res = LeaveResult{RoomDeleted: true, SessionEnded: room.SessionEnded}
			return nil
		}

		if room.CreatedBy == userId {
			room.CreatedBy = room.Participants[0]
			newHost := room.CreatedBy
			res.NewHost = &newHost
		}

		forfeit := false
		if inBattle {
			username := ""
			if acc, err := bs.db.GetAccountById(userId); err == nil {
				username = acc.Username
			} else {
				bs.log.Printf("GetAccountById %d: %v", userId, err)
			}
			room.RecentLeave = &database.RecentLeave{
				UserId:    userId,
				Username:  username,
				Timestamp: bs.clock(),
			}

			if len(room.Participants) == 1 && !room.SessionEnded {
				room.SessionEnded = true
				forfeit = true
			}
		}

		if err := bs.saveRoom(room); err != nil {
			return err
		}
		bs.log.Printf("user %d left room %q", userId, code)

		res.SessionEnded = room.SessionEnded
		if forfeit {
			winnerId := room.Participants[0]
			winner, err := bs.db.GetAccountById(winnerId)
			if err != nil {
				winner = database.Account{Id: winnerId}
			}
			res.Winner = &winner
			bs.log.Printf("user %d wins room %q by default", winnerId, code)
			bs.settleForfeit(room, winnerId, userId, leaverScore)
		}

		return nil
	})

	return res, err
}
