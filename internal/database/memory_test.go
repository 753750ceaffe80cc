package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(code string, now time.Time) Room {
	return Room{
		Code:          code,
		Mode:          ModeCustom,
		CreatedBy:     1,
		Participants:  []int{1},
		Scores:        map[int]int{},
		TimerDuration: DefaultTimerDuration,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Hour),
	}
}

func TestMemoryRepository_Rooms(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	repo.SetClock(func() time.Time { return now })

	created, err := repo.CreateRoom(newTestRoom("123456", now))
	require.NoError(t, err)
	assert.Equal(t, "123456", created.Code)

	_, err = repo.CreateRoom(newTestRoom("123456", now))
	assert.ErrorIs(t, err, ErrDuplicateCode, "expected live code to be rejected")

	exists, err := repo.RoomCodeExists("123456")
	require.NoError(t, err)
	assert.True(t, exists)

	t.Run("reads are isolated from stored state", func(t *testing.T) {
		room, err := repo.GetRoomByCode("123456")
		require.NoError(t, err)
		room.Participants = append(room.Participants, 2)
		room.Scores[1] = 50

		again, err := repo.GetRoomByCode("123456")
		require.NoError(t, err)
		assert.Equal(t, []int{1}, again.Participants)
		assert.Empty(t, again.Scores)
	})

	t.Run("update persists", func(t *testing.T) {
		room, err := repo.GetRoomByCode("123456")
		require.NoError(t, err)
		room.Participants = append(room.Participants, 2)
		require.NoError(t, repo.UpdateRoom(room))

		again, err := repo.GetRoomByCode("123456")
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, again.Participants)

		rooms, err := repo.ListRoomsForUser(2)
		require.NoError(t, err)
		assert.Len(t, rooms, 1)
	})

	t.Run("update of missing room", func(t *testing.T) {
		err := repo.UpdateRoom(newTestRoom("999999", now))
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("expired rooms are invisible and collectable", func(t *testing.T) {
		now = now.Add(time.Hour)

		_, err := repo.GetRoomByCode("123456")
		assert.ErrorIs(t, err, sql.ErrNoRows)

		_, err = repo.CreateRoom(newTestRoom("123456", now))
		assert.NoError(t, err, "expected an expired code to be reusable")

		n, err := repo.DeleteExpiredRooms(now.Add(2 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestMemoryRepository_Accounts(t *testing.T) {
	repo := NewMemoryRepository()
	repo.AddAccount(Account{Id: 1, Username: "alice", Rating: 900})
	repo.AddAccount(Account{Id: 2, Username: "bob", Rating: 20})
	carol := repo.AddAccount(Account{Id: 3, Username: "carol"})
	assert.Equal(t, 800, carol.Rating, "expected default rating")

	_, err := repo.GetAccountById(42)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	winner, loser, err := repo.AdjustRatings(1, 2, 25)
	require.NoError(t, err)
	assert.Equal(t, 925, winner.Rating)
	assert.Equal(t, 0, loser.Rating, "expected loser rating to be floored at zero")

	_, _, err = repo.AdjustRatings(1, 42, 25)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, repo.IncrementBattlesFought([]int{1, 3, 42}))
	a, err := repo.GetAccountById(3)
	require.NoError(t, err)
	assert.Equal(t, 1, a.BattlesFought)

	top, err := repo.ListTopAccounts(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Id)
	assert.Equal(t, 3, top[1].Id)

	accounts, err := repo.GetAccountsByIds([]int{3, 42})
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestRoom_Helpers(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	qid := 3
	room := Room{
		Participants:  []int{1, 2},
		Scores:        map[int]int{1: 5},
		TimerDuration: time.Minute,
		QuestionId:    &qid,
	}

	_, ok := room.Deadline()
	assert.False(t, ok, "expected no deadline before the battle starts")
	assert.False(t, room.TimerExpired(start))

	room.TimerStartedAt = &start
	assert.False(t, room.TimerExpired(start.Add(59*time.Second)))
	assert.True(t, room.TimerExpired(start.Add(time.Minute)), "expected deadline to be inclusive")

	assert.Equal(t, map[int]int{1: 5, 2: 0}, room.FinalScores())
	assert.True(t, room.HasParticipant(2))
	assert.False(t, room.HasParticipant(3))

	c := room.Clone()
	*c.QuestionId = 9
	c.Scores[2] = 1
	assert.Equal(t, 3, *room.QuestionId)
	assert.NotContains(t, room.Scores, 2)
}
