package database

import (
	"errors"
	"time"
)

// ErrDuplicateCode is returned by CreateRoom when the code belongs to a live room.
var ErrDuplicateCode = errors.New("room code already in use")

// BattleRepository persists rooms and the rating fields of accounts. Missing
// rows are reported as sql.ErrNoRows.
type BattleRepository interface {
	Ping() error
	GetAccountById(accountId int) (Account, error)
	GetAccountsByIds(accountIds []int) ([]Account, error)
	ListTopAccounts(limit int) ([]Account, error)
	IncrementBattlesFought(accountIds []int) error
	// AdjustRatings moves delta rating points from loser to winner in one
	// transaction. The loser never drops below zero.
	AdjustRatings(winnerId, loserId, delta int) (winner Account, loser Account, err error)
	RoomCodeExists(code string) (bool, error)
	CreateRoom(room Room) (Room, error)
	GetRoomByCode(code string) (Room, error)
	ListRoomsForUser(accountId int) ([]Room, error)
	UpdateRoom(room Room) error
	DeleteRoom(code string) error
	DeleteExpiredRooms(now time.Time) (int, error)
	Close() error
}
