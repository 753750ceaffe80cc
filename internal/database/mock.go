package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockBattleRepository struct {
	mock.Mock
}

func (m *MockBattleRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockBattleRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockBattleRepository) GetAccountsByIds(accountIds []int) ([]Account, error) {
	args := m.Called(accountIds)
	return args.Get(0).([]Account), args.Error(1)
}
func (m *MockBattleRepository) ListTopAccounts(limit int) ([]Account, error) {
	args := m.Called(limit)
	return args.Get(0).([]Account), args.Error(1)
}
func (m *MockBattleRepository) IncrementBattlesFought(accountIds []int) error {
	args := m.Called(accountIds)
	return args.Error(0)
}
func (m *MockBattleRepository) AdjustRatings(winnerId, loserId, delta int) (Account, Account, error) {
	args := m.Called(winnerId, loserId, delta)
	return args.Get(0).(Account), args.Get(1).(Account), args.Error(2)
}
func (m *MockBattleRepository) RoomCodeExists(code string) (bool, error) {
	args := m.Called(code)
	return args.Bool(0), args.Error(1)
}
func (m *MockBattleRepository) CreateRoom(room Room) (Room, error) {
	args := m.Called(room)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockBattleRepository) GetRoomByCode(code string) (Room, error) {
	args := m.Called(code)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockBattleRepository) ListRoomsForUser(accountId int) ([]Room, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockBattleRepository) UpdateRoom(room Room) error {
	args := m.Called(room)
	return args.Error(0)
}
func (m *MockBattleRepository) DeleteRoom(code string) error {
	args := m.Called(code)
	return args.Error(0)
}
func (m *MockBattleRepository) DeleteExpiredRooms(now time.Time) (int, error) {
	args := m.Called(now)
	return args.Int(0), args.Error(1)
}
func (m *MockBattleRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
