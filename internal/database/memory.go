package database

import (
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/npezzotti/go-codeduel/internal/rating"
)

// MemoryRepository keeps accounts and rooms in process memory. It backs
// development runs without a database and the package tests.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[int]Account
	rooms    map[string]Room
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[int]Account),
		rooms:    make(map[string]Room),
		now:      time.Now,
	}
}

// SetClock overrides the time source used for room expiry.
func (m *MemoryRepository) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// AddAccount inserts or replaces an account. A zero rating is replaced with
// the default rating.
func (m *MemoryRepository) AddAccount(a Account) Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.Rating == 0 {
		a.Rating = rating.DefaultRating
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.now().UTC()
	}
	m.accounts[a.Id] = a
	return a
}

func (m *MemoryRepository) Ping() error {
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}

func (m *MemoryRepository) GetAccountById(id int) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("account %d: %w", id, sql.ErrNoRows)
	}
	return a, nil
}

func (m *MemoryRepository) GetAccountsByIds(ids []int) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			accounts = append(accounts, a)
		}
	}
	return accounts, nil
}

func (m *MemoryRepository) ListTopAccounts(limit int) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Rating != accounts[j].Rating {
			return accounts[i].Rating > accounts[j].Rating
		}
		return accounts[i].Id < accounts[j].Id
	})

	if limit >= 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (m *MemoryRepository) IncrementBattlesFought(ids []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			a.BattlesFought++
			m.accounts[id] = a
		}
	}
	return nil
}

func (m *MemoryRepository) AdjustRatings(winnerId, loserId, delta int) (Account, Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	winner, ok := m.accounts[winnerId]
	if !ok {
		return Account{}, Account{}, fmt.Errorf("raise winner rating: account %d: %w", winnerId, sql.ErrNoRows)
	}
	loser, ok := m.accounts[loserId]
	if !ok {
		return Account{}, Account{}, fmt.Errorf("lower loser rating: account %d: %w", loserId, sql.ErrNoRows)
	}

	winner.Rating += delta
	loser.Rating = rating.Lower(loser.Rating, delta)
	m.accounts[winnerId] = winner
	m.accounts[loserId] = loser

	return winner, loser, nil
}

func (m *MemoryRepository) live(code string) (Room, bool) {
	room, ok := m.rooms[code]
	if !ok || !m.now().Before(room.ExpiresAt) {
		return Room{}, false
	}
	return room, true
}

func (m *MemoryRepository) RoomCodeExists(code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(code)
	return ok, nil
}

func (m *MemoryRepository) CreateRoom(room Room) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live(room.Code); ok {
		return Room{}, ErrDuplicateCode
	}
	if room.Scores == nil {
		room.Scores = make(map[int]int)
	}

	m.rooms[room.Code] = room.Clone()
	return room.Clone(), nil
}

func (m *MemoryRepository) GetRoomByCode(code string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.live(code)
	if !ok {
		return Room{}, fmt.Errorf("room %q: %w", code, sql.ErrNoRows)
	}
	return room.Clone(), nil
}

func (m *MemoryRepository) ListRoomsForUser(accountId int) ([]Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rooms []Room
	for code := range m.rooms {
		room, ok := m.live(code)
		if !ok {
			continue
		}
		if room.CreatedBy == accountId || slices.Contains(room.Participants, accountId) {
			rooms = append(rooms, room.Clone())
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (m *MemoryRepository) UpdateRoom(room Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[room.Code]; !ok {
		return fmt.Errorf("update room %q: %w", room.Code, sql.ErrNoRows)
	}
	m.rooms[room.Code] = room.Clone()
	return nil
}

func (m *MemoryRepository) DeleteRoom(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rooms, code)
	return nil
}

func (m *MemoryRepository) DeleteExpiredRooms(now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for code, room := range m.rooms {
		if !now.Before(room.ExpiresAt) {
			delete(m.rooms, code)
			n++
		}
	}
	return n, nil
}
