package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/npezzotti/go-codeduel/internal/database"
	"github.com/npezzotti/go-codeduel/internal/questions"
	"github.com/npezzotti/go-codeduel/internal/stats"
)

const (
	DefaultRoomTTL = time.Hour
	// maxCodeAttempts bounds room code generation against the store.
	maxCodeAttempts = 100
)

type Options struct {
	RoomTTL       time.Duration
	TimerDuration time.Duration
}

// BattleServer coordinates rooms, battles and the ranked queue. Operations on
// one room code are serialized through that room's actor goroutine.
type BattleServer struct {
	log              *log.Logger
	db               database.BattleRepository
	catalog          questions.Catalog
	stats            stats.StatsProvider
	now              func() time.Time
	generateRoomCode func() string
	roomTTL          time.Duration
	timerDuration    time.Duration
	rooms            map[string]*roomActor
	roomsLock        sync.Mutex
	closed           bool
	stop             chan struct{}
	wg               sync.WaitGroup
	queue            *matchQueue
}

func NewBattleServer(logger *log.Logger, db database.BattleRepository, catalog questions.Catalog, su stats.StatsProvider, opts Options) *BattleServer {
	if opts.RoomTTL <= 0 {
		opts.RoomTTL = DefaultRoomTTL
	}
	if opts.TimerDuration <= 0 {
		opts.TimerDuration = database.DefaultTimerDuration
	}

	bs := &BattleServer{
		log:              logger,
		db:               db,
		catalog:          catalog,
		stats:            su,
		now:              time.Now,
		generateRoomCode: generateRoomCode,
		roomTTL:          opts.RoomTTL,
		timerDuration:    opts.TimerDuration,
		rooms:            make(map[string]*roomActor),
		stop:             make(chan struct{}),
		queue:            newMatchQueue(),
	}

	su.RegisterMetric(stats.LoadedRooms)
	su.RegisterMetric(stats.QueuedPlayers)
	su.RegisterMetric(stats.MatchesMade)
	su.RegisterMetric(stats.Settlements)
	su.RegisterMetric(stats.RoomsCreated)

	return bs
}

func generateRoomCode() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (bs *BattleServer) clock() time.Time {
	return bs.now().UTC()
}

// Shutdown stops every room actor and waits for in-flight operations to
// finish or for ctx to expire.
func (bs *BattleServer) Shutdown(ctx context.Context) error {
	bs.log.Println("received shutdown signal")

	bs.roomsLock.Lock()
	if bs.closed {
		bs.roomsLock.Unlock()
		return nil
	}
	bs.closed = true
	close(bs.stop)
	bs.roomsLock.Unlock()

	done := make(chan struct{})
	go func() {
		bs.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadRoom fetches a live room, mapping a missing row to ErrRoomNotFound.
func (bs *BattleServer) loadRoom(code string) (database.Room, error) {
	room, err := bs.db.GetRoomByCode(code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Room{}, ErrRoomNotFound
		}
		return database.Room{}, upstream("get room", err)
	}
	return room, nil
}

func (bs *BattleServer) saveRoom(room database.Room) error {
	if err := bs.db.UpdateRoom(room); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return upstream("update room", err)
	}
	return nil
}

func (bs *BattleServer) account(id int) (database.Account, error) {
	acc, err := bs.db.GetAccountById(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Account{}, ErrUserNotFound
		}
		return database.Account{}, upstream("get account", err)
	}
	return acc, nil
}

// Players returns the accounts of the room's participants in participant order.
func (bs *BattleServer) Players(room database.Room) ([]database.Account, error) {
	accounts, err := bs.db.GetAccountsByIds(room.Participants)
	if err != nil {
		return nil, upstream("get accounts", err)
	}

	byId := make(map[int]database.Account, len(accounts))
	for _, a := range accounts {
		byId[a.Id] = a
	}

	players := make([]database.Account, 0, len(room.Participants))
	for _, id := range room.Participants {
		if a, ok := byId[id]; ok {
			players = append(players, a)
		} else {
			players = append(players, database.Account{Id: id})
		}
	}
	return players, nil
}

// insertRoom assigns a fresh code to room and stores it, retrying until the
// code is unused by any live room.
func (bs *BattleServer) insertRoom(room database.Room) (database.Room, error) {
	now := bs.clock()
	room.CreatedAt = now
	room.ExpiresAt = now.Add(bs.roomTTL)
	if room.TimerDuration == 0 {
		room.TimerDuration = bs.timerDuration
	}

	for range maxCodeAttempts {
		code := bs.generateRoomCode()
		exists, err := bs.db.RoomCodeExists(code)
		if err != nil {
			return database.Room{}, upstream("check room code", err)
		}
		if exists {
			continue
		}

		room.Code = code
		created, err := bs.db.CreateRoom(room)
		if errors.Is(err, database.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return database.Room{}, upstream("create room", err)
		}

		bs.stats.Incr(stats.RoomsCreated)
		return created, nil
	}

	return database.Room{}, upstream("generate room code", errCodesExhausted)
}
