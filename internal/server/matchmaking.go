package server

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/npezzotti/go-codeduel/internal/database"
	"github.com/npezzotti/go-codeduel/internal/rating"
	"github.com/npezzotti/go-codeduel/internal/stats"
)

type QueueState string

const (
	QueueWaiting QueueState = "waiting"
	QueueMatched QueueState = "matched"
	QueueIdle    QueueState = "idle"
)

type QueueEntry struct {
	UserId     int
	Username   string
	Rating     int
	EnqueuedAt time.Time
}

// MatchRecord tells the side that did not trigger a match where to go. It is
// handed out once.
type MatchRecord struct {
	RoomCode string
	Opponent Opponent
}

type Opponent struct {
	Id       int
	Username string
	Rating   int
}

type QueueResult struct {
	State         QueueState
	RoomCode      string
	Opponent      *Opponent
	QueuePosition int
	QueueSize     int
	WaitTime      time.Duration
	AlreadyQueued bool
}

func (r QueueResult) Matched() bool {
	return r.State == QueueMatched
}

type QueueStats struct {
	Size        int
	Pending     int
	OldestWait  time.Duration
	AverageWait time.Duration
}

// matchQueue holds the FIFO of waiting players and undelivered match
// records. A single lock covers match, room creation and dequeue.
type matchQueue struct {
	mu      sync.Mutex
	entries []QueueEntry
	matches map[int]MatchRecord
}

func newMatchQueue() *matchQueue {
	return &matchQueue{
		matches: make(map[int]MatchRecord),
	}
}

func (q *matchQueue) position(userId int) int {
	return slices.IndexFunc(q.entries, func(e QueueEntry) bool {
		return e.UserId == userId
	}) + 1
}

func (q *matchQueue) remove(userId int) bool {
	n := len(q.entries)
	q.entries = slices.DeleteFunc(q.entries, func(e QueueEntry) bool {
		return e.UserId == userId
	})
	return len(q.entries) < n
}

// tryMatch returns the earliest queued entry within rating range of
// candidate.
func (q *matchQueue) tryMatch(candidate QueueEntry) (QueueEntry, bool) {
	for _, e := range q.entries {
		if e.UserId == candidate.UserId {
			continue
		}
		if rating.InRange(candidate.Rating, e.Rating) {
			return e, true
		}
	}
	return QueueEntry{}, false
}

// JoinQueue enters userId into ranked matchmaking, matching immediately when
// a queued player is within range.
func (bs *BattleServer) JoinQueue(ctx context.Context, userId int) (QueueResult, error) {
	acc, err := bs.account(userId)
	if err != nil {
		return QueueResult{}, err
	}

	q := bs.queue
	q.mu.Lock()
	defer q.mu.Unlock()

	if rec, ok := q.matches[userId]; ok {
		delete(q.matches, userId)
		return matchedResult(rec.RoomCode, rec.Opponent), nil
	}

	now := bs.clock()
	if pos := q.position(userId); pos > 0 {
		res := bs.waitingResult(pos, now)
		res.AlreadyQueued = true
		return res, nil
	}

	candidate := QueueEntry{
		UserId:     acc.Id,
		Username:   acc.Username,
		Rating:     acc.Rating,
		EnqueuedAt: now,
	}

	if opp, ok := q.tryMatch(candidate); ok {
		return bs.completeMatch(candidate, opp)
	}

	q.entries = append(q.entries, candidate)
	bs.stats.Incr(stats.QueuedPlayers)
	bs.log.Printf("user %d queued at position %d", userId, len(q.entries))

	return bs.waitingResult(len(q.entries), now), nil
}

// LeaveQueue drops the user's queue entry and any undelivered match record.
func (bs *BattleServer) LeaveQueue(userId int) bool {
	q := bs.queue
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := q.remove(userId)
	if removed {
		bs.stats.Decr(stats.QueuedPlayers)
	}
	if _, ok := q.matches[userId]; ok {
		delete(q.matches, userId)
		removed = true
	}

	return removed
}

// QueueStatus delivers a pending match record, or retries matching for a
// queued user.
func (bs *BattleServer) QueueStatus(ctx context.Context, userId int) (QueueResult, error) {
	q := bs.queue
	q.mu.Lock()
	defer q.mu.Unlock()

	if rec, ok := q.matches[userId]; ok {
		delete(q.matches, userId)
		return matchedResult(rec.RoomCode, rec.Opponent), nil
	}

	pos := q.position(userId)
	if pos == 0 {
		return QueueResult{State: QueueIdle}, nil
	}

	self := q.entries[pos-1]
	if opp, ok := q.tryMatch(self); ok {
		return bs.completeMatch(self, opp)
	}

	return bs.waitingResult(pos, bs.clock()), nil
}

// QueueSnapshot summarizes the current queue.
func (bs *BattleServer) QueueSnapshot() QueueStats {
	q := bs.queue
	q.mu.Lock()
	defer q.mu.Unlock()

	st := QueueStats{
		Size:    len(q.entries),
		Pending: len(q.matches),
	}
	if len(q.entries) == 0 {
		return st
	}

	now := bs.clock()
	var total time.Duration
	for _, e := range q.entries {
		total += now.Sub(e.EnqueuedAt)
	}
	st.OldestWait = now.Sub(q.entries[0].EnqueuedAt)
	st.AverageWait = total / time.Duration(len(q.entries))

	return st
}

// completeMatch creates the ashes room for initiator and opp, dequeues both
// and leaves a match record for opp. Must hold q.mu.
func (bs *BattleServer) completeMatch(initiator, opp QueueEntry) (QueueResult, error) {
	room, err := bs.createMatchRoom(opp, initiator)
	if err != nil {
		return QueueResult{}, err
	}

	q := bs.queue
	for _, id := range []int{opp.UserId, initiator.UserId} {
		if q.remove(id) {
			bs.stats.Decr(stats.QueuedPlayers)
		}
	}

	q.matches[opp.UserId] = MatchRecord{
		RoomCode: room.Code,
		Opponent: Opponent{Id: initiator.UserId, Username: initiator.Username, Rating: initiator.Rating},
	}
	bs.stats.Incr(stats.MatchesMade)
	bs.log.Printf("matched user %d (%d) with user %d (%d) in room %q",
		initiator.UserId, initiator.Rating, opp.UserId, opp.Rating, room.Code)

	return matchedResult(room.Code, Opponent{Id: opp.UserId, Username: opp.Username, Rating: opp.Rating}), nil
}

func (bs *BattleServer) createMatchRoom(first, second QueueEntry) (database.Room, error) {
	question, err := bs.catalog.Random()
	if err != nil {
		return database.Room{}, upstream("pick question", err)
	}

	now := bs.clock()
	room, err := bs.insertRoom(database.Room{
		Mode:           database.ModeAshes,
		CreatedBy:      first.UserId,
		Participants:   []int{first.UserId, second.UserId},
		BattleStarted:  true,
		QuestionId:     &question.Id,
		Scores:         map[int]int{first.UserId: 0, second.UserId: 0},
		TimerStartedAt: &now,
	})
	if err != nil {
		return database.Room{}, err
	}

	if err := bs.db.IncrementBattlesFought(room.Participants); err != nil {
		bs.log.Printf("IncrementBattlesFought for room %q: %v", room.Code, err)
	}

	return room, nil
}

func matchedResult(code string, opp Opponent) QueueResult {
	return QueueResult{
		State:    QueueMatched,
		RoomCode: code,
		Opponent: &opp,
	}
}

// waitingResult must be called with q.mu held.
func (bs *BattleServer) waitingResult(pos int, now time.Time) QueueResult {
	e := bs.queue.entries[pos-1]
	return QueueResult{
		State:         QueueWaiting,
		QueuePosition: pos,
		QueueSize:     len(bs.queue.entries),
		WaitTime:      now.Sub(e.EnqueuedAt),
	}
}
