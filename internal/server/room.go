package server

import (
	"context"
	"time"

	"github.com/npezzotti/go-codeduel/internal/stats"
)

const idleRoomTimeout = time.Second * 30

type roomOp struct {
	fn   func()
	done chan struct{}
}

// roomActor serializes every operation on one room code. It holds no room
// state of its own; each operation reads and writes the repository.
type roomActor struct {
	code string
	bs   *BattleServer
	ops  chan *roomOp
	// pending counts operations routed to this actor that have not finished.
	// It is guarded by bs.roomsLock.
	pending int
	// killTimer is used to automatically unload the room when it is no longer active
	killTimer *time.Timer
}

func (r *roomActor) start() {
	defer r.bs.wg.Done()

	r.killTimer = time.NewTimer(idleRoomTimeout)
	defer r.killTimer.Stop()

	for {
		select {
		case op := <-r.ops:
			op.fn()
			close(op.done)
			if r.bs.release(r) {
				r.killTimer.Reset(idleRoomTimeout)
			}
		case <-r.killTimer.C:
			if r.bs.unloadIfIdle(r) {
				return
			}
			r.killTimer.Reset(idleRoomTimeout)
		case <-r.bs.stop:
			return
		}
	}
}

// acquireRoom returns the actor for code, starting one if needed, and
// registers a pending operation on it.
func (bs *BattleServer) acquireRoom(code string) (*roomActor, error) {
	bs.roomsLock.Lock()
	defer bs.roomsLock.Unlock()

	if bs.closed {
		return nil, ErrShuttingDown
	}

	r, ok := bs.rooms[code]
	if !ok {
		r = &roomActor{
			code: code,
			bs:   bs,
			ops:  make(chan *roomOp),
		}
		bs.rooms[code] = r
		bs.wg.Add(1)
		go r.start()
		bs.stats.Incr(stats.LoadedRooms)
	}
	r.pending++

	return r, nil
}

// release drops one pending operation and reports whether the actor is idle.
func (bs *BattleServer) release(r *roomActor) bool {
	bs.roomsLock.Lock()
	defer bs.roomsLock.Unlock()

	r.pending--
	return r.pending == 0
}

func (bs *BattleServer) unloadIfIdle(r *roomActor) bool {
	bs.roomsLock.Lock()
	defer bs.roomsLock.Unlock()

	if r.pending > 0 {
		return false
	}

	if bs.rooms[r.code] == r {
		delete(bs.rooms, r.code)
		bs.stats.Decr(stats.LoadedRooms)
	}
	return true
}

// withRoom runs fn on the actor owning code. Once the actor accepts fn it
// always runs to completion, even if ctx is cancelled meanwhile.
func (bs *BattleServer) withRoom(ctx context.Context, code string, fn func() error) error {
	if !validCode(code) {
		return ErrInvalidCode
	}

	r, err := bs.acquireRoom(code)
	if err != nil {
		return err
	}

	var opErr error
	op := &roomOp{
		fn:   func() { opErr = fn() },
		done: make(chan struct{}),
	}

	select {
	case r.ops <- op:
	case <-bs.stop:
		bs.release(r)
		return ErrShuttingDown
	case <-ctx.Done():
		bs.release(r)
		return ctx.Err()
	}

	<-op.done
	return opErr
}
