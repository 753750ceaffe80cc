package server

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrForbidden        = errors.New("only the host can perform this action")
	ErrNotParticipant   = errors.New("not a participant of this room")
	ErrAlreadyStarted   = errors.New("battle already started")
	ErrBattleNotStarted = errors.New("battle has not started")
	ErrSessionEnded     = errors.New("session has already ended")
	ErrRoomFull         = errors.New("room is full")
	ErrInvalidCode      = errors.New("room code must be 6 digits")
	ErrShuttingDown     = errors.New("server is shutting down")

	errCodesExhausted = errors.New("no free room code found")
)

// UpstreamError wraps failures of the question catalog or the repository.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
