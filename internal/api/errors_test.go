package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/npezzotti/go-codeduel/internal/server"
	"github.com/stretchr/testify/assert"
)

func Test_apiErrorFor(t *testing.T) {
	tcases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "room not found", err: server.ErrRoomNotFound, status: http.StatusNotFound},
		{name: "user not found", err: server.ErrUserNotFound, status: http.StatusNotFound},
		{name: "forbidden", err: server.ErrForbidden, status: http.StatusForbidden},
		{name: "not a participant", err: server.ErrNotParticipant, status: http.StatusForbidden},
		{name: "invalid code", err: server.ErrInvalidCode, status: http.StatusBadRequest},
		{name: "already started", err: server.ErrAlreadyStarted, status: http.StatusConflict},
		{name: "not started", err: server.ErrBattleNotStarted, status: http.StatusConflict},
		{name: "session ended", err: server.ErrSessionEnded, status: http.StatusConflict},
		{name: "room full", err: server.ErrRoomFull, status: http.StatusConflict},
		{name: "shutting down", err: server.ErrShuttingDown, status: http.StatusServiceUnavailable},
		{name: "cancelled", err: context.Canceled, status: http.StatusServiceUnavailable},
		{name: "upstream", err: &server.UpstreamError{Op: "get room", Err: errors.New("conn reset")}, status: http.StatusBadGateway},
		{name: "wrapped", err: fmt.Errorf("join: %w", server.ErrRoomNotFound), status: http.StatusNotFound},
		{name: "api error passes through", err: NewUnauthorizedError(), status: http.StatusUnauthorized},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, apiErrorFor(tc.err).StatusCode)
		})
	}
}

func TestApiError_Error(t *testing.T) {
	err := NewInternalServerError(errors.New("db down"))
	assert.Equal(t, "internal server error: db down", err.Error())
	assert.ErrorContains(t, err, "db down")

	assert.Equal(t, "room is full", NewConflictError(server.ErrRoomFull.Error()).Error())
}
