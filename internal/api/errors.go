package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/go-codeduel/internal/server"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func NewBadRequestError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    lower(http.StatusText(http.StatusBadRequest)),
	}
}

func NewNotFoundError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Message:    lower(http.StatusText(http.StatusNotFound)),
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Message:    lower(http.StatusText(http.StatusUnauthorized)),
	}
}

func NewForbiddenError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusForbidden,
		Message:    lower(http.StatusText(http.StatusForbidden)),
	}
}

func NewConflictError(msg string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusConflict,
		Message:    msg,
	}
}

func NewBadGatewayError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadGateway,
		Message:    lower(http.StatusText(http.StatusBadGateway)),
		Err:        err,
	}
}

func NewServiceUnavailableError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    lower(http.StatusText(http.StatusServiceUnavailable)),
	}
}

// apiErrorFor maps battle server errors onto HTTP responses.
func apiErrorFor(err error) *ApiError {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var upErr *server.UpstreamError
	switch {
	case errors.Is(err, server.ErrRoomNotFound), errors.Is(err, server.ErrUserNotFound):
		return NewNotFoundError()
	case errors.Is(err, server.ErrForbidden), errors.Is(err, server.ErrNotParticipant):
		return NewForbiddenError()
	case errors.Is(err, server.ErrInvalidCode):
		return NewBadRequestError()
	case errors.Is(err, server.ErrAlreadyStarted),
		errors.Is(err, server.ErrBattleNotStarted),
		errors.Is(err, server.ErrSessionEnded),
		errors.Is(err, server.ErrRoomFull):
		return NewConflictError(err.Error())
	case errors.Is(err, server.ErrShuttingDown),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return NewServiceUnavailableError()
	case errors.As(err, &upErr):
		return NewBadGatewayError(err)
	default:
		return NewInternalServerError(err)
	}
}
