package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/AccelByte/extend-play-session/pkg/session"

	"google.golang.org/grpc/codes"
)

// httpStatus maps a session error onto an HTTP status code.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrAlreadyDone):
		return http.StatusConflict
	case errors.Is(err, session.ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// grpcCode maps a session error onto a gRPC status code.
func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, session.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrAlreadyDone):
		return codes.FailedPrecondition
	case errors.Is(err, session.ErrConflict):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", session.ErrInvalidArgument, msg)
}
