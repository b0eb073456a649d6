package web

// errors.go turns errors into JSON responses.
//
// The technical error is logged with the request ID; the client gets the
// message, action and code from core.MapError. statusFor picks the HTTP status
// from the error chain when a handler does not know it up front.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/tabular"
)

var (
	errRateLimited  = errors.New("rate limit exceeded")
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped user message. A zero status is
// derived from err.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondErrorJSON(w, msg, status)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps known errors to HTTP statuses.
func statusFor(err error) int {
	var (
		locked  *core.KindLockedError
		tooBig  *http.MaxBytesError
		formErr *tabular.FormatError
		schema  *core.SchemaError
	)
	switch {
	case errors.Is(err, core.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.As(err, &locked), errors.Is(err, core.ErrImportInProgress):
		return http.StatusConflict
	case errors.As(err, &tooBig), errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile),
		errors.Is(err, tabular.ErrUnsupportedFormat),
		errors.As(err, &formErr),
		errors.As(err, &schema),
		errors.Is(err, core.ErrUnknownKind),
		errors.Is(err, core.ErrUnknownMode):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
