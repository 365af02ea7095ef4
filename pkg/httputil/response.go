package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/einarr2o12/review-service/pkg/errors"
	"github.com/einarr2o12/review-service/pkg/logger"
	"github.com/einarr2o12/review-service/pkg/validator"
)

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the JSON body for operations that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
// If encoding fails, the error is logged but headers are already sent so nothing can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an {"error": ...} response whose status is derived from
// err. AppErrors keep their own message; bare sentinels get a generic one.
// Server-side failures are logged with the request-scoped logger from context
// (set by the RequestLogger middleware) or the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	status := apperrors.HTTPStatus(err)
	message := "an internal error occurred"

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Message
	case errors.Is(err, apperrors.ErrNotFound):
		message = "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.Int("status", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteValidationError writes a 400 response for a failed request validation.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: valErr.Message()})
		return
	}

	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// NotFound writes the JSON 404 used for unknown routes and malformed ids.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not Found"})
}

// MethodNotAllowed writes the JSON 405 for routes that exist under another method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method Not Allowed"})
}

// ParseID parses a positive-or-zero integer path parameter. A value that is
// not a base-10 int64 does not address any resource, so a 404 is written and
// false is returned, signaling the caller to return early.
func ParseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id < 0 {
		NotFound(w, r)
		return 0, false
	}
	return id, true
}
