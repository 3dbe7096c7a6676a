package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/hiring/internal/domain"
)

// Envelope is the standard API response wrapper.
type Envelope struct {
	Success  bool                  `json:"success"`
	Data     any                   `json:"data,omitempty"`
	Warnings []*domain.SyncFailure `json:"warnings,omitempty"`
	Error    *APIError             `json:"error,omitempty"`
}

// APIError represents an error in the API response.
type APIError struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
	Details any         `json:"details,omitempty"`
}

// FieldError represents a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ConflictDetail names the double-booked interviewer.
type ConflictDetail struct {
	InterviewerID          string `json:"interviewer_id"`
	ConflictingInterviewID string `json:"conflicting_interview_id"`
}

// JSON writes a JSON response with the standard envelope.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// JSONWithWarnings writes a successful response that may carry sync warnings.
func JSONWithWarnings(c echo.Context, status int, data any, warnings ...*domain.SyncFailure) error {
	env := Envelope{Success: true, Data: data}
	for _, w := range warnings {
		if w != nil {
			env.Warnings = append(env.Warnings, w)
		}
	}
	return c.JSON(status, env)
}

// HTTPErrorHandler is the global error handler for echo.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, apiErr := mapError(err)
	if jsonErr := c.JSON(status, Envelope{Error: &apiErr}); jsonErr != nil {
		slog.Error("failed to send error response", "error", jsonErr)
	}
}

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:           http.StatusBadRequest,
	domain.KindIllegalTransition:    http.StatusConflict,
	domain.KindSchedulingConflict:   http.StatusConflict,
	domain.KindNotFound:             http.StatusNotFound,
	domain.KindForbidden:            http.StatusForbidden,
	domain.KindDuplicateApplication: http.StatusConflict,
	domain.KindUnauthorized:         http.StatusUnauthorized,
	domain.KindConflict:             http.StatusConflict,
}

func mapError(err error) (int, APIError) {
	// echo's own HTTP errors (404, 405, 429, ...)
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, APIError{Kind: echoKind(echoErr.Code), Message: msg}
	}

	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		slog.Error("unhandled error", "error", err)
		return http.StatusInternalServerError, APIError{
			Kind:    domain.KindInternal,
			Message: "An unexpected error occurred",
		}
	}

	apiErr := APIError{Kind: kind, Message: err.Error()}
	var (
		validationErr *domain.ValidationError
		conflictErr   *domain.SchedulingConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		apiErr.Message = "Validation failed"
		apiErr.Details = []FieldError{{Field: validationErr.Field, Message: validationErr.Message}}
	case errors.As(err, &conflictErr):
		apiErr.Details = ConflictDetail{
			InterviewerID:          conflictErr.InterviewerID.String(),
			ConflictingInterviewID: conflictErr.ConflictingInterviewID.String(),
		}
	case kind == domain.KindUnauthorized:
		apiErr.Message = "Authentication is required"
	case kind == domain.KindNotFound:
		apiErr.Message = "The requested resource was not found"
	}
	return status, apiErr
}

func echoKind(code int) domain.Kind {
	switch code {
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusUnauthorized:
		return domain.KindUnauthorized
	case http.StatusForbidden:
		return domain.KindForbidden
	case http.StatusMethodNotAllowed:
		return domain.KindMethodNotAllowed
	case http.StatusTooManyRequests:
		return domain.KindRateLimited
	}
	if code >= http.StatusInternalServerError {
		return domain.KindInternal
	}
	// remaining 4xx from echo are malformed requests (415, 413, ...)
	return domain.KindValidation
}
