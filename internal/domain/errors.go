package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound             = errors.New("resource not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConflict             = errors.New("resource conflict")
	ErrIllegalTransition    = errors.New("illegal transition")
	ErrDuplicateApplication = errors.New("duplicate application")
	ErrSchedulingConflict   = errors.New("scheduling conflict")

	ErrNotAcceptingApplications = fmt.Errorf("job not accepting applications: %w", ErrIllegalTransition)
)

// Kind is the machine-readable error category returned to API callers.
type Kind string

const (
	KindValidation           Kind = "ValidationError"
	KindIllegalTransition    Kind = "IllegalTransition"
	KindSchedulingConflict   Kind = "SchedulingConflict"
	KindNotFound             Kind = "NotFound"
	KindForbidden            Kind = "Forbidden"
	KindDuplicateApplication Kind = "DuplicateApplication"
	KindSyncFailure          Kind = "SyncFailure"
	KindUnauthorized         Kind = "Unauthorized"
	KindConflict             Kind = "Conflict"
	KindMethodNotAllowed     Kind = "MethodNotAllowed"
	KindRateLimited          Kind = "RateLimited"
	KindInternal             Kind = "Internal"
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// TransitionError reports a state-machine edge that is not permitted.
type TransitionError struct {
	Entity string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: cannot move from %q to %q", e.Entity, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// SchedulingConflictError names the first interviewer found double-booked.
type SchedulingConflictError struct {
	InterviewerID          uuid.UUID
	ConflictingInterviewID uuid.UUID
}

func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("interviewer %s is already booked by interview %s", e.InterviewerID, e.ConflictingInterviewID)
}

func (e *SchedulingConflictError) Unwrap() error { return ErrSchedulingConflict }

// SyncFailure describes a committed primary write whose dependent update on
// another aggregate did not apply. It is reported as a warning, never as the
// error of the primary operation.
type SyncFailure struct {
	Entity   string    `json:"entity"`
	EntityID uuid.UUID `json:"entity_id"`
	Target   string    `json:"target"`
	Reason   string    `json:"reason"`
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("sync %s %s to %q failed: %s", e.Entity, e.EntityID, e.Target, e.Reason)
}

// KindOf classifies err into its API kind.
func KindOf(err error) Kind {
	var (
		validationErr *ValidationError
		syncErr       *SyncFailure
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr), errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.As(err, &syncErr):
		return KindSyncFailure
	case errors.Is(err, ErrIllegalTransition):
		return KindIllegalTransition
	case errors.Is(err, ErrSchedulingConflict):
		return KindSchedulingConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrDuplicateApplication):
		return KindDuplicateApplication
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}
