package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus represents where a candidate is in the pipeline.
type ApplicationStatus string

const (
	ApplicationPending      ApplicationStatus = "pending"
	ApplicationReviewing    ApplicationStatus = "reviewing"
	ApplicationShortlisted  ApplicationStatus = "shortlisted"
	ApplicationInterviewing ApplicationStatus = "interviewing"
	ApplicationOfferPending ApplicationStatus = "offer_pending"
	ApplicationOnHold       ApplicationStatus = "on_hold"
	ApplicationRejected     ApplicationStatus = "rejected"
	ApplicationAccepted     ApplicationStatus = "accepted"
	ApplicationWithdrawn    ApplicationStatus = "withdrawn"
)

// applicationTransitions lists staff-driven edges. Withdrawal and
// administrative override are separate operations and not listed here.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:      {ApplicationReviewing, ApplicationRejected},
	ApplicationReviewing:    {ApplicationShortlisted, ApplicationRejected},
	ApplicationShortlisted:  {ApplicationInterviewing, ApplicationRejected},
	ApplicationInterviewing: {ApplicationOfferPending, ApplicationOnHold, ApplicationRejected},
	ApplicationOnHold:       {ApplicationInterviewing, ApplicationRejected},
	ApplicationOfferPending: {ApplicationAccepted, ApplicationRejected},
}

// ParseApplicationStatus validates a raw status string.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	switch st {
	case ApplicationPending, ApplicationReviewing, ApplicationShortlisted, ApplicationInterviewing,
		ApplicationOfferPending, ApplicationOnHold, ApplicationRejected, ApplicationAccepted, ApplicationWithdrawn:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Message: "unknown application status " + s}
}

// AllowedNext returns the statuses a staff update may move s to.
func (s ApplicationStatus) AllowedNext() []ApplicationStatus {
	return slices.Clone(applicationTransitions[s])
}

// CanTransition reports whether from -> to is a permitted staff update.
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	return slices.Contains(applicationTransitions[s], to)
}

// Absorbing reports whether only an administrative override can leave s.
func (s ApplicationStatus) Absorbing() bool {
	return s == ApplicationRejected || s == ApplicationAccepted || s == ApplicationWithdrawn
}

// NudgedByScheduling reports whether scheduling an interview moves s to
// interviewing.
func (s ApplicationStatus) NudgedByScheduling() bool {
	return s == ApplicationPending || s == ApplicationReviewing || s == ApplicationShortlisted
}

// StatusChange is one entry of an application's history.
type StatusChange struct {
	Status   ApplicationStatus `json:"status"`
	ActorID  uuid.UUID         `json:"actor_id"`
	At       time.Time         `json:"at"`
	Note     string            `json:"note,omitempty"`
	Override bool              `json:"override,omitempty"`
}

// ScoreState reports the outcome of resume scoring.
type ScoreState string

const (
	ScoreScored   ScoreState = "scored"
	ScoreUnscored ScoreState = "unscored"
	ScoreTimedOut ScoreState = "timed_out"
)

// ScoreInfo is the match score supplied by the scoring oracle.
type ScoreInfo struct {
	State   ScoreState `json:"state"`
	Match   *float64   `json:"match,omitempty"`
	Summary string     `json:"summary,omitempty"`
}

// Application is a candidate's application to a job.
type Application struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	CandidateID     uuid.UUID         `json:"candidate_id" db:"candidate_id"`
	JobID           uuid.UUID         `json:"job_id" db:"job_id"`
	Status          ApplicationStatus `json:"status" db:"status"`
	StatusHistory   []StatusChange    `json:"status_history" db:"-"`
	CoverLetter     string            `json:"cover_letter,omitempty" db:"cover_letter"`
	Score           ScoreInfo         `json:"score" db:"-"`
	WithdrawnAt     *time.Time        `json:"withdrawn_at,omitempty" db:"withdrawn_at"`
	WithdrawnReason string            `json:"withdrawn_reason,omitempty" db:"withdrawn_reason"`
	Version         int               `json:"version" db:"version"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy of a.
func (a Application) Clone() Application {
	a.StatusHistory = slices.Clone(a.StatusHistory)
	if a.Score.Match != nil {
		m := *a.Score.Match
		a.Score.Match = &m
	}
	if a.WithdrawnAt != nil {
		t := *a.WithdrawnAt
		a.WithdrawnAt = &t
	}
	return a
}

// WithStatus returns a copy of a moved to status with a history entry appended.
// The entry timestamp never precedes the previous entry.
func (a Application) WithStatus(status ApplicationStatus, actorID uuid.UUID, at time.Time, note string, override bool) Application {
	next := a.Clone()
	if n := len(next.StatusHistory); n > 0 && at.Before(next.StatusHistory[n-1].At) {
		at = next.StatusHistory[n-1].At
	}
	next.Status = status
	next.StatusHistory = append(next.StatusHistory, StatusChange{
		Status:   status,
		ActorID:  actorID,
		At:       at,
		Note:     note,
		Override: override,
	})
	next.UpdatedAt = at
	return next
}
