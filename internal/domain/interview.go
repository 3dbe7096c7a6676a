package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// InterviewStatus represents the lifecycle state of an interview.
type InterviewStatus string

const (
	InterviewScheduled   InterviewStatus = "scheduled"
	InterviewConfirmed   InterviewStatus = "confirmed"
	InterviewRescheduled InterviewStatus = "rescheduled"
	InterviewInProgress  InterviewStatus = "in_progress"
	InterviewCompleted   InterviewStatus = "completed"
	InterviewCancelled   InterviewStatus = "cancelled"
	InterviewNoShow      InterviewStatus = "no_show"
)

var interviewTransitions = map[InterviewStatus][]InterviewStatus{
	InterviewScheduled:   {InterviewConfirmed, InterviewRescheduled, InterviewInProgress, InterviewCompleted, InterviewCancelled, InterviewNoShow},
	InterviewConfirmed:   {InterviewRescheduled, InterviewInProgress, InterviewCompleted, InterviewCancelled, InterviewNoShow},
	InterviewRescheduled: {InterviewConfirmed, InterviewRescheduled, InterviewInProgress, InterviewCompleted, InterviewCancelled, InterviewNoShow},
	InterviewInProgress:  {InterviewCompleted, InterviewCancelled},
}

// BookingStatuses are the statuses in which an interview occupies its
// interviewers' calendars.
var BookingStatuses = []InterviewStatus{InterviewScheduled, InterviewConfirmed, InterviewRescheduled, InterviewInProgress}

// AwaitsResponse reports whether the candidate may still accept or decline.
func (s InterviewStatus) AwaitsResponse() bool {
	switch s {
	case InterviewScheduled, InterviewConfirmed, InterviewRescheduled:
		return true
	}
	return false
}

// AllowedNext lists the statuses reachable from s.
func (s InterviewStatus) AllowedNext() []InterviewStatus {
	return slices.Clone(interviewTransitions[s])
}

// CanTransition reports whether s -> to is permitted.
func (s InterviewStatus) CanTransition(to InterviewStatus) bool {
	return slices.Contains(interviewTransitions[s], to)
}

// Terminal reports whether the interview has finished.
func (s InterviewStatus) Terminal() bool {
	return s == InterviewCompleted || s == InterviewCancelled || s == InterviewNoShow
}

// HoldsBooking reports whether s blocks the interviewers' time.
func (s InterviewStatus) HoldsBooking() bool {
	return slices.Contains(BookingStatuses, s)
}

// InterviewKind is the interview format.
type InterviewKind string

const (
	InterviewPhone  InterviewKind = "phone"
	InterviewVideo  InterviewKind = "video"
	InterviewOnsite InterviewKind = "onsite"
)

// CandidateResponse values.
const (
	ResponsePending  = "pending"
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
)

// Recommendation is an interviewer's hiring recommendation.
type Recommendation string

const (
	RecommendStrongHire   Recommendation = "strong_hire"
	RecommendHire         Recommendation = "hire"
	RecommendNoHire       Recommendation = "no_hire"
	RecommendStrongNoHire Recommendation = "strong_no_hire"
)

// Valid reports whether r is a known recommendation.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendStrongHire, RecommendHire, RecommendNoHire, RecommendStrongNoHire:
		return true
	default:
		return false
	}
}

// Decision is the outcome recorded on an interview.
type Decision string

const (
	DecisionAdvance Decision = "advance"
	DecisionOffer   Decision = "offer"
	DecisionReject  Decision = "reject"
	DecisionHold    Decision = "hold"
)

var decisionTargets = map[Decision]ApplicationStatus{
	DecisionAdvance: ApplicationInterviewing,
	DecisionOffer:   ApplicationOfferPending,
	DecisionReject:  ApplicationRejected,
	DecisionHold:    ApplicationOnHold,
}

// ApplicationStatus returns the application status a decision maps to.
func (d Decision) ApplicationStatus() (ApplicationStatus, bool) {
	st, ok := decisionTargets[d]
	return st, ok
}

// PanelMember is one interviewer on an interview panel.
type PanelMember struct {
	InterviewerID uuid.UUID `json:"interviewer_id"`
	Role          string    `json:"role,omitempty"`
	Confirmed     bool      `json:"confirmed"`
}

// CandidateReply is the candidate's answer to an invitation.
type CandidateReply struct {
	Response    string     `json:"response"`
	Note        string     `json:"note,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// Feedback is one interviewer's assessment.
type Feedback struct {
	InterviewerID  uuid.UUID      `json:"interviewer_id"`
	SubmittedBy    uuid.UUID      `json:"submitted_by"`
	Ratings        map[string]int `json:"ratings"`
	Overall        float64        `json:"overall"`
	Recommendation Recommendation `json:"recommendation"`
	Notes          string         `json:"notes,omitempty"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// DecisionAudit records one decision, including the one it replaced.
type DecisionAudit struct {
	Previous  Decision  `json:"previous,omitempty"`
	Decision  Decision  `json:"decision"`
	DecidedBy uuid.UUID `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
	Notes     string    `json:"notes,omitempty"`
}

// Result is the current decision on an interview.
type Result struct {
	Decision  Decision        `json:"decision"`
	DecidedBy uuid.UUID       `json:"decided_by"`
	DecidedAt time.Time       `json:"decided_at"`
	Notes     string          `json:"notes,omitempty"`
	Audit     []DecisionAudit `json:"audit"`
}

// Reschedule records one change of interview time.
type Reschedule struct {
	PreviousAt  time.Time `json:"previous_at"`
	NewAt       time.Time `json:"new_at"`
	Reason      string    `json:"reason,omitempty"`
	RequestedBy uuid.UUID `json:"requested_by"`
	At          time.Time `json:"at"`
}

// Interview is one scheduled interview round for an application.
type Interview struct {
	ID                uuid.UUID       `json:"id"`
	ApplicationID     uuid.UUID       `json:"application_id"`
	JobID             uuid.UUID       `json:"job_id"`
	CandidateID       uuid.UUID       `json:"candidate_id"`
	Round             int             `json:"round"`
	Kind              InterviewKind   `json:"kind"`
	Location          string          `json:"location,omitempty"`
	Interviewers      []PanelMember   `json:"interviewers"`
	ScheduledAt       time.Time       `json:"scheduled_at"`
	DurationMinutes   int             `json:"duration_minutes"`
	Status            InterviewStatus `json:"status"`
	CandidateResponse CandidateReply  `json:"candidate_response"`
	Feedback          []Feedback      `json:"feedback"`
	Result            *Result         `json:"result,omitempty"`
	RescheduleHistory []Reschedule    `json:"reschedule_history"`
	CancelledBy       *uuid.UUID      `json:"cancelled_by,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	CreatedBy         uuid.UUID       `json:"created_by"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Duration returns the interview length.
func (i Interview) Duration() time.Duration {
	return time.Duration(i.DurationMinutes) * time.Minute
}

// EndsAt returns the exclusive end of the interview interval.
func (i Interview) EndsAt() time.Time {
	return i.ScheduledAt.Add(i.Duration())
}

// HasInterviewer reports whether id sits on the panel.
func (i Interview) HasInterviewer(id uuid.UUID) bool {
	return slices.ContainsFunc(i.Interviewers, func(p PanelMember) bool { return p.InterviewerID == id })
}

// InterviewerIDs returns the panel member ids in panel order.
func (i Interview) InterviewerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(i.Interviewers))
	for n, p := range i.Interviewers {
		ids[n] = p.InterviewerID
	}
	return ids
}

// UpsertFeedback replaces the entry for fb.InterviewerID or appends it.
func (i *Interview) UpsertFeedback(fb Feedback) {
	for n := range i.Feedback {
		if i.Feedback[n].InterviewerID == fb.InterviewerID {
			i.Feedback[n] = fb
			return
		}
	}
	i.Feedback = append(i.Feedback, fb)
}

// FeedbackComplete reports whether every panel member has submitted feedback.
func (i Interview) FeedbackComplete() bool {
	if len(i.Interviewers) == 0 {
		return false
	}
	for _, p := range i.Interviewers {
		if !slices.ContainsFunc(i.Feedback, func(f Feedback) bool { return f.InterviewerID == p.InterviewerID }) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of i.
func (i Interview) Clone() Interview {
	i.Interviewers = slices.Clone(i.Interviewers)
	i.RescheduleHistory = slices.Clone(i.RescheduleHistory)
	if i.Feedback != nil {
		fbs := make([]Feedback, len(i.Feedback))
		for n, fb := range i.Feedback {
			fb.Ratings = maps.Clone(fb.Ratings)
			fbs[n] = fb
		}
		i.Feedback = fbs
	}
	if i.Result != nil {
		r := *i.Result
		r.Audit = slices.Clone(r.Audit)
		i.Result = &r
	}
	if i.CancelledBy != nil {
		id := *i.CancelledBy
		i.CancelledBy = &id
	}
	if i.CandidateResponse.RespondedAt != nil {
		t := *i.CandidateResponse.RespondedAt
		i.CandidateResponse.RespondedAt = &t
	}
	return i
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
