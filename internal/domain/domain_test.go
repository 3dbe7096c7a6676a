package domain

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNextJobStatus(t *testing.T) {
	tests := []struct {
		from    JobStatus
		action  JobAction
		want    JobStatus
		wantErr bool
	}{
		{JobStatusDraft, JobActionSubmit, JobStatusPendingApproval, false},
		{JobStatusPendingApproval, JobActionApprove, JobStatusOpen, false},
		{JobStatusPendingApproval, JobActionReject, JobStatusCancelled, false},
		{JobStatusOpen, JobActionPause, JobStatusPaused, false},
		{JobStatusPaused, JobActionResume, JobStatusOpen, false},
		{JobStatusOpen, JobActionFill, JobStatusFilled, false},
		{JobStatusOpen, JobActionClose, JobStatusClosed, false},
		{JobStatusPaused, JobActionCancel, JobStatusCancelled, false},
		{JobStatusDraft, JobActionApprove, JobStatusDraft, true},
		{JobStatusPaused, JobActionClose, JobStatusPaused, true},
		{JobStatusFilled, JobActionCancel, JobStatusFilled, true},
		{JobStatusCancelled, JobActionSubmit, JobStatusCancelled, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.from, tt.action), func(t *testing.T) {
			got, err := NextJobStatus(tt.from, tt.action)
			if tt.wantErr {
				if !errors.Is(err, ErrIllegalTransition) {
					t.Fatalf("expected illegal transition, got %v", err)
				}
				if KindOf(err) != KindIllegalTransition {
					t.Fatalf("unexpected kind %s", KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("NextJobStatus: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestJobStatusAllowedNextFromTerminal(t *testing.T) {
	for _, s := range []JobStatus{JobStatusClosed, JobStatusFilled, JobStatusCancelled} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
		if next := s.AllowedNext(); len(next) != 0 {
			t.Fatalf("%s has outgoing edges %v", s, next)
		}
	}
	next := JobStatusDraft.AllowedNext()
	for _, want := range []JobStatus{JobStatusPendingApproval, JobStatusOpen, JobStatusCancelled} {
		if !slices.Contains(next, want) {
			t.Fatalf("draft should reach %s, got %v", want, next)
		}
	}
}

func TestApplicationTransitions(t *testing.T) {
	if !ApplicationPending.CanTransition(ApplicationReviewing) {
		t.Fatal("pending -> reviewing should be allowed")
	}
	if ApplicationPending.CanTransition(ApplicationOfferPending) {
		t.Fatal("pending -> offer_pending should be refused")
	}
	if ApplicationPending.CanTransition(ApplicationWithdrawn) {
		t.Fatal("withdrawn is reachable only through withdraw")
	}
	for _, s := range []ApplicationStatus{ApplicationRejected, ApplicationAccepted, ApplicationWithdrawn} {
		if !s.Absorbing() {
			t.Fatalf("%s should be absorbing", s)
		}
		if len(s.AllowedNext()) != 0 {
			t.Fatalf("%s should have no staff edges", s)
		}
	}
	if _, err := ParseApplicationStatus("screening"); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplicationWithStatusKeepsHistoryMonotonic(t *testing.T) {
	actor := uuid.New()
	t0 := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	app := Application{Status: ApplicationPending, StatusHistory: []StatusChange{{Status: ApplicationPending, ActorID: actor, At: t0}}}

	next := app.WithStatus(ApplicationReviewing, actor, t0.Add(-time.Hour), "skewed clock", false)

	if len(app.StatusHistory) != 1 {
		t.Fatalf("original history mutated: %v", app.StatusHistory)
	}
	if len(next.StatusHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(next.StatusHistory))
	}
	if next.StatusHistory[1].At.Before(next.StatusHistory[0].At) {
		t.Fatalf("history timestamps went backwards: %v", next.StatusHistory)
	}
	if next.Status != ApplicationReviewing {
		t.Fatalf("unexpected status %s", next.Status)
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 1, 10, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"partial overlap", at(10, 0), at(11, 0), at(10, 30), at(11, 30), true},
		{"contained", at(10, 0), at(12, 0), at(10, 30), at(11, 0), true},
		{"back to back", at(10, 0), at(11, 0), at(11, 0), at(12, 0), false},
		{"before", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"identical", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Fatalf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd); got != tt.want {
				t.Fatalf("Overlaps not symmetric")
			}
		})
	}
}

func TestUpsertFeedbackAndCompleteness(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	iv := Interview{Interviewers: []PanelMember{{InterviewerID: a}, {InterviewerID: b}}}

	iv.UpsertFeedback(Feedback{InterviewerID: a, Notes: "first"})
	iv.UpsertFeedback(Feedback{InterviewerID: a, Notes: "second"})
	if len(iv.Feedback) != 1 || iv.Feedback[0].Notes != "second" {
		t.Fatalf("expected single last-write entry, got %+v", iv.Feedback)
	}
	if iv.FeedbackComplete() {
		t.Fatal("feedback should be incomplete with one of two interviewers")
	}
	iv.UpsertFeedback(Feedback{InterviewerID: b})
	if !iv.FeedbackComplete() {
		t.Fatal("feedback should be complete")
	}
}

func TestKindOfWrappedErrors(t *testing.T) {
	conflict := fmt.Errorf("schedule: %w", &SchedulingConflictError{InterviewerID: uuid.New(), ConflictingInterviewID: uuid.New()})
	if KindOf(conflict) != KindSchedulingConflict {
		t.Fatalf("unexpected kind %s", KindOf(conflict))
	}
	if KindOf(fmt.Errorf("load: %w", ErrNotFound)) != KindNotFound {
		t.Fatal("expected NotFound")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("expected Internal")
	}
}
