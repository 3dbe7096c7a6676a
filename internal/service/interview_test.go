package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/hiring/internal/domain"
)

var slot = time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

func TestHiringScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.openJob(t)
	candidate := newCandidate()
	interviewer := newInterviewer()
	app := h.apply(t, candidate, job.ID)

	res := h.schedule(t, app.ID, slot, interviewer)
	if res.SyncFailure != nil {
		t.Fatalf("unexpected sync failure %+v", res.SyncFailure)
	}
	if res.Interview.Status != domain.InterviewScheduled || res.Interview.CandidateID != candidate.ID {
		t.Fatalf("unexpected interview %+v", res.Interview)
	}
	if res.Application.Status != domain.ApplicationInterviewing {
		t.Fatalf("expected application nudged to interviewing, got %s", res.Application.Status)
	}

	other := h.apply(t, newCandidate(), job.ID)
	_, err := h.scheduler.Schedule(ctx, h.recruiter, scheduleInput(other.ID, slot.Add(30*time.Minute), interviewer))
	var conflict *domain.SchedulingConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected scheduling conflict, got %v", err)
	}
	if conflict.InterviewerID != interviewer.ID || conflict.ConflictingInterviewID != res.Interview.ID {
		t.Fatalf("unexpected conflict %+v", conflict)
	}
	untouched, err := h.tracker.Get(ctx, h.recruiter, other.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if untouched.Status != domain.ApplicationPending {
		t.Fatalf("conflicting schedule must not touch the application, got %s", untouched.Status)
	}

	iv, err := h.scheduler.Respond(ctx, candidate, res.Interview.ID, domain.ResponseAccepted, "see you")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if iv.Status != domain.InterviewConfirmed || iv.CandidateResponse.RespondedAt == nil {
		t.Fatalf("unexpected confirmed interview %+v", iv)
	}

	iv, err = h.scheduler.SubmitFeedback(ctx, interviewer, iv.ID, feedbackFrom(domain.RecommendHire))
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if iv.Status != domain.InterviewCompleted || iv.Feedback[0].Overall != 4.5 {
		t.Fatalf("unexpected interview after feedback %+v", iv)
	}

	decided, err := h.scheduler.Decide(ctx, h.manager, iv.ID, domain.DecisionAdvance, "next round")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.SyncFailure != nil {
		t.Fatalf("unexpected sync failure %+v", decided.SyncFailure)
	}
	if decided.Interview.Result == nil || decided.Interview.Result.Decision != domain.DecisionAdvance {
		t.Fatalf("unexpected result %+v", decided.Interview.Result)
	}
	if decided.Application.Status != domain.ApplicationInterviewing {
		t.Fatalf("expected interviewing, got %s", decided.Application.Status)
	}
}

func TestConcurrentScheduleSingleWinner(t *testing.T) {
	h := newHarness(t)
	job := h.openJob(t)
	interviewer := newInterviewer()

	const n = 8
	apps := make([]uuid.UUID, n)
	for i := range apps {
		apps[i] = h.apply(t, newCandidate(), job.ID).ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(appID uuid.UUID) {
			defer wg.Done()
			_, err := h.scheduler.Schedule(context.Background(), h.recruiter, scheduleInput(appID, slot, interviewer))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrSchedulingConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(apps[i])
	}
	wg.Wait()

	if wins != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 win and %d conflicts, got %d and %d", n-1, wins, conflicts)
	}
}

func TestConcurrentRescheduleAndScheduleSingleWinner(t *testing.T) {
	h := newHarness(t)
	job := h.openJob(t)
	interviewer := newInterviewer()

	for round := 0; round < 10; round++ {
		base := slot.Add(time.Duration(round) * 24 * time.Hour)
		target := base.Add(3 * time.Hour)
		moving := h.schedule(t, h.apply(t, newCandidate(), job.ID).ID, base, interviewer)
		newcomer := h.apply(t, newCandidate(), job.ID)

		var (
			wg            sync.WaitGroup
			rescheduleErr error
			scheduleErr   error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, rescheduleErr = h.scheduler.Reschedule(context.Background(), h.recruiter, moving.Interview.ID, RescheduleInput{ScheduledAt: target})
		}()
		go func() {
			defer wg.Done()
			_, scheduleErr = h.scheduler.Schedule(context.Background(), h.recruiter, scheduleInput(newcomer.ID, target, interviewer))
		}()
		wg.Wait()

		switch {
		case rescheduleErr == nil && errors.Is(scheduleErr, domain.ErrSchedulingConflict):
		case scheduleErr == nil && errors.Is(rescheduleErr, domain.ErrSchedulingConflict):
		default:
			t.Fatalf("round %d: expected exactly one winner, got reschedule=%v schedule=%v", round, rescheduleErr, scheduleErr)
		}
	}
}

func TestScheduleValidation(t *testing.T) {
	h := newHarness(t)
	job := h.openJob(t)
	app := h.apply(t, newCandidate(), job.ID)
	a := newInterviewer()

	tests := []struct {
		name  string
		mod   func(*ScheduleInput)
		field string
	}{
		{"past", func(in *ScheduleInput) { in.ScheduledAt = testNow.Add(-time.Hour) }, "scheduled_at"},
		{"round", func(in *ScheduleInput) { in.Round = 0 }, "round"},
		{"duration", func(in *ScheduleInput) { in.DurationMinutes = 481 }, "duration_minutes"},
		{"no panel", func(in *ScheduleInput) { in.Interviewers = nil }, "interviewers"},
		{"duplicate", func(in *ScheduleInput) { in.Interviewers = append(in.Interviewers, in.Interviewers[0]) }, "interviewers"},
		{"kind", func(in *ScheduleInput) { in.Kind = "carrier-pigeon" }, "kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scheduleInput(app.ID, slot, a)
			tt.mod(&in)
			_, err := h.scheduler.Schedule(context.Background(), h.recruiter, in)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("expected %s validation error, got %v", tt.field, err)
			}
		})
	}
}

func TestScheduleRefusedForClosedApplication(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.openJob(t)
	candidate := newCandidate()
	app := h.apply(t, candidate, job.ID)
	if _, err := h.tracker.Withdraw(ctx, candidate, app.ID, ""); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	_, err := h.scheduler.Schedule(ctx, h.recruiter, scheduleInput(app.ID, slot, newInterviewer()))
	assertKind(t, err, domain.KindIllegalTransition)
}

func TestScheduleKeepsLaterStage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.openJob(t)
	app := h.apply(t, newCandidate(), job.ID)
	first := h.schedule(t, app.ID, slot, newInterviewer())
	if _, err := h.tracker.UpdateStatus(ctx, h.recruiter, app.ID, domain.ApplicationOnHold, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	second := h.schedule(t, app.ID, slot.Add(24*time.Hour), newInterviewer())
	if second.SyncFailure != nil || second.Application.Status != domain.ApplicationOnHold {
		t.Fatalf("expected on_hold to be left alone, got %+v %+v", second.Application, second.SyncFailure)
	}
	if first.Interview.ID == second.Interview.ID {
		t.Fatal("expected distinct interviews")
	}
}

func TestRescheduleExcludesItself(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.openJob(t)
	candidate := newCandidate()
	a := newInterviewer()
	app := h.apply(t, candidate, job.ID)
	res := h.schedule(t, app.ID, slot, a)

	if _, err := h.scheduler.Respond(ctx, candidate, res.Interview.ID, domain.ResponseAccepted, ""); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	iv, err := h.scheduler.Reschedule(ctx, h.recruiter, res.Interview.ID, RescheduleInput{
		ScheduledAt: slot.Add(30 * time.Minute),
		Reason:      "room change",
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if iv.Status != domain.InterviewRescheduled || iv.CandidateResponse.Response != domain.ResponsePending {
		t.Fatalf("unexpected rescheduled interview %+v", iv)
	}
	if len(iv.RescheduleHistory) != 1 || !iv.RescheduleHistory[0].PreviousAt.Equal(slot) || iv.DurationMinutes != 60 {
		t.Fatalf("unexpected reschedule history %+v", iv.RescheduleHistory)
	}

	other := h.apply(t, newCandidate(), job.ID)
	blocker := h.schedule(t, other.ID, slot.Add(3*time.Hour), a)
	_, err = h.scheduler.Reschedule(ctx, h.recruiter, res.Interview.ID, RescheduleInput{ScheduledAt: slot.Add(150 * time.Minute)})
	var conflict *domain.SchedulingConflictError
	if !errors.As(err, &conflict) || conflict.ConflictingInterviewID != blocker.Interview.ID {
		t.Fatalf("expected conflict with %s, got %v", blocker.Interview.ID, err)
	}
}

func TestRespond(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.openJob(t)
	candidate := newCandidate()
	app := h.apply(t, candidate, job.ID)
	res := h.schedule(t, app.ID, slot, newInterviewer())

	_, err := h.scheduler.Respond(ctx, candidate, res.Interview.ID, "maybe", "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "response" {
		t.Fatalf("expected response validation error, got %v", err)
	}

	_, err = h.scheduler.Respond(ctx, newCandidate(), res.Interview.ID, domain.ResponseAccepted, "")
	assertKind(t, err, domain.KindForbidden)

	iv, err := h.scheduler.Respond(ctx, candidate, res.Interview.ID, domain.ResponseDeclined, "")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if iv.Status != domain.InterviewCancelled || iv.CancelledBy == nil || *iv.CancelledBy != candidate.ID {
		t.Fatalf("unexpected declined interview %+v", iv)
	}

	_, err = h.scheduler.Respond(ctx, candidate, res.Interview.ID, domain.ResponseAccepted, "")
	assertKind(t, err, domain.KindIllegalTransition)

	running := h.schedule(t, h.apply(t, candidate, h.openJob(t).ID).ID, slot.Add(2*time.Hour), newInterviewer())
	if _, err := h.scheduler.Start(ctx, h.recruiter, running.Interview.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err = h.scheduler.Respond(ctx, candidate, running.Interview.ID, domain.ResponseDeclined, "")
	assertKind(t, err, domain.KindIllegalTransition)
	iv, err = h.scheduler.Get(ctx, candidate, running.Interview.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if iv.Status != domain.InterviewInProgress || iv.CancelledBy != nil {
		t.Fatalf("expected running interview untouched, got %s", iv.Status)
	}
}

func TestConfirmAttendance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.openJob(t)
	a, b := newInterviewer(), newInterviewer()
	res := h.schedule(t, h.apply(t, newCandidate(), job.ID).ID, slot, a, b)

	iv, err := h.scheduler.ConfirmAttendance(ctx, a, res.Interview.ID)
	if err != nil {
		t.Fatalf("ConfirmAttendance: %v", err)
	}
	if !iv.Interviewers[0].Confirmed || iv.Interviewers[1].Confirmed {
		t.Fatalf("expected only the first panel member confirmed, got %+v", iv.Interviewers)
	}

	_, err = h.scheduler.ConfirmAttendance(ctx, newInterviewer(), res.Interview.ID)
	assertKind(t, err, domain.KindForbidden)

	iv, err = h.scheduler.Reschedule(ctx, h.recruiter, res.Interview.ID, RescheduleInput{ScheduledAt: slot.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if iv.Interviewers[0].Confirmed {
		t.Fatalf("expected reschedule to clear confirmations, got %+v", iv.Interviewers)
	}

	if _, err := h.scheduler.Start(ctx, h.recruiter, res.Interview.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err = h.scheduler.ConfirmAttendance(ctx, b, res.Interview.ID)
	assertKind(t, err, domain.KindIllegalTransition)
}

func TestCancelledInterviewFreesSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.openJob(t)
	a := newInterviewer()
	res := h.schedule(t, h.apply(t, newCandidate(), job.ID).ID, slot, a)

	if _, err := h.scheduler.Cancel(ctx, h.recruiter, res.Interview.ID, "panel unavailable"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	h.schedule(t, h.apply(t, newCandidate(), job.ID).ID, slot, a)

	_, err := h.scheduler.Start(ctx, h.recruiter, res.Interview.ID)
	assertKind(t, err, domain.KindIllegalTransition)
}

func TestStartAndNoShow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.openJob(t)
	first := h.schedule(t, h.apply(t, newCandidate(), job.ID).ID, slot, newInterviewer())
	second := h.schedule(t, h.apply(t, newCandidate(), job.ID).ID, slot, newInterviewer())

	iv, err := h.scheduler.Start(ctx, h.recruiter, first.Interview.ID)
	if err != nil || iv.Status != domain.InterviewInProgress {
		t.Fatalf("Start: %v %+v", err, iv)
	}
	_, err = h.scheduler.MarkNoShow(ctx, h.recruiter, first.Interview.ID)
	assertKind(t, err, domain.KindIllegalTransition)

	iv, err = h.scheduler.MarkNoShow(ctx, h.recruiter, second.Interview.ID)
	if err != nil || iv.Status != domain.InterviewNoShow {
		t.Fatalf("MarkNoShow: %v %+v", err, iv)
	}
	_, err = h.scheduler.SubmitFeedback(ctx, h.hr, second.Interview.ID, FeedbackInput{
		InterviewerID:  second.Interview.Interviewers[0].InterviewerID,
		Ratings:        map[string]int{"x": 3},
		Recommendation: domain.RecommendNoHire,
	})
	assertKind(t, err, domain.KindIllegalTransition)
}

func TestGetInterviewVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.openJob(t)
	candidate := newCandidate()
	res := h.schedule(t, h.apply(t, candidate, job.ID).ID, slot, newInterviewer())

	if _, err := h.scheduler.Get(ctx, candidate, res.Interview.ID); err != nil {
		t.Fatalf("candidate Get: %v", err)
	}
	_, err := h.scheduler.Get(ctx, newCandidate(), res.Interview.ID)
	assertKind(t, err, domain.KindForbidden)
	_, err = h.scheduler.Get(ctx, h.recruiter, uuid.New())
	assertKind(t, err, domain.KindNotFound)
}
