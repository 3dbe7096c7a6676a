package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/hiring/internal/domain"
)

// FeedbackInput is one interviewer's assessment. InterviewerID may be left
// empty when the actor submits their own feedback.
type FeedbackInput struct {
	InterviewerID  uuid.UUID
	Ratings        map[string]int
	Recommendation domain.Recommendation
	Notes          string
}

// SubmitFeedback stores or replaces an interviewer's feedback. The interview
// completes once every panel member has submitted.
func (s *InterviewService) SubmitFeedback(ctx context.Context, actor domain.Actor, id uuid.UUID, in FeedbackInput) (*domain.Interview, error) {
	if actor.ID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	overall, err := validateFeedback(in)
	if err != nil {
		return nil, err
	}
	interviewerID := in.InterviewerID
	if interviewerID == uuid.Nil {
		interviewerID = actor.ID
	}
	onBehalf := interviewerID != actor.ID
	action := domain.ActionSubmitFeedback
	if onBehalf {
		action = domain.ActionFeedbackOverride
	}
	if err := authorize(s.authz, actor, action); err != nil {
		return nil, err
	}

	updated, err := s.mutate(ctx, id, func(iv *domain.Interview, now time.Time) error {
		if !iv.HasInterviewer(interviewerID) {
			return fmt.Errorf("%s is not on the interview panel: %w", interviewerID, domain.ErrForbidden)
		}
		if iv.Status == domain.InterviewCancelled || iv.Status == domain.InterviewNoShow {
			return &domain.TransitionError{Entity: "interview", From: string(iv.Status), To: string(iv.Status), Reason: "feedback is closed"}
		}
		iv.UpsertFeedback(domain.Feedback{
			InterviewerID:  interviewerID,
			SubmittedBy:    actor.ID,
			Ratings:        in.Ratings,
			Overall:        overall,
			Recommendation: in.Recommendation,
			Notes:          in.Notes,
			SubmittedAt:    now,
		})
		if iv.FeedbackComplete() && !iv.Status.Terminal() {
			iv.Status = domain.InterviewCompleted
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit feedback on %s: %w", id, err)
	}

	slog.Info("feedback submitted", "interview_id", id, "interviewer_id", interviewerID, "on_behalf", onBehalf, "status", updated.Status)
	ev := interviewEvent(domain.EventFeedbackSubmitted, updated, actor.ID)
	ev.Attributes["interviewer_id"] = interviewerID.String()
	s.notify(ctx, ev)
	return updated, nil
}

// Decide records the outcome of an interview and carries it over to the
// application. A re-decision replaces the current one and is audited.
func (s *InterviewService) Decide(ctx context.Context, actor domain.Actor, id uuid.UUID, decision domain.Decision, notes string) (*InterviewResult, error) {
	if err := authorize(s.authz, actor, domain.ActionDecide); err != nil {
		return nil, err
	}
	target, ok := decision.ApplicationStatus()
	if !ok {
		return nil, &domain.ValidationError{Field: "decision", Message: "decision must be advance, offer, reject or hold"}
	}

	updated, err := s.mutate(ctx, id, func(iv *domain.Interview, now time.Time) error {
		if iv.Status == domain.InterviewCancelled || iv.Status == domain.InterviewNoShow {
			return &domain.TransitionError{Entity: "interview", From: string(iv.Status), To: string(iv.Status), Reason: "cannot decide on an interview that did not take place"}
		}
		if len(iv.Feedback) == 0 {
			return &domain.TransitionError{Entity: "interview", From: string(iv.Status), To: string(iv.Status), Reason: "no feedback submitted"}
		}
		entry := domain.DecisionAudit{Decision: decision, DecidedBy: actor.ID, DecidedAt: now, Notes: notes}
		var audit []domain.DecisionAudit
		if iv.Result != nil {
			entry.Previous = iv.Result.Decision
			audit = iv.Result.Audit
		}
		iv.Result = &domain.Result{
			Decision:  decision,
			DecidedBy: actor.ID,
			DecidedAt: now,
			Notes:     notes,
			Audit:     append(audit, entry),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decide interview %s: %w", id, err)
	}
	slog.Info("interview decided", "interview_id", id, "decision", decision, "actor_id", actor.ID)

	result := &InterviewResult{Interview: updated}
	note := fmt.Sprintf("interview round %d decision: %s", updated.Round, decision)
	result.Application, result.SyncFailure = s.tracker.syncDecision(ctx, actor.ID, updated.ApplicationID, target, note)

	ev := interviewEvent(domain.EventDecisionMade, updated, actor.ID)
	ev.Attributes["decision"] = string(decision)
	s.notify(ctx, ev)
	return result, nil
}

func validateFeedback(in FeedbackInput) (float64, error) {
	if len(in.Ratings) == 0 {
		return 0, &domain.ValidationError{Field: "ratings", Message: "at least one rating is required"}
	}
	sum := 0
	for name, r := range in.Ratings {
		if r < 1 || r > 5 {
			return 0, &domain.ValidationError{Field: "ratings", Message: "rating " + name + " must be between 1 and 5"}
		}
		sum += r
	}
	if !in.Recommendation.Valid() {
		return 0, &domain.ValidationError{Field: "recommendation", Message: "unknown recommendation " + string(in.Recommendation)}
	}
	return float64(sum) / float64(len(in.Ratings)), nil
}
