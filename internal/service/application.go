package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/hiring/internal/domain"
	"github.com/sumire/hiring/internal/scoring"
)

const defaultScoreTimeout = 3 * time.Second

// ApplicationService owns application status and its history.
type ApplicationService struct {
	settings
	apps         ApplicationStore
	jobs         JobStore
	authz        Authorizer
	scorer       ScoringOracle
	scoreTimeout time.Duration
}

// NewApplicationService creates a new ApplicationService. scorer may be nil.
func NewApplicationService(apps ApplicationStore, jobs JobStore, authz Authorizer, scorer ScoringOracle, scoreTimeout time.Duration, opts ...Option) *ApplicationService {
	if scoreTimeout <= 0 {
		scoreTimeout = defaultScoreTimeout
	}
	return &ApplicationService{
		settings:     newSettings(opts),
		apps:         apps,
		jobs:         jobs,
		authz:        authz,
		scorer:       scorer,
		scoreTimeout: scoreTimeout,
	}
}

// Apply creates the application of actor to jobID.
func (s *ApplicationService) Apply(ctx context.Context, actor domain.Actor, jobID uuid.UUID, coverLetter string) (*domain.Application, error) {
	if err := authorize(s.authz, actor, domain.ActionApply); err != nil {
		return nil, err
	}

	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if !job.AcceptsApplications() {
		return nil, fmt.Errorf("job %s is %s: %w", job.ID, job.Status, domain.ErrNotAcceptingApplications)
	}
	if job.InternalOnly && !actor.VerifiedStaff {
		return nil, fmt.Errorf("job %s is internal only: %w", job.ID, domain.ErrNotAcceptingApplications)
	}

	if _, err := s.apps.FindByCandidateAndJob(ctx, actor.ID, jobID); err == nil {
		return nil, domain.ErrDuplicateApplication
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check existing application: %w", err)
	}

	score := s.score(ctx, *job, actor.ID, coverLetter)

	now := s.clock()
	app, err := s.apps.Create(ctx, domain.Application{
		ID:          uuid.New(),
		CandidateID: actor.ID,
		JobID:       jobID,
		Status:      domain.ApplicationPending,
		StatusHistory: []domain.StatusChange{
			{Status: domain.ApplicationPending, ActorID: actor.ID, At: now, Note: "application submitted"},
		},
		CoverLetter: coverLetter,
		Score:       score,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	slog.Info("application created", "application_id", app.ID, "job_id", jobID, "candidate_id", actor.ID, "score_state", score.State)
	s.notify(ctx, domain.Event{
		Type:       domain.EventApplicationCreated,
		EntityID:   app.ID,
		ActorID:    actor.ID,
		Recipients: nonNil(job.HiringManagerID),
		Attributes: map[string]string{"job_id": jobID.String()},
	})
	return app, nil
}

// Get returns an application. Candidates can only read their own.
func (s *ApplicationService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Application, error) {
	if actor.ID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.CandidateID != actor.ID && !s.authz.CanPerform(actor.Role, domain.ActionApplicationReadAll) {
		return nil, domain.ErrForbidden
	}
	return app, nil
}

// UpdateStatus moves an application along the staff adjacency table.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.ApplicationStatus, note string) (*domain.Application, error) {
	if err := authorize(s.authz, actor, domain.ActionUpdateStatus); err != nil {
		return nil, err
	}
	app, err := s.transition(ctx, actor.ID, id, status, note)
	if err != nil {
		return nil, fmt.Errorf("update application %s: %w", id, err)
	}
	s.notifyStatus(ctx, app, actor.ID, note)
	return app, nil
}

// Withdraw is the candidate's exit from the pipeline.
func (s *ApplicationService) Withdraw(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*domain.Application, error) {
	if err := authorize(s.authz, actor, domain.ActionWithdraw); err != nil {
		return nil, err
	}
	app, err := s.mutate(ctx, id, func(app domain.Application, now time.Time) (*domain.Application, error) {
		if app.CandidateID != actor.ID {
			return nil, fmt.Errorf("application belongs to another candidate: %w", domain.ErrForbidden)
		}
		if app.Status.Absorbing() {
			return nil, &domain.TransitionError{
				Entity: "application",
				From:   string(app.Status),
				To:     string(domain.ApplicationWithdrawn),
				Reason: "application is closed",
			}
		}
		next := app.WithStatus(domain.ApplicationWithdrawn, actor.ID, now, reason, false)
		next.WithdrawnAt = ptr(next.UpdatedAt)
		next.WithdrawnReason = reason
		return &next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw application %s: %w", id, err)
	}

	slog.Info("application withdrawn", "application_id", id, "candidate_id", actor.ID)
	s.notify(ctx, domain.Event{
		Type:       domain.EventApplicationWithdrawn,
		EntityID:   app.ID,
		ActorID:    actor.ID,
		Attributes: map[string]string{"reason": reason},
	})
	return app, nil
}

// Override is the administrative escape hatch out of any status, absorbing
// ones included. It is recorded as an override in history.
func (s *ApplicationService) Override(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.ApplicationStatus, note string) (*domain.Application, error) {
	if err := authorize(s.authz, actor, domain.ActionOverride); err != nil {
		return nil, err
	}
	if strings.TrimSpace(note) == "" {
		return nil, &domain.ValidationError{Field: "note", Message: "an override requires a note"}
	}
	app, err := s.mutate(ctx, id, func(app domain.Application, now time.Time) (*domain.Application, error) {
		if app.Status == status {
			return nil, &domain.TransitionError{Entity: "application", From: string(app.Status), To: string(status), Reason: "already in status"}
		}
		next := app.WithStatus(status, actor.ID, now, note, true)
		if status == domain.ApplicationWithdrawn {
			next.WithdrawnAt = ptr(next.UpdatedAt)
			next.WithdrawnReason = note
		} else {
			next.WithdrawnAt = nil
			next.WithdrawnReason = ""
		}
		return &next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("override application %s: %w", id, err)
	}
	slog.Warn("application status overridden", "application_id", id, "status", status, "actor_id", actor.ID)
	s.notifyStatus(ctx, app, actor.ID, note)
	return app, nil
}

// transition applies a staff edge from the adjacency table.
func (s *ApplicationService) transition(ctx context.Context, actorID, id uuid.UUID, status domain.ApplicationStatus, note string) (*domain.Application, error) {
	return s.mutate(ctx, id, func(app domain.Application, now time.Time) (*domain.Application, error) {
		if !app.Status.CanTransition(status) {
			reason := ""
			if status == domain.ApplicationWithdrawn {
				reason = "only the candidate can withdraw"
			}
			return nil, &domain.TransitionError{Entity: "application", From: string(app.Status), To: string(status), Reason: reason}
		}
		next := app.WithStatus(status, actorID, now, note, false)
		return &next, nil
	})
}

// advanceForInterview moves an early-stage application to interviewing after
// a round is scheduled. Later stages are left untouched.
func (s *ApplicationService) advanceForInterview(ctx context.Context, actorID, id uuid.UUID, note string) (*domain.Application, *domain.SyncFailure) {
	app, err := s.mutate(ctx, id, func(app domain.Application, now time.Time) (*domain.Application, error) {
		if !app.Status.NudgedByScheduling() {
			return nil, nil
		}
		next := app.WithStatus(domain.ApplicationInterviewing, actorID, now, note, false)
		return &next, nil
	})
	if err != nil {
		return s.syncFailed(ctx, id, domain.ApplicationInterviewing, err)
	}
	return app, nil
}

// syncDecision applies the status an interview decision maps to. An
// application already in that status is left as is.
func (s *ApplicationService) syncDecision(ctx context.Context, actorID, id uuid.UUID, target domain.ApplicationStatus, note string) (*domain.Application, *domain.SyncFailure) {
	app, err := s.mutate(ctx, id, func(app domain.Application, now time.Time) (*domain.Application, error) {
		if app.Status == target {
			return nil, nil
		}
		if !app.Status.CanTransition(target) {
			return nil, &domain.TransitionError{Entity: "application", From: string(app.Status), To: string(target)}
		}
		next := app.WithStatus(target, actorID, now, note, false)
		return &next, nil
	})
	if err != nil {
		return s.syncFailed(ctx, id, target, err)
	}
	return app, nil
}

func (s *ApplicationService) syncFailed(ctx context.Context, id uuid.UUID, target domain.ApplicationStatus, err error) (*domain.Application, *domain.SyncFailure) {
	slog.Warn("application sync failed", "application_id", id, "target", target, "error", err)
	failure := &domain.SyncFailure{
		Entity:   "application",
		EntityID: id,
		Target:   string(target),
		Reason:   err.Error(),
	}
	current, loadErr := s.apps.FindByID(ctx, id)
	if loadErr != nil {
		return nil, failure
	}
	return current, failure
}

// mutate runs read, step, conditional write with retries. A step returning
// a nil application leaves the stored one unchanged.
func (s *ApplicationService) mutate(ctx context.Context, id uuid.UUID, step func(app domain.Application, now time.Time) (*domain.Application, error)) (*domain.Application, error) {
	var result *domain.Application
	err := retryOnConflict(ctx, s.retries, func() error {
		current, err := s.apps.FindByID(ctx, id)
		if err != nil {
			return err
		}
		next, err := step(*current, s.clock())
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}
		result, err = s.apps.Update(ctx, *next)
		return err
	})
	return result, err
}

func (s *ApplicationService) notifyStatus(ctx context.Context, app *domain.Application, actorID uuid.UUID, note string) {
	s.notify(ctx, domain.Event{
		Type:       domain.EventApplicationStatus,
		EntityID:   app.ID,
		ActorID:    actorID,
		Recipients: []uuid.UUID{app.CandidateID},
		Attributes: map[string]string{"status": string(app.Status), "note": note},
	})
}

type scoreOutcome struct {
	result scoring.Result
	err    error
}

// score asks the oracle for a match score within the timeout. Scoring never
// blocks or fails an application.
func (s *ApplicationService) score(ctx context.Context, job domain.Job, candidateID uuid.UUID, coverLetter string) domain.ScoreInfo {
	if s.scorer == nil {
		return domain.ScoreInfo{State: domain.ScoreUnscored}
	}
	ctx, cancel := context.WithTimeout(ctx, s.scoreTimeout)
	defer cancel()

	done := make(chan scoreOutcome, 1)
	go func() {
		res, err := s.scorer.Score(ctx, scoring.Request{
			CandidateID:    candidateID,
			JobID:          job.ID,
			JobTitle:       job.Title,
			JobDescription: job.Description,
			CoverLetter:    coverLetter,
		})
		done <- scoreOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		switch {
		case out.err == nil:
			return domain.ScoreInfo{State: domain.ScoreScored, Match: ptr(out.result.Match), Summary: out.result.Summary}
		case errors.Is(out.err, scoring.ErrTimeout), errors.Is(out.err, context.DeadlineExceeded):
			slog.Warn("scoring timed out", "job_id", job.ID, "candidate_id", candidateID)
			return domain.ScoreInfo{State: domain.ScoreTimedOut}
		default:
			slog.Warn("scoring failed", "job_id", job.ID, "candidate_id", candidateID, "error", out.err)
			return domain.ScoreInfo{State: domain.ScoreUnscored}
		}
	case <-ctx.Done():
		slog.Warn("scoring timed out", "job_id", job.ID, "candidate_id", candidateID)
		return domain.ScoreInfo{State: domain.ScoreTimedOut}
	}
}

func nonNil(ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	return out
}
