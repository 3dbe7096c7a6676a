package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/hiring/internal/domain"
)

// NewJob holds the fields of a requisition draft.
type NewJob struct {
	CompanyID       uuid.UUID
	Title           string
	Description     string
	Location        string
	Department      string
	HiringManagerID uuid.UUID
	Positions       int
	InternalOnly    bool
}

// RequisitionService owns the job lifecycle. It never touches applications
// or interviews.
type RequisitionService struct {
	settings
	jobs     JobStore
	policies PolicyProvider
	authz    Authorizer
}

// NewRequisitionService creates a new RequisitionService.
func NewRequisitionService(jobs JobStore, policies PolicyProvider, authz Authorizer, opts ...Option) *RequisitionService {
	return &RequisitionService{
		settings: newSettings(opts),
		jobs:     jobs,
		policies: policies,
		authz:    authz,
	}
}

// Create stores a new draft requisition.
func (s *RequisitionService) Create(ctx context.Context, actor domain.Actor, in NewJob) (*domain.Job, error) {
	if err := authorize(s.authz, actor, domain.ActionJobCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, &domain.ValidationError{Field: "title", Message: "title is required"}
	}
	if in.CompanyID == uuid.Nil {
		return nil, &domain.ValidationError{Field: "company_id", Message: "company is required"}
	}
	if in.Positions == 0 {
		in.Positions = 1
	}
	if in.Positions < 0 {
		return nil, &domain.ValidationError{Field: "positions", Message: "positions must be positive"}
	}

	now := s.clock()
	job, err := s.jobs.Create(ctx, domain.Job{
		ID:              uuid.New(),
		CompanyID:       in.CompanyID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Location:        in.Location,
		Department:      in.Department,
		HiringManagerID: in.HiringManagerID,
		Positions:       in.Positions,
		InternalOnly:    in.InternalOnly,
		Status:          domain.JobStatusDraft,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	slog.Info("job created", "job_id", job.ID, "actor_id", actor.ID)
	return job, nil
}

// Get returns a job.
func (s *RequisitionService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Job, error) {
	if err := authorize(s.authz, actor, domain.ActionJobRead); err != nil {
		return nil, err
	}
	return s.jobs.FindByID(ctx, id)
}

// Submit moves a draft to pending_approval, or straight to open when the
// company does not require approval.
func (s *RequisitionService) Submit(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Job, error) {
	job, err := s.transition(ctx, actor, id, domain.ActionJobSubmit, func(job *domain.Job, now time.Time) error {
		next, err := domain.NextJobStatus(job.Status, domain.JobActionSubmit)
		if err != nil {
			return err
		}
		if err := requireSubmitFields(*job); err != nil {
			return err
		}
		policy, err := s.policies.PolicyFor(ctx, job.CompanyID)
		if err != nil {
			return fmt.Errorf("load company policy: %w", err)
		}
		job.Approval.SubmittedBy = ptr(actor.ID)
		job.Approval.SubmittedAt = ptr(now)
		if !policy.RequireJobApproval {
			next = domain.JobStatusOpen
			job.Approval.AutoApproved = true
		}
		job.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, jobEvent(domain.EventJobSubmitted, job, actor))
	return job, nil
}

// Approve opens a pending requisition.
func (s *RequisitionService) Approve(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Job, error) {
	job, err := s.transition(ctx, actor, id, domain.ActionJobApprove, func(job *domain.Job, now time.Time) error {
		next, err := domain.NextJobStatus(job.Status, domain.JobActionApprove)
		if err != nil {
			return err
		}
		if err := s.requireApprover(ctx, *job, actor); err != nil {
			return err
		}
		job.Status = next
		job.Approval.ApprovedBy = ptr(actor.ID)
		job.Approval.ApprovedAt = ptr(now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, jobEvent(domain.EventJobApproved, job, actor))
	return job, nil
}

// Reject cancels a pending requisition. reason must not be blank.
func (s *RequisitionService) Reject(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*domain.Job, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &domain.ValidationError{Field: "reason", Message: "a rejection reason is required"}
	}
	job, err := s.transition(ctx, actor, id, domain.ActionJobReject, func(job *domain.Job, now time.Time) error {
		next, err := domain.NextJobStatus(job.Status, domain.JobActionReject)
		if err != nil {
			return err
		}
		if err := s.requireApprover(ctx, *job, actor); err != nil {
			return err
		}
		job.Status = next
		job.Approval.RejectedBy = ptr(actor.ID)
		job.Approval.RejectedAt = ptr(now)
		job.Approval.RejectionReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev := jobEvent(domain.EventJobRejected, job, actor)
	ev.Attributes["reason"] = reason
	s.notify(ctx, ev)
	return job, nil
}

// Pause stops intake on an open requisition.
func (s *RequisitionService) Pause(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Job, error) {
	return s.simple(ctx, actor, id, domain.ActionJobPause, domain.JobActionPause)
}

// Resume reopens a paused requisition.
func (s *RequisitionService) Resume(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Job, error) {
	return s.simple(ctx, actor, id, domain.ActionJobResume, domain.JobActionResume)
}

// Close ends an open requisition without a hire.
func (s *RequisitionService) Close(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Job, error) {
	return s.simple(ctx, actor, id, domain.ActionJobClose, domain.JobActionClose)
}

// Fill marks an open requisition as filled.
func (s *RequisitionService) Fill(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Job, error) {
	return s.simple(ctx, actor, id, domain.ActionJobFill, domain.JobActionFill)
}

// Cancel withdraws any non-terminal requisition.
func (s *RequisitionService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Job, error) {
	return s.simple(ctx, actor, id, domain.ActionJobCancel, domain.JobActionCancel)
}

func (s *RequisitionService) simple(ctx context.Context, actor domain.Actor, id uuid.UUID, action domain.Action, jobAction domain.JobAction) (*domain.Job, error) {
	job, err := s.transition(ctx, actor, id, action, func(job *domain.Job, _ time.Time) error {
		next, err := domain.NextJobStatus(job.Status, jobAction)
		if err != nil {
			return err
		}
		job.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev := jobEvent(domain.EventJobStatusChanged, job, actor)
	ev.Attributes["action"] = string(jobAction)
	s.notify(ctx, ev)
	return job, nil
}

// transition runs read, step, conditional write as one unit, retrying when
// another writer got there first.
func (s *RequisitionService) transition(ctx context.Context, actor domain.Actor, id uuid.UUID, action domain.Action, step func(job *domain.Job, now time.Time) error) (*domain.Job, error) {
	if err := authorize(s.authz, actor, action); err != nil {
		return nil, err
	}

	var updated *domain.Job
	err := retryOnConflict(ctx, s.retries, func() error {
		current, err := s.jobs.FindByID(ctx, id)
		if err != nil {
			return err
		}
		next := *current
		now := s.clock()
		if err := step(&next, now); err != nil {
			return err
		}
		next.UpdatedAt = now
		updated, err = s.jobs.Update(ctx, next)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", action, id, err)
	}

	slog.Info("job transitioned", "job_id", id, "action", action, "status", updated.Status, "actor_id", actor.ID)
	return updated, nil
}

func (s *RequisitionService) requireApprover(ctx context.Context, job domain.Job, actor domain.Actor) error {
	policy, err := s.policies.PolicyFor(ctx, job.CompanyID)
	if err != nil {
		return fmt.Errorf("load company policy: %w", err)
	}
	if !policy.CanApprove(actor.Role) {
		return fmt.Errorf("role %q is not an approval role: %w", actor.Role, domain.ErrForbidden)
	}
	return nil
}

func requireSubmitFields(job domain.Job) error {
	switch {
	case strings.TrimSpace(job.Description) == "":
		return &domain.ValidationError{Field: "description", Message: "description is required before submission"}
	case strings.TrimSpace(job.Location) == "":
		return &domain.ValidationError{Field: "location", Message: "location is required before submission"}
	case strings.TrimSpace(job.Department) == "":
		return &domain.ValidationError{Field: "department", Message: "department is required before submission"}
	}
	return nil
}

func jobEvent(t domain.EventType, job *domain.Job, actor domain.Actor) domain.Event {
	ev := domain.Event{
		Type:       t,
		EntityID:   job.ID,
		ActorID:    actor.ID,
		Attributes: map[string]string{"status": string(job.Status)},
	}
	if job.HiringManagerID != uuid.Nil {
		ev.Recipients = []uuid.UUID{job.HiringManagerID}
	}
	return ev
}

func ptr[T any](v T) *T {
	return &v
}
