package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sumire/hiring/internal/domain"
	"github.com/sumire/hiring/internal/lock"
)

const maxInterviewMinutes = 8 * 60

// ScheduleInput describes a new interview round.
type ScheduleInput struct {
	ApplicationID   uuid.UUID
	Round           int
	Kind            domain.InterviewKind
	Location        string
	Interviewers    []domain.PanelMember
	ScheduledAt     time.Time
	DurationMinutes int
}

// RescheduleInput moves an interview. A zero DurationMinutes keeps the
// current length.
type RescheduleInput struct {
	ScheduledAt     time.Time
	DurationMinutes int
	Reason          string
}

// InterviewResult is an interview write together with the application it
// touched. SyncFailure is set when the interview committed but the
// application could not follow.
type InterviewResult struct {
	Interview   *domain.Interview   `json:"interview"`
	Application *domain.Application `json:"application,omitempty"`
	SyncFailure *domain.SyncFailure `json:"-"`
}

// InterviewService schedules interviews, collects feedback and records
// decisions.
type InterviewService struct {
	settings
	interviews InterviewStore
	tracker    *ApplicationService
	authz      Authorizer
	locker     lock.Locker
}

// NewInterviewService creates a new InterviewService.
func NewInterviewService(interviews InterviewStore, tracker *ApplicationService, authz Authorizer, locker lock.Locker, opts ...Option) *InterviewService {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &InterviewService{
		settings:   newSettings(opts),
		interviews: interviews,
		tracker:    tracker,
		authz:      authz,
		locker:     locker,
	}
}

// Schedule books a new interview after checking every interviewer is free.
func (s *InterviewService) Schedule(ctx context.Context, actor domain.Actor, in ScheduleInput) (*InterviewResult, error) {
	if err := authorize(s.authz, actor, domain.ActionSchedule); err != nil {
		return nil, err
	}
	if err := s.validateSchedule(&in); err != nil {
		return nil, err
	}

	app, err := s.tracker.apps.FindByID(ctx, in.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("load application %s: %w", in.ApplicationID, err)
	}
	if app.Status.Absorbing() {
		return nil, &domain.TransitionError{
			Entity: "application",
			From:   string(app.Status),
			To:     string(domain.ApplicationInterviewing),
			Reason: "cannot schedule an interview for a closed application",
		}
	}

	now := s.clock()
	iv := domain.Interview{
		ID:                uuid.New(),
		ApplicationID:     app.ID,
		JobID:             app.JobID,
		CandidateID:       app.CandidateID,
		Round:             in.Round,
		Kind:              in.Kind,
		Location:          in.Location,
		Interviewers:      in.Interviewers,
		ScheduledAt:       in.ScheduledAt.UTC(),
		DurationMinutes:   in.DurationMinutes,
		Status:            domain.InterviewScheduled,
		CandidateResponse: domain.CandidateReply{Response: domain.ResponsePending},
		CreatedBy:         actor.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	created, err := s.withInterviewers(ctx, iv.InterviewerIDs(), func() (*domain.Interview, error) {
		if err := s.findConflict(ctx, iv.InterviewerIDs(), iv.ScheduledAt, iv.EndsAt(), uuid.Nil); err != nil {
			return nil, err
		}
		return s.interviews.Create(ctx, iv)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule interview: %w", err)
	}
	slog.Info("interview scheduled", "interview_id", created.ID, "application_id", app.ID, "scheduled_at", created.ScheduledAt, "actor_id", actor.ID)

	result := &InterviewResult{Interview: created}
	result.Application, result.SyncFailure = s.tracker.advanceForInterview(ctx, actor.ID, app.ID, fmt.Sprintf("interview round %d scheduled", created.Round))

	s.notify(ctx, interviewEvent(domain.EventInterviewScheduled, created, actor.ID))
	return result, nil
}

// Reschedule moves an interview to a new slot and resets the candidate's
// response.
func (s *InterviewService) Reschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, in RescheduleInput) (*domain.Interview, error) {
	if err := authorize(s.authz, actor, domain.ActionReschedule); err != nil {
		return nil, err
	}
	if in.DurationMinutes < 0 || in.DurationMinutes > maxInterviewMinutes {
		return nil, &domain.ValidationError{Field: "duration_minutes", Message: "duration must be between 1 and 480 minutes"}
	}
	if !in.ScheduledAt.After(s.clock()) {
		return nil, &domain.ValidationError{Field: "scheduled_at", Message: "interview must be scheduled in the future"}
	}

	current, err := s.interviews.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load interview %s: %w", id, err)
	}

	updated, err := s.withInterviewers(ctx, current.InterviewerIDs(), func() (*domain.Interview, error) {
		return s.mutate(ctx, id, func(iv *domain.Interview, now time.Time) error {
			if err := requireInterviewEdge(iv, domain.InterviewRescheduled); err != nil {
				return err
			}
			duration := iv.DurationMinutes
			if in.DurationMinutes > 0 {
				duration = in.DurationMinutes
			}
			start := in.ScheduledAt.UTC()
			end := start.Add(time.Duration(duration) * time.Minute)
			if err := s.findConflict(ctx, iv.InterviewerIDs(), start, end, iv.ID); err != nil {
				return err
			}
			iv.RescheduleHistory = append(iv.RescheduleHistory, domain.Reschedule{
				PreviousAt:  iv.ScheduledAt,
				NewAt:       start,
				Reason:      in.Reason,
				RequestedBy: actor.ID,
				At:          now,
			})
			iv.ScheduledAt = start
			iv.DurationMinutes = duration
			iv.Status = domain.InterviewRescheduled
			iv.CandidateResponse = domain.CandidateReply{Response: domain.ResponsePending}
			for n := range iv.Interviewers {
				iv.Interviewers[n].Confirmed = false
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reschedule interview %s: %w", id, err)
	}

	slog.Info("interview rescheduled", "interview_id", id, "scheduled_at", updated.ScheduledAt, "actor_id", actor.ID)
	ev := interviewEvent(domain.EventInterviewRescheduled, updated, actor.ID)
	ev.Attributes["reason"] = in.Reason
	s.notify(ctx, ev)
	return updated, nil
}

// Respond records the candidate's answer to an invitation.
func (s *InterviewService) Respond(ctx context.Context, actor domain.Actor, id uuid.UUID, response, note string) (*domain.Interview, error) {
	if err := authorize(s.authz, actor, domain.ActionRespond); err != nil {
		return nil, err
	}
	var target domain.InterviewStatus
	switch response {
	case domain.ResponseAccepted:
		target = domain.InterviewConfirmed
	case domain.ResponseDeclined:
		target = domain.InterviewCancelled
	default:
		return nil, &domain.ValidationError{Field: "response", Message: "response must be accepted or declined"}
	}

	updated, err := s.mutate(ctx, id, func(iv *domain.Interview, now time.Time) error {
		if iv.CandidateID != actor.ID {
			return fmt.Errorf("interview belongs to another candidate: %w", domain.ErrForbidden)
		}
		if !iv.Status.AwaitsResponse() {
			return &domain.TransitionError{Entity: "interview", From: string(iv.Status), To: string(target), Reason: "interview is no longer awaiting a response"}
		}
		if err := requireInterviewEdge(iv, target); err != nil {
			return err
		}
		iv.Status = target
		iv.CandidateResponse = domain.CandidateReply{Response: response, Note: note, RespondedAt: ptr(now)}
		if target == domain.InterviewCancelled {
			iv.CancelledBy = ptr(actor.ID)
			iv.CancelReason = "declined by candidate"
			if note != "" {
				iv.CancelReason = note
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("respond to interview %s: %w", id, err)
	}

	slog.Info("interview response recorded", "interview_id", id, "response", response, "status", updated.Status)
	ev := interviewEvent(domain.EventInterviewResponded, updated, actor.ID)
	ev.Attributes["response"] = response
	s.notify(ctx, ev)
	return updated, nil
}

// ConfirmAttendance marks the calling panel member as confirmed. Rescheduling
// clears every confirmation.
func (s *InterviewService) ConfirmAttendance(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Interview, error) {
	if actor.ID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	updated, err := s.mutate(ctx, id, func(iv *domain.Interview, _ time.Time) error {
		n := slices.IndexFunc(iv.Interviewers, func(p domain.PanelMember) bool { return p.InterviewerID == actor.ID })
		if n < 0 {
			return fmt.Errorf("not on the interview panel: %w", domain.ErrForbidden)
		}
		if !iv.Status.AwaitsResponse() {
			return &domain.TransitionError{Entity: "interview", From: string(iv.Status), To: string(iv.Status), Reason: "attendance can only be confirmed before the interview starts"}
		}
		iv.Interviewers[n].Confirmed = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirm attendance for interview %s: %w", id, err)
	}
	slog.Info("panel attendance confirmed", "interview_id", id, "interviewer_id", actor.ID)
	return updated, nil
}

// Cancel calls off an interview that has not finished.
func (s *InterviewService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*domain.Interview, error) {
	if err := authorize(s.authz, actor, domain.ActionCancelInterview); err != nil {
		return nil, err
	}
	updated, err := s.mutate(ctx, id, func(iv *domain.Interview, _ time.Time) error {
		if err := requireInterviewEdge(iv, domain.InterviewCancelled); err != nil {
			return err
		}
		iv.Status = domain.InterviewCancelled
		iv.CancelledBy = ptr(actor.ID)
		iv.CancelReason = strings.TrimSpace(reason)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel interview %s: %w", id, err)
	}

	slog.Info("interview cancelled", "interview_id", id, "actor_id", actor.ID)
	ev := interviewEvent(domain.EventInterviewCancelled, updated, actor.ID)
	ev.Attributes["reason"] = updated.CancelReason
	s.notify(ctx, ev)
	return updated, nil
}

// Start marks an interview as in progress.
func (s *InterviewService) Start(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Interview, error) {
	return s.simple(ctx, actor, id, domain.ActionStartInterview, domain.InterviewInProgress)
}

// MarkNoShow records that the candidate did not attend.
func (s *InterviewService) MarkNoShow(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Interview, error) {
	return s.simple(ctx, actor, id, domain.ActionNoShow, domain.InterviewNoShow)
}

// Get returns an interview to its candidate, its panel or staff allowed to
// read all interviews.
func (s *InterviewService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Interview, error) {
	if actor.ID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	iv, err := s.interviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv.CandidateID != actor.ID && !iv.HasInterviewer(actor.ID) && !s.authz.CanPerform(actor.Role, domain.ActionInterviewReadAll) {
		return nil, domain.ErrForbidden
	}
	return iv, nil
}

func (s *InterviewService) simple(ctx context.Context, actor domain.Actor, id uuid.UUID, action domain.Action, target domain.InterviewStatus) (*domain.Interview, error) {
	if err := authorize(s.authz, actor, action); err != nil {
		return nil, err
	}
	updated, err := s.mutate(ctx, id, func(iv *domain.Interview, _ time.Time) error {
		if err := requireInterviewEdge(iv, target); err != nil {
			return err
		}
		iv.Status = target
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", action, id, err)
	}
	slog.Info("interview transitioned", "interview_id", id, "status", target, "actor_id", actor.ID)
	s.notify(ctx, interviewEvent(domain.EventInterviewStatus, updated, actor.ID))
	return updated, nil
}

func (s *InterviewService) validateSchedule(in *ScheduleInput) error {
	if in.ApplicationID == uuid.Nil {
		return &domain.ValidationError{Field: "application_id", Message: "application is required"}
	}
	if in.Round < 1 {
		return &domain.ValidationError{Field: "round", Message: "round must be at least 1"}
	}
	if in.DurationMinutes <= 0 || in.DurationMinutes > maxInterviewMinutes {
		return &domain.ValidationError{Field: "duration_minutes", Message: "duration must be between 1 and 480 minutes"}
	}
	if len(in.Interviewers) == 0 {
		return &domain.ValidationError{Field: "interviewers", Message: "at least one interviewer is required"}
	}
	seen := make(map[uuid.UUID]bool, len(in.Interviewers))
	for _, p := range in.Interviewers {
		if p.InterviewerID == uuid.Nil {
			return &domain.ValidationError{Field: "interviewers", Message: "interviewer id is required"}
		}
		if seen[p.InterviewerID] {
			return &domain.ValidationError{Field: "interviewers", Message: "interviewer " + p.InterviewerID.String() + " is listed twice"}
		}
		seen[p.InterviewerID] = true
	}
	if !in.ScheduledAt.After(s.clock()) {
		return &domain.ValidationError{Field: "scheduled_at", Message: "interview must be scheduled in the future"}
	}
	switch in.Kind {
	case "":
		in.Kind = domain.InterviewVideo
	case domain.InterviewPhone, domain.InterviewVideo, domain.InterviewOnsite:
	default:
		return &domain.ValidationError{Field: "kind", Message: "unknown interview kind " + string(in.Kind)}
	}
	return nil
}

// withInterviewers holds the booking locks of every interviewer while fn
// checks and commits.
func (s *InterviewService) withInterviewers(ctx context.Context, ids []uuid.UUID, fn func() (*domain.Interview, error)) (*domain.Interview, error) {
	keys := make([]string, len(ids))
	for n, id := range ids {
		keys[n] = "interviewer:" + id.String()
	}
	release, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("lock interviewers: %w", err)
	}
	defer release()
	return fn()
}

// findConflict reports the first interviewer, in panel order, booked by
// another interview overlapping [start, end).
func (s *InterviewService) findConflict(ctx context.Context, ids []uuid.UUID, start, end time.Time, exclude uuid.UUID) error {
	found := make([][]domain.Interview, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for n, id := range ids {
		n, id := n, id
		g.Go(func() error {
			booked, err := s.interviews.FindActiveByInterviewer(gctx, id, start, end)
			if err != nil {
				return fmt.Errorf("load bookings of %s: %w", id, err)
			}
			found[n] = booked
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for n, id := range ids {
		for _, other := range found[n] {
			if other.ID == exclude || !other.Status.HoldsBooking() {
				continue
			}
			if domain.Overlaps(start, end, other.ScheduledAt, other.EndsAt()) {
				return &domain.SchedulingConflictError{InterviewerID: id, ConflictingInterviewID: other.ID}
			}
		}
	}
	return nil
}

// mutate runs read, step, conditional write with retries.
func (s *InterviewService) mutate(ctx context.Context, id uuid.UUID, step func(iv *domain.Interview, now time.Time) error) (*domain.Interview, error) {
	var updated *domain.Interview
	err := retryOnConflict(ctx, s.retries, func() error {
		current, err := s.interviews.FindByID(ctx, id)
		if err != nil {
			return err
		}
		next := current.Clone()
		now := s.clock()
		if err := step(&next, now); err != nil {
			return err
		}
		next.UpdatedAt = now
		updated, err = s.interviews.Update(ctx, next)
		return err
	})
	return updated, err
}

func requireInterviewEdge(iv *domain.Interview, to domain.InterviewStatus) error {
	if iv.Status.CanTransition(to) {
		return nil
	}
	return &domain.TransitionError{Entity: "interview", From: string(iv.Status), To: string(to)}
}

func interviewEvent(t domain.EventType, iv *domain.Interview, actorID uuid.UUID) domain.Event {
	return domain.Event{
		Type:       t,
		EntityID:   iv.ID,
		ActorID:    actorID,
		Recipients: append([]uuid.UUID{iv.CandidateID}, iv.InterviewerIDs()...),
		Attributes: map[string]string{
			"status":       string(iv.Status),
			"scheduled_at": iv.ScheduledAt.Format(time.RFC3339),
		},
	}
}
