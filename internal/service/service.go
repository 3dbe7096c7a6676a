package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/hiring/internal/domain"
	"github.com/sumire/hiring/internal/scoring"
)

// JobStore defines the requisition persistence consumed by the services.
// Update must fail with domain.ErrConflict when job.Version is stale.
type JobStore interface {
	Create(ctx context.Context, job domain.Job) (*domain.Job, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Update(ctx context.Context, job domain.Job) (*domain.Job, error)
}

// ApplicationStore defines application persistence. Create must fail with
// domain.ErrDuplicateApplication for an existing (candidate, job) pair.
type ApplicationStore interface {
	Create(ctx context.Context, app domain.Application) (*domain.Application, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error)
	FindByCandidateAndJob(ctx context.Context, candidateID, jobID uuid.UUID) (*domain.Application, error)
	Update(ctx context.Context, app domain.Application) (*domain.Application, error)
}

// InterviewStore defines interview persistence.
type InterviewStore interface {
	Create(ctx context.Context, iv domain.Interview) (*domain.Interview, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Interview, error)
	Update(ctx context.Context, iv domain.Interview) (*domain.Interview, error)
	// FindActiveByInterviewer returns interviews holding a booking for
	// interviewerID that intersect [from, to).
	FindActiveByInterviewer(ctx context.Context, interviewerID uuid.UUID, from, to time.Time) ([]domain.Interview, error)
}

// Authorizer answers role permission checks.
type Authorizer interface {
	CanPerform(role domain.Role, action domain.Action) bool
}

// PolicyProvider supplies per-company requisition policy.
type PolicyProvider interface {
	PolicyFor(ctx context.Context, companyID uuid.UUID) (domain.CompanyPolicy, error)
}

// Notifier receives events after successful commits. It must not block.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event)
}

// ScoringOracle scores an application against its job.
type ScoringOracle interface {
	Score(ctx context.Context, req scoring.Request) (scoring.Result, error)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.Event) {}

const defaultRetries = 3

type settings struct {
	now      func() time.Time
	retries  int
	notifier Notifier
}

// Option configures a service.
type Option func(*settings)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithNotifier sets the event notifier.
func WithNotifier(n Notifier) Option {
	return func(s *settings) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRetries sets how many times a stale optimistic write is retried.
func WithRetries(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.retries = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now, retries: defaultRetries, notifier: noopNotifier{}}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) clock() time.Time {
	return s.now().UTC()
}

func (s settings) notify(ctx context.Context, event domain.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock()
	}
	s.notifier.Notify(ctx, event)
}

// retryOnConflict reruns fn while it reports a stale write.
func retryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}

func authorize(authz Authorizer, actor domain.Actor, action domain.Action) error {
	if actor.ID == uuid.Nil {
		return domain.ErrUnauthorized
	}
	if !authz.CanPerform(actor.Role, action) {
		return fmt.Errorf("role %q may not perform %s: %w", actor.Role, action, domain.ErrForbidden)
	}
	return nil
}
