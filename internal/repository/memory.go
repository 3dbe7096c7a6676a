package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/hiring/internal/domain"
)

// MemoryJobRepository keeps jobs in process memory with the same versioning
// rules as JobRepository.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]domain.Job
}

// NewMemoryJobRepository creates an empty MemoryJobRepository.
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[uuid.UUID]domain.Job)}
}

func (r *MemoryJobRepository) Create(_ context.Context, job domain.Job) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return nil, fmt.Errorf("insert job %s: %w", job.ID, domain.ErrConflict)
	}
	job.Version = 1
	job.UpdatedAt = job.CreatedAt
	r.jobs[job.ID] = job
	return &job, nil
}

func (r *MemoryJobRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (r *MemoryJobRepository) Update(_ context.Context, job domain.Job) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.jobs[job.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if current.Version != job.Version {
		return nil, fmt.Errorf("jobs %s was modified concurrently: %w", job.ID, domain.ErrConflict)
	}
	job.Version++
	r.jobs[job.ID] = job
	return &job, nil
}

type candidateJob struct {
	candidate uuid.UUID
	job       uuid.UUID
}

// MemoryApplicationRepository keeps applications in process memory and
// enforces one application per (candidate, job).
type MemoryApplicationRepository struct {
	mu    sync.RWMutex
	apps  map[uuid.UUID]domain.Application
	pairs map[candidateJob]uuid.UUID
}

// NewMemoryApplicationRepository creates an empty MemoryApplicationRepository.
func NewMemoryApplicationRepository() *MemoryApplicationRepository {
	return &MemoryApplicationRepository{
		apps:  make(map[uuid.UUID]domain.Application),
		pairs: make(map[candidateJob]uuid.UUID),
	}
}

func (r *MemoryApplicationRepository) Create(_ context.Context, app domain.Application) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := candidateJob{app.CandidateID, app.JobID}
	if _, ok := r.pairs[key]; ok {
		return nil, domain.ErrDuplicateApplication
	}
	app = app.Clone()
	app.Version = 1
	app.UpdatedAt = app.CreatedAt
	r.apps[app.ID] = app
	r.pairs[key] = app.ID
	out := app.Clone()
	return &out, nil
}

func (r *MemoryApplicationRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := app.Clone()
	return &out, nil
}

func (r *MemoryApplicationRepository) FindByCandidateAndJob(_ context.Context, candidateID, jobID uuid.UUID) (*domain.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.pairs[candidateJob{candidateID, jobID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := r.apps[id].Clone()
	return &out, nil
}

func (r *MemoryApplicationRepository) Update(_ context.Context, app domain.Application) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.apps[app.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if current.Version != app.Version {
		return nil, fmt.Errorf("applications %s was modified concurrently: %w", app.ID, domain.ErrConflict)
	}
	app = app.Clone()
	app.Version++
	r.apps[app.ID] = app
	out := app.Clone()
	return &out, nil
}

// MemoryInterviewRepository keeps interviews in process memory.
type MemoryInterviewRepository struct {
	mu         sync.RWMutex
	interviews map[uuid.UUID]domain.Interview
}

// NewMemoryInterviewRepository creates an empty MemoryInterviewRepository.
func NewMemoryInterviewRepository() *MemoryInterviewRepository {
	return &MemoryInterviewRepository{interviews: make(map[uuid.UUID]domain.Interview)}
}

func (r *MemoryInterviewRepository) Create(_ context.Context, iv domain.Interview) (*domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.interviews[iv.ID]; ok {
		return nil, fmt.Errorf("insert interview %s: %w", iv.ID, domain.ErrConflict)
	}
	iv = iv.Clone()
	iv.Version = 1
	iv.UpdatedAt = iv.CreatedAt
	r.interviews[iv.ID] = iv
	out := iv.Clone()
	return &out, nil
}

func (r *MemoryInterviewRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Interview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	iv, ok := r.interviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := iv.Clone()
	return &out, nil
}

func (r *MemoryInterviewRepository) Update(_ context.Context, iv domain.Interview) (*domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.interviews[iv.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if current.Version != iv.Version {
		return nil, fmt.Errorf("interviews %s was modified concurrently: %w", iv.ID, domain.ErrConflict)
	}
	iv = iv.Clone()
	iv.Version++
	r.interviews[iv.ID] = iv
	out := iv.Clone()
	return &out, nil
}

func (r *MemoryInterviewRepository) FindActiveByInterviewer(_ context.Context, interviewerID uuid.UUID, from, to time.Time) ([]domain.Interview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Interview
	for _, iv := range r.interviews {
		if !iv.Status.HoldsBooking() || !iv.HasInterviewer(interviewerID) {
			continue
		}
		if domain.Overlaps(iv.ScheduledAt, iv.EndsAt(), from, to) {
			out = append(out, iv.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

type providerKey struct {
	provider   domain.AuthProvider
	providerID string
}

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
	index map[providerKey]uuid.UUID
	now   func() time.Time
}

// NewMemoryUserRepository creates an empty MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[uuid.UUID]domain.User),
		index: make(map[providerKey]uuid.UUID),
		now:   time.Now,
	}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) Upsert(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	key := providerKey{user.Provider, user.ProviderID}
	if id, ok := r.index[key]; ok {
		existing := r.users[id]
		existing.Email = user.Email
		existing.DisplayName = user.DisplayName
		existing.AvatarURL = user.AvatarURL
		existing.UpdatedAt = now
		r.users[id] = existing
		return &existing, nil
	}
	user.ID = uuid.New()
	if !user.Role.Valid() {
		user.Role = domain.RoleCandidate
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	r.index[key] = user.ID
	return &user, nil
}

// Put stores user as is. It seeds staff accounts in memory deployments and
// tests.
func (r *MemoryUserRepository) Put(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	if user.Provider != "" {
		r.index[providerKey{user.Provider, user.ProviderID}] = user.ID
	}
}
