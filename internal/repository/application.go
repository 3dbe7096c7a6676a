package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/hiring/internal/domain"
)

const applicationColumns = `id, candidate_id, job_id, status, status_history, cover_letter, score,
	withdrawn_at, withdrawn_reason, version, created_at, updated_at`

type applicationRow struct {
	domain.Application
	HistoryJSON jsonColumn[[]domain.StatusChange] `db:"status_history"`
	ScoreJSON   jsonColumn[domain.ScoreInfo]      `db:"score"`
}

func (r applicationRow) toDomain() *domain.Application {
	app := r.Application
	app.StatusHistory = r.HistoryJSON.V
	app.Score = r.ScoreJSON.V
	return &app
}

// ApplicationRepository handles application data access.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts an application. The (candidate, job) unique index turns a
// racing second apply into domain.ErrDuplicateApplication.
func (r *ApplicationRepository) Create(ctx context.Context, app domain.Application) (*domain.Application, error) {
	var row applicationRow
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO applications (id, candidate_id, job_id, status, status_history, cover_letter, score,
		                           withdrawn_at, withdrawn_reason, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $10)
		 RETURNING `+applicationColumns,
		app.ID, app.CandidateID, app.JobID, app.Status,
		jsonColumn[[]domain.StatusChange]{V: app.StatusHistory}, app.CoverLetter,
		jsonColumn[domain.ScoreInfo]{V: app.Score}, app.WithdrawnAt, app.WithdrawnReason, app.CreatedAt,
	).StructScan(&row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateApplication
		}
		return nil, fmt.Errorf("insert application: %w", err)
	}
	return row.toDomain(), nil
}

// FindByID retrieves an application by its ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	var row applicationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find application by id %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// FindByCandidateAndJob retrieves the application of a candidate to a job.
func (r *ApplicationRepository) FindByCandidateAndJob(ctx context.Context, candidateID, jobID uuid.UUID) (*domain.Application, error) {
	var row applicationRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+applicationColumns+` FROM applications WHERE candidate_id = $1 AND job_id = $2`,
		candidateID, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find application by candidate %s and job %s: %w", candidateID, jobID, err)
	}
	return row.toDomain(), nil
}

// Update writes app if its version is still current and bumps the version.
func (r *ApplicationRepository) Update(ctx context.Context, app domain.Application) (*domain.Application, error) {
	var row applicationRow
	err := r.db.QueryRowxContext(ctx,
		`UPDATE applications
		 SET status = $3, status_history = $4, cover_letter = $5, score = $6,
		     withdrawn_at = $7, withdrawn_reason = $8, version = version + 1, updated_at = $9
		 WHERE id = $1 AND version = $2
		 RETURNING `+applicationColumns,
		app.ID, app.Version, app.Status, jsonColumn[[]domain.StatusChange]{V: app.StatusHistory},
		app.CoverLetter, jsonColumn[domain.ScoreInfo]{V: app.Score}, app.WithdrawnAt, app.WithdrawnReason,
		app.UpdatedAt,
	).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, staleOrMissing(ctx, r.db, "applications", app.ID)
		}
		return nil, fmt.Errorf("update application %s: %w", app.ID, err)
	}
	return row.toDomain(), nil
}
