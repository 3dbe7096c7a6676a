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

const jobColumns = `id, company_id, title, description, location, department, hiring_manager_id,
	positions, internal_only, status, approval, created_by, version, created_at, updated_at`

type jobRow struct {
	domain.Job
	ApprovalJSON jsonColumn[domain.ApprovalInfo] `db:"approval"`
}

func (r jobRow) toDomain() *domain.Job {
	job := r.Job
	job.Approval = r.ApprovalJSON.V
	return &job
}

// JobRepository handles requisition data access.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a job at version 1.
func (r *JobRepository) Create(ctx context.Context, job domain.Job) (*domain.Job, error) {
	var row jobRow
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO jobs (id, company_id, title, description, location, department, hiring_manager_id,
		                   positions, internal_only, status, approval, created_by, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $13)
		 RETURNING `+jobColumns,
		job.ID, job.CompanyID, job.Title, job.Description, job.Location, job.Department, job.HiringManagerID,
		job.Positions, job.InternalOnly, job.Status, jsonColumn[domain.ApprovalInfo]{V: job.Approval}, job.CreatedBy,
		job.CreatedAt,
	).StructScan(&row)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return row.toDomain(), nil
}

// FindByID retrieves a job by its ID.
func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var row jobRow
	err := r.db.GetContext(ctx, &row, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find job by id %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// Update writes job if its version is still current and bumps the version.
func (r *JobRepository) Update(ctx context.Context, job domain.Job) (*domain.Job, error) {
	var row jobRow
	err := r.db.QueryRowxContext(ctx,
		`UPDATE jobs
		 SET title = $3, description = $4, location = $5, department = $6, hiring_manager_id = $7,
		     positions = $8, internal_only = $9, status = $10, approval = $11,
		     version = version + 1, updated_at = $12
		 WHERE id = $1 AND version = $2
		 RETURNING `+jobColumns,
		job.ID, job.Version, job.Title, job.Description, job.Location, job.Department, job.HiringManagerID,
		job.Positions, job.InternalOnly, job.Status, jsonColumn[domain.ApprovalInfo]{V: job.Approval}, job.UpdatedAt,
	).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, staleOrMissing(ctx, r.db, "jobs", job.ID)
		}
		return nil, fmt.Errorf("update job %s: %w", job.ID, err)
	}
	return row.toDomain(), nil
}
