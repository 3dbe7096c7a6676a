package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sumire/hiring/internal/domain"
)

const interviewColumns = `id, application_id, job_id, candidate_id, round, kind, location, interviewers,
	scheduled_at, duration_minutes, status, candidate_response, feedback, result, reschedule_history,
	cancelled_by, cancel_reason, created_by, version, created_at, updated_at`

type interviewRow struct {
	ID                uuid.UUID                         `db:"id"`
	ApplicationID     uuid.UUID                         `db:"application_id"`
	JobID             uuid.UUID                         `db:"job_id"`
	CandidateID       uuid.UUID                         `db:"candidate_id"`
	Round             int                               `db:"round"`
	Kind              domain.InterviewKind              `db:"kind"`
	Location          string                            `db:"location"`
	Interviewers      jsonColumn[[]domain.PanelMember]  `db:"interviewers"`
	ScheduledAt       time.Time                         `db:"scheduled_at"`
	DurationMinutes   int                               `db:"duration_minutes"`
	Status            domain.InterviewStatus            `db:"status"`
	CandidateResponse jsonColumn[domain.CandidateReply] `db:"candidate_response"`
	Feedback          jsonColumn[[]domain.Feedback]     `db:"feedback"`
	Result            jsonColumn[*domain.Result]        `db:"result"`
	RescheduleHistory jsonColumn[[]domain.Reschedule]   `db:"reschedule_history"`
	CancelledBy       *uuid.UUID                        `db:"cancelled_by"`
	CancelReason      string                            `db:"cancel_reason"`
	CreatedBy         uuid.UUID                         `db:"created_by"`
	Version           int                               `db:"version"`
	CreatedAt         time.Time                         `db:"created_at"`
	UpdatedAt         time.Time                         `db:"updated_at"`
}

func (r interviewRow) toDomain() domain.Interview {
	return domain.Interview{
		ID:                r.ID,
		ApplicationID:     r.ApplicationID,
		JobID:             r.JobID,
		CandidateID:       r.CandidateID,
		Round:             r.Round,
		Kind:              r.Kind,
		Location:          r.Location,
		Interviewers:      r.Interviewers.V,
		ScheduledAt:       r.ScheduledAt,
		DurationMinutes:   r.DurationMinutes,
		Status:            r.Status,
		CandidateResponse: r.CandidateResponse.V,
		Feedback:          r.Feedback.V,
		Result:            r.Result.V,
		RescheduleHistory: r.RescheduleHistory.V,
		CancelledBy:       r.CancelledBy,
		CancelReason:      r.CancelReason,
		CreatedBy:         r.CreatedBy,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func interviewerIDs(iv domain.Interview) pq.StringArray {
	ids := make(pq.StringArray, len(iv.Interviewers))
	for n, p := range iv.Interviewers {
		ids[n] = p.InterviewerID.String()
	}
	return ids
}

// InterviewRepository handles interview data access.
type InterviewRepository struct {
	db *sqlx.DB
}

// NewInterviewRepository creates a new InterviewRepository.
func NewInterviewRepository(db *sqlx.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

// Create inserts an interview at version 1.
func (r *InterviewRepository) Create(ctx context.Context, iv domain.Interview) (*domain.Interview, error) {
	var row interviewRow
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO interviews (id, application_id, job_id, candidate_id, round, kind, location, interviewers,
		                         interviewer_ids, scheduled_at, duration_minutes, status, candidate_response,
		                         feedback, result, reschedule_history, cancelled_by, cancel_reason, created_by,
		                         version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1, $20, $20)
		 RETURNING `+interviewColumns,
		iv.ID, iv.ApplicationID, iv.JobID, iv.CandidateID, iv.Round, iv.Kind, iv.Location,
		jsonColumn[[]domain.PanelMember]{V: iv.Interviewers}, interviewerIDs(iv),
		iv.ScheduledAt, iv.DurationMinutes, iv.Status,
		jsonColumn[domain.CandidateReply]{V: iv.CandidateResponse},
		jsonColumn[[]domain.Feedback]{V: iv.Feedback},
		jsonColumn[*domain.Result]{V: iv.Result},
		jsonColumn[[]domain.Reschedule]{V: iv.RescheduleHistory},
		iv.CancelledBy, iv.CancelReason, iv.CreatedBy, iv.CreatedAt,
	).StructScan(&row)
	if err != nil {
		return nil, fmt.Errorf("insert interview: %w", err)
	}
	out := row.toDomain()
	return &out, nil
}

// FindByID retrieves an interview by its ID.
func (r *InterviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Interview, error) {
	var row interviewRow
	err := r.db.GetContext(ctx, &row, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find interview by id %s: %w", id, err)
	}
	out := row.toDomain()
	return &out, nil
}

// Update writes iv if its version is still current and bumps the version.
func (r *InterviewRepository) Update(ctx context.Context, iv domain.Interview) (*domain.Interview, error) {
	var row interviewRow
	err := r.db.QueryRowxContext(ctx,
		`UPDATE interviews
		 SET kind = $3, location = $4, interviewers = $5, interviewer_ids = $6, scheduled_at = $7,
		     duration_minutes = $8, status = $9, candidate_response = $10, feedback = $11, result = $12,
		     reschedule_history = $13, cancelled_by = $14, cancel_reason = $15,
		     version = version + 1, updated_at = $16
		 WHERE id = $1 AND version = $2
		 RETURNING `+interviewColumns,
		iv.ID, iv.Version, iv.Kind, iv.Location,
		jsonColumn[[]domain.PanelMember]{V: iv.Interviewers}, interviewerIDs(iv),
		iv.ScheduledAt, iv.DurationMinutes, iv.Status,
		jsonColumn[domain.CandidateReply]{V: iv.CandidateResponse},
		jsonColumn[[]domain.Feedback]{V: iv.Feedback},
		jsonColumn[*domain.Result]{V: iv.Result},
		jsonColumn[[]domain.Reschedule]{V: iv.RescheduleHistory},
		iv.CancelledBy, iv.CancelReason, iv.UpdatedAt,
	).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, staleOrMissing(ctx, r.db, "interviews", iv.ID)
		}
		return nil, fmt.Errorf("update interview %s: %w", iv.ID, err)
	}
	out := row.toDomain()
	return &out, nil
}

// FindActiveByInterviewer returns the interviews that book interviewerID
// and intersect [from, to).
func (r *InterviewRepository) FindActiveByInterviewer(ctx context.Context, interviewerID uuid.UUID, from, to time.Time) ([]domain.Interview, error) {
	statuses := make(pq.StringArray, len(domain.BookingStatuses))
	for n, s := range domain.BookingStatuses {
		statuses[n] = string(s)
	}

	var rows []interviewRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+interviewColumns+`
		 FROM interviews
		 WHERE $1 = ANY(interviewer_ids)
		   AND status = ANY($2)
		   AND scheduled_at < $4
		   AND scheduled_at + make_interval(mins => duration_minutes) > $3
		 ORDER BY scheduled_at`,
		interviewerID.String(), statuses, from, to)
	if err != nil {
		return nil, fmt.Errorf("find interviews for interviewer %s: %w", interviewerID, err)
	}

	out := make([]domain.Interview, len(rows))
	for n, row := range rows {
		out[n] = row.toDomain()
	}
	return out, nil
}
