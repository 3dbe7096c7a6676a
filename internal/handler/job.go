package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sumire/hiring/internal/domain"
	"github.com/sumire/hiring/internal/service"
)

// JobHandler serves the requisition endpoints.
type JobHandler struct {
	jobs *service.RequisitionService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs *service.RequisitionService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type createJobRequest struct {
	CompanyID       string `json:"company_id" validate:"required,uuid"`
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description"`
	Location        string `json:"location" validate:"max=200"`
	Department      string `json:"department" validate:"max=200"`
	HiringManagerID string `json:"hiring_manager_id" validate:"omitempty,uuid"`
	Positions       int    `json:"positions" validate:"gte=0,lte=1000"`
	InternalOnly    bool   `json:"internal_only"`
}

type rejectJobRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Create handles POST /jobs.
func (h *JobHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req createJobRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	in := service.NewJob{
		CompanyID:    uuid.MustParse(req.CompanyID),
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		Department:   req.Department,
		Positions:    req.Positions,
		InternalOnly: req.InternalOnly,
	}
	if req.HiringManagerID != "" {
		in.HiringManagerID = uuid.MustParse(req.HiringManagerID)
	}
	job, err := h.jobs.Create(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, job)
}

// Get handles GET /jobs/:id.
func (h *JobHandler) Get(c echo.Context) error {
	return h.run(c, h.jobs.Get)
}

// Submit handles POST /jobs/:id/submit.
func (h *JobHandler) Submit(c echo.Context) error { return h.run(c, h.jobs.Submit) }

// Approve handles POST /jobs/:id/approve.
func (h *JobHandler) Approve(c echo.Context) error { return h.run(c, h.jobs.Approve) }

// Pause handles POST /jobs/:id/pause.
func (h *JobHandler) Pause(c echo.Context) error { return h.run(c, h.jobs.Pause) }

// Resume handles POST /jobs/:id/resume.
func (h *JobHandler) Resume(c echo.Context) error { return h.run(c, h.jobs.Resume) }

// Close handles POST /jobs/:id/close.
func (h *JobHandler) Close(c echo.Context) error { return h.run(c, h.jobs.Close) }

// Fill handles POST /jobs/:id/fill.
func (h *JobHandler) Fill(c echo.Context) error { return h.run(c, h.jobs.Fill) }

// Cancel handles POST /jobs/:id/cancel.
func (h *JobHandler) Cancel(c echo.Context) error { return h.run(c, h.jobs.Cancel) }

// Reject handles POST /jobs/:id/reject.
func (h *JobHandler) Reject(c echo.Context) error {
	var req rejectJobRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.run(c, func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Job, error) {
		return h.jobs.Reject(ctx, actor, id, req.Reason)
	})
}

func (h *JobHandler) run(c echo.Context, op func(context.Context, domain.Actor, uuid.UUID) (*domain.Job, error)) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	job, err := op(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, job)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Field: "id", Message: fmt.Sprintf("invalid id %q", c.Param("id"))}
	}
	return id, nil
}
