package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sumire/hiring/internal/domain"
	"github.com/sumire/hiring/internal/service"
)

// ApplicationHandler serves the application endpoints.
type ApplicationHandler struct {
	apps *service.ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(apps *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{apps: apps}
}

type applyRequest struct {
	JobID       string `json:"job_id" validate:"required,uuid"`
	CoverLetter string `json:"cover_letter" validate:"max=10000"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

type withdrawRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// Apply handles POST /applications.
func (h *ApplicationHandler) Apply(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req applyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	app, err := h.apps.Apply(c.Request().Context(), actor, uuid.MustParse(req.JobID), req.CoverLetter)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, app)
}

// Get handles GET /applications/:id.
func (h *ApplicationHandler) Get(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	app, err := h.apps.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, app)
}

// UpdateStatus handles PUT /applications/:id/status.
func (h *ApplicationHandler) UpdateStatus(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	status, err := domain.ParseApplicationStatus(req.Status)
	if err != nil {
		return err
	}
	app, err := h.apps.UpdateStatus(c.Request().Context(), actor, id, status, req.Note)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, app)
}

// Withdraw handles PUT /applications/:id/withdraw.
func (h *ApplicationHandler) Withdraw(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	var req withdrawRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	app, err := h.apps.Withdraw(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, app)
}

// Override handles PUT /applications/:id/override.
func (h *ApplicationHandler) Override(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	status, err := domain.ParseApplicationStatus(req.Status)
	if err != nil {
		return err
	}
	app, err := h.apps.Override(c.Request().Context(), actor, id, status, req.Note)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, app)
}

func actorAndID(c echo.Context) (domain.Actor, uuid.UUID, error) {
	actor, err := currentActor(c)
	if err != nil {
		return domain.Actor{}, uuid.Nil, err
	}
	id, err := pathID(c)
	if err != nil {
		return domain.Actor{}, uuid.Nil, err
	}
	return actor, id, nil
}
