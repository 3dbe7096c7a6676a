package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sumire/hiring/internal/domain"
	"github.com/sumire/hiring/internal/service"
)

// InterviewHandler serves the interview, feedback and decision endpoints.
type InterviewHandler struct {
	interviews *service.InterviewService
}

// NewInterviewHandler creates a new InterviewHandler.
func NewInterviewHandler(interviews *service.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviews: interviews}
}

type panelMemberRequest struct {
	InterviewerID string `json:"interviewer_id" validate:"required,uuid"`
	Role          string `json:"role" validate:"max=100"`
}

type scheduleRequest struct {
	ApplicationID   string               `json:"application_id" validate:"required,uuid"`
	Round           int                  `json:"round" validate:"required,gte=1"`
	Kind            string               `json:"kind" validate:"omitempty,oneof=phone video onsite"`
	Location        string               `json:"location" validate:"max=500"`
	Interviewers    []panelMemberRequest `json:"interviewers" validate:"required,min=1,dive"`
	ScheduledAt     time.Time            `json:"scheduled_at" validate:"required"`
	DurationMinutes int                  `json:"duration_minutes" validate:"required,gte=1,lte=480"`
}

type rescheduleRequest struct {
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,gte=1,lte=480"`
	Reason          string    `json:"reason" validate:"max=2000"`
}

type respondRequest struct {
	Response string `json:"response" validate:"required"`
	Note     string `json:"note" validate:"max=2000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type feedbackRequest struct {
	InterviewerID  string         `json:"interviewer_id" validate:"omitempty,uuid"`
	Ratings        map[string]int `json:"ratings" validate:"required,min=1,dive,gte=1,lte=5"`
	Recommendation string         `json:"recommendation" validate:"required"`
	Notes          string         `json:"notes" validate:"max=5000"`
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required"`
	Notes    string `json:"notes" validate:"max=5000"`
}

// Schedule handles POST /interviews.
func (h *InterviewHandler) Schedule(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req scheduleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	in := service.ScheduleInput{
		ApplicationID:   uuid.MustParse(req.ApplicationID),
		Round:           req.Round,
		Kind:            domain.InterviewKind(req.Kind),
		Location:        req.Location,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
	}
	for _, p := range req.Interviewers {
		in.Interviewers = append(in.Interviewers, domain.PanelMember{
			InterviewerID: uuid.MustParse(p.InterviewerID),
			Role:          p.Role,
		})
	}
	res, err := h.interviews.Schedule(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return JSONWithWarnings(c, http.StatusCreated, res, res.SyncFailure)
}

// Get handles GET /interviews/:id.
func (h *InterviewHandler) Get(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	iv, err := h.interviews.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, iv)
}

// Reschedule handles PUT /interviews/:id.
func (h *InterviewHandler) Reschedule(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	var req rescheduleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	iv, err := h.interviews.Reschedule(c.Request().Context(), actor, id, service.RescheduleInput{
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
	})
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, iv)
}

// Respond handles PUT /interviews/:id/respond.
func (h *InterviewHandler) Respond(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	var req respondRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	iv, err := h.interviews.Respond(c.Request().Context(), actor, id, req.Response, req.Note)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, iv)
}

// ConfirmAttendance handles PUT /interviews/:id/confirm.
func (h *InterviewHandler) ConfirmAttendance(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	iv, err := h.interviews.ConfirmAttendance(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, iv)
}

// Cancel handles POST /interviews/:id/cancel.
func (h *InterviewHandler) Cancel(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	iv, err := h.interviews.Cancel(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, iv)
}

// Start handles POST /interviews/:id/start.
func (h *InterviewHandler) Start(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	iv, err := h.interviews.Start(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, iv)
}

// NoShow handles POST /interviews/:id/no-show.
func (h *InterviewHandler) NoShow(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	iv, err := h.interviews.MarkNoShow(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, iv)
}

// Feedback handles POST /interviews/:id/feedback.
func (h *InterviewHandler) Feedback(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	var req feedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	in := service.FeedbackInput{
		Ratings:        req.Ratings,
		Recommendation: domain.Recommendation(req.Recommendation),
		Notes:          req.Notes,
	}
	if req.InterviewerID != "" {
		in.InterviewerID = uuid.MustParse(req.InterviewerID)
	}
	iv, err := h.interviews.SubmitFeedback(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, iv)
}

// Decide handles POST /interviews/:id/decision.
func (h *InterviewHandler) Decide(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}
	var req decisionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.interviews.Decide(c.Request().Context(), actor, id, domain.Decision(req.Decision), req.Notes)
	if err != nil {
		return err
	}
	return JSONWithWarnings(c, http.StatusOK, res, res.SyncFailure)
}
