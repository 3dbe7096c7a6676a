package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RouterConfig wires the handlers into an echo instance.
type RouterConfig struct {
	Tokens         TokenValidator
	Auth           *AuthHandler
	Jobs           *JobHandler
	Applications   *ApplicationHandler
	Interviews     *InterviewHandler
	AllowedOrigins []string
	ApplyRateLimit float64
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewAppValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")

	if cfg.Auth != nil {
		auth := api.Group("/auth")
		auth.GET("/google", cfg.Auth.GoogleRedirect)
		auth.GET("/google/callback", cfg.Auth.GoogleCallback)
		auth.GET("/github", cfg.Auth.GitHubRedirect)
		auth.GET("/github/callback", cfg.Auth.GitHubCallback)
		auth.POST("/refresh", cfg.Auth.Refresh)
	}

	protected := api.Group("", JWTAuth(cfg.Tokens))
	if cfg.Auth != nil {
		protected.GET("/auth/me", cfg.Auth.Me)
	}

	jobs := protected.Group("/jobs")
	jobs.POST("", cfg.Jobs.Create)
	jobs.GET("/:id", cfg.Jobs.Get)
	jobs.POST("/:id/submit", cfg.Jobs.Submit)
	jobs.POST("/:id/approve", cfg.Jobs.Approve)
	jobs.POST("/:id/reject", cfg.Jobs.Reject)
	jobs.POST("/:id/pause", cfg.Jobs.Pause)
	jobs.POST("/:id/resume", cfg.Jobs.Resume)
	jobs.POST("/:id/close", cfg.Jobs.Close)
	jobs.POST("/:id/fill", cfg.Jobs.Fill)
	jobs.POST("/:id/cancel", cfg.Jobs.Cancel)

	apps := protected.Group("/applications")
	applyLimit := []echo.MiddlewareFunc{}
	if cfg.ApplyRateLimit > 0 {
		applyLimit = append(applyLimit, PerActorRateLimit(cfg.ApplyRateLimit))
	}
	apps.POST("", cfg.Applications.Apply, applyLimit...)
	apps.GET("/:id", cfg.Applications.Get)
	apps.PUT("/:id/status", cfg.Applications.UpdateStatus)
	apps.PUT("/:id/withdraw", cfg.Applications.Withdraw)
	apps.PUT("/:id/override", cfg.Applications.Override)

	ivs := protected.Group("/interviews")
	ivs.POST("", cfg.Interviews.Schedule)
	ivs.GET("/:id", cfg.Interviews.Get)
	ivs.PUT("/:id", cfg.Interviews.Reschedule)
	ivs.PUT("/:id/respond", cfg.Interviews.Respond)
	ivs.PUT("/:id/confirm", cfg.Interviews.ConfirmAttendance)
	ivs.POST("/:id/cancel", cfg.Interviews.Cancel)
	ivs.POST("/:id/start", cfg.Interviews.Start)
	ivs.POST("/:id/no-show", cfg.Interviews.NoShow)
	ivs.POST("/:id/feedback", cfg.Interviews.Feedback)
	ivs.POST("/:id/decision", cfg.Interviews.Decide)

	return e
}
