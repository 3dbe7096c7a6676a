package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sumire/hiring/internal/domain"
	"github.com/sumire/hiring/internal/lock"
	"github.com/sumire/hiring/internal/policy"
	"github.com/sumire/hiring/internal/repository"
	"github.com/sumire/hiring/internal/service"
)

type staticTokens map[string]domain.Actor

func (s staticTokens) ValidateToken(token string) (domain.Actor, error) {
	actor, ok := s[token]
	if !ok {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	return actor, nil
}

type testEnvelope struct {
	Success  bool                 `json:"success"`
	Data     json.RawMessage      `json:"data"`
	Warnings []domain.SyncFailure `json:"warnings"`
	Error    *struct {
		Kind    domain.Kind     `json:"kind"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type api struct {
	e      *echo.Echo
	tokens staticTokens
}

func newAPI(t *testing.T, mods ...func(*RouterConfig)) *api {
	t.Helper()
	now := time.Date(2025, 1, 9, 9, 0, 0, 0, time.UTC)
	opts := []service.Option{service.WithClock(func() time.Time { return now })}
	roles := policy.DefaultRoleTable()

	jobs := repository.NewMemoryJobRepository()
	apps := repository.NewMemoryApplicationRepository()
	interviews := repository.NewMemoryInterviewRepository()

	requisitions := service.NewRequisitionService(jobs, policy.NewStatic(policy.DefaultCompanyPolicy()), roles, opts...)
	tracker := service.NewApplicationService(apps, jobs, roles, nil, 0, opts...)
	scheduler := service.NewInterviewService(interviews, tracker, roles, lock.NewLocal(), opts...)

	tokens := staticTokens{
		"recruiter": {ID: uuid.New(), Role: domain.RoleRecruiter},
		"manager":   {ID: uuid.New(), Role: domain.RoleHiringManager},
		"candidate": {ID: uuid.New(), Role: domain.RoleCandidate},
		"other":     {ID: uuid.New(), Role: domain.RoleCandidate},
		"panel":     {ID: uuid.New(), Role: domain.RoleRecruiter},
	}
	cfg := RouterConfig{
		Tokens:         tokens,
		Jobs:           NewJobHandler(requisitions),
		Applications:   NewApplicationHandler(tracker),
		Interviews:     NewInterviewHandler(scheduler),
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	for _, m := range mods {
		m(&cfg)
	}
	return &api{e: NewRouter(cfg), tokens: tokens}
}

func (a *api) do(t *testing.T, method, path, token, body string) (int, testEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func (a *api) mustOK(t *testing.T, method, path, token, body string, want int, dst any) testEnvelope {
	t.Helper()
	code, env := a.do(t, method, path, token, body)
	if code != want || !env.Success {
		t.Fatalf("%s %s: expected %d, got %d %+v", method, path, want, code, env.Error)
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

func (a *api) openJob(t *testing.T) domain.Job {
	t.Helper()
	var job domain.Job
	a.mustOK(t, http.MethodPost, "/api/v1/jobs", "recruiter",
		`{"company_id":"`+uuid.NewString()+`","title":"Backend Engineer","description":"d","location":"Remote","department":"Eng"}`,
		http.StatusCreated, &job)
	a.mustOK(t, http.MethodPost, "/api/v1/jobs/"+job.ID.String()+"/submit", "recruiter", "", http.StatusOK, nil)
	a.mustOK(t, http.MethodPost, "/api/v1/jobs/"+job.ID.String()+"/approve", "manager", "", http.StatusOK, &job)
	return job
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	code, env := a.do(t, http.MethodGet, "/health", "", "")
	if code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected health response %d %+v", code, env)
	}
}

func TestRequiresAuthentication(t *testing.T) {
	a := newAPI(t)
	code, env := a.do(t, http.MethodPost, "/api/v1/jobs", "", `{}`)
	if code != http.StatusUnauthorized || env.Error == nil || env.Error.Kind != domain.KindUnauthorized {
		t.Fatalf("expected 401 Unauthorized, got %d %+v", code, env.Error)
	}
	code, _ = a.do(t, http.MethodPost, "/api/v1/jobs", "forged", `{}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", code)
	}
}

func TestEchoErrorsMapToKinds(t *testing.T) {
	tests := []struct {
		code   int
		status int
		kind   domain.Kind
	}{
		{http.StatusTooManyRequests, http.StatusTooManyRequests, domain.KindRateLimited},
		{http.StatusMethodNotAllowed, http.StatusMethodNotAllowed, domain.KindMethodNotAllowed},
		{http.StatusUnsupportedMediaType, http.StatusUnsupportedMediaType, domain.KindValidation},
		{http.StatusServiceUnavailable, http.StatusServiceUnavailable, domain.KindInternal},
	}
	for _, tt := range tests {
		status, apiErr := mapError(echo.NewHTTPError(tt.code))
		if status != tt.status || apiErr.Kind != tt.kind {
			t.Errorf("code %d: got %d %s, want %d %s", tt.code, status, apiErr.Kind, tt.status, tt.kind)
		}
	}
}

func TestApplyRateLimitedPerActor(t *testing.T) {
	a := newAPI(t, func(cfg *RouterConfig) { cfg.ApplyRateLimit = 0.001 })
	job := a.openJob(t)

	body := `{"job_id":"` + job.ID.String() + `"}`
	a.mustOK(t, http.MethodPost, "/api/v1/applications", "candidate", body, http.StatusCreated, nil)

	code, env := a.do(t, http.MethodPost, "/api/v1/applications", "candidate", body)
	if code != http.StatusTooManyRequests || env.Error == nil || env.Error.Kind != domain.KindRateLimited {
		t.Fatalf("expected 429 RateLimited, got %d %+v", code, env.Error)
	}

	a.mustOK(t, http.MethodPost, "/api/v1/applications", "other", body, http.StatusCreated, nil)
}

func TestJobErrorsMapToKinds(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(t, http.MethodPost, "/api/v1/jobs", "recruiter", `{"title":"x"}`)
	if code != http.StatusBadRequest || env.Error.Kind != domain.KindValidation || !strings.Contains(string(env.Error.Details), "company_id") {
		t.Fatalf("expected company_id validation error, got %d %+v", code, env.Error)
	}

	var job domain.Job
	a.mustOK(t, http.MethodPost, "/api/v1/jobs", "recruiter", `{"company_id":"`+uuid.NewString()+`","title":"x"}`, http.StatusCreated, &job)

	code, env = a.do(t, http.MethodPost, "/api/v1/jobs/"+job.ID.String()+"/approve", "recruiter", "")
	if code != http.StatusForbidden || env.Error.Kind != domain.KindForbidden {
		t.Fatalf("expected 403, got %d %+v", code, env.Error)
	}

	code, env = a.do(t, http.MethodPost, "/api/v1/jobs/"+job.ID.String()+"/fill", "recruiter", "")
	if code != http.StatusConflict || env.Error.Kind != domain.KindIllegalTransition {
		t.Fatalf("expected 409 IllegalTransition, got %d %+v", code, env.Error)
	}

	code, env = a.do(t, http.MethodGet, "/api/v1/jobs/not-a-uuid", "recruiter", "")
	if code != http.StatusBadRequest || env.Error.Kind != domain.KindValidation {
		t.Fatalf("expected 400 for bad id, got %d %+v", code, env.Error)
	}

	code, env = a.do(t, http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), "recruiter", "")
	if code != http.StatusNotFound || env.Error.Kind != domain.KindNotFound {
		t.Fatalf("expected 404, got %d %+v", code, env.Error)
	}
}

func TestInterviewFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	job := a.openJob(t)

	var app domain.Application
	a.mustOK(t, http.MethodPost, "/api/v1/applications", "candidate", `{"job_id":"`+job.ID.String()+`"}`, http.StatusCreated, &app)

	code, env := a.do(t, http.MethodPost, "/api/v1/applications", "candidate", `{"job_id":"`+job.ID.String()+`"}`)
	if code != http.StatusConflict || env.Error.Kind != domain.KindDuplicateApplication {
		t.Fatalf("expected 409 DuplicateApplication, got %d %+v", code, env.Error)
	}

	code, env = a.do(t, http.MethodGet, "/api/v1/applications/"+app.ID.String(), "other", "")
	if code != http.StatusForbidden {
		t.Fatalf("expected other candidate to be forbidden, got %d %+v", code, env.Error)
	}

	panel := a.tokens["panel"].ID.String()
	schedule := func(appID uuid.UUID, at string) (int, testEnvelope) {
		return a.do(t, http.MethodPost, "/api/v1/interviews", "recruiter",
			`{"application_id":"`+appID.String()+`","round":1,"interviewers":[{"interviewer_id":"`+panel+`"}],"scheduled_at":"`+at+`","duration_minutes":60}`)
	}

	var scheduled service.InterviewResult
	code, env = schedule(app.ID, "2025-01-10T10:00:00Z")
	if code != http.StatusCreated || len(env.Warnings) != 0 {
		t.Fatalf("Schedule: %d %+v", code, env.Error)
	}
	if err := json.Unmarshal(env.Data, &scheduled); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if scheduled.Application.Status != domain.ApplicationInterviewing {
		t.Fatalf("expected interviewing, got %s", scheduled.Application.Status)
	}

	var second domain.Application
	a.mustOK(t, http.MethodPost, "/api/v1/applications", "other", `{"job_id":"`+job.ID.String()+`"}`, http.StatusCreated, &second)
	code, env = schedule(second.ID, "2025-01-10T10:30:00Z")
	if code != http.StatusConflict || env.Error.Kind != domain.KindSchedulingConflict {
		t.Fatalf("expected 409 SchedulingConflict, got %d %+v", code, env.Error)
	}
	var detail ConflictDetail
	if err := json.Unmarshal(env.Error.Details, &detail); err != nil {
		t.Fatalf("decode conflict details: %v", err)
	}
	if detail.InterviewerID != panel || detail.ConflictingInterviewID != scheduled.Interview.ID.String() {
		t.Fatalf("unexpected conflict details %+v", detail)
	}

	ivPath := "/api/v1/interviews/" + scheduled.Interview.ID.String()
	code, env = a.do(t, http.MethodPut, ivPath+"/respond", "candidate", `{"response":"maybe"}`)
	if code != http.StatusBadRequest || !strings.Contains(string(env.Error.Details), "response") {
		t.Fatalf("expected invalid response error, got %d %+v", code, env.Error)
	}
	a.mustOK(t, http.MethodPut, ivPath+"/respond", "candidate", `{"response":"accepted"}`, http.StatusOK, nil)
	a.mustOK(t, http.MethodPost, ivPath+"/feedback", "panel", `{"ratings":{"technical":4},"recommendation":"hire"}`, http.StatusOK, nil)

	a.mustOK(t, http.MethodPut, "/api/v1/applications/"+app.ID.String()+"/status", "recruiter", `{"status":"rejected","note":"frozen"}`, http.StatusOK, nil)

	var decided service.InterviewResult
	env = a.mustOK(t, http.MethodPost, ivPath+"/decision", "manager", `{"decision":"offer"}`, http.StatusOK, &decided)
	if len(env.Warnings) != 1 || env.Warnings[0].Target != string(domain.ApplicationOfferPending) {
		t.Fatalf("expected one sync warning, got %+v", env.Warnings)
	}
	if decided.Interview.Result == nil || decided.Interview.Result.Decision != domain.DecisionOffer {
		t.Fatalf("expected decision recorded, got %+v", decided.Interview.Result)
	}
}
