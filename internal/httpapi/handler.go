// Package httpapi implements the HTTP handlers for the coach service.
//
// All routes except /health expect an x-user-id header forwarded by the
// Gateway.
//
// Routes:
//
//	GET  /health                      → liveness
//	POST /users/sync                  → create the user row on first sight
//	GET  /insights/{industry}         → get or lazily create an industry insight
//	POST /insights/{industry}/refresh → regenerate an existing insight
//	GET  /dashboard                   → insight for the user's industry
//	POST /onboarding                  → save profile and industry
//	GET  /onboarding/status           → whether onboarding is complete
//	POST /interview/quiz              → generate a practice quiz
//	POST /interview/results           → grade and store a quiz result
//	GET  /interview/assessments       → list stored results
//	PUT  /resume                      → save the user's resume
//	GET  /resume                      → the user's resume, or null
//	POST /resume/improve              → rewrite a resume section
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/insight"
	"jobmate/coach-service/internal/interview"
	"jobmate/coach-service/internal/logger"
	"jobmate/coach-service/internal/model"
	"jobmate/coach-service/internal/onboarding"
)

const maxBodyBytes = 1 << 20

// ─── Dependencies ────────────────────────────────────────────────────────────

type InsightService interface {
	GetOrCreate(ctx context.Context, industry string, generate insight.GenerateFunc) (*model.IndustryInsight, error)
	Refresh(ctx context.Context, industry string) (*model.IndustryInsight, error)
}

type OnboardingService interface {
	EnsureUser(ctx context.Context, authID, email string, name *string) (*model.User, error)
	UpdateProfile(ctx context.Context, authID string, in onboarding.ProfileInput) (*onboarding.Result, error)
	Status(ctx context.Context, authID string) (onboarding.Status, error)
	Dashboard(ctx context.Context, authID string) (*model.IndustryInsight, error)
}

type InterviewService interface {
	GenerateQuiz(ctx context.Context, authID string) ([]model.QuizQuestion, error)
	SaveResult(ctx context.Context, authID string, sub interview.Submission) (*model.Assessment, error)
	ListAssessments(ctx context.Context, authID string) ([]model.Assessment, error)
}

type ResumeService interface {
	Save(ctx context.Context, authID, content string) (*model.Resume, error)
	Get(ctx context.Context, authID string) (*model.Resume, error)
	ImproveWithAI(ctx context.Context, authID, current, section string) (string, error)
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	insights   InsightService
	onboarding OnboardingService
	interview  InterviewService
	resume     ResumeService
	log        *logger.Logger
	version    string
}

// NewHandler returns a configured Handler.
func NewHandler(insights InsightService, onb OnboardingService, iv InterviewService, rs ResumeService, log *logger.Logger, version string) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		insights:   insights,
		onboarding: onb,
		interview:  iv,
		resume:     rs,
		log:        log.With("component", "http"),
		version:    version,
	}
}

// RegisterRoutes mounts all coach-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)

	mux.HandleFunc("POST /users/sync", h.withUser(h.syncUser))

	mux.HandleFunc("GET /insights/{industry}", h.withUser(h.getInsight))
	mux.HandleFunc("POST /insights/{industry}/refresh", h.withUser(h.refreshInsight))

	mux.HandleFunc("GET /dashboard", h.withUser(h.dashboard))
	mux.HandleFunc("POST /onboarding", h.withUser(h.updateProfile))
	mux.HandleFunc("GET /onboarding/status", h.withUser(h.onboardingStatus))

	mux.HandleFunc("POST /interview/quiz", h.withUser(h.generateQuiz))
	mux.HandleFunc("POST /interview/results", h.withUser(h.saveResult))
	mux.HandleFunc("GET /interview/assessments", h.withUser(h.listAssessments))

	mux.HandleFunc("PUT /resume", h.withUser(h.saveResume))
	mux.HandleFunc("GET /resume", h.withUser(h.getResume))
	mux.HandleFunc("POST /resume/improve", h.withUser(h.improveResume))
}

type userHandler func(w http.ResponseWriter, r *http.Request, authID string)

func (h *Handler) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authID := r.Header.Get("x-user-id")
		if authID == "" {
			jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
			return
		}
		next(w, r, authID)
	}
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "coach-service",
		"version": h.version,
	})
}

func (h *Handler) syncUser(w http.ResponseWriter, r *http.Request, authID string) {
	var body struct {
		Email string  `json:"email"`
		Name  *string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	u, err := h.onboarding.EnsureUser(r.Context(), authID, body.Email, body.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, u)
}

func (h *Handler) getInsight(w http.ResponseWriter, r *http.Request, _ string) {
	in, err := h.insights.GetOrCreate(r.Context(), r.PathValue("industry"), nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, in)
}

func (h *Handler) refreshInsight(w http.ResponseWriter, r *http.Request, _ string) {
	in, err := h.insights.Refresh(r.Context(), r.PathValue("industry"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, in)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request, authID string) {
	in, err := h.onboarding.Dashboard(r.Context(), authID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, in)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, authID string) {
	var body onboarding.ProfileInput
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := h.onboarding.UpdateProfile(r.Context(), authID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, map[string]any{"success": true, "user": res.User, "insight": res.Insight})
}

func (h *Handler) onboardingStatus(w http.ResponseWriter, r *http.Request, authID string) {
	st, err := h.onboarding.Status(r.Context(), authID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, st)
}

func (h *Handler) generateQuiz(w http.ResponseWriter, r *http.Request, authID string) {
	qs, err := h.interview.GenerateQuiz(r.Context(), authID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, map[string]any{"questions": qs})
}

func (h *Handler) saveResult(w http.ResponseWriter, r *http.Request, authID string) {
	var body interview.Submission
	if !decodeBody(w, r, &body) {
		return
	}
	a, err := h.interview.SaveResult(r.Context(), authID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, a)
}

func (h *Handler) listAssessments(w http.ResponseWriter, r *http.Request, authID string) {
	list, err := h.interview.ListAssessments(r.Context(), authID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, list)
}

func (h *Handler) saveResume(w http.ResponseWriter, r *http.Request, authID string) {
	var body struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := h.resume.Save(r.Context(), authID, body.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, res)
}

func (h *Handler) getResume(w http.ResponseWriter, r *http.Request, authID string) {
	res, err := h.resume.Get(r.Context(), authID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, res)
}

func (h *Handler) improveResume(w http.ResponseWriter, r *http.Request, authID string) {
	var body struct {
		Current string `json:"current"`
		Type    string `json:"type"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	text, err := h.resume.ImproveWithAI(r.Context(), authID, body.Current, body.Type)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, map[string]string{"content": text})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// StatusFor maps a service error to its HTTP status code.
func StatusFor(err error) int {
	var (
		verr *apperr.ValidationError
		gerr *apperr.GenerationError
		serr *apperr.StorageError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &gerr):
		return http.StatusBadGateway
	case errors.As(err, &serr):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	msg := err.Error()
	switch code {
	case http.StatusBadGateway:
		msg = "generation failed, please retry"
	case http.StatusServiceUnavailable:
		msg = "storage unavailable, please retry"
	case http.StatusInternalServerError:
		msg = "internal error"
	}
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", code, "err", err)
	}
	jsonError(w, msg, code)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
