package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/httpapi"
	"jobmate/coach-service/internal/insight"
	"jobmate/coach-service/internal/interview"
	"jobmate/coach-service/internal/logger"
	"jobmate/coach-service/internal/model"
	"jobmate/coach-service/internal/onboarding"
)

type fakeInsights struct {
	industry string
	err      error
}

func (f *fakeInsights) GetOrCreate(_ context.Context, industry string, _ insight.GenerateFunc) (*model.IndustryInsight, error) {
	f.industry = industry
	if f.err != nil {
		return nil, f.err
	}
	return &model.IndustryInsight{ID: "row-1", Industry: industry, DemandLevel: model.DemandHigh, TopSkills: []string{}}, nil
}

func (f *fakeInsights) Refresh(_ context.Context, industry string) (*model.IndustryInsight, error) {
	f.industry = industry
	if f.err != nil {
		return nil, f.err
	}
	return &model.IndustryInsight{ID: "row-1", Industry: industry}, nil
}

type fakeOnboarding struct {
	authID string
	input  onboarding.ProfileInput
	err    error
}

func (f *fakeOnboarding) EnsureUser(_ context.Context, authID, email string, _ *string) (*model.User, error) {
	f.authID = authID
	return &model.User{ID: "user-1", AuthID: authID, Email: email}, f.err
}

func (f *fakeOnboarding) UpdateProfile(_ context.Context, authID string, in onboarding.ProfileInput) (*onboarding.Result, error) {
	f.authID, f.input = authID, in
	if f.err != nil {
		return nil, f.err
	}
	return &onboarding.Result{
		User:    &model.User{ID: "user-1", Industry: &in.Industry},
		Insight: &model.IndustryInsight{Industry: in.Industry},
	}, nil
}

func (f *fakeOnboarding) Status(_ context.Context, authID string) (onboarding.Status, error) {
	f.authID = authID
	return onboarding.Status{IsOnboarded: true}, f.err
}

func (f *fakeOnboarding) Dashboard(_ context.Context, authID string) (*model.IndustryInsight, error) {
	f.authID = authID
	if f.err != nil {
		return nil, f.err
	}
	return &model.IndustryInsight{Industry: "tech"}, nil
}

type fakeInterview struct {
	sub interview.Submission
	err error
}

func (f *fakeInterview) GenerateQuiz(context.Context, string) ([]model.QuizQuestion, error) {
	return []model.QuizQuestion{{Question: "Q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "a"}}, f.err
}

func (f *fakeInterview) SaveResult(_ context.Context, _ string, sub interview.Submission) (*model.Assessment, error) {
	f.sub = sub
	return &model.Assessment{ID: "a-1", QuizScore: sub.Score, Category: interview.CategoryTechnical}, f.err
}

func (f *fakeInterview) ListAssessments(context.Context, string) ([]model.Assessment, error) {
	return []model.Assessment{{ID: "a-1"}, {ID: "a-2"}}, f.err
}

type fakeResume struct {
	authID  string
	content string
	current string
	section string
	stored  *model.Resume
	err     error
}

func (f *fakeResume) Save(_ context.Context, authID, content string) (*model.Resume, error) {
	f.authID, f.content = authID, content
	if f.err != nil {
		return nil, f.err
	}
	return &model.Resume{ID: "r-1", UserID: "user-1", Content: content}, nil
}

func (f *fakeResume) Get(_ context.Context, authID string) (*model.Resume, error) {
	f.authID = authID
	return f.stored, f.err
}

func (f *fakeResume) ImproveWithAI(_ context.Context, authID, current, section string) (string, error) {
	f.authID, f.current, f.section = authID, current, section
	if f.err != nil {
		return "", f.err
	}
	return "Improved " + section, nil
}

type env struct {
	insights   *fakeInsights
	onboarding *fakeOnboarding
	interview  *fakeInterview
	resume     *fakeResume
	mux        *http.ServeMux
}

func newEnv() *env {
	e := &env{insights: &fakeInsights{}, onboarding: &fakeOnboarding{}, interview: &fakeInterview{}, resume: &fakeResume{}}
	e.mux = http.NewServeMux()
	httpapi.NewHandler(e.insights, e.onboarding, e.interview, e.resume, logger.Nop(), "test").RegisterRoutes(e.mux)
	return e
}

func (e *env) do(method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set("x-user-id", user)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := newEnv().do(http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeJSON(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestGetInsight(t *testing.T) {
	e := newEnv()
	rec := e.do(http.MethodGet, "/insights/finance-investment-banking", "auth-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "finance-investment-banking", e.insights.industry)
	body := decodeJSON(t, rec)
	assert.Equal(t, "HIGH", body["demandLevel"])
	assert.Equal(t, []any{}, body["topSkills"])
}

func TestRefreshInsight_NotFound(t *testing.T) {
	e := newEnv()
	e.insights.err = insight.ErrNotFound

	rec := e.do(http.MethodPost, "/insights/tech/refresh", "auth-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "tech", e.insights.industry)
}

func TestUserRoutesRequireHeader(t *testing.T) {
	e := newEnv()
	routes := []struct{ method, path string }{
		{http.MethodPost, "/users/sync"},
		{http.MethodGet, "/dashboard"},
		{http.MethodPost, "/onboarding"},
		{http.MethodGet, "/onboarding/status"},
		{http.MethodPost, "/interview/quiz"},
		{http.MethodPost, "/interview/results"},
		{http.MethodGet, "/interview/assessments"},
		{http.MethodGet, "/insights/tech"},
		{http.MethodPost, "/insights/tech/refresh"},
		{http.MethodPut, "/resume"},
		{http.MethodGet, "/resume"},
		{http.MethodPost, "/resume/improve"},
	}
	for _, rt := range routes {
		rec := e.do(rt.method, rt.path, "", "{}")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", rt.method, rt.path)
	}
}

func TestInsightRoutes_AnonymousCallerNeverReachesService(t *testing.T) {
	e := newEnv()

	rec := e.do(http.MethodGet, "/insights/anything-goes", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = e.do(http.MethodPost, "/insights/anything-goes/refresh", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, e.insights.industry, "no generation or refresh without a user")
}

func TestMethodNotAllowed(t *testing.T) {
	rec := newEnv().do(http.MethodDelete, "/dashboard", "auth-1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv()
	rec := e.do(http.MethodPost, "/onboarding", "auth-1",
		`{"industry":"tech-software","experience":3,"skills":["Go"],"bio":"hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth-1", e.onboarding.authID)
	assert.Equal(t, "tech-software", e.onboarding.input.Industry)
	assert.Equal(t, 3, *e.onboarding.input.Experience)
	assert.Equal(t, []string{"Go"}, e.onboarding.input.Skills)
	assert.Equal(t, true, decodeJSON(t, rec)["success"])
}

func TestUpdateProfile_BadJSON(t *testing.T) {
	rec := newEnv().do(http.MethodPost, "/onboarding", "auth-1", `{"industry":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOnboardingStatusAndDashboard(t *testing.T) {
	e := newEnv()

	rec := e.do(http.MethodGet, "/onboarding/status", "auth-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeJSON(t, rec)["isOnboarded"])

	rec = e.do(http.MethodGet, "/dashboard", "auth-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tech", decodeJSON(t, rec)["industry"])
}

func TestInterviewRoutes(t *testing.T) {
	e := newEnv()

	rec := e.do(http.MethodPost, "/interview/quiz", "auth-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON(t, rec)["questions"], 1)

	rec = e.do(http.MethodPost, "/interview/results", "auth-1",
		`{"questions":[{"question":"Q","options":["a","b","c","d"],"correctAnswer":"a"}],"answers":["b"],"score":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"b"}, e.interview.sub.Answers)
	assert.Equal(t, "Technical", decodeJSON(t, rec)["category"])

	rec = e.do(http.MethodGet, "/interview/assessments", "auth-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestSyncUser(t *testing.T) {
	e := newEnv()
	rec := e.do(http.MethodPost, "/users/sync", "auth-9", `{"email":"x@example.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth-9", e.onboarding.authID)
	assert.Equal(t, "x@example.com", decodeJSON(t, rec)["email"])
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.Invalid("industry is required"), http.StatusBadRequest},
		{fmt.Errorf("user %w", apperr.ErrNotFound), http.StatusNotFound},
		{&apperr.GenerationError{Subject: "tech", Err: errors.New("timeout")}, http.StatusBadGateway},
		{&apperr.StorageError{Op: "insert insight", Err: errors.New("conn reset")}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, httpapi.StatusFor(tc.err), "%v", tc.err)

		e := newEnv()
		e.onboarding.err = tc.err
		rec := e.do(http.MethodGet, "/dashboard", "auth-1", "")
		assert.Equal(t, tc.code, rec.Code, "%v", tc.err)
		assert.NotEmpty(t, decodeJSON(t, rec)["error"])
	}
}

func TestErrorMapping_HidesInternalDetails(t *testing.T) {
	e := newEnv()
	e.onboarding.err = &apperr.StorageError{Op: "find user", Err: errors.New("password authentication failed for user coach")}

	rec := e.do(http.MethodGet, "/dashboard", "auth-1", "")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestResumeRoutes(t *testing.T) {
	e := newEnv()

	rec := e.do(http.MethodPut, "/resume", "auth-1", `{"content":"# Jane"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth-1", e.resume.authID)
	assert.Equal(t, "# Jane", decodeJSON(t, rec)["content"])

	rec = e.do(http.MethodPost, "/resume/improve", "auth-1", `{"current":"did stuff","type":"experience"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "did stuff", e.resume.current)
	assert.Equal(t, "experience", e.resume.section)
	assert.Equal(t, "Improved experience", decodeJSON(t, rec)["content"])
}

func TestGetResume_NoneSavedIsNull(t *testing.T) {
	rec := newEnv().do(http.MethodGet, "/resume", "auth-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestImproveResume_GenerationFailure(t *testing.T) {
	e := newEnv()
	e.resume.err = &apperr.GenerationError{Subject: "resume summary", Err: errors.New("empty model output")}

	rec := e.do(http.MethodPost, "/resume/improve", "auth-1", `{"current":"x","type":"summary"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
