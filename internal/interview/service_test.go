package interview_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/interview"
	"jobmate/coach-service/internal/logger"
	"jobmate/coach-service/internal/model"
	"jobmate/coach-service/internal/profile"
)

type fakeUsers struct {
	users map[string]model.User
}

func (f *fakeUsers) FindByAuthID(_ context.Context, authID string) (*model.User, error) {
	u, ok := f.users[authID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) Create(context.Context, *model.User) (*model.User, error) {
	return nil, errors.New("not used")
}

func (f *fakeUsers) UpdateProfile(context.Context, string, profile.Update) (*model.User, error) {
	return nil, errors.New("not used")
}

type fakeRepo struct {
	saved []model.Assessment
	err   error
}

func (f *fakeRepo) Create(_ context.Context, a *model.Assessment) error {
	if f.err != nil {
		return f.err
	}
	a.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	a.UpdatedAt = a.CreatedAt
	f.saved = append(f.saved, *a)
	return nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID string) ([]model.Assessment, error) {
	out := make([]model.Assessment, 0)
	for _, a := range f.saved {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, f.err
}

type fakeLLM struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeLLM) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func newService(llm *fakeLLM, repo *fakeRepo) *interview.Service {
	industry := "tech-software-development"
	users := &fakeUsers{users: map[string]model.User{
		"auth-1": {ID: "user-1", AuthID: "auth-1", Industry: &industry, Skills: []string{"Go", "Postgres"}},
		"auth-2": {ID: "user-2", AuthID: "auth-2", Skills: []string{}},
	}}
	return interview.NewService(users, repo, llm, logger.Nop())
}

const quizJSON = "```json\n" + `{"questions": [
	{"question": "What does a goroutine leak look like?", "options": ["a", "b", "c", "d"], "correctAnswer": "b", "explanation": "because"},
	{"question": "Three options only", "options": ["a", "b", "c"], "correctAnswer": "a", "explanation": ""},
	{"question": "Answer not in options", "options": ["a", "b", "c", "d"], "correctAnswer": "z", "explanation": ""},
	{"question": "", "options": ["a", "b", "c", "d"], "correctAnswer": "a", "explanation": ""}
]}` + "\n```"

// ── GenerateQuiz ───────────────────────────────────────────────────────────

func TestGenerateQuiz_KeepsWellFormedQuestions(t *testing.T) {
	llm := &fakeLLM{text: quizJSON}
	svc := newService(llm, &fakeRepo{})

	qs, err := svc.GenerateQuiz(t.Context(), "auth-1")
	require.NoError(t, err)

	require.Len(t, qs, 1)
	assert.Equal(t, "b", qs[0].CorrectAnswer)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "tech-software-development professional with expertise in Go, Postgres")
}

func TestGenerateQuiz_Errors(t *testing.T) {
	cases := []struct {
		name string
		llm  *fakeLLM
		auth string
		want func(t *testing.T, err error)
	}{
		{"unknown user", &fakeLLM{}, "nobody", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, apperr.ErrNotFound)
		}},
		{"not onboarded", &fakeLLM{}, "auth-2", func(t *testing.T, err error) {
			var verr *apperr.ValidationError
			assert.ErrorAs(t, err, &verr)
		}},
		{"model failure", &fakeLLM{err: errors.New("429")}, "auth-1", func(t *testing.T, err error) {
			var gerr *apperr.GenerationError
			assert.ErrorAs(t, err, &gerr)
		}},
		{"not json", &fakeLLM{text: "Sorry, I can't."}, "auth-1", func(t *testing.T, err error) {
			var gerr *apperr.GenerationError
			assert.ErrorAs(t, err, &gerr)
		}},
		{"no usable questions", &fakeLLM{text: `{"questions": []}`}, "auth-1", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, interview.ErrNoQuestions)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newService(tc.llm, &fakeRepo{}).GenerateQuiz(t.Context(), tc.auth)
			require.Error(t, err)
			tc.want(t, err)
		})
	}
}

// ── SaveResult ─────────────────────────────────────────────────────────────

var questions = []model.QuizQuestion{
	{Question: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "a", Explanation: "e1"},
	{Question: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "b", Explanation: "e2"},
	{Question: "Q3", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "c", Explanation: "e3"},
}

func TestGrade(t *testing.T) {
	got := interview.Grade(questions, []string{"a", "c"})

	require.Len(t, got, 3)
	assert.True(t, got[0].IsCorrect)
	assert.False(t, got[1].IsCorrect)
	assert.Equal(t, "c", got[1].UserAnswer)
	assert.Equal(t, "b", got[1].Answer)
	assert.False(t, got[2].IsCorrect, "missing answer is wrong")
	assert.Equal(t, "", got[2].UserAnswer)
	assert.Equal(t, "e3", got[2].Explanation)
}

func TestSaveResult_WithTip(t *testing.T) {
	llm := &fakeLLM{text: "  Review Go's scheduler.  "}
	repo := &fakeRepo{}
	svc := newService(llm, repo)

	a, err := svc.SaveResult(t.Context(), "auth-1", interview.Submission{
		Questions: questions,
		Answers:   []string{"a", "c", "c"},
		Score:     66.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "user-1", a.UserID)
	assert.Equal(t, interview.CategoryTechnical, a.Category)
	assert.Equal(t, 66.7, a.QuizScore)
	require.NotNil(t, a.ImprovementTip)
	assert.Equal(t, "Review Go's scheduler.", *a.ImprovementTip)
	require.Len(t, repo.saved, 1)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], `Question: "Q2"`)
	assert.NotContains(t, llm.prompts[0], `Question: "Q1"`)
}

func TestSaveResult_AllCorrectSkipsTip(t *testing.T) {
	llm := &fakeLLM{text: "unused"}
	svc := newService(llm, &fakeRepo{})

	a, err := svc.SaveResult(t.Context(), "auth-1", interview.Submission{
		Questions: questions,
		Answers:   []string{"a", "b", "c"},
		Score:     100,
	})
	require.NoError(t, err)
	assert.Nil(t, a.ImprovementTip)
	assert.Empty(t, llm.prompts)
}

func TestSaveResult_TipFailureIsSwallowed(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(&fakeLLM{err: errors.New("timeout")}, repo)

	a, err := svc.SaveResult(t.Context(), "auth-1", interview.Submission{
		Questions: questions,
		Answers:   []string{"d", "d", "d"},
		Score:     0,
	})
	require.NoError(t, err)
	assert.Nil(t, a.ImprovementTip)
	assert.Len(t, repo.saved, 1)
}

func TestSaveResult_Validation(t *testing.T) {
	cases := []struct {
		name string
		sub  interview.Submission
	}{
		{"no questions", interview.Submission{Score: 10}},
		{"too many answers", interview.Submission{Questions: questions[:1], Answers: []string{"a", "b"}}},
		{"score above 100", interview.Submission{Questions: questions, Score: 101}},
		{"negative score", interview.Submission{Questions: questions, Score: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newService(&fakeLLM{}, &fakeRepo{}).SaveResult(t.Context(), "auth-1", tc.sub)
			var verr *apperr.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSaveResult_StorageFailure(t *testing.T) {
	svc := newService(&fakeLLM{}, &fakeRepo{err: errors.New("disk full")})

	_, err := svc.SaveResult(t.Context(), "auth-1", interview.Submission{
		Questions: questions,
		Answers:   []string{"a", "b", "c"},
		Score:     100,
	})
	var serr *apperr.StorageError
	require.ErrorAs(t, err, &serr)
	assert.True(t, strings.Contains(err.Error(), "disk full"))
}

// ── ListAssessments ────────────────────────────────────────────────────────

func TestListAssessments(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(&fakeLLM{}, repo)
	for i := 0; i < 2; i++ {
		_, err := svc.SaveResult(t.Context(), "auth-1", interview.Submission{Questions: questions, Answers: []string{"a", "b", "c"}, Score: 100})
		require.NoError(t, err)
	}
	repo.saved = append(repo.saved, model.Assessment{ID: "other", UserID: "user-2"})

	list, err := svc.ListAssessments(t.Context(), "auth-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListAssessments(t.Context(), "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
