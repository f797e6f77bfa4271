// Package interview generates practice quizzes and records their results.
package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/llm"
	"jobmate/coach-service/internal/logger"
	"jobmate/coach-service/internal/model"
	"jobmate/coach-service/internal/profile"
)

const (
	// QuestionCount is the number of questions requested per quiz.
	QuestionCount = 10
	// OptionCount is the number of choices per question.
	OptionCount = 4
	// CategoryTechnical is the category of every generated quiz.
	CategoryTechnical = "Technical"
)

// ErrNoQuestions is returned when the model output holds no usable question.
var ErrNoQuestions = errors.New("no well-formed quiz questions in output")

// Submission is a completed quiz. Answers[i] answers Questions[i]; missing
// answers count as wrong.
type Submission struct {
	Questions []model.QuizQuestion `json:"questions"`
	Answers   []string             `json:"answers"`
	Score     float64              `json:"score"`
}

// Service implements interview practice.
type Service struct {
	users  profile.Store
	repo   Repository
	client llm.Client
	log    *logger.Logger
}

// NewService constructs an interview Service. log may be nil.
func NewService(users profile.Store, repo Repository, client llm.Client, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		users:  users,
		repo:   repo,
		client: client,
		log:    log.With("component", "interview"),
	}
}

// GenerateQuiz asks the model for questions about the user's industry and
// skills. Malformed questions are dropped.
func (s *Service) GenerateQuiz(ctx context.Context, authID string) ([]model.QuizQuestion, error) {
	user, err := s.onboardedUser(ctx, authID)
	if err != nil {
		return nil, err
	}

	text, err := s.client.GenerateText(ctx, quizPrompt(*user.Industry, user.Skills))
	if err != nil {
		return nil, &apperr.GenerationError{Subject: "quiz", Err: err}
	}

	var out struct {
		Questions []model.QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &out); err != nil {
		return nil, &apperr.GenerationError{Subject: "quiz", Err: fmt.Errorf("decode quiz: %w", err)}
	}

	questions := make([]model.QuizQuestion, 0, len(out.Questions))
	for _, q := range out.Questions {
		if wellFormed(q) {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, &apperr.GenerationError{Subject: "quiz", Err: ErrNoQuestions}
	}
	if dropped := len(out.Questions) - len(questions); dropped > 0 {
		s.log.Warn("dropped malformed quiz questions", "userId", user.ID, "dropped", dropped)
	}
	return questions, nil
}

// SaveResult grades a submission and stores it as an assessment. The
// improvement tip is best effort: if generating it fails the assessment is
// saved without one.
func (s *Service) SaveResult(ctx context.Context, authID string, sub Submission) (*model.Assessment, error) {
	if len(sub.Questions) == 0 {
		return nil, apperr.Invalid("questions are required")
	}
	if len(sub.Answers) > len(sub.Questions) {
		return nil, apperr.Invalid("got %d answers for %d questions", len(sub.Answers), len(sub.Questions))
	}
	if math.IsNaN(sub.Score) || sub.Score < 0 || sub.Score > 100 {
		return nil, apperr.Invalid("score must be between 0 and 100")
	}

	user, err := s.user(ctx, authID)
	if err != nil {
		return nil, err
	}

	results := Grade(sub.Questions, sub.Answers)
	a := &model.Assessment{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		QuizScore:      sub.Score,
		Questions:      results,
		Category:       CategoryTechnical,
		ImprovementTip: s.improvementTip(ctx, user, results),
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, &apperr.StorageError{Op: "save assessment", Subject: user.ID, Err: err}
	}
	s.log.Info("assessment saved", "userId", user.ID, "score", a.QuizScore, "hasTip", a.ImprovementTip != nil)
	return a, nil
}

// ListAssessments returns the user's assessments, oldest first.
func (s *Service) ListAssessments(ctx context.Context, authID string) ([]model.Assessment, error) {
	user, err := s.user(ctx, authID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, &apperr.StorageError{Op: "list assessments", Subject: user.ID, Err: err}
	}
	return list, nil
}

// Grade pairs every question with the user's answer.
func Grade(questions []model.QuizQuestion, answers []string) []model.QuestionResult {
	out := make([]model.QuestionResult, len(questions))
	for i, q := range questions {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		out[i] = model.QuestionResult{
			Question:    q.Question,
			Answer:      q.CorrectAnswer,
			UserAnswer:  answer,
			IsCorrect:   answer != "" && answer == q.CorrectAnswer,
			Explanation: q.Explanation,
		}
	}
	return out
}

func (s *Service) improvementTip(ctx context.Context, user *model.User, results []model.QuestionResult) *string {
	wrong := make([]model.QuestionResult, 0)
	for _, r := range results {
		if !r.IsCorrect {
			wrong = append(wrong, r)
		}
	}
	if len(wrong) == 0 {
		return nil
	}

	industry := "professional"
	if user.IsOnboarded() {
		industry = *user.Industry
	}
	text, err := s.client.GenerateText(ctx, tipPrompt(industry, wrong))
	if err != nil {
		s.log.Warn("improvement tip generation failed", "userId", user.ID, "err", err)
		return nil
	}
	tip := strings.TrimSpace(text)
	if tip == "" {
		return nil
	}
	return &tip
}

func wellFormed(q model.QuizQuestion) bool {
	if strings.TrimSpace(q.Question) == "" || len(q.Options) != OptionCount {
		return false
	}
	for _, o := range q.Options {
		if o == q.CorrectAnswer {
			return true
		}
	}
	return false
}

func (s *Service) user(ctx context.Context, authID string) (*model.User, error) {
	if authID == "" {
		return nil, apperr.Invalid("user id is required")
	}
	u, err := s.users.FindByAuthID(ctx, authID)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, &apperr.StorageError{Op: "find user", Subject: authID, Err: err}
	}
	return u, nil
}

func (s *Service) onboardedUser(ctx context.Context, authID string) (*model.User, error) {
	u, err := s.user(ctx, authID)
	if err != nil {
		return nil, err
	}
	if !u.IsOnboarded() {
		return nil, apperr.Invalid("industry is required: complete onboarding first")
	}
	return u, nil
}
