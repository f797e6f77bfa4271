// Package resume stores each user's resume and rewrites resume sections
// with the text-generation model.
package resume

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/llm"
	"jobmate/coach-service/internal/logger"
	"jobmate/coach-service/internal/model"
	"jobmate/coach-service/internal/profile"
)

// MaxContentLen bounds a stored resume, in bytes.
const MaxContentLen = 200_000

// ErrEmptyOutput is returned when the model answers with nothing usable.
var ErrEmptyOutput = errors.New("empty model output")

// Service implements resume storage and improvement.
type Service struct {
	users  profile.Store
	repo   Repository
	client llm.Client
	log    *logger.Logger
}

// NewService returns a Service over the user store, the resume repository
// and the text-generation client.
func NewService(users profile.Store, repo Repository, client llm.Client, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		users:  users,
		repo:   repo,
		client: client,
		log:    log.With("component", "resume"),
	}
}

// Save replaces the user's resume with content, creating it on first save.
func (s *Service) Save(ctx context.Context, authID, content string) (*model.Resume, error) {
	if len(content) > MaxContentLen {
		return nil, apperr.Invalid("resume exceeds %d bytes", MaxContentLen)
	}
	user, err := s.user(ctx, authID)
	if err != nil {
		return nil, err
	}

	r, err := s.repo.Upsert(ctx, &model.Resume{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		Content: content,
	})
	if err != nil {
		return nil, &apperr.StorageError{Op: "save resume", Subject: user.ID, Err: err}
	}
	s.log.Info("resume saved", "userId", user.ID, "bytes", len(content))
	return r, nil
}

// Get returns the user's resume, or nil if none has been saved.
func (s *Service) Get(ctx context.Context, authID string) (*model.Resume, error) {
	user, err := s.user(ctx, authID)
	if err != nil {
		return nil, err
	}
	r, err := s.repo.FindByUser(ctx, user.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &apperr.StorageError{Op: "find resume", Subject: user.ID, Err: err}
	}
	return r, nil
}

// ImproveWithAI rewrites one resume section (section names its kind, e.g.
// "summary" or "experience") for the user's industry and returns the text.
func (s *Service) ImproveWithAI(ctx context.Context, authID, current, section string) (string, error) {
	current = strings.TrimSpace(current)
	section = strings.TrimSpace(section)
	if current == "" {
		return "", apperr.Invalid("current content is required")
	}
	if section == "" {
		return "", apperr.Invalid("type is required")
	}
	user, err := s.user(ctx, authID)
	if err != nil {
		return "", err
	}

	var industry string
	if user.IsOnboarded() {
		industry = *user.Industry
	}
	text, err := s.client.GenerateText(ctx, improvePrompt(section, industry, current))
	if err != nil {
		return "", &apperr.GenerationError{Subject: "resume " + section, Err: err}
	}
	improved := llm.StripFences(text)
	if improved == "" {
		return "", &apperr.GenerationError{Subject: "resume " + section, Err: ErrEmptyOutput}
	}
	return improved, nil
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
