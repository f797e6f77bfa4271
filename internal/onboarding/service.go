// Package onboarding records a user's career profile and serves the
// industry dashboard that depends on it.
package onboarding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/insight"
	"jobmate/coach-service/internal/logger"
	"jobmate/coach-service/internal/model"
	"jobmate/coach-service/internal/profile"
)

// DefaultTimeout bounds the whole onboarding transaction, generation included.
const DefaultTimeout = 10 * time.Second

const (
	maxExperience = 60
	maxSkills     = 50
	maxBioLength  = 2000
)

// Insights is the part of insight.Service onboarding depends on.
type Insights interface {
	GetOrCreate(ctx context.Context, industry string, generate insight.GenerateFunc) (*model.IndustryInsight, error)
	GetOrCreateIn(ctx context.Context, store insight.Store, industry string, generate insight.GenerateFunc) (*model.IndustryInsight, bool, error)
	Announce(ctx context.Context, eventType string, row *model.IndustryInsight)
}

// ProfileInput is the onboarding form.
type ProfileInput struct {
	Industry   string   `json:"industry"`
	Bio        *string  `json:"bio,omitempty"`
	Experience *int     `json:"experience,omitempty"`
	Skills     []string `json:"skills,omitempty"`
}

// Result is returned by a successful UpdateProfile.
type Result struct {
	User    *model.User            `json:"user"`
	Insight *model.IndustryInsight `json:"insight"`
}

// Status reports whether onboarding is complete.
type Status struct {
	IsOnboarded bool `json:"isOnboarded"`
}

// Service implements onboarding, the onboarding status check and the dashboard.
type Service struct {
	users    profile.Store
	insights Insights
	tx       TxRunner
	timeout  time.Duration
	log      *logger.Logger
}

// NewService constructs an onboarding Service. A non-positive timeout
// falls back to DefaultTimeout; log may be nil.
func NewService(users profile.Store, insights Insights, tx TxRunner, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		users:    users,
		insights: insights,
		tx:       tx,
		timeout:  timeout,
		log:      log.With("component", "onboarding"),
	}
}

// EnsureUser returns the user for authID, creating it on first sight.
func (s *Service) EnsureUser(ctx context.Context, authID, email string, name *string) (*model.User, error) {
	if authID == "" {
		return nil, apperr.Invalid("user id is required")
	}
	u, err := s.users.FindByAuthID(ctx, authID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, profile.ErrNotFound) {
		return nil, &apperr.StorageError{Op: "find user", Subject: authID, Err: err}
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Invalid("email is required")
	}
	u, err = s.users.Create(ctx, &model.User{
		ID:     uuid.NewString(),
		AuthID: authID,
		Email:  email,
		Name:   name,
		Skills: []string{},
	})
	if errors.Is(err, profile.ErrEmailTaken) {
		return nil, apperr.Invalid("%s is already registered to another account", email)
	}
	if err != nil {
		return nil, &apperr.StorageError{Op: "create user", Subject: authID, Err: err}
	}
	s.log.Info("user created", "authId", authID, "userId", u.ID)
	return u, nil
}

// UpdateProfile stores the onboarding form. The industry insight is looked
// up or generated and the user row updated in one transaction, so a failure
// in either leaves nothing written.
func (s *Service) UpdateProfile(ctx context.Context, authID string, in ProfileInput) (*Result, error) {
	upd, err := validate(in)
	if err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, authID)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		res     Result
		created bool
	)
	err = s.tx.InTx(txCtx, func(users profile.Store, insights insight.Store) error {
		row, c, err := s.insights.GetOrCreateIn(txCtx, insights, upd.Industry, nil)
		if err != nil {
			return err
		}
		upd.Industry = row.Industry

		u, err := users.UpdateProfile(txCtx, user.ID, upd)
		if err != nil {
			return &apperr.StorageError{Op: "update profile", Subject: user.ID, Err: err}
		}
		res = Result{User: u, Insight: row}
		created = c
		return nil
	})
	if err != nil {
		s.log.Error("onboarding failed", "userId", user.ID, "industry", upd.Industry, "err", err)
		return nil, classify(err)
	}

	if created {
		s.insights.Announce(ctx, insight.EventInsightCreated, res.Insight)
	}
	s.log.Info("profile updated", "userId", user.ID, "industry", res.Insight.Industry)
	return &res, nil
}

// Status reports whether the user has chosen an industry. Unknown users are
// not onboarded.
func (s *Service) Status(ctx context.Context, authID string) (Status, error) {
	user, err := s.findUser(ctx, authID)
	if errors.Is(err, apperr.ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	return Status{IsOnboarded: user.IsOnboarded()}, nil
}

// Dashboard returns the insight for the user's industry, creating it if the
// row does not exist yet.
func (s *Service) Dashboard(ctx context.Context, authID string) (*model.IndustryInsight, error) {
	user, err := s.findUser(ctx, authID)
	if err != nil {
		return nil, err
	}
	if !user.IsOnboarded() {
		return nil, apperr.Invalid("industry is required: complete onboarding first")
	}
	return s.insights.GetOrCreate(ctx, *user.Industry, nil)
}

func (s *Service) findUser(ctx context.Context, authID string) (*model.User, error) {
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

func validate(in ProfileInput) (profile.Update, error) {
	industry, err := insight.NormalizeKey(in.Industry)
	if err != nil {
		return profile.Update{}, err
	}
	if in.Experience != nil && (*in.Experience < 0 || *in.Experience > maxExperience) {
		return profile.Update{}, apperr.Invalid("experience must be between 0 and %d years", maxExperience)
	}

	var bio *string
	if in.Bio != nil {
		b := strings.TrimSpace(*in.Bio)
		if len(b) > maxBioLength {
			return profile.Update{}, apperr.Invalid("bio must be at most %d characters", maxBioLength)
		}
		if b != "" {
			bio = &b
		}
	}

	skills := make([]string, 0, len(in.Skills))
	seen := make(map[string]bool, len(in.Skills))
	for _, sk := range in.Skills {
		sk = strings.TrimSpace(sk)
		if sk == "" || seen[strings.ToLower(sk)] {
			continue
		}
		seen[strings.ToLower(sk)] = true
		skills = append(skills, sk)
	}
	if len(skills) > maxSkills {
		return profile.Update{}, apperr.Invalid("at most %d skills are allowed", maxSkills)
	}

	return profile.Update{
		Industry:   industry,
		Bio:        bio,
		Experience: in.Experience,
		Skills:     skills,
	}, nil
}

// classify keeps typed errors from the transaction and reports anything
// else (commit failures, timeouts) as a retryable storage failure.
func classify(err error) error {
	var (
		verr *apperr.ValidationError
		gerr *apperr.GenerationError
		serr *apperr.StorageError
	)
	if errors.As(err, &verr) || errors.As(err, &gerr) || errors.As(err, &serr) || errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return &apperr.StorageError{Op: "onboarding transaction", Err: err}
}
