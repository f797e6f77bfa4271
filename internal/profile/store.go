// Package profile reads and writes the coach-relevant columns of users.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/db"
	"jobmate/coach-service/internal/model"
)

// ErrNotFound is returned when no user matches.
var ErrNotFound = fmt.Errorf("user %w", apperr.ErrNotFound)

// ErrEmailTaken is returned by Create when another auth id already owns the
// email address.
var ErrEmailTaken = errors.New("email is already registered to another account")

// Update is the onboarding payload written to a user row. Industry must
// already be a normalized key with an industry_insights row.
type Update struct {
	Industry   string
	Bio        *string
	Experience *int
	Skills     []string
}

// Store persists users.
type Store interface {
	FindByAuthID(ctx context.Context, authID string) (*model.User, error)
	Create(ctx context.Context, u *model.User) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, upd Update) (*model.User, error)
}

// PGStore is the PostgreSQL Store. It runs on a pool or inside a pgx.Tx.
type PGStore struct {
	q db.Querier
}

// NewPGStore returns a Store that runs on a pool or inside a pgx.Tx.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{q: q}
}

const userColumns = `id::text, auth_id, email, name, industry, bio, experience, skills,
	created_at, updated_at`

// FindByAuthID returns the user for an identity provider subject.
func (s *PGStore) FindByAuthID(ctx context.Context, authID string) (*model.User, error) {
	u, err := scanUser(s.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE auth_id = $1`,
		authID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("findByAuthID: %w", err)
	}
	return u, nil
}

// Create inserts u unless a user with the same auth_id exists, and returns
// the stored row either way. An email owned by a different auth_id yields
// ErrEmailTaken.
func (s *PGStore) Create(ctx context.Context, u *model.User) (*model.User, error) {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	_, err := s.q.Exec(ctx,
		`INSERT INTO users (id, auth_id, email, name, skills)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (auth_id) DO NOTHING`,
		u.ID, u.AuthID, u.Email, u.Name, skills,
	)
	if db.IsUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("createUser: %w", err)
	}
	return s.FindByAuthID(ctx, u.AuthID)
}

// UpdateProfile overwrites the onboarding fields of a user.
func (s *PGStore) UpdateProfile(ctx context.Context, userID string, upd Update) (*model.User, error) {
	skills := upd.Skills
	if skills == nil {
		skills = []string{}
	}
	u, err := scanUser(s.q.QueryRow(ctx,
		`UPDATE users
		 SET industry = $2, bio = $3, experience = $4, skills = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, upd.Industry, upd.Bio, upd.Experience, skills,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updateProfile: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID, &u.AuthID, &u.Email, &u.Name, &u.Industry, &u.Bio, &u.Experience, &u.Skills,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if u.Skills == nil {
		u.Skills = []string{}
	}
	return &u, nil
}
