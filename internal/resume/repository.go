package resume

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/db"
	"jobmate/coach-service/internal/model"
)

// ErrNotFound is returned when the user has not saved a resume yet.
var ErrNotFound = fmt.Errorf("resume %w", apperr.ErrNotFound)

// Repository persists one resume per user.
type Repository interface {
	Upsert(ctx context.Context, r *model.Resume) (*model.Resume, error)
	FindByUser(ctx context.Context, userID string) (*model.Resume, error)
}

// PGRepository is the PostgreSQL Repository.
type PGRepository struct {
	q db.Querier
}

// NewPGRepository returns a Repository backed by q.
func NewPGRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

const resumeColumns = `id::text, user_id::text, content, created_at, updated_at`

// Upsert stores r.Content as the user's resume. An existing row keeps its
// id and created_at; the stored row is returned.
func (p *PGRepository) Upsert(ctx context.Context, r *model.Resume) (*model.Resume, error) {
	row := p.q.QueryRow(ctx,
		`INSERT INTO resumes (id, user_id, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		   SET content = EXCLUDED.content, updated_at = NOW()
		 RETURNING `+resumeColumns,
		r.ID, r.UserID, r.Content,
	)
	out, err := scanResume(row)
	if err != nil {
		return nil, fmt.Errorf("upsertResume: %w", err)
	}
	return out, nil
}

// FindByUser returns the user's resume or ErrNotFound.
func (p *PGRepository) FindByUser(ctx context.Context, userID string) (*model.Resume, error) {
	row := p.q.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1`,
		userID,
	)
	out, err := scanResume(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("findResume: %w", err)
	}
	return out, nil
}

func scanResume(row pgx.Row) (*model.Resume, error) {
	var r model.Resume
	if err := row.Scan(&r.ID, &r.UserID, &r.Content, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
