package interview

import (
	"context"
	"encoding/json"
	"fmt"

	"jobmate/coach-service/internal/db"
	"jobmate/coach-service/internal/model"
)

// Repository persists assessments.
type Repository interface {
	Create(ctx context.Context, a *model.Assessment) error
	ListByUser(ctx context.Context, userID string) ([]model.Assessment, error)
}

// PGRepository is the PostgreSQL Repository.
type PGRepository struct {
	q db.Querier
}

// NewPGRepository returns a Repository backed by q.
func NewPGRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

// Create inserts a and fills its timestamps from the database.
func (r *PGRepository) Create(ctx context.Context, a *model.Assessment) error {
	questions, err := json.Marshal(a.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	err = r.q.QueryRow(ctx,
		`INSERT INTO assessments (id, user_id, quiz_score, questions, category, improvement_tip)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		 RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.QuizScore, string(questions), a.Category, a.ImprovementTip,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("createAssessment: %w", err)
	}
	return nil
}

// ListByUser returns a user's assessments, oldest first.
func (r *PGRepository) ListByUser(ctx context.Context, userID string) ([]model.Assessment, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id::text, user_id::text, quiz_score, questions, category, improvement_tip,
		        created_at, updated_at
		 FROM assessments
		 WHERE user_id = $1
		 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listAssessments query: %w", err)
	}
	defer rows.Close()

	out := make([]model.Assessment, 0)
	for rows.Next() {
		var (
			a         model.Assessment
			questions []byte
		)
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.QuizScore, &questions, &a.Category, &a.ImprovementTip,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("listAssessments scan: %w", err)
		}
		a.Questions = []model.QuestionResult{}
		if len(questions) > 0 {
			if err := json.Unmarshal(questions, &a.Questions); err != nil {
				return nil, fmt.Errorf("decode questions: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
