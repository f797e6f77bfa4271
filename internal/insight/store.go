package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/db"
	"jobmate/coach-service/internal/model"
)

// ErrNotFound is returned when no insight row exists for an industry.
var ErrNotFound = fmt.Errorf("industry insight %w", apperr.ErrNotFound)

// ErrDuplicate is returned by Store.Insert when a row for the industry
// already exists (including one committed by a concurrent insert).
var ErrDuplicate = errors.New("industry insight already exists")

// Store persists IndustryInsight rows keyed by industry.
type Store interface {
	FindByIndustry(ctx context.Context, industry string) (*model.IndustryInsight, error)
	Insert(ctx context.Context, in *model.IndustryInsight) error
	Update(ctx context.Context, in *model.IndustryInsight) error
	ListIndustries(ctx context.Context) ([]string, error)
	ListDue(ctx context.Context, before time.Time) ([]string, error)
}

// PGStore is the PostgreSQL Store. It runs on a pool or inside a pgx.Tx.
type PGStore struct {
	q db.Querier
}

// NewPGStore returns a Store backed by q.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{q: q}
}

const insightColumns = `id::text, industry, salary_ranges, growth_rate, demand_level::text,
	market_outlook::text, top_skills, key_trends, recommended_skills,
	last_updated, next_update`

// FindByIndustry returns the row for industry or ErrNotFound.
func (s *PGStore) FindByIndustry(ctx context.Context, industry string) (*model.IndustryInsight, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+insightColumns+`
		 FROM industry_insights
		 WHERE industry = $1`,
		industry,
	)
	in, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("findByIndustry: %w", err)
	}
	return in, nil
}

// Insert writes a complete row in one statement and refreshes in with the
// stored values. A conflicting industry yields ErrDuplicate and writes
// nothing.
func (s *PGStore) Insert(ctx context.Context, in *model.IndustryInsight) error {
	salary, err := json.Marshal(in.SalaryRanges)
	if err != nil {
		return fmt.Errorf("marshal salary ranges: %w", err)
	}

	row := s.q.QueryRow(ctx,
		`INSERT INTO industry_insights
		   (id, industry, salary_ranges, growth_rate, demand_level, market_outlook,
		    top_skills, key_trends, recommended_skills, last_updated, next_update)
		 VALUES ($1, $2, $3::jsonb, $4, $5::demand_level, $6::market_outlook,
		         $7, $8, $9, $10, $11)
		 ON CONFLICT (industry) DO NOTHING
		 RETURNING `+insightColumns,
		in.ID, in.Industry, string(salary), in.GrowthRate,
		string(in.DemandLevel), string(in.MarketOutlook),
		in.TopSkills, in.KeyTrends, in.RecommendedSkills,
		in.LastUpdated, in.NextUpdate,
	)
	stored, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) || db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	*in = *stored
	return nil
}

// Update overwrites every content field and both timestamps of the row for
// in.Industry and refreshes in with the stored values, id included. It
// returns ErrNotFound if the row does not exist.
func (s *PGStore) Update(ctx context.Context, in *model.IndustryInsight) error {
	salary, err := json.Marshal(in.SalaryRanges)
	if err != nil {
		return fmt.Errorf("marshal salary ranges: %w", err)
	}

	row := s.q.QueryRow(ctx,
		`UPDATE industry_insights
		 SET salary_ranges      = $2::jsonb,
		     growth_rate        = $3,
		     demand_level       = $4::demand_level,
		     market_outlook     = $5::market_outlook,
		     top_skills         = $6,
		     key_trends         = $7,
		     recommended_skills = $8,
		     last_updated       = $9,
		     next_update        = $10
		 WHERE industry = $1
		 RETURNING `+insightColumns,
		in.Industry, string(salary), in.GrowthRate,
		string(in.DemandLevel), string(in.MarketOutlook),
		in.TopSkills, in.KeyTrends, in.RecommendedSkills,
		in.LastUpdated, in.NextUpdate,
	)
	stored, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	*in = *stored
	return nil
}

// ListIndustries returns every stored industry key.
func (s *PGStore) ListIndustries(ctx context.Context) ([]string, error) {
	return s.listKeys(ctx, `SELECT industry FROM industry_insights ORDER BY industry`)
}

// ListDue returns the industries whose next_update is at or before before.
func (s *PGStore) ListDue(ctx context.Context, before time.Time) ([]string, error) {
	return s.listKeys(ctx,
		`SELECT industry FROM industry_insights
		 WHERE next_update <= $1
		 ORDER BY next_update`,
		before,
	)
}

func (s *PGStore) listKeys(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query industries: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func scanInsight(row pgx.Row) (*model.IndustryInsight, error) {
	var (
		in      model.IndustryInsight
		salary  []byte
		demand  string
		outlook string
	)
	if err := row.Scan(
		&in.ID, &in.Industry, &salary, &in.GrowthRate, &demand, &outlook,
		&in.TopSkills, &in.KeyTrends, &in.RecommendedSkills,
		&in.LastUpdated, &in.NextUpdate,
	); err != nil {
		return nil, err
	}
	// pgx returns timestamptz in the local zone.
	in.LastUpdated = in.LastUpdated.UTC()
	in.NextUpdate = in.NextUpdate.UTC()

	in.SalaryRanges = []model.SalaryRange{}
	if len(salary) > 0 {
		if err := json.Unmarshal(salary, &in.SalaryRanges); err != nil {
			return nil, fmt.Errorf("decode salary_ranges: %w", err)
		}
		if in.SalaryRanges == nil {
			in.SalaryRanges = []model.SalaryRange{}
		}
	}

	var err error
	if in.DemandLevel, err = model.ParseDemandLevel(demand); err != nil {
		return nil, err
	}
	if in.MarketOutlook, err = model.ParseMarketOutlook(outlook); err != nil {
		return nil, err
	}
	if in.TopSkills == nil {
		in.TopSkills = []string{}
	}
	if in.KeyTrends == nil {
		in.KeyTrends = []string{}
	}
	if in.RecommendedSkills == nil {
		in.RecommendedSkills = []string{}
	}
	return &in, nil
}
