package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/coach-service/internal/logger"
)

// Migration is a named, idempotent schema step.
type Migration struct {
	Name string
	SQL  string
}

// Migrations lists every schema step in apply order. Each statement must be
// safe to re-run on every startup.
var Migrations = []Migration{
	{
		Name: "create_enums",
		SQL: `
		DO $$ BEGIN
		  CREATE TYPE demand_level AS ENUM ('LOW', 'MEDIUM', 'HIGH');
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;
		DO $$ BEGIN
		  CREATE TYPE market_outlook AS ENUM ('POSITIVE', 'NEUTRAL', 'NEGATIVE');
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
	},
	{
		Name: "create_industry_insights",
		SQL: `
		CREATE TABLE IF NOT EXISTS industry_insights (
		  id                 UUID PRIMARY KEY,
		  industry           TEXT NOT NULL UNIQUE,
		  salary_ranges      JSONB NOT NULL DEFAULT '[]'::jsonb,
		  growth_rate        DOUBLE PRECISION NOT NULL DEFAULT 0,
		  demand_level       demand_level NOT NULL DEFAULT 'MEDIUM',
		  market_outlook     market_outlook NOT NULL DEFAULT 'NEUTRAL',
		  top_skills         TEXT[] NOT NULL DEFAULT '{}',
		  key_trends         TEXT[] NOT NULL DEFAULT '{}',
		  recommended_skills TEXT[] NOT NULL DEFAULT '{}',
		  last_updated       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		  next_update        TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS industry_insights_next_update_idx
		  ON industry_insights (next_update);`,
	},
	{
		Name: "create_users",
		SQL: `
		CREATE TABLE IF NOT EXISTS users (
		  id          UUID PRIMARY KEY,
		  auth_id     TEXT NOT NULL UNIQUE,
		  email       TEXT NOT NULL UNIQUE,
		  name        TEXT,
		  industry    TEXT REFERENCES industry_insights (industry),
		  bio         TEXT,
		  experience  INTEGER,
		  skills      TEXT[] NOT NULL DEFAULT '{}',
		  created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		  updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		Name: "create_assessments",
		SQL: `
		CREATE TABLE IF NOT EXISTS assessments (
		  id              UUID PRIMARY KEY,
		  user_id         UUID NOT NULL REFERENCES users (id),
		  quiz_score      DOUBLE PRECISION NOT NULL,
		  questions       JSONB NOT NULL DEFAULT '[]'::jsonb,
		  category        TEXT NOT NULL,
		  improvement_tip TEXT,
		  created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		  updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS assessments_user_id_idx ON assessments (user_id);`,
	},
	{
		Name: "create_resumes",
		SQL: `
		CREATE TABLE IF NOT EXISTS resumes (
		  id          UUID PRIMARY KEY,
		  user_id     UUID NOT NULL UNIQUE REFERENCES users (id),
		  content     TEXT NOT NULL,
		  created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		  updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
}

// Migrate applies every migration in order, stopping at the first failure.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	log.Info("starting database migrations", "count", len(Migrations))
	for _, m := range Migrations {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			log.Error("migration failed", "name", m.Name, "error", err)
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		log.Debug("migration applied", "name", m.Name)
	}
	log.Info("database migrations complete")
	return nil
}
