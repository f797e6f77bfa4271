package onboarding

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/coach-service/internal/insight"
	"jobmate/coach-service/internal/profile"
)

// TxRunner runs fn with stores bound to one transaction. The transaction
// commits if fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(users profile.Store, insights insight.Store) error) error
}

// PGTxRunner opens transactions on a pgx pool.
type PGTxRunner struct {
	pool *pgxpool.Pool
}

// NewPGTxRunner returns a TxRunner that opens transactions on pool.
func NewPGTxRunner(pool *pgxpool.Pool) *PGTxRunner {
	return &PGTxRunner{pool: pool}
}

func (r *PGTxRunner) InTx(ctx context.Context, fn func(users profile.Store, insights insight.Store) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(profile.NewPGStore(tx), insight.NewPGStore(tx))
	})
}
