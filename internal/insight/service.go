package insight

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"jobmate/coach-service/internal/apperr"
	"jobmate/coach-service/internal/logger"
	"jobmate/coach-service/internal/model"
)

// DefaultTTL is the time between a row's lastUpdated and nextUpdate.
const DefaultTTL = 7 * 24 * time.Hour

// errNoGenerator is returned when neither the caller nor the Service
// supplies a way to generate an insight.
var errNoGenerator = errors.New("no insight generator configured")

// Options are the optional collaborators of a Service.
type Options struct {
	// Locker serializes first-time creation across replicas. Nil disables
	// cross-process locking; the unique constraint still guarantees one row.
	Locker Locker
	// Publisher receives EVENT_INSIGHT_* notifications. Nil disables them.
	Publisher Publisher
	// TTL defaults to DefaultTTL.
	TTL time.Duration
	// StrictValidation rejects generated output that Audit flags instead of
	// persisting its normalized form.
	StrictValidation bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// RefreshReport summarizes a batch refresh.
type RefreshReport struct {
	Total     int `json:"total"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service reads, lazily creates and refreshes IndustryInsight rows.
type Service struct {
	store     Store
	gen       Generator
	log       *logger.Logger
	locker    Locker
	publisher Publisher
	ttl       time.Duration
	strict    bool
	now       func() time.Time

	group singleflight.Group
}

// NewService returns a Service over store. gen is used by Refresh and by
// GetOrCreate when the caller passes no GenerateFunc; it may be nil.
func NewService(store Store, gen Generator, log *logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store:     store,
		gen:       gen,
		log:       log.With("component", "insight"),
		locker:    opts.Locker,
		publisher: opts.Publisher,
		ttl:       opts.TTL,
		strict:    opts.StrictValidation,
		now:       opts.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NormalizeKey trims and lower-cases an industry key and joins its words
// with "-", so "Finance  Investment Banking" and "finance-investment-banking"
// address the same row.
func NormalizeKey(industry string) (string, error) {
	fields := strings.Fields(strings.ToLower(industry))
	if len(fields) == 0 {
		return "", apperr.Invalid("industry is required")
	}
	return strings.Join(fields, "-"), nil
}

// ─── Read-or-create ──────────────────────────────────────────────────────────

// GetOrCreate returns the stored insight for industry, creating it with
// generate if none exists. An existing row is returned unchanged and
// generate is not called. Concurrent first-time callers in this process
// share one generation; across processes the Locker and the unique
// constraint ensure a single row. A nil generate falls back to the
// Service's Generator.
func (s *Service) GetOrCreate(ctx context.Context, industry string, generate GenerateFunc) (*model.IndustryInsight, error) {
	key, err := NormalizeKey(industry)
	if err != nil {
		return nil, err
	}

	in, err := s.find(ctx, s.store, key)
	if in != nil || err != nil {
		return in, err
	}

	if generate == nil {
		if s.gen == nil {
			return nil, &apperr.GenerationError{Subject: key, Err: errNoGenerator}
		}
		generate = For(s.gen, key)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		row, created, err := s.materialize(ctx, s.store, key, generate)
		if err != nil {
			return nil, err
		}
		if created {
			s.Announce(ctx, EventInsightCreated, row)
		}
		return row, nil
	})
	if err != nil {
		return nil, err
	}
	out := *v.(*model.IndustryInsight)
	return &out, nil
}

// GetOrCreateIn is GetOrCreate against a caller-supplied Store, typically
// one bound to an open transaction. It reports whether the row was created
// by this call and publishes nothing: the caller announces the row with
// Announce once its transaction has committed.
func (s *Service) GetOrCreateIn(ctx context.Context, store Store, industry string, generate GenerateFunc) (*model.IndustryInsight, bool, error) {
	key, err := NormalizeKey(industry)
	if err != nil {
		return nil, false, err
	}

	in, err := s.find(ctx, store, key)
	if in != nil || err != nil {
		return in, false, err
	}

	if generate == nil {
		if s.gen == nil {
			return nil, false, &apperr.GenerationError{Subject: key, Err: errNoGenerator}
		}
		generate = For(s.gen, key)
	}
	return s.materialize(ctx, store, key, generate)
}

// find returns (nil, nil) when no row exists.
func (s *Service) find(ctx context.Context, store Store, key string) (*model.IndustryInsight, error) {
	in, err := store.FindByIndustry(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &apperr.StorageError{Op: "find insight", Subject: key, Err: err}
	}
	return in, nil
}

// materialize runs lock, re-check, generate, insert. The re-check catches
// rows written since the caller's first read, by another replica or by a
// singleflight call that finished in between. A conflicting insert means
// another writer won; its row is returned with created=false.
func (s *Service) materialize(ctx context.Context, store Store, key string, generate GenerateFunc) (*model.IndustryInsight, bool, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, key)
		if err != nil {
			return nil, false, &apperr.StorageError{Op: "lock insight", Subject: key, Err: err}
		}
		defer release()
	}

	in, err := s.find(ctx, store, key)
	if in != nil || err != nil {
		return in, false, err
	}

	n, err := s.produce(ctx, key, generate)
	if err != nil {
		return nil, false, err
	}

	now := s.stamp()
	row := &model.IndustryInsight{
		ID:          uuid.NewString(),
		Industry:    key,
		LastUpdated: now,
		NextUpdate:  now.Add(s.ttl),
	}
	n.ApplyTo(row)

	err = store.Insert(ctx, row)
	if errors.Is(err, ErrDuplicate) {
		s.log.Info("insight created concurrently, using stored row", "industry", key)
		existing, ferr := store.FindByIndustry(ctx, key)
		if ferr != nil {
			return nil, false, &apperr.StorageError{Op: "reread insight", Subject: key, Err: ferr}
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, &apperr.StorageError{Op: "insert insight", Subject: key, Err: err}
	}

	s.log.Info("insight created", "industry", key, "demandLevel", row.DemandLevel, "marketOutlook", row.MarketOutlook)
	return row, true, nil
}

// produce calls generate and normalizes its output. Audit findings are
// logged, or returned as a GenerationError in strict mode.
func (s *Service) produce(ctx context.Context, key string, generate GenerateFunc) (Normalized, error) {
	raw, err := generate(ctx)
	if err != nil {
		return Normalized{}, &apperr.GenerationError{Subject: key, Err: err}
	}
	if raw == nil {
		return Normalized{}, &apperr.GenerationError{Subject: key, Err: ErrMalformedOutput}
	}

	if issues := Audit(raw); len(issues) > 0 {
		if s.strict {
			return Normalized{}, &apperr.GenerationError{Subject: key, Err: &DegradedError{Issues: issues}}
		}
		s.log.Warn("generated insight degraded, defaults applied", "industry", key, "issues", issues)
	}
	return Normalize(raw), nil
}

// Announce publishes evt for row. Publish failures are logged only.
func (s *Service) Announce(ctx context.Context, eventType string, row *model.IndustryInsight) {
	if s.publisher == nil || row == nil {
		return
	}
	if err := s.publisher.Publish(ctx, insightEvent(eventType, row)); err != nil {
		s.log.Warn("publish insight event failed", "type", eventType, "industry", row.Industry, "err", err)
	}
}

// stamp is the current time at the precision PostgreSQL stores, so a row
// returned on creation equals the row read back later.
func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// ─── Refresh ─────────────────────────────────────────────────────────────────

// Refresh regenerates the insight for industry and overwrites every field
// of the stored row, keeping its id. It returns ErrNotFound if no row
// exists; refresh never creates rows.
func (s *Service) Refresh(ctx context.Context, industry string) (*model.IndustryInsight, error) {
	key, err := NormalizeKey(industry)
	if err != nil {
		return nil, err
	}
	if s.gen == nil {
		return nil, &apperr.GenerationError{Subject: key, Err: errNoGenerator}
	}

	n, err := s.produce(ctx, key, For(s.gen, key))
	if err != nil {
		return nil, err
	}

	now := s.stamp()
	row := &model.IndustryInsight{
		Industry:    key,
		LastUpdated: now,
		NextUpdate:  now.Add(s.ttl),
	}
	n.ApplyTo(row)

	err = s.store.Update(ctx, row)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, &apperr.StorageError{Op: "update insight", Subject: key, Err: err}
	}

	s.log.Info("insight refreshed", "industry", key, "nextUpdate", row.NextUpdate)
	s.Announce(ctx, EventInsightUpdated, row)
	return row, nil
}

// RefreshAll refreshes every stored industry in turn. Per-industry failures
// are logged and counted; only listing failures and cancellation are
// returned as errors.
func (s *Service) RefreshAll(ctx context.Context) (RefreshReport, error) {
	keys, err := s.store.ListIndustries(ctx)
	if err != nil {
		return RefreshReport{}, &apperr.StorageError{Op: "list industries", Err: err}
	}
	return s.refreshKeys(ctx, keys)
}

// RefreshDue refreshes only the rows whose nextUpdate has passed.
func (s *Service) RefreshDue(ctx context.Context) (RefreshReport, error) {
	keys, err := s.store.ListDue(ctx, s.now().UTC())
	if err != nil {
		return RefreshReport{}, &apperr.StorageError{Op: "list due industries", Err: err}
	}
	return s.refreshKeys(ctx, keys)
}

func (s *Service) refreshKeys(ctx context.Context, keys []string) (RefreshReport, error) {
	report := RefreshReport{Total: len(keys)}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := s.Refresh(ctx, key); err != nil {
			report.Failed++
			s.log.Error("insight refresh failed", "industry", key, "err", err)
			continue
		}
		report.Refreshed++
	}
	s.log.Info("insight refresh finished", "total", report.Total, "refreshed", report.Refreshed, "failed", report.Failed)
	return report, nil
}
