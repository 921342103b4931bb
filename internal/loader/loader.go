// Package loader orchestrates the incremental build of the store: it
// drives the source clients period by period, normalizes and filters
// the results, and appends them. Resume points come from the store
// contents themselves, so a re-run after any interruption picks up
// exactly where the data ends.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantbr/fundsdb/internal/bcb"
	"github.com/quantbr/fundsdb/internal/cvm"
	"github.com/quantbr/fundsdb/internal/model"
	"github.com/quantbr/fundsdb/internal/normalize"
	"github.com/quantbr/fundsdb/internal/store"
	"github.com/quantbr/fundsdb/internal/yahoo"
)

// ErrAlreadyInitialized is returned by Init when the store already
// holds quota data; use Update instead.
var ErrAlreadyInitialized = errors.New("loader: store already initialized")

// Config holds loader settings.
type Config struct {
	StartYear    int           // first year fetched on initialization
	TargetFunds  []string      // canonical CNPJs; empty = all funds
	LegacyUntil  int           // first year of the monthly-CSV era
	MaxAttempts  int           // per-period attempts before skipping
	RetryBackoff time.Duration // base backoff between attempts
	IndexSymbol  string        // chart-API symbol for the equity index
	IndexStart   time.Time     // earliest index date on first load
}

// DefaultIndexSymbol is the Ibovespa symbol on the chart API.
const DefaultIndexSymbol = "^BVSP"

// DefaultIndexStart is the first date with Ibovespa history available.
var DefaultIndexStart = time.Date(1990, time.September, 15, 0, 0, 0, 0, time.UTC)

func (c *Config) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.IndexSymbol == "" {
		c.IndexSymbol = DefaultIndexSymbol
	}
	if c.IndexStart.IsZero() {
		c.IndexStart = DefaultIndexStart
	}
}

// Summary reports what one init/update run did.
type Summary struct {
	RegistryFunds      int64
	PeriodsFetched     int
	PeriodsSkipped     int
	RowsInserted       int64
	RowsDropped        int
	BenchmarksInserted int64
}

// Loader drives the fetch, normalize, append cycle.
type Loader struct {
	cfg    Config
	store  *store.Store
	cvm    *cvm.Client
	bcb    *bcb.Client
	yahoo  *yahoo.Client
	logger *slog.Logger
}

// New creates a Loader. Clients run strictly sequentially; the loader
// never issues overlapping fetches.
func New(cfg Config, st *store.Store, cvmClient *cvm.Client, bcbClient *bcb.Client, yahooClient *yahoo.Client, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Loader{
		cfg:    cfg,
		store:  st,
		cvm:    cvmClient,
		bcb:    bcbClient,
		yahoo:  yahooClient,
		logger: logger,
	}
}

// Init performs the first full load: registry, quota backfill from the
// configured start year, and both benchmark series. Fails if the store
// already holds quota data.
func (l *Loader) Init(ctx context.Context) (*Summary, error) {
	started := time.Now()

	if _, ok, err := l.store.MaxQuotaDate(ctx); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}

	sum := &Summary{}
	targets := targetSet(l.cfg.TargetFunds)

	if err := l.refreshRegistry(ctx, targets, sum); err != nil {
		return nil, err
	}
	if len(l.cfg.TargetFunds) > 0 {
		if err := l.store.SaveTargetFunds(ctx, l.cfg.TargetFunds); err != nil {
			return nil, err
		}
	}

	from := model.Period{Year: l.cfg.StartYear, Month: time.January}
	if err := l.backfillQuotas(ctx, from, targets, sum); err != nil {
		return nil, err
	}

	if err := l.loadBenchmarks(ctx, sum); err != nil {
		return nil, err
	}

	l.recordRun(ctx, "init", started, sum)
	l.logger.Info("initialization complete",
		"periods_fetched", sum.PeriodsFetched,
		"periods_skipped", sum.PeriodsSkipped,
		"rows_inserted", sum.RowsInserted,
		"rows_dropped", sum.RowsDropped,
		"duration", time.Since(started),
	)
	return sum, nil
}

// Update refreshes the registry and extends every series from its own
// resume point. Running it again with no new remote data performs zero
// writes.
func (l *Loader) Update(ctx context.Context) (*Summary, error) {
	started := time.Now()
	sum := &Summary{}

	stored, err := l.store.TargetFunds(ctx)
	if err != nil {
		return nil, err
	}
	targets := targetSet(stored)

	if err := l.refreshRegistry(ctx, targets, sum); err != nil {
		return nil, err
	}

	from := model.Period{Year: l.cfg.StartYear, Month: time.January}
	if max, ok, err := l.store.MaxQuotaDate(ctx); err != nil {
		return nil, err
	} else if ok {
		// The period containing the day after the last stored quota:
		// a complete month resumes at the next one, a partially
		// applied month is re-attempted and the upsert absorbs the
		// rows already present.
		from = model.PeriodOf(max.AddDate(0, 0, 1))
	}

	if err := l.backfillQuotas(ctx, from, targets, sum); err != nil {
		return nil, err
	}

	if err := l.loadBenchmarks(ctx, sum); err != nil {
		return nil, err
	}

	l.recordRun(ctx, "update", started, sum)
	l.logger.Info("update complete",
		"resume_period", from.String(),
		"periods_fetched", sum.PeriodsFetched,
		"periods_skipped", sum.PeriodsSkipped,
		"rows_inserted", sum.RowsInserted,
		"rows_dropped", sum.RowsDropped,
		"duration", time.Since(started),
	)
	return sum, nil
}

// refreshRegistry re-syncs the full fund registry. Registrations and
// statuses change over time, so this is always a full re-upsert, never
// incremental. Funds that disappeared from the registry keep their rows.
func (l *Loader) refreshRegistry(ctx context.Context, targets map[string]struct{}, sum *Summary) error {
	l.logger.Info("refreshing fund registry")

	tbl, err := l.cvm.FetchRegistry(ctx)
	if err != nil {
		return fmt.Errorf("fetch registry: %w", err)
	}

	funds, rep := normalize.Funds(tbl)
	sum.RowsDropped += rep.RowsDropped

	if len(targets) > 0 {
		kept := funds[:0]
		for _, f := range funds {
			if _, ok := targets[f.CNPJ]; ok {
				kept = append(kept, f)
			}
		}
		funds = kept
	}

	n, err := l.store.UpsertFunds(ctx, funds)
	if err != nil {
		return fmt.Errorf("upsert registry: %w", err)
	}
	sum.RegistryFunds = n

	l.logger.Info("registry refreshed", "funds", n, "rows_dropped", rep.RowsDropped)
	return nil
}

func (l *Loader) recordRun(ctx context.Context, kind string, started time.Time, sum *Summary) {
	run := store.Run{
		ID:             uuid.NewString(),
		Kind:           kind,
		StartedAt:      started,
		FinishedAt:     time.Now(),
		PeriodsFetched: sum.PeriodsFetched,
		PeriodsSkipped: sum.PeriodsSkipped,
		RowsInserted:   sum.RowsInserted,
		RowsDropped:    sum.RowsDropped,
	}
	if err := l.store.RecordRun(ctx, run); err != nil {
		// The data itself is already committed; a failed log entry is
		// not worth failing the run.
		l.logger.Warn("failed to record sync run", "err", err)
	}
}

func targetSet(cnpjs []string) map[string]struct{} {
	if len(cnpjs) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(cnpjs))
	for _, c := range cnpjs {
		set[c] = struct{}{}
	}
	return set
}
