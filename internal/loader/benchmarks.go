package loader

import (
	"context"
	"time"

	"github.com/quantbr/fundsdb/internal/bcb"
	"github.com/quantbr/fundsdb/internal/model"
)

// loadBenchmarks extends the equity index and policy-rate series. Each
// series resumes from its own stored maximum date. A benchmark source
// failure is logged and skipped: it must not abort a quota backfill
// that already succeeded.
func (l *Loader) loadBenchmarks(ctx context.Context, sum *Summary) error {
	if err := l.loadIndex(ctx, sum); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn("skipping equity index update", "err", err)
		sum.PeriodsSkipped++
	}
	if err := l.loadRates(ctx, sum); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn("skipping policy rate update", "err", err)
		sum.PeriodsSkipped++
	}
	return nil
}

func (l *Loader) loadIndex(ctx context.Context, sum *Summary) error {
	from := l.cfg.IndexStart
	if max, ok, err := l.store.MaxBenchmarkDate(ctx, model.SeriesIbov); err != nil {
		return err
	} else if ok {
		from = max.AddDate(0, 0, 1)
	}
	to := time.Now().UTC().AddDate(0, 0, 1)
	if !from.Before(to) {
		return nil
	}

	points, err := l.yahoo.FetchDaily(ctx, l.cfg.IndexSymbol, model.SeriesIbov, from, to)
	if err != nil {
		return err
	}

	inserted, err := l.store.InsertBenchmarks(ctx, points)
	if err != nil {
		return err
	}
	sum.BenchmarksInserted += inserted

	l.logger.Info("equity index updated", "from", from.Format("2006-01-02"), "inserted", inserted)
	return nil
}

func (l *Loader) loadRates(ctx context.Context, sum *Summary) error {
	// The SGS history is always fetched in full: the compounded unit
	// price of day N depends on every prior observation.
	obs, err := l.bcb.Fetch(ctx)
	if err != nil {
		return err
	}
	points := bcb.Points(obs)

	for _, series := range []string{model.SeriesSelic, model.SeriesSelicAcc} {
		max, ok, err := l.store.MaxBenchmarkDate(ctx, series)
		if err != nil {
			return err
		}

		var fresh []model.BenchmarkPoint
		for _, p := range points {
			if p.Series != series {
				continue
			}
			if ok && !p.Date.After(max) {
				continue
			}
			fresh = append(fresh, p)
		}

		inserted, err := l.store.InsertBenchmarks(ctx, fresh)
		if err != nil {
			return err
		}
		sum.BenchmarksInserted += inserted
	}

	l.logger.Info("policy rate updated", "observations", len(obs))
	return nil
}
