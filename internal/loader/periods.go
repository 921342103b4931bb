package loader

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/quantbr/fundsdb/internal/cvm"
	"github.com/quantbr/fundsdb/internal/model"
	"github.com/quantbr/fundsdb/internal/normalize"
)

// backfillQuotas walks periods from `from` up to the current one,
// appending each period's normalized rows. Legacy years arrive as one
// yearly archive, modern ones as monthly files. A period reporting
// permanent absence ends the walk: that is the normal termination
// condition, not an error. A period that keeps failing transiently is
// skipped and the walk continues.
func (l *Loader) backfillQuotas(ctx context.Context, from model.Period, targets map[string]struct{}, sum *Summary) error {
	current := model.CurrentPeriod()
	p := from

	// Legacy era: one archive per year.
	for p.Year < l.cfg.LegacyUntil && !p.After(current) {
		tables, err := l.fetchYearlyRetry(ctx, p.Year)
		if errors.Is(err, cvm.ErrNoData) {
			l.logger.Info("no data for year, stopping backfill", "year", p.Year)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("skipping year after repeated failures", "year", p.Year, "err", err)
			sum.PeriodsSkipped++
			p = model.Period{Year: p.Year + 1, Month: time.January}
			continue
		}

		for i := range tables {
			if err := l.appendQuotaTable(ctx, &tables[i], targets, sum); err != nil {
				return err
			}
		}
		p = model.Period{Year: p.Year + 1, Month: time.January}
	}

	// Modern era: one file per month.
	for !p.After(current) {
		tbl, err := l.fetchMonthlyRetry(ctx, p)
		if errors.Is(err, cvm.ErrNoData) {
			l.logger.Info("no data for period, stopping backfill", "period", p.String())
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("skipping period after repeated failures", "period", p.String(), "err", err)
			sum.PeriodsSkipped++
			p = p.Next()
			continue
		}

		if err := l.appendQuotaTable(ctx, tbl, targets, sum); err != nil {
			return err
		}
		p = p.Next()
	}

	return nil
}

// appendQuotaTable normalizes, filters and appends one period's table.
func (l *Loader) appendQuotaTable(ctx context.Context, tbl *cvm.RawTable, targets map[string]struct{}, sum *Summary) error {
	quotas, rep := normalize.Quotas(tbl)

	if len(targets) > 0 {
		kept := quotas[:0]
		for _, q := range quotas {
			if _, ok := targets[q.CNPJ]; ok {
				kept = append(kept, q)
			}
		}
		quotas = kept
	}

	inserted, err := l.store.InsertQuotas(ctx, quotas)
	if err != nil {
		return err
	}

	sum.PeriodsFetched++
	sum.RowsInserted += inserted
	sum.RowsDropped += rep.RowsDropped

	l.logger.Debug("period loaded",
		"period", tbl.Period.String(),
		"rows_in", rep.RowsIn,
		"rows_inserted", inserted,
		"rows_dropped", rep.RowsDropped,
	)
	return nil
}

// fetchMonthlyRetry retries one period's fetch with bounded exponential
// backoff. Transient failures are retried; permanent absence and other
// definitive errors pass straight through.
func (l *Loader) fetchMonthlyRetry(ctx context.Context, p model.Period) (*cvm.RawTable, error) {
	var tbl *cvm.RawTable
	err := retry.Do(ctx, l.backoff(), func(ctx context.Context) error {
		t, err := l.cvm.FetchMonthly(ctx, p)
		if err != nil {
			if cvm.IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		tbl = t
		return nil
	})
	return tbl, err
}

func (l *Loader) fetchYearlyRetry(ctx context.Context, year int) ([]cvm.RawTable, error) {
	var tables []cvm.RawTable
	err := retry.Do(ctx, l.backoff(), func(ctx context.Context) error {
		t, err := l.cvm.FetchYearly(ctx, year)
		if err != nil {
			if cvm.IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		tables = t
		return nil
	})
	return tables, err
}

func (l *Loader) backoff() retry.Backoff {
	return retry.WithMaxRetries(uint64(l.cfg.MaxAttempts-1), retry.NewExponential(l.cfg.RetryBackoff))
}
