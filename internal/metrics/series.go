// Package metrics computes performance statistics over daily price and
// return series: returns, volatility, drawdown, benchmark correlation,
// beta, alpha, sharpe, sortino and capture ratios. Every function is
// pure; callers load series from the store and pass them in.
//
// Series arriving from different sources rarely share calendars, so
// every two-series function aligns by date first, keeping only dates
// present in both inputs. Functions return an error on empty or
// malformed input instead of a misleading zero.
package metrics

import (
	"errors"
	"math"
	"time"

	"github.com/quantbr/fundsdb/internal/model"
)

// DefaultAnnualization is the trading-day count used to annualize
// daily statistics.
const DefaultAnnualization = 252

var (
	// ErrEmptySeries is returned when an input series has no usable
	// observations, including when alignment leaves no common dates.
	ErrEmptySeries = errors.New("metrics: empty series")

	// ErrMisaligned is returned when a series' dates and values differ
	// in length.
	ErrMisaligned = errors.New("metrics: dates and values length mismatch")

	// ErrWindow is returned when a rolling window does not fit the series.
	ErrWindow = errors.New("metrics: window larger than series")
)

// Series is a date-ordered sequence of observations. Dates and Values
// are parallel; Values may contain NaN for undefined entries (the first
// element of a return series, unfilled rolling windows).
type Series struct {
	Dates  []time.Time
	Values []float64
}

func (s Series) check() error {
	if len(s.Dates) != len(s.Values) {
		return ErrMisaligned
	}
	if len(s.Values) == 0 {
		return ErrEmptySeries
	}
	return nil
}

// FromQuotas builds a quota-value price series from store rows.
func FromQuotas(quotas []model.Quota) Series {
	s := Series{
		Dates:  make([]time.Time, len(quotas)),
		Values: make([]float64, len(quotas)),
	}
	for i, q := range quotas {
		s.Dates[i] = q.Date
		s.Values[i] = q.QuotaValue
	}
	return s
}

// FromBenchmarks builds a price series from benchmark rows.
func FromBenchmarks(points []model.BenchmarkPoint) Series {
	s := Series{
		Dates:  make([]time.Time, len(points)),
		Values: make([]float64, len(points)),
	}
	for i, p := range points {
		s.Dates[i] = p.Date
		s.Values[i] = p.Value
	}
	return s
}

// Align inner-joins two series by date: the results carry only the
// dates present in both inputs, in the first series' order. Returns
// ErrEmptySeries when no dates overlap.
func Align(a, b Series) (Series, Series, error) {
	if err := a.check(); err != nil {
		return Series{}, Series{}, err
	}
	if err := b.check(); err != nil {
		return Series{}, Series{}, err
	}

	byDate := make(map[time.Time]float64, len(b.Values))
	for i, d := range b.Dates {
		byDate[d] = b.Values[i]
	}

	var outA, outB Series
	for i, d := range a.Dates {
		v, ok := byDate[d]
		if !ok {
			continue
		}
		outA.Dates = append(outA.Dates, d)
		outA.Values = append(outA.Values, a.Values[i])
		outB.Dates = append(outB.Dates, d)
		outB.Values = append(outB.Values, v)
	}

	if len(outA.Values) == 0 {
		return Series{}, Series{}, ErrEmptySeries
	}
	return outA, outB, nil
}

// alignClean aligns two return series and drops dates where either
// side is NaN, so the statistics below see paired finite observations.
func alignClean(a, b Series) (Series, Series, error) {
	a, b, err := Align(a, b)
	if err != nil {
		return Series{}, Series{}, err
	}

	var outA, outB Series
	for i := range a.Values {
		if math.IsNaN(a.Values[i]) || math.IsNaN(b.Values[i]) {
			continue
		}
		outA.Dates = append(outA.Dates, a.Dates[i])
		outA.Values = append(outA.Values, a.Values[i])
		outB.Dates = append(outB.Dates, b.Dates[i])
		outB.Values = append(outB.Values, b.Values[i])
	}

	if len(outA.Values) == 0 {
		return Series{}, Series{}, ErrEmptySeries
	}
	return outA, outB, nil
}

// clean returns the finite values of a series.
func clean(s Series) []float64 {
	out := make([]float64, 0, len(s.Values))
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// popStd is the population standard deviation (divisor N, not N-1).
func popStd(xs []float64) float64 {
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func covariance(xs, ys []float64) float64 {
	mx, my := mean(xs), mean(ys)
	var sum float64
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs))
}
