package metrics

import "math"

// Returns computes the percentage change between consecutive prices.
// The first element is NaN: there is no prior observation to change
// from. Prices must be positive.
func Returns(prices Series) (Series, error) {
	return RollingReturns(prices, 1)
}

// RollingReturns computes the percentage change over a window of
// observations: out[i] = prices[i]/prices[i-window] - 1. The first
// `window` elements are NaN.
func RollingReturns(prices Series, window int) (Series, error) {
	if err := prices.check(); err != nil {
		return Series{}, err
	}
	if window < 1 || window >= len(prices.Values) {
		return Series{}, ErrWindow
	}

	out := Series{
		Dates:  prices.Dates,
		Values: make([]float64, len(prices.Values)),
	}
	for i := range prices.Values {
		if i < window {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = prices.Values[i]/prices.Values[i-window] - 1
	}
	return out, nil
}

// PeriodReturn is the full-period result: the compound return over
// every observation and its compound annual growth rate.
type PeriodReturn struct {
	CumReturn float64
	CAGR      float64
	Periods   int
}

// FullPeriodReturn compounds the whole price series into one return
// and annualizes it: CAGR = (1+cum)^(annualization/periods) - 1.
func FullPeriodReturn(prices Series, annualization float64) (PeriodReturn, error) {
	rets, err := Returns(prices)
	if err != nil {
		return PeriodReturn{}, err
	}

	compound := 1.0
	for _, r := range clean(rets) {
		compound *= 1 + r
	}

	n := len(prices.Values)
	return PeriodReturn{
		CumReturn: compound - 1,
		CAGR:      math.Pow(compound, annualization/float64(n)) - 1,
		Periods:   n,
	}, nil
}

// CumReturns compounds a return series cumulatively:
// out[i] = prod(1+r[0..i]) - 1, skipping NaN entries. Entries before
// the first finite return stay NaN.
func CumReturns(returns Series) (Series, error) {
	if err := returns.check(); err != nil {
		return Series{}, err
	}

	out := Series{
		Dates:  returns.Dates,
		Values: make([]float64, len(returns.Values)),
	}

	acc := 1.0
	seen := false
	for i, r := range returns.Values {
		if math.IsNaN(r) {
			if seen {
				out.Values[i] = acc - 1
			} else {
				out.Values[i] = math.NaN()
			}
			continue
		}
		acc *= 1 + r
		seen = true
		out.Values[i] = acc - 1
	}
	return out, nil
}

// Drawdown computes how far each price sits below the running maximum:
// out[i] = prices[i]/max(prices[0..i]) - 1. Always <= 0, and 0 at the
// first observation.
func Drawdown(prices Series) (Series, error) {
	if err := prices.check(); err != nil {
		return Series{}, err
	}

	out := Series{
		Dates:  prices.Dates,
		Values: make([]float64, len(prices.Values)),
	}

	peak := math.Inf(-1)
	for i, v := range prices.Values {
		if v > peak {
			peak = v
		}
		out.Values[i] = v/peak - 1
	}
	return out, nil
}
