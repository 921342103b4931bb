package metrics

import "math"

// Volatility annualizes the population standard deviation of a return
// series: std(returns, divisor N) * sqrt(annualization). NaN entries
// are ignored.
func Volatility(returns Series, annualization float64) (float64, error) {
	if err := returns.check(); err != nil {
		return 0, err
	}
	vals := clean(returns)
	if len(vals) == 0 {
		return 0, ErrEmptySeries
	}
	return popStd(vals) * math.Sqrt(annualization), nil
}

// RollingVolatility computes the annualized volatility over a sliding
// window. Entries before the window fills, or whose window contains a
// NaN, are NaN.
func RollingVolatility(returns Series, window int, annualization float64) (Series, error) {
	if err := returns.check(); err != nil {
		return Series{}, err
	}
	if window < 1 || window > len(returns.Values) {
		return Series{}, ErrWindow
	}

	out := Series{
		Dates:  returns.Dates,
		Values: make([]float64, len(returns.Values)),
	}
	ann := math.Sqrt(annualization)

	for i := range returns.Values {
		if i < window-1 {
			out.Values[i] = math.NaN()
			continue
		}
		win := returns.Values[i-window+1 : i+1]
		if hasNaN(win) {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = popStd(win) * ann
	}
	return out, nil
}

// CorrBenchmark computes the Pearson correlation between an asset's
// and a benchmark's return series over the full aligned period.
func CorrBenchmark(asset, bench Series) (float64, error) {
	a, b, err := alignClean(asset, bench)
	if err != nil {
		return 0, err
	}
	sa, sb := popStd(a.Values), popStd(b.Values)
	if sa == 0 || sb == 0 {
		return 0, ErrEmptySeries
	}
	return covariance(a.Values, b.Values) / (sa * sb), nil
}

// RollingCorrBenchmark computes the Pearson correlation over a sliding
// window of the aligned return series.
func RollingCorrBenchmark(asset, bench Series, window int) (Series, error) {
	a, b, err := alignClean(asset, bench)
	if err != nil {
		return Series{}, err
	}
	if window < 2 || window > len(a.Values) {
		return Series{}, ErrWindow
	}

	out := Series{
		Dates:  a.Dates,
		Values: make([]float64, len(a.Values)),
	}
	for i := range a.Values {
		if i < window-1 {
			out.Values[i] = math.NaN()
			continue
		}
		wa := a.Values[i-window+1 : i+1]
		wb := b.Values[i-window+1 : i+1]
		sa, sb := popStd(wa), popStd(wb)
		if sa == 0 || sb == 0 {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = covariance(wa, wb) / (sa * sb)
	}
	return out, nil
}

// Beta measures an asset's sensitivity to its benchmark:
// covariance(asset, benchmark) / variance(benchmark), over the aligned
// return series.
func Beta(asset, bench Series) (float64, error) {
	a, b, err := alignClean(asset, bench)
	if err != nil {
		return 0, err
	}
	sb := popStd(b.Values)
	if sb == 0 {
		return 0, ErrEmptySeries
	}
	return covariance(a.Values, b.Values) / (sb * sb), nil
}

// Alpha is the asset's annualized mean return in excess of what its
// beta exposure to the benchmark explains:
// (mean(asset) - beta*mean(benchmark)) * annualization.
func Alpha(asset, bench Series, annualization float64) (float64, error) {
	a, b, err := alignClean(asset, bench)
	if err != nil {
		return 0, err
	}
	beta, err := Beta(a, b)
	if err != nil {
		return 0, err
	}
	return (mean(a.Values) - beta*mean(b.Values)) * annualization, nil
}

// Sharpe is the mean return in excess of the per-period risk-free rate
// per unit of volatility, annualized:
// (mean(r) - riskFree) / popStd(r) * sqrt(annualization).
func Sharpe(returns Series, riskFree, annualization float64) (float64, error) {
	if err := returns.check(); err != nil {
		return 0, err
	}
	vals := clean(returns)
	if len(vals) == 0 {
		return 0, ErrEmptySeries
	}
	std := popStd(vals)
	if std == 0 {
		return 0, ErrEmptySeries
	}
	return (mean(vals) - riskFree) / std * math.Sqrt(annualization), nil
}

// Sortino shares Sharpe's numerator but divides by the downside
// volatility: the population standard deviation of negative returns
// only.
func Sortino(returns Series, riskFree, annualization float64) (float64, error) {
	if err := returns.check(); err != nil {
		return 0, err
	}
	vals := clean(returns)
	if len(vals) == 0 {
		return 0, ErrEmptySeries
	}

	var negative []float64
	for _, v := range vals {
		if v < 0 {
			negative = append(negative, v)
		}
	}
	if len(negative) == 0 {
		return 0, ErrEmptySeries
	}
	std := popStd(negative)
	if std == 0 {
		return 0, ErrEmptySeries
	}
	return (mean(vals) - riskFree) / std * math.Sqrt(annualization), nil
}

// Capture reports how much of the benchmark's movement the asset
// captured in rising and falling periods.
type Capture struct {
	Up    float64 // asset CAGR / benchmark CAGR over benchmark-up periods
	Down  float64 // same over benchmark-down periods
	Ratio float64 // Up / Down
}

// CaptureRatio splits the aligned return series by the benchmark's
// sign, compounds and annualizes each side separately, and reports the
// asset-to-benchmark ratio for both. Errors when either side has no
// periods.
func CaptureRatio(asset, bench Series, annualization float64) (Capture, error) {
	a, b, err := alignClean(asset, bench)
	if err != nil {
		return Capture{}, err
	}

	var upA, upB, downA, downB []float64
	for i, br := range b.Values {
		if br > 0 {
			upA = append(upA, a.Values[i])
			upB = append(upB, br)
		} else {
			downA = append(downA, a.Values[i])
			downB = append(downB, br)
		}
	}
	if len(upB) == 0 || len(downB) == 0 {
		return Capture{}, ErrEmptySeries
	}

	up := cagrOf(upA, annualization) / cagrOf(upB, annualization)
	down := cagrOf(downA, annualization) / cagrOf(downB, annualization)
	return Capture{Up: up, Down: down, Ratio: up / down}, nil
}

// cagrOf compounds a subset of returns and annualizes by its own
// period count.
func cagrOf(rets []float64, annualization float64) float64 {
	compound := 1.0
	for _, r := range rets {
		compound *= 1 + r
	}
	return math.Pow(compound, annualization/float64(len(rets))) - 1
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
