package model

import (
	"fmt"
	"strings"
	"time"
)

// Benchmark series names stored in benchmark_series.
const (
	SeriesIbov     = "ibov"      // Ibovespa index, adjusted close
	SeriesSelic    = "selic"     // SELIC daily rate, decimal fraction
	SeriesSelicAcc = "selic_acc" // SELIC compounded unit price, base 1.0
)

// Fund is one row of the fund registry, keyed by CNPJ.
// Attributes reflect the most recent registry refresh.
type Fund struct {
	CNPJ    string
	Name    string
	Status  string
	Class   string
	Manager string
}

// Quota is one daily report row for a fund. Immutable once written
// for a given (CNPJ, Date) pair.
type Quota struct {
	CNPJ         string
	Date         time.Time
	QuotaValue   float64
	NetAssets    float64
	TotalAssets  float64
	Shareholders int
}

// BenchmarkPoint is one observation of an auxiliary index series.
type BenchmarkPoint struct {
	Series string
	Date   time.Time
	Value  float64
}

// NormalizeCNPJ validates a fund tax id and returns it in the
// canonical ##.###.###/####-## form. Any punctuation in the input
// is ignored; only the 14 digits matter.
func NormalizeCNPJ(s string) (string, error) {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 14 {
		return "", fmt.Errorf("invalid CNPJ %q: want 14 digits, got %d", s, len(d))
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14], nil
}
