package model

import (
	"fmt"
	"time"
)

// Period identifies one year-month of the daily report series.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// CurrentPeriod returns the period containing the current date.
func CurrentPeriod() Period {
	return PeriodOf(time.Now().UTC())
}

// Next returns the period immediately after p.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// After reports whether p is strictly later than q.
func (p Period) After(q Period) bool {
	if p.Year != q.Year {
		return p.Year > q.Year
	}
	return p.Month > q.Month
}

// Start returns the first day of the period, UTC midnight.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Key returns the YYYYMM form used in CVM file names.
func (p Period) Key() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

// String returns the YYYY-MM form used in logs.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
