package model

import (
	"testing"
	"time"
)

func TestNormalizeCNPJ(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"11.222.333/0001-81", "11.222.333/0001-81", false},
		{"11222333000181", "11.222.333/0001-81", false},
		{" 11 222 333 0001 81 ", "11.222.333/0001-81", false},
		{"1122233300018", "", true},
		{"112223330001811", "", true},
		{"", "", true},
		{"not-a-cnpj", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeCNPJ(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeCNPJ(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeCNPJ(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeCNPJ(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPeriodNext(t *testing.T) {
	p := Period{Year: 2016, Month: time.December}
	if got := p.Next(); got != (Period{Year: 2017, Month: time.January}) {
		t.Errorf("Next() = %v, want 2017-01", got)
	}

	p = Period{Year: 2020, Month: time.March}
	if got := p.Next(); got != (Period{Year: 2020, Month: time.April}) {
		t.Errorf("Next() = %v, want 2020-04", got)
	}
}

func TestPeriodAfter(t *testing.T) {
	a := Period{Year: 2020, Month: time.March}
	b := Period{Year: 2020, Month: time.April}
	c := Period{Year: 2019, Month: time.December}

	if a.After(b) {
		t.Error("2020-03 should not be after 2020-04")
	}
	if !b.After(a) {
		t.Error("2020-04 should be after 2020-03")
	}
	if !a.After(c) {
		t.Error("2020-03 should be after 2019-12")
	}
	if a.After(a) {
		t.Error("a period is not after itself")
	}
}

func TestPeriodKeyString(t *testing.T) {
	p := Period{Year: 2021, Month: time.February}
	if got := p.Key(); got != "202102" {
		t.Errorf("Key() = %q, want 202102", got)
	}
	if got := p.String(); got != "2021-02" {
		t.Errorf("String() = %q, want 2021-02", got)
	}
}

func TestPeriodOf(t *testing.T) {
	ts := time.Date(2023, time.July, 14, 12, 0, 0, 0, time.UTC)
	if got := PeriodOf(ts); got != (Period{Year: 2023, Month: time.July}) {
		t.Errorf("PeriodOf = %v, want 2023-07", got)
	}
	if !PeriodOf(ts).Contains(ts) {
		t.Error("period should contain its own timestamp")
	}
}
