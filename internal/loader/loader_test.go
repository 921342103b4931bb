package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quantbr/fundsdb/internal/bcb"
	"github.com/quantbr/fundsdb/internal/cvm"
	"github.com/quantbr/fundsdb/internal/model"
	"github.com/quantbr/fundsdb/internal/store"
	"github.com/quantbr/fundsdb/internal/yahoo"
)

const (
	fundA = "11.222.333/0001-81"
	fundB = "44.555.666/0001-02"
)

// fakeCVM serves monthly reports and the registry from memory and
// records every requested path.
type fakeCVM struct {
	mu       sync.Mutex
	monthly  map[string]string // YYYYMM -> csv body
	failing  map[string]int    // YYYYMM -> remaining 500 responses (-1 = always)
	registry string
	requests []string
}

func (f *fakeCVM) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.URL.Path)
		f.mu.Unlock()

		if strings.HasSuffix(r.URL.Path, "/cad_fi.csv") {
			w.Write([]byte(f.registry))
			return
		}

		var key string
		if n, _ := fmt.Sscanf(filepath.Base(r.URL.Path), "inf_diario_fi_%6s.csv", &key); n != 1 {
			http.NotFound(w, r)
			return
		}

		f.mu.Lock()
		remaining, failing := f.failing[key]
		if failing && remaining != 0 {
			if remaining > 0 {
				f.failing[key] = remaining - 1
			}
			f.mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body, ok := f.monthly[key]
		f.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	})
}

func (f *fakeCVM) requested(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.requests {
		if strings.Contains(p, key) {
			return true
		}
	}
	return false
}

func (f *fakeCVM) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

func monthCSV(rows ...string) string {
	return "TP_FUNDO;CNPJ_FUNDO;DT_COMPTC;VL_TOTAL;VL_QUOTA;VL_PATRIM_LIQ;NR_COTST\n" +
		strings.Join(rows, "\n") + "\n"
}

const registryCSV = "CNPJ_FUNDO;DENOM_SOCIAL;SIT;CLASSE;GESTOR\n" +
	fundA + ";FUNDO ALFA;EM FUNCIONAMENTO NORMAL;Multimercado;GESTORA X\n" +
	fundB + ";FUNDO BETA;EM FUNCIONAMENTO NORMAL;Renda Fixa;GESTORA Y\n"

const yahooPayload = `{
	"chart": {
		"result": [{
			"timestamp": [1677628800, 1677715200],
			"indicators": {"adjclose": [{"adjclose": [103415.0, 104999.5]}]}
		}],
		"error": null
	}
}`

const bcbPayload = `[
	{"data": "01/03/2023", "valor": "0.05"},
	{"data": "02/03/2023", "valor": "0.05"}
]`

type env struct {
	cvmSrv *httptest.Server
	source *fakeCVM
	store  *store.Store
	loader *Loader
}

func newEnv(t *testing.T, source *fakeCVM, cfg Config) *env {
	t.Helper()

	cvmSrv := httptest.NewServer(source.handler())
	t.Cleanup(cvmSrv.Close)

	yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(yahooPayload))
	}))
	t.Cleanup(yahooSrv.Close)

	bcbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bcbPayload))
	}))
	t.Cleanup(bcbSrv.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "funds.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cvmClient := cvm.NewClient(cvmSrv.URL, cvmSrv.URL+"/cad_fi.csv",
		cvm.WithRetries(0, time.Millisecond))
	bcbClient := bcb.NewClient(bcbSrv.URL, 5*time.Second, nil)
	yahooClient := yahoo.NewClient(yahooSrv.URL, 5*time.Second, nil)

	if cfg.StartYear == 0 {
		cfg.StartYear = 2023
	}
	if cfg.LegacyUntil == 0 {
		cfg.LegacyUntil = 2017 // start year is modern, legacy era never entered
	}
	cfg.RetryBackoff = time.Millisecond
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 2
	}

	return &env{
		cvmSrv: cvmSrv,
		source: source,
		store:  st,
		loader: New(cfg, st, cvmClient, bcbClient, yahooClient, nil),
	}
}

func twoMonthSource() *fakeCVM {
	return &fakeCVM{
		registry: registryCSV,
		failing:  map[string]int{},
		monthly: map[string]string{
			"202301": monthCSV(
				"FI;"+fundA+";2023-01-30;100;1.00;100;5",
				"FI;"+fundA+";2023-01-31;101;1.01;101;5",
				"FI;"+fundB+";2023-01-31;200;2.00;200;9",
			),
			"202302": monthCSV(
				"FI;"+fundA+";2023-02-27;102;1.02;102;5",
				"FI;"+fundA+";2023-02-28;103;1.03;103;5",
				"FI;"+fundB+";2023-02-28;201;2.01;201;9",
			),
		},
	}
}

func TestInitLoadsEverything(t *testing.T) {
	source := twoMonthSource()
	e := newEnv(t, source, Config{})
	ctx := context.Background()

	sum, err := e.loader.Init(ctx)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if sum.PeriodsFetched != 2 {
		t.Errorf("PeriodsFetched = %d, want 2", sum.PeriodsFetched)
	}
	if sum.RowsInserted != 6 {
		t.Errorf("RowsInserted = %d, want 6", sum.RowsInserted)
	}
	if sum.RegistryFunds != 2 {
		t.Errorf("RegistryFunds = %d, want 2", sum.RegistryFunds)
	}
	// 2 ibov points + 2 selic rates + 2 accumulated prices.
	if sum.BenchmarksInserted != 6 {
		t.Errorf("BenchmarksInserted = %d, want 6", sum.BenchmarksInserted)
	}

	// The halt came from 2023-03 being absent; it must have been the
	// last request, with no attempt at 2023-04.
	if !source.requested("202303") {
		t.Error("expected a request for 202303 (the terminating period)")
	}
	if source.requested("202304") {
		t.Error("loop continued past the period that reported absence")
	}

	runs, err := e.store.LastRuns(ctx, 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("LastRuns = %v, %v; want one run", runs, err)
	}
	if runs[0].Kind != "init" {
		t.Errorf("run kind = %q, want init", runs[0].Kind)
	}
}

func TestInitTwiceFails(t *testing.T) {
	e := newEnv(t, twoMonthSource(), Config{})
	ctx := context.Background()

	if _, err := e.loader.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := e.loader.Init(ctx); err != ErrAlreadyInitialized {
		t.Fatalf("second Init err = %v, want ErrAlreadyInitialized", err)
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	source := twoMonthSource()
	e := newEnv(t, source, Config{})
	ctx := context.Background()

	if _, err := e.loader.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	before, err := e.store.CountQuotas(ctx)
	if err != nil {
		t.Fatalf("CountQuotas: %v", err)
	}

	source.reset()
	sum, err := e.loader.Update(ctx)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if sum.RowsInserted != 0 {
		t.Errorf("RowsInserted = %d, want 0 on no-op update", sum.RowsInserted)
	}
	if sum.BenchmarksInserted != 0 {
		t.Errorf("BenchmarksInserted = %d, want 0 on no-op update", sum.BenchmarksInserted)
	}

	after, err := e.store.CountQuotas(ctx)
	if err != nil {
		t.Fatalf("CountQuotas: %v", err)
	}
	if after != before {
		t.Errorf("quota count changed %d -> %d on no-op update", before, after)
	}

	// Resume correctness: data runs through 2023-02-28, so the update
	// starts at 2023-03 and never re-fetches loaded months.
	if source.requested("202301") || source.requested("202302") {
		t.Error("update re-fetched an already-loaded period")
	}
	if !source.requested("202303") {
		t.Error("update did not probe the period after the stored maximum")
	}
}

func TestUpdateExtendsSeries(t *testing.T) {
	source := twoMonthSource()
	e := newEnv(t, source, Config{})
	ctx := context.Background()

	if _, err := e.loader.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// A new month appears on the portal.
	source.mu.Lock()
	source.monthly["202303"] = monthCSV(
		"FI;" + fundA + ";2023-03-31;104;1.04;104;5",
	)
	source.mu.Unlock()
	source.reset()

	sum, err := e.loader.Update(ctx)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if sum.RowsInserted != 1 {
		t.Errorf("RowsInserted = %d, want 1", sum.RowsInserted)
	}
	if source.requested("202302") {
		t.Error("update re-fetched the already-complete previous month")
	}
}

func TestUpdateReattemptsPartialMonth(t *testing.T) {
	source := twoMonthSource()
	e := newEnv(t, source, Config{})
	ctx := context.Background()

	// Simulate a crash mid-period: only part of February made it in.
	_, err := e.store.InsertQuotas(ctx, []model.Quota{
		{CNPJ: fundA, Date: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), QuotaValue: 1.01},
		{CNPJ: fundA, Date: time.Date(2023, 2, 27, 0, 0, 0, 0, time.UTC), QuotaValue: 1.02},
	})
	if err != nil {
		t.Fatalf("seed quotas: %v", err)
	}

	sum, err := e.loader.Update(ctx)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if !source.requested("202302") {
		t.Error("partially-applied period was not re-attempted")
	}
	// Only the missing rows of February were inserted.
	if sum.RowsInserted != 2 { // fundA 02-28 + fundB 02-28
		t.Errorf("RowsInserted = %d, want 2", sum.RowsInserted)
	}
}

func TestTargetFundScoping(t *testing.T) {
	source := twoMonthSource()
	e := newEnv(t, source, Config{TargetFunds: []string{fundA}})
	ctx := context.Background()

	if _, err := e.loader.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// The restriction must survive into updates via the store.
	source.mu.Lock()
	source.monthly["202303"] = monthCSV(
		"FI;"+fundA+";2023-03-31;104;1.04;104;5",
		"FI;"+fundB+";2023-03-31;202;2.02;202;9",
	)
	source.mu.Unlock()

	if _, err := e.loader.Update(ctx); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	quotasB, err := e.store.QuotaSeries(ctx, fundB, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("QuotaSeries: %v", err)
	}
	if len(quotasB) != 0 {
		t.Errorf("found %d quota rows for an out-of-scope fund", len(quotasB))
	}

	if _, ok, err := e.store.GetFund(ctx, fundB); err != nil || ok {
		t.Errorf("out-of-scope fund present in registry (ok=%v, err=%v)", ok, err)
	}

	quotasA, err := e.store.QuotaSeries(ctx, fundA, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("QuotaSeries: %v", err)
	}
	if len(quotasA) != 5 {
		t.Errorf("in-scope fund has %d rows, want 5", len(quotasA))
	}
}

func TestTransientFailureSkipsPeriod(t *testing.T) {
	source := twoMonthSource()
	source.failing["202301"] = -1 // January fails every time
	e := newEnv(t, source, Config{MaxAttempts: 2})
	ctx := context.Background()

	sum, err := e.loader.Init(ctx)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if sum.PeriodsSkipped == 0 {
		t.Error("PeriodsSkipped = 0, want the failing period counted")
	}
	if sum.PeriodsFetched != 1 {
		t.Errorf("PeriodsFetched = %d, want 1 (February only)", sum.PeriodsFetched)
	}

	// The backfill continued past the bad period.
	quotas, err := e.store.QuotaSeries(ctx, fundA, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("QuotaSeries: %v", err)
	}
	for _, q := range quotas {
		if q.Date.Month() != time.February {
			t.Errorf("unexpected quota from %v", q.Date)
		}
	}
}

func TestPermanentAbsenceHaltsBackfill(t *testing.T) {
	source := twoMonthSource()
	// March present but February missing entirely: the walk must stop
	// at February without ever asking for March.
	source.mu.Lock()
	source.monthly["202303"] = monthCSV("FI;" + fundA + ";2023-03-31;104;1.04;104;5")
	delete(source.monthly, "202302")
	source.mu.Unlock()

	e := newEnv(t, source, Config{})
	ctx := context.Background()

	if _, err := e.loader.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if source.requested("202303") {
		t.Error("backfill continued past a period that reported absence")
	}

	max, ok, err := e.store.MaxQuotaDate(ctx)
	if err != nil || !ok {
		t.Fatalf("MaxQuotaDate: ok=%v err=%v", ok, err)
	}
	if max.Month() != time.January {
		t.Errorf("max quota date = %v, want a January date", max)
	}
}
