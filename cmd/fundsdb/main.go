// Command fundsdb builds and maintains a local SQLite store of
// Brazilian investment fund data from CVM open-data files, plus the
// Ibovespa and SELIC benchmark series.
//
// Usage:
//
//	fundsdb init   [-config path]   first full load (registry + backfill)
//	fundsdb update [-config path]   extend every series incrementally
//	fundsdb status [-config path]   print store counts and recent runs
//	fundsdb version                 print build information
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/quantbr/fundsdb/internal/bcb"
	"github.com/quantbr/fundsdb/internal/config"
	"github.com/quantbr/fundsdb/internal/cvm"
	"github.com/quantbr/fundsdb/internal/loader"
	"github.com/quantbr/fundsdb/internal/model"
	"github.com/quantbr/fundsdb/internal/store"
	"github.com/quantbr/fundsdb/internal/version"
	"github.com/quantbr/fundsdb/internal/yahoo"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]

	if cmd == "version" {
		fmt.Println("fundsdb " + version.String())
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (omit for defaults)")
	fs.Parse(os.Args[2:])

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; environment variables referenced in the config
	// file are expanded at load time.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting fundsdb",
		"version", version.Version,
		"commit", version.Commit,
		"command", cmd,
		"store", cfg.Store.Path,
	)

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	switch cmd {
	case "init", "update":
		runLoader(ctx, cmd, cfg, st, logger)
	case "status":
		if err := printStatus(ctx, st); err != nil {
			logger.Error("failed to read store status", "error", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadAndValidate(path)
}

func runLoader(ctx context.Context, cmd string, cfg *config.Config, st *store.Store, logger *slog.Logger) {
	cvmClient := cvm.NewClient(
		cfg.Source.CVMBaseURL,
		cfg.Source.RegistryURL,
		cvm.WithLogger(logger),
		cvm.WithTimeout(cfg.Source.Timeout),
		cvm.WithRetries(cfg.Source.MaxRetries, cfg.Source.RetryBackoff),
	)
	bcbClient := bcb.NewClient(cfg.Source.BCBSeriesURL, cfg.Source.Timeout, logger)
	yahooClient := yahoo.NewClient(cfg.Source.YahooURL, cfg.Source.Timeout, logger)

	l := loader.New(loader.Config{
		StartYear:    cfg.Loader.StartYear,
		TargetFunds:  cfg.Loader.TargetFunds,
		LegacyUntil:  cfg.Source.LegacyUntil,
		MaxAttempts:  cfg.Loader.MaxAttempts,
		RetryBackoff: cfg.Source.RetryBackoff,
	}, st, cvmClient, bcbClient, yahooClient, logger)

	var sum *loader.Summary
	var err error
	switch cmd {
	case "init":
		sum, err = l.Init(ctx)
	case "update":
		sum, err = l.Update(ctx)
	}
	if errors.Is(err, loader.ErrAlreadyInitialized) {
		logger.Error("store already holds data; use `fundsdb update`")
		os.Exit(1)
	}
	if err != nil {
		logger.Error("load failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s complete: %d periods fetched, %d skipped, %d rows inserted, %d rows dropped, %d benchmark points\n",
		cmd, sum.PeriodsFetched, sum.PeriodsSkipped, sum.RowsInserted, sum.RowsDropped, sum.BenchmarksInserted)
}

func printStatus(ctx context.Context, st *store.Store) error {
	funds, err := st.CountFunds(ctx)
	if err != nil {
		return err
	}
	quotas, err := st.CountQuotas(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("funds:  %d\n", funds)
	fmt.Printf("quotas: %d\n", quotas)

	if max, ok, err := st.MaxQuotaDate(ctx); err != nil {
		return err
	} else if ok {
		fmt.Printf("quotas through: %s\n", max.Format("2006-01-02"))
	} else {
		fmt.Println("quotas through: (empty, run `fundsdb init`)")
	}

	for _, series := range []string{model.SeriesIbov, model.SeriesSelic, model.SeriesSelicAcc} {
		if max, ok, err := st.MaxBenchmarkDate(ctx, series); err != nil {
			return err
		} else if ok {
			fmt.Printf("benchmark %-10s through: %s\n", series, max.Format("2006-01-02"))
		}
	}

	runs, err := st.LastRuns(ctx, 5)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Println("recent runs:")
		for _, r := range runs {
			fmt.Printf("  %s %-6s %s  periods=%d skipped=%d rows=%d dropped=%d\n",
				r.FinishedAt.Format("2006-01-02 15:04"), r.Kind, r.ID,
				r.PeriodsFetched, r.PeriodsSkipped, r.RowsInserted, r.RowsDropped)
		}
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fundsdb <init|update|status|version> [-config path]")
}
