package config

import "time"

// Config is the root configuration for the fundsdb tool.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Source SourceConfig `yaml:"source"`
	Loader LoaderConfig `yaml:"loader"`
}

// StoreConfig locates the SQLite store file.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SourceConfig holds remote data source settings.
type SourceConfig struct {
	CVMBaseURL   string        `yaml:"cvm_base_url"`  // daily report (informe diario) directory
	RegistryURL  string        `yaml:"registry_url"`  // full fund registry CSV
	BCBSeriesURL string        `yaml:"bcb_series_url"` // SGS endpoint for the SELIC rate
	YahooURL     string        `yaml:"yahoo_url"`     // chart API base for the Ibovespa index
	LegacyUntil  int           `yaml:"legacy_until"`  // first year of the monthly-CSV era
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// LoaderConfig holds ingestion settings.
type LoaderConfig struct {
	StartYear   int      `yaml:"start_year"`   // only used when the store is first created
	TargetFunds []string `yaml:"target_funds"` // CNPJs; empty = all funds
	MaxAttempts int      `yaml:"max_attempts"` // per-period attempts before skipping
}
