package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultStorePath    = "investments.db"
	DefaultCVMBaseURL   = "https://dados.cvm.gov.br/dados/FI/DOC/INF_DIARIO/DADOS"
	DefaultRegistryURL  = "https://dados.cvm.gov.br/dados/FI/CAD/DADOS/cad_fi.csv"
	DefaultBCBSeriesURL = "https://api.bcb.gov.br/dados/serie/bcdata.sgs.11/dados"
	DefaultYahooURL     = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultLegacyUntil  = 2017
	DefaultStartYear    = 2005
	DefaultTimeout      = 60 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 1 * time.Second
	DefaultMaxAttempts  = 3
)

// ApplyDefaults fills zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	// Store defaults
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}

	// Source defaults
	if c.Source.CVMBaseURL == "" {
		c.Source.CVMBaseURL = DefaultCVMBaseURL
	}
	if c.Source.RegistryURL == "" {
		c.Source.RegistryURL = DefaultRegistryURL
	}
	if c.Source.BCBSeriesURL == "" {
		c.Source.BCBSeriesURL = DefaultBCBSeriesURL
	}
	if c.Source.YahooURL == "" {
		c.Source.YahooURL = DefaultYahooURL
	}
	if c.Source.LegacyUntil == 0 {
		c.Source.LegacyUntil = DefaultLegacyUntil
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultTimeout
	}
	if c.Source.MaxRetries == 0 {
		c.Source.MaxRetries = DefaultMaxRetries
	}
	if c.Source.RetryBackoff == 0 {
		c.Source.RetryBackoff = DefaultRetryBackoff
	}

	// Loader defaults
	if c.Loader.StartYear == 0 {
		c.Loader.StartYear = DefaultStartYear
	}
	if c.Loader.MaxAttempts == 0 {
		c.Loader.MaxAttempts = DefaultMaxAttempts
	}
}
