package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quantbr/fundsdb/internal/model"
)

// Validate checks that all required fields are set and values are valid.
// It runs before any network call so that a bad store path or a malformed
// target-fund list fails fast.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	dir := filepath.Dir(c.Store.Path)
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("store.path directory %q: %w", dir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("store.path parent %q is not a directory", dir)
	}

	if c.Source.CVMBaseURL == "" {
		return errors.New("source.cvm_base_url is required")
	}
	if c.Source.RegistryURL == "" {
		return errors.New("source.registry_url is required")
	}
	if c.Source.LegacyUntil < 1900 {
		return fmt.Errorf("source.legacy_until must be a year, got %d", c.Source.LegacyUntil)
	}
	if c.Source.MaxRetries < 0 {
		return errors.New("source.max_retries must be >= 0")
	}

	if c.Loader.StartYear < 1990 || c.Loader.StartYear > time.Now().Year() {
		return fmt.Errorf("loader.start_year %d is out of range", c.Loader.StartYear)
	}
	if c.Loader.MaxAttempts < 1 {
		return errors.New("loader.max_attempts must be >= 1")
	}

	for i, cnpj := range c.Loader.TargetFunds {
		norm, err := model.NormalizeCNPJ(cnpj)
		if err != nil {
			return fmt.Errorf("loader.target_funds[%d]: %w", i, err)
		}
		c.Loader.TargetFunds[i] = norm
	}

	return nil
}
