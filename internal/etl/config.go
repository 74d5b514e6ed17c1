// Package etl loads the sales warehouse from CSV exports: it populates
// the date dimension, loads shop and product dimensions, and bulk-loads
// sales facts with dimension key resolution.
package etl

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/salescube-io/salescube/internal/config"
)

// Config holds loader configuration from .salescube.yaml.
type Config struct {
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	SalesCSV string `yaml:"sales_csv"`
	//nolint:tagliatelle
	ShopsCSV string `yaml:"shops_csv"`
	//nolint:tagliatelle
	ProductsCSV string `yaml:"products_csv"`
	Delimiter   string `yaml:"delimiter"`
	//nolint:tagliatelle
	StartYear int `yaml:"start_year"`
	//nolint:tagliatelle
	EndYear int `yaml:"end_year"`
	//nolint:tagliatelle
	BatchSize int `yaml:"batch_size"`
}

// DefaultConfigPath is the default location for the loader configuration file.
const DefaultConfigPath = ".salescube.yaml"

// ConfigPathEnvVar is the environment variable name for a custom config path.
const ConfigPathEnvVar = "SALESCUBE_CONFIG_PATH"

const (
	defaultSalesCSV    = "data/sales.csv"
	defaultShopsCSV    = "data/shops.csv"
	defaultProductsCSV = "data/products.csv"
	defaultDelimiter   = ";"
	defaultStartYear   = 2019
	defaultEndYear     = 2020
	defaultBatchSize   = 1000
)

// LoadConfig loads loader configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns defaults (not error) if the file doesn't exist
//   - Returns defaults + logs a warning if the YAML is invalid
//   - Returns the file's values, with defaults filled in for omitted fields
//
// The loader can always run: a missing config file just means default paths.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Config file not found, using loader defaults",
				slog.String("path", path))

			return cfg.withDefaults(), nil
		}

		slog.Warn("Failed to read config file, using loader defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg.withDefaults(), nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("Failed to parse config file, using loader defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return (&Config{}).withDefaults(), nil
	}

	return cfg.withDefaults(), nil
}

// LoadConfigFromEnv loads config from the path in SALESCUBE_CONFIG_PATH,
// falling back to ".salescube.yaml" in the current directory.
func LoadConfigFromEnv() (*Config, error) {
	path := config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)

	return LoadConfig(path)
}

// withDefaults fills any zero-valued field with its default.
func (c *Config) withDefaults() *Config {
	if c.SalesCSV == "" {
		c.SalesCSV = defaultSalesCSV
	}

	if c.ShopsCSV == "" {
		c.ShopsCSV = defaultShopsCSV
	}

	if c.ProductsCSV == "" {
		c.ProductsCSV = defaultProductsCSV
	}

	if c.Delimiter == "" {
		c.Delimiter = defaultDelimiter
	}

	if c.StartYear == 0 {
		c.StartYear = defaultStartYear
	}

	if c.EndYear == 0 {
		c.EndYear = defaultEndYear
	}

	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}

	return c
}
