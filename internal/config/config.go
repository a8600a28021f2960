// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package config

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/orch-mind/vecmem/internal/embedding"
	"github.com/orch-mind/vecmem/internal/store"
	"github.com/orch-mind/vecmem/internal/threshold"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// Config is the top-level vecmem configuration.
type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Search     SearchConfig     `mapstructure:"search"`
	Validation ValidationConfig `mapstructure:"validation"`
	Threshold  threshold.Tiers  `mapstructure:"threshold"`
	Server     ServerConfig     `mapstructure:"server"`
}

// StorageConfig controls the database file and its tuning.
type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	File            string `mapstructure:"file"`
	Dimensions      int    `mapstructure:"dimensions"`
	Threads         int    `mapstructure:"threads"`
	MemoryLimit     string `mapstructure:"memory_limit"`
	PreserveOrder   bool   `mapstructure:"preserve_order"`
	Extension       bool   `mapstructure:"extension"`
	BatchSize       int    `mapstructure:"batch_size"`
	ExistsBatchSize int    `mapstructure:"exists_batch_size"`
}

// SearchConfig controls query defaults and the fallback ladder.
type SearchConfig struct {
	TopK             int      `mapstructure:"top_k"`
	Strategies       []string `mapstructure:"strategies"`
	SearchableFields []string `mapstructure:"searchable_fields"`
}

// ValidationConfig controls embedding repair.
type ValidationConfig struct {
	NormalizeDimensions bool    `mapstructure:"normalize_dimensions"`
	CheckRange          bool    `mapstructure:"check_range"`
	MinValue            float32 `mapstructure:"min_value"`
	MaxValue            float32 `mapstructure:"max_value"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Listen      string          `mapstructure:"listen"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles API clients per IP. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// DefaultDataDir returns ~/.vecmem, or ./.vecmem when the home directory
// cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vecmem"
	}
	return filepath.Join(home, ".vecmem")
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	tiers := threshold.DefaultTiers()
	opts := embedding.DefaultOptions()

	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.file", store.DefaultFile)
	v.SetDefault("storage.dimensions", embedding.DefaultDimensions)
	v.SetDefault("storage.threads", store.DefaultThreads)
	v.SetDefault("storage.memory_limit", store.DefaultMemoryLimit)
	v.SetDefault("storage.preserve_order", false)
	v.SetDefault("storage.extension", true)
	v.SetDefault("storage.batch_size", store.DefaultBatchSize)
	v.SetDefault("storage.exists_batch_size", store.DefaultExistsBatchSize)

	v.SetDefault("search.top_k", store.DefaultTopK)
	v.SetDefault("search.strategies", store.DefaultStrategies())
	v.SetDefault("search.searchable_fields", store.DefaultSearchableFields())

	v.SetDefault("validation.normalize_dimensions", opts.NormalizeDimensions)
	v.SetDefault("validation.check_range", opts.CheckRange)
	v.SetDefault("validation.min_value", opts.MinValue)
	v.SetDefault("validation.max_value", opts.MaxValue)

	v.SetDefault("threshold.precise", tiers.Precise)
	v.SetDefault("threshold.balanced", tiers.Balanced)
	v.SetDefault("threshold.exploratory", tiers.Exploratory)
	v.SetDefault("threshold.min", tiers.Min)
	v.SetDefault("threshold.max", tiers.Max)
	v.SetDefault("threshold.high_volume_top_k", tiers.HighVolumeTopK)

	v.SetDefault("server.listen", "127.0.0.1:18790")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit.requests_per_second", 50.0)
	v.SetDefault("server.rate_limit.burst", 100)
}

// SetupEnv enables VECMEM_* environment overrides, e.g. VECMEM_STORAGE_DIMENSIONS.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("VECMEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix VECMEM_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, vmerr.Errorf(vmerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, vmerr.Errorf(vmerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, vmerr.Errorf(vmerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// StoreConfig converts the file layout into the store's StorageConfig.
func (c *Config) StoreConfig() store.StorageConfig {
	tiers := c.Threshold
	return store.StorageConfig{
		Backend:          c.Storage.Backend,
		DataDir:          c.DataDir,
		File:             c.Storage.File,
		Dimensions:       c.Storage.Dimensions,
		Threads:          c.Storage.Threads,
		MemoryLimit:      c.Storage.MemoryLimit,
		PreserveOrder:    c.Storage.PreserveOrder,
		DisableExtension: !c.Storage.Extension,
		BatchSize:        c.Storage.BatchSize,
		ExistsBatchSize:  c.Storage.ExistsBatchSize,
		TopK:             c.Search.TopK,
		Strategies:       slices.Clone(c.Search.Strategies),
		SearchableFields: nonNil(c.Search.SearchableFields),
		Validation: &embedding.Options{
			ExpectedDimensions:  c.Storage.Dimensions,
			NormalizeDimensions: c.Validation.NormalizeDimensions,
			CheckRange:          c.Validation.CheckRange,
			MinValue:            c.Validation.MinValue,
			MaxValue:            c.Validation.MaxValue,
		},
		Thresholds: &tiers,
	}
}

// nonNil keeps an explicitly emptied list distinct from an unset one.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, invalid("config: data_dir must not be empty"))
	}
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateSearch()...)
	errs = append(errs, c.validateValidation()...)
	errs = append(errs, c.validateThreshold()...)
	errs = append(errs, c.validateServer()...)

	return errs
}

func invalid(format string, args ...any) error {
	return vmerr.Errorf(vmerr.CodeConfigValidateInvalidValue, format, args...)
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, invalid("config: storage.backend must be one of [sqlite], got %q", c.Storage.Backend))
	}
	if c.Storage.File == "" || filepath.Base(c.Storage.File) != c.Storage.File {
		errs = append(errs, invalid("config: storage.file must be a plain file name, got %q", c.Storage.File))
	}
	if c.Storage.Dimensions <= 0 {
		errs = append(errs, invalid("config: storage.dimensions must be greater than 0, got %d", c.Storage.Dimensions))
	}
	if c.Storage.Threads <= 0 {
		errs = append(errs, invalid("config: storage.threads must be greater than 0, got %d", c.Storage.Threads))
	}
	if _, err := humanize.ParseBytes(c.Storage.MemoryLimit); err != nil {
		errs = append(errs, invalid("config: storage.memory_limit must be a byte size such as \"512MB\", got %q",
			c.Storage.MemoryLimit))
	}
	if c.Storage.BatchSize <= 0 {
		errs = append(errs, invalid("config: storage.batch_size must be greater than 0, got %d", c.Storage.BatchSize))
	}
	if c.Storage.ExistsBatchSize <= 0 {
		errs = append(errs, invalid("config: storage.exists_batch_size must be greater than 0, got %d",
			c.Storage.ExistsBatchSize))
	}

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	if c.Search.TopK <= 0 {
		errs = append(errs, invalid("config: search.top_k must be greater than 0, got %d", c.Search.TopK))
	}

	known := store.DefaultStrategies()
	if len(c.Search.Strategies) == 0 {
		errs = append(errs, invalid("config: search.strategies must list at least one of %v", known))
	}
	seen := map[string]bool{}
	for i, s := range c.Search.Strategies {
		if !slices.Contains(known, s) {
			errs = append(errs, invalid("config: search.strategies[%d] must be one of %v, got %q", i, known, s))
			continue
		}
		if seen[s] {
			errs = append(errs, invalid("config: search.strategies[%d] repeats %q", i, s))
		}
		seen[s] = true
	}

	for i, f := range c.Search.SearchableFields {
		if !isIdent(f) {
			errs = append(errs, invalid("config: search.searchable_fields[%d] must match [A-Za-z0-9_]+, got %q", i, f))
		}
	}

	return errs
}

func (c *Config) validateValidation() []error {
	if c.Validation.MinValue >= c.Validation.MaxValue {
		return []error{invalid("config: validation.min_value (%g) must be less than validation.max_value (%g)",
			c.Validation.MinValue, c.Validation.MaxValue)}
	}
	return nil
}

func (c *Config) validateThreshold() []error {
	var errs []error
	t := c.Threshold

	if t.Min < 0 || t.Max > 1 || t.Min >= t.Max {
		errs = append(errs, invalid("config: threshold.min and threshold.max must satisfy 0 <= min < max <= 1, got %g and %g",
			t.Min, t.Max))
	}
	tiers := []struct {
		name string
		val  float64
	}{{"precise", t.Precise}, {"balanced", t.Balanced}, {"exploratory", t.Exploratory}}
	for _, tier := range tiers {
		if tier.val < t.Min || tier.val > t.Max {
			errs = append(errs, invalid("config: threshold.%s must lie within [%g, %g], got %g",
				tier.name, t.Min, t.Max, tier.val))
		}
	}
	if t.HighVolumeTopK <= 0 {
		errs = append(errs, invalid("config: threshold.high_volume_top_k must be greater than 0, got %d", t.HighVolumeTopK))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if rl := c.Server.RateLimit; rl.RequestsPerSecond < 0 {
		errs = append(errs, invalid("config: server.rate_limit.requests_per_second must not be negative, got %g", rl.RequestsPerSecond))
	} else if rl.RequestsPerSecond > 0 && rl.Burst < 1 {
		errs = append(errs, invalid("config: server.rate_limit.burst must be at least 1 when a rate is set, got %d", rl.Burst))
	}

	if c.Server.Listen == "" {
		errs = append(errs, invalid("config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, invalid("config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err))
		return errs
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, invalid("config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, invalid("config: server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
