// Package config loads the transitplan YAML configuration, applies
// environment overrides and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/transitplan/logger"
)

// Environment variables read by Load and ApplyEnv.
const (
	EnvConfig      = "TRANSITPLAN_CONFIG"
	EnvLogLevel    = "TRANSITPLAN_LOG_LEVEL"
	EnvDBPath      = "TRANSITPLAN_DB_PATH"
	EnvSnapshotDir = "TRANSITPLAN_SNAPSHOT_DIR"
)

// DefaultPath is read when neither a path nor EnvConfig is given.
const DefaultPath = "transitplan.yml"

var (
	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("config: invalid")

	// ErrUnknownNetwork indicates a lookup of an unconfigured network.
	ErrUnknownNetwork = errors.New("config: unknown network")
)

// Default returns a configuration with every default filled in and no networks.
func Default() Config {
	return Config{
		Optimizer: OptimizerConfig{
			Iterations:           200,
			InitialExplore:       0.7,
			ExploreDecay:         0.99,
			ExploreFloor:         0.05,
			ToleranceProbability: 0.2,
			ToleranceFraction:    0.1,
			BudgetFactor:         1.1,
			CircleRoutes:         25,
			CircleRadius:         3200,
		},
		Benchmark: BenchmarkConfig{
			Repeats:        2,
			PenaltyMinutes: 180,
			Workers:        4,
		},
		Cost: CostConfig{
			AvgBusSpeed:     833,
			StopPenalty:     0.5,
			TransferPenalty: 5,
			InitialBoarding: true,
		},
		Store: StoreConfig{
			DBPath:      "transitplan.db",
			SnapshotDir: "snapshots",
		},
		Runner: RunnerConfig{
			MaxRetries: 3,
		},
		Log: logger.Default(),
	}
}

// Load reads the configuration at path. An empty path falls back to
// $TRANSITPLAN_CONFIG and then to DefaultPath.
func Load(path string) (Config, error) {
	if path == "" {
		path = getEnv(EnvConfig, DefaultPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	return Parse(data, os.LookupEnv)
}

// Parse decodes data over Default, applies the environment seen through
// lookup and validates. Unknown YAML keys are rejected; an empty document
// keeps every default.
func Parse(data []byte, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	ApplyEnv(&cfg, lookup)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with the set environment variables.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		cfg.Store.DBPath = v
	}
	if v, ok := lookup(EnvSnapshotDir); ok && v != "" {
		cfg.Store.SnapshotDir = v
	}
}

// Validate checks every section's constraints.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return nil
}

// Network returns the configured network called name.
func (c Config) Network(name string) (Network, error) {
	for _, n := range c.Networks {
		if n.Name == name {
			return n, nil
		}
	}

	return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
