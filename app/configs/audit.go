package config

import (
	"encoding/json"
	"os"
	"reflect"
)

// DefaultConfig returns a normalized copy of the built-in default config.
func DefaultConfig() Config {
	cfg := defaultConfig()
	applyDefaults(&cfg)
	return cfg
}

// Normalize applies defaults to a config copy and reports which
// sections were touched. The preflight tool surfaces the report.
func Normalize(cfg Config) (Config, []string) {
	normalized := cfg
	applyDefaults(&normalized)

	applied := []string{}
	if !reflect.DeepEqual(cfg.Model, normalized.Model) {
		applied = append(applied, "model")
	}
	if !reflect.DeepEqual(cfg.State, normalized.State) {
		applied = append(applied, "state")
	}
	if !reflect.DeepEqual(cfg.History, normalized.History) {
		applied = append(applied, "history")
	}
	if !reflect.DeepEqual(cfg.Maintenance, normalized.Maintenance) {
		applied = append(applied, "maintenance")
	}
	return normalized, applied
}

// LoadConfigFile reads and normalizes a config file without mutating it on disk.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}
