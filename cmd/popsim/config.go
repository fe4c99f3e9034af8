package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the popsim configuration file.
type Config struct {
	InitialCapacity int      `json:"initial_capacity" yaml:"initial_capacity"`
	QueryCacheSize  int      `json:"query_cache_size" yaml:"query_cache_size"`
	LogLevel        string   `json:"log_level" yaml:"log_level"`
	HistoryFile     string   `json:"history_file,omitempty" yaml:"history_file,omitempty"`
	AdultAge        uint8    `json:"adult_age" yaml:"adult_age"`
	Indexes         []string `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	// Population is the number of people spawned with random ages at start.
	Population int    `json:"population" yaml:"population"`
	Seed       uint64 `json:"seed" yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:    "warn",
		HistoryFile: ".popsim_history",
		AdultAge:    18,
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if _, err := cfg.Level(); err != nil {
		return cfg, err
	}
	if cfg.Population < 0 {
		return cfg, errors.Errorf("population must not be negative, got %d", cfg.Population)
	}
	return cfg, nil
}

func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return l, errors.Wrapf(err, "log level %q", c.LogLevel)
	}
	return l, nil
}
