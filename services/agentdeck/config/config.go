// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the AgentDeck service configuration: defaults,
// then an optional YAML file, then environment overrides, in that
// order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port string `yaml:"port"`

	// DataDir is the document store directory.
	DataDir string `yaml:"data_dir"`

	// OTELEndpoint is the OTLP/gRPC collector address. Empty disables
	// tracing.
	OTELEndpoint string `yaml:"otel_endpoint"`

	// RateRPS and RateBurst bound per-identity request rates on /v1.
	// RateRPS <= 0 disables rate limiting.
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`

	// LogDir enables file logging in addition to stdout when set.
	LogDir string `yaml:"log_dir"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Port:      "12300",
		DataDir:   "./data/agentdeck",
		RateRPS:   5,
		RateBurst: 10,
		LogLevel:  "info",
	}
}

// Load builds the effective configuration. The optional file path
// comes from AGENTDECK_CONFIG; a missing file is only an error when
// explicitly requested.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("AGENTDECK_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AGENTDECK_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("AGENTDECK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("AGENTDECK_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateRPS = f
		}
	}
	if v := os.Getenv("AGENTDECK_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateBurst = n
		}
	}
	if v := os.Getenv("AGENTDECK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("AGENTDECK_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
}
