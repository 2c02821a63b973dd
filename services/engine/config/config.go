// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the engine's YAML configuration.
//
// A single Config drives the HTTP service, the batch pipeline, the metrics
// store, and telemetry. Load reads one file, applies defaults for absent
// fields, and validates the result; a Config that Load returns is safe to
// use without further checking.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP query service.
type ServerConfig struct {
	// Host is the listen address.
	Host string `yaml:"host" validate:"required"`

	// Port is the listen port.
	Port int `yaml:"port" validate:"gte=1,lte=65535"`

	// RateLimitRPS is the sustained request rate allowed per server.
	RateLimitRPS float64 `yaml:"rate_limit_rps" validate:"gt=0"`

	// RateLimitBurst is the burst size for the rate limiter.
	RateLimitBurst int `yaml:"rate_limit_burst" validate:"gte=1"`
}

// StoreConfig configures the BadgerDB metrics store.
type StoreConfig struct {
	// Path is the directory for BadgerDB files.
	Path string `yaml:"path"`

	// InMemory runs the store without disk persistence.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool `yaml:"sync_writes"`
}

// PipelineConfig configures the batch analysis pipeline.
type PipelineConfig struct {
	// Interval is the wall-clock period between automatic passes.
	// Zero disables the scheduler; passes then run only on demand.
	Interval time.Duration `yaml:"interval"`

	// ClusterBudget bounds the cluster detection phase. When exceeded,
	// the pass falls back to affiliation-based clustering.
	ClusterBudget time.Duration `yaml:"cluster_budget" validate:"gt=0"`

	// RelationshipHalfLifeDays is the decay half-life for edge weights.
	RelationshipHalfLifeDays float64 `yaml:"relationship_half_life_days" validate:"gt=0"`

	// RevenueThresholdUSD marks an organization institutional by revenue.
	RevenueThresholdUSD float64 `yaml:"revenue_threshold_usd" validate:"gte=0"`

	// FootprintThresholdSF marks an organization institutional by footprint.
	FootprintThresholdSF float64 `yaml:"footprint_threshold_sf" validate:"gte=0"`

	// MaxNodes caps graph size per pass. Zero means unlimited.
	MaxNodes int `yaml:"max_nodes" validate:"gte=0"`

	// MaxEdges caps graph size per pass. Zero means unlimited.
	MaxEdges int `yaml:"max_edges" validate:"gte=0"`
}

// TelemetryConfig configures tracing and metrics export.
type TelemetryConfig struct {
	// TraceExporter selects the trace exporter: "otlp", "stdout", or "none".
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`

	// MetricExporter selects the metric exporter: "prometheus", "stdout", or "none".
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`

	// OTLPEndpoint is the OTLP receiver endpoint for traces.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", or "error".
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format selects "json" or "text" output.
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Config is the root configuration for the engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// configValidate is the shared validator instance for this package.
var configValidate = validator.New()

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RateLimitRPS:   50,
			RateLimitBurst: 100,
		},
		Store: StoreConfig{
			Path:       "data/relgraph",
			SyncWrites: true,
		},
		Pipeline: PipelineConfig{
			ClusterBudget:            5 * time.Second,
			RelationshipHalfLifeDays: 730,
			RevenueThresholdUSD:      50_000_000,
			FootprintThresholdSF:     30_000,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "otlp",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file, fills absent fields from Default, and
// validates the result.
//
// Inputs:
//
//	path - Path to the YAML file. Empty returns Default() unmodified.
//
// Outputs:
//
//	Config - The validated configuration.
//	error - Non-nil if the file cannot be read, parsed, or validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	// Unmarshal over defaults so absent fields keep their default values.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks all field constraints.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return err
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	return nil
}
