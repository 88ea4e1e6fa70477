package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the agentpress configuration
type Config struct {
	// Engine controls batch execution
	Engine EngineConfig `json:"engine" mapstructure:"engine"`

	// Modes points at the custom mode definitions
	Modes ModesConfig `json:"modes" mapstructure:"modes"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// EngineConfig holds tool execution settings
type EngineConfig struct {
	Strategy       string `json:"strategy" mapstructure:"strategy"`               // sequential, parallel
	MaxConcurrency int    `json:"max_concurrency" mapstructure:"max_concurrency"` // 0 = one goroutine per call
	ToolTimeoutMs  int    `json:"tool_timeout_ms" mapstructure:"tool_timeout_ms"` // 0 = tools bound themselves
	MaxOutputBytes int    `json:"max_output_bytes" mapstructure:"max_output_bytes"`
}

// ModesConfig holds custom mode settings
type ModesConfig struct {
	Path  string `json:"path" mapstructure:"path"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName string  `json:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Strategy:       "parallel",
			MaxConcurrency: 0,
			ToolTimeoutMs:  30000,
			MaxOutputBytes: 10 * 1024,
		},
		Modes: ModesConfig{
			Watch: false,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "agentpress",
			SampleRatio: 1,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid and returns the first problem found
func (c *Config) Validate() error {
	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errs[0])
	}
	return nil
}
