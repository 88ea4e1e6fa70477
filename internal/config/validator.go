package config

import (
	"fmt"
	"net"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateStrategy validates the default execution strategy
func (v *Validator) ValidateStrategy(strategy string) error {
	validStrategies := []string{"sequential", "parallel"}
	for _, valid := range validStrategies {
		if strategy == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid execution strategy: %q (must be one of: %s)", strategy, strings.Join(validStrategies, ", "))
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateNonNegative validates integer settings where zero means "no limit"
func (v *Validator) ValidateNonNegative(name string, value int) error {
	if value < 0 {
		return fmt.Errorf("%s must not be negative, got %d", name, value)
	}
	return nil
}

// ValidateAddr validates a host:port listen address
func (v *Validator) ValidateAddr(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

// ValidateSampleRatio validates a trace sampling ratio
func (v *Validator) ValidateSampleRatio(ratio float64) error {
	if ratio < 0 || ratio > 1 {
		return fmt.Errorf("sample ratio must be between 0 and 1, got %f", ratio)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateStrategy(cfg.Engine.Strategy); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateNonNegative("engine.max_concurrency", cfg.Engine.MaxConcurrency); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateNonNegative("engine.tool_timeout_ms", cfg.Engine.ToolTimeoutMs); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateNonNegative("engine.max_output_bytes", cfg.Engine.MaxOutputBytes); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Metrics.Enabled {
		if err := v.ValidateAddr(cfg.Metrics.Addr); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Tracing.Enabled {
		if err := v.ValidateSampleRatio(cfg.Tracing.SampleRatio); err != nil {
			errors = append(errors, err)
		}
	}

	return errors
}
