package models

import "fmt"

// Default guard settings. The regression window and drop threshold are
// configurable per session; these are the documented defaults.
const (
	DefaultCircuitBreakerThreshold = 3
	DefaultRegressionWindow        = 3
	DefaultRegressionDrop          = 10.0
)

// IterationConfig is the immutable per-session configuration. Every
// checkpoint in one chain carries an identical copy; lowering MaxIterations
// to force an early stop means starting a new chain, not editing history.
type IterationConfig struct {
	// MaxIterations is the iteration ceiling. Must be positive.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// CircuitBreakerThreshold is the consecutive-failure count that forces
	// escalation. Defaults to 3.
	CircuitBreakerThreshold int `json:"circuit_breaker_threshold" yaml:"circuit_breaker_threshold"`
	// CompletionPatterns are regexes matched against agent output to detect
	// an explicit completion claim.
	CompletionPatterns []string `json:"completion_patterns" yaml:"completion_patterns"`
	// BlockedPatterns are regexes matched against agent output to detect an
	// explicit blocked report. Blocked beats complete in the same output.
	BlockedPatterns []string `json:"blocked_patterns" yaml:"blocked_patterns"`
	// ValidationRules are evaluated every validate call.
	ValidationRules []ValidationRule `json:"validation_rules" yaml:"validation_rules"`
	// RegressionWindow is the number of recent scores the quality-regression
	// guard inspects. Defaults to 3.
	RegressionWindow int `json:"regression_window,omitempty" yaml:"regression_window,omitempty"`
	// RegressionDrop is the cumulative score drop across the window that
	// counts as a regression. Defaults to 10.
	RegressionDrop float64 `json:"regression_drop,omitempty" yaml:"regression_drop,omitempty"`
}

// Normalize fills zero-valued guard settings with their defaults.
func (c *IterationConfig) Normalize() {
	if c.CircuitBreakerThreshold <= 0 {
		c.CircuitBreakerThreshold = DefaultCircuitBreakerThreshold
	}
	if c.RegressionWindow <= 0 {
		c.RegressionWindow = DefaultRegressionWindow
	}
	if c.RegressionDrop <= 0 {
		c.RegressionDrop = DefaultRegressionDrop
	}
}

// Validate checks the config before a session starts. Rule names must be
// unique within the config.
func (c IterationConfig) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.CircuitBreakerThreshold < 0 {
		return fmt.Errorf("circuit_breaker_threshold must be positive, got %d", c.CircuitBreakerThreshold)
	}

	seen := make(map[string]bool, len(c.ValidationRules))
	for _, rule := range c.ValidationRules {
		if err := rule.Validate(); err != nil {
			return err
		}
		if seen[rule.Name] {
			return fmt.Errorf("duplicate rule name %q", rule.Name)
		}
		seen[rule.Name] = true
	}

	return nil
}
