package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iterguard/iterguard/pkg/models"
)

// RuleFile is the YAML schema of a session rule file passed to
// `iterguard start --rules`. Fields left zero fall back to the loaded
// Config's defaults.
//
//	max_iterations: 8
//	circuit_breaker_threshold: 3
//	completion_patterns: ["(?i)^TASK COMPLETE"]
//	blocked_patterns: ["(?i)^TASK BLOCKED"]
//	rules:
//	  - name: unit-tests
//	    type: command
//	    command_params:
//	      command: go test ./...
//	      timeout_seconds: 300
//	  - name: coverage-floor
//	    type: coverage
//	    coverage_params:
//	      report_path: coverage.out.txt
//	      format: go
//	      min_coverage: 70
type RuleFile struct {
	MaxIterations           int                     `yaml:"max_iterations"`
	CircuitBreakerThreshold int                     `yaml:"circuit_breaker_threshold"`
	RegressionWindow        int                     `yaml:"regression_window"`
	RegressionDrop          float64                 `yaml:"regression_drop"`
	CompletionPatterns      []string                `yaml:"completion_patterns"`
	BlockedPatterns         []string                `yaml:"blocked_patterns"`
	Rules                   []models.ValidationRule `yaml:"rules"`
}

// LoadRuleFile parses a session rule file.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	return &rf, nil
}

// IterationConfig merges the rule file over the loaded defaults into the
// immutable per-session config.
func (rf *RuleFile) IterationConfig(cfg *Config) models.IterationConfig {
	out := models.IterationConfig{
		MaxIterations:           cfg.Defaults.MaxIterations,
		CircuitBreakerThreshold: cfg.Guards.CircuitBreakerThreshold,
		RegressionWindow:        cfg.Guards.RegressionWindow,
		RegressionDrop:          cfg.Guards.RegressionDrop,
		CompletionPatterns:      cfg.Patterns.Completion,
		BlockedPatterns:         cfg.Patterns.Blocked,
		ValidationRules:         rf.Rules,
	}

	if rf.MaxIterations > 0 {
		out.MaxIterations = rf.MaxIterations
	}
	if rf.CircuitBreakerThreshold > 0 {
		out.CircuitBreakerThreshold = rf.CircuitBreakerThreshold
	}
	if rf.RegressionWindow > 0 {
		out.RegressionWindow = rf.RegressionWindow
	}
	if rf.RegressionDrop > 0 {
		out.RegressionDrop = rf.RegressionDrop
	}
	if len(rf.CompletionPatterns) > 0 {
		out.CompletionPatterns = rf.CompletionPatterns
	}
	if len(rf.BlockedPatterns) > 0 {
		out.BlockedPatterns = rf.BlockedPatterns
	}

	return out
}
