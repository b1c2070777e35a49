package models

import (
	"strings"
	"testing"
)

func TestIterationConfigNormalize(t *testing.T) {
	cfg := IterationConfig{MaxIterations: 5}
	cfg.Normalize()

	if cfg.CircuitBreakerThreshold != DefaultCircuitBreakerThreshold {
		t.Errorf("CircuitBreakerThreshold = %d, want %d", cfg.CircuitBreakerThreshold, DefaultCircuitBreakerThreshold)
	}
	if cfg.RegressionWindow != DefaultRegressionWindow {
		t.Errorf("RegressionWindow = %d, want %d", cfg.RegressionWindow, DefaultRegressionWindow)
	}
	if cfg.RegressionDrop != DefaultRegressionDrop {
		t.Errorf("RegressionDrop = %v, want %v", cfg.RegressionDrop, DefaultRegressionDrop)
	}

	// Explicit settings survive normalization.
	cfg = IterationConfig{MaxIterations: 5, CircuitBreakerThreshold: 7, RegressionWindow: 4, RegressionDrop: 25}
	cfg.Normalize()
	if cfg.CircuitBreakerThreshold != 7 || cfg.RegressionWindow != 4 || cfg.RegressionDrop != 25 {
		t.Errorf("normalize overwrote explicit settings: %+v", cfg)
	}
}

func TestIterationConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     IterationConfig
		wantErr string
	}{
		{
			name: "valid",
			cfg: IterationConfig{
				MaxIterations: 10,
				ValidationRules: []ValidationRule{
					{Name: "tests", Type: RuleCommand, Command: &CommandParams{Command: "true"}},
				},
			},
		},
		{
			name:    "zero max iterations",
			cfg:     IterationConfig{},
			wantErr: "max_iterations must be positive",
		},
		{
			name:    "negative max iterations",
			cfg:     IterationConfig{MaxIterations: -1},
			wantErr: "max_iterations must be positive",
		},
		{
			name: "duplicate rule names",
			cfg: IterationConfig{
				MaxIterations: 10,
				ValidationRules: []ValidationRule{
					{Name: "tests", Type: RuleCommand, Command: &CommandParams{Command: "true"}},
					{Name: "tests", Type: RuleCommand, Command: &CommandParams{Command: "false"}},
				},
			},
			wantErr: "duplicate rule name",
		},
		{
			name: "invalid rule",
			cfg: IterationConfig{
				MaxIterations:   10,
				ValidationRules: []ValidationRule{{Name: "broken", Type: RuleType("nope")}},
			},
			wantErr: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSignalTerminal(t *testing.T) {
	if SignalContinue.Terminal() {
		t.Error("CONTINUE should not be terminal")
	}
	for _, s := range []Signal{SignalComplete, SignalBlocked, SignalEscalate} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if Signal("WAT").Valid() {
		t.Error("unknown signal should not be valid")
	}
}

func TestChainOutcomeValid(t *testing.T) {
	for _, o := range []ChainOutcome{OutcomeSuccess, OutcomeBlocked, OutcomeEscalated} {
		if !o.Valid() {
			t.Errorf("%s should be valid", o)
		}
	}
	if ChainOutcome("maybe").Valid() {
		t.Error("unknown outcome should not be valid")
	}
}
