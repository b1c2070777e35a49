package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Defaults.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", cfg.Defaults.MaxIterations)
	}
	if cfg.Guards.CircuitBreakerThreshold != 3 {
		t.Errorf("CircuitBreakerThreshold = %d, want 3", cfg.Guards.CircuitBreakerThreshold)
	}
	if cfg.Timeouts.Command != 2*time.Minute {
		t.Errorf("Command timeout = %s, want 2m", cfg.Timeouts.Command)
	}
	if len(cfg.Patterns.Completion) == 0 || len(cfg.Patterns.Blocked) == 0 {
		t.Error("default patterns missing")
	}
	if cfg.Retention.PurgeAfter != 720*time.Hour {
		t.Errorf("PurgeAfter = %s, want 720h", cfg.Retention.PurgeAfter)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
defaults:
  max_iterations: 7
guards:
  circuit_breaker_threshold: 5
  regression_drop: 20.5
timeouts:
  command: 30s
patterns:
  completion:
    - "ALL DONE"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Defaults.MaxIterations != 7 {
		t.Errorf("MaxIterations = %d, want 7", cfg.Defaults.MaxIterations)
	}
	if cfg.Guards.CircuitBreakerThreshold != 5 {
		t.Errorf("CircuitBreakerThreshold = %d, want 5", cfg.Guards.CircuitBreakerThreshold)
	}
	if cfg.Guards.RegressionDrop != 20.5 {
		t.Errorf("RegressionDrop = %v, want 20.5", cfg.Guards.RegressionDrop)
	}
	if cfg.Timeouts.Command != 30*time.Second {
		t.Errorf("Command timeout = %s, want 30s", cfg.Timeouts.Command)
	}
	if len(cfg.Patterns.Completion) != 1 || cfg.Patterns.Completion[0] != "ALL DONE" {
		t.Errorf("Completion patterns = %v", cfg.Patterns.Completion)
	}
	// Unset keys keep their defaults.
	if cfg.Guards.RegressionWindow != 3 {
		t.Errorf("RegressionWindow = %d, want default 3", cfg.Guards.RegressionWindow)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFromPath should fail on a missing file")
	}
}
