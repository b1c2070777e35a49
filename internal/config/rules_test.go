package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iterguard/iterguard/pkg/models"
)

const ruleFileYAML = `
max_iterations: 8
circuit_breaker_threshold: 4
completion_patterns:
  - "(?i)^SHIP IT"
rules:
  - name: unit-tests
    type: command
    command_params:
      command: go test ./...
      timeout_seconds: 300
  - name: no-debug-prints
    type: content_pattern
    pattern_params:
      pattern: "fmt.Println"
      target: work_product
      must_match: false
  - name: coverage-floor
    type: coverage
    coverage_params:
      report_path: cover.txt
      format: go
      min_coverage: 70
  - name: build-artifact
    type: file_existence
    enabled: false
    file_params:
      paths: ["dist/app"]
      all_must_exist: true
`

func TestLoadRuleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(ruleFileYAML), 0644); err != nil {
		t.Fatal(err)
	}

	rf, err := LoadRuleFile(path)
	if err != nil {
		t.Fatalf("LoadRuleFile: %v", err)
	}

	if rf.MaxIterations != 8 || rf.CircuitBreakerThreshold != 4 {
		t.Errorf("overrides = %d/%d, want 8/4", rf.MaxIterations, rf.CircuitBreakerThreshold)
	}
	if len(rf.Rules) != 4 {
		t.Fatalf("rules = %d, want 4", len(rf.Rules))
	}

	cmd := rf.Rules[0]
	if cmd.Type != models.RuleCommand || cmd.Command == nil || cmd.Command.TimeoutSeconds != 300 {
		t.Errorf("command rule = %+v", cmd)
	}
	pat := rf.Rules[1]
	if pat.Pattern == nil || pat.Pattern.Target != models.TargetWorkProduct || pat.Pattern.WantMatch() {
		t.Errorf("pattern rule = %+v", pat)
	}
	disabled := rf.Rules[3]
	if disabled.IsEnabled() {
		t.Error("enabled: false not honored")
	}
}

func TestLoadRuleFileErrors(t *testing.T) {
	if _, err := LoadRuleFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadRuleFile should fail on a missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("rules: [not: {valid"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRuleFile(path); err == nil {
		t.Fatal("LoadRuleFile should fail on malformed YAML")
	}
}

func TestIterationConfigMerge(t *testing.T) {
	cfg := Default()

	// An empty rule file inherits everything from the defaults.
	empty := &RuleFile{}
	merged := empty.IterationConfig(cfg)
	if merged.MaxIterations != 10 || merged.CircuitBreakerThreshold != 3 {
		t.Errorf("empty merge = %+v", merged)
	}
	if len(merged.CompletionPatterns) == 0 {
		t.Error("default completion patterns not inherited")
	}

	// Overrides win where set.
	rf := &RuleFile{
		MaxIterations:      8,
		CompletionPatterns: []string{"SHIP IT"},
		RegressionDrop:     30,
	}
	merged = rf.IterationConfig(cfg)
	if merged.MaxIterations != 8 {
		t.Errorf("MaxIterations = %d, want 8", merged.MaxIterations)
	}
	if len(merged.CompletionPatterns) != 1 || merged.CompletionPatterns[0] != "SHIP IT" {
		t.Errorf("CompletionPatterns = %v", merged.CompletionPatterns)
	}
	if merged.RegressionDrop != 30 {
		t.Errorf("RegressionDrop = %v, want 30", merged.RegressionDrop)
	}
	// Blocked patterns were not overridden.
	if len(merged.BlockedPatterns) != len(cfg.Patterns.Blocked) {
		t.Errorf("BlockedPatterns = %v", merged.BlockedPatterns)
	}
}
