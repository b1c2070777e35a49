package rules

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iterguard/iterguard/internal/exec"
	"github.com/iterguard/iterguard/pkg/models"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	return NewEvaluator(exec.NewRunner(), NewRegistry())
}

func boolPtr(b bool) *bool { return &b }

func TestEvaluateCommand(t *testing.T) {
	e := newTestEvaluator(t)
	workDir := t.TempDir()

	tests := []struct {
		name       string
		params     models.CommandParams
		wantPassed bool
		wantErr    bool
	}{
		{
			name:       "exit zero passes",
			params:     models.CommandParams{Command: "true"},
			wantPassed: true,
		},
		{
			name:       "exit nonzero fails",
			params:     models.CommandParams{Command: "false"},
			wantPassed: false,
		},
		{
			name:       "expected nonzero exit passes",
			params:     models.CommandParams{Command: "exit 3", ExpectedExitCode: 3},
			wantPassed: true,
		},
		{
			name:       "env reaches the command",
			params:     models.CommandParams{Command: `test "$GUARD_TEST" = yes`, Env: []string{"GUARD_TEST=yes"}},
			wantPassed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := models.ValidationRule{Name: "cmd", Type: models.RuleCommand, Command: &tt.params}
			result := e.Evaluate(context.Background(), rule, Context{WorkDir: workDir})
			if result.Errored() != tt.wantErr {
				t.Fatalf("Errored() = %v (%s), want %v", result.Errored(), result.Error, tt.wantErr)
			}
			if result.Passed != tt.wantPassed {
				t.Errorf("Passed = %v (%s), want %v", result.Passed, result.Message, tt.wantPassed)
			}
		})
	}
}

func TestEvaluateCommandTimeout(t *testing.T) {
	e := newTestEvaluator(t)
	rule := models.ValidationRule{
		Name: "slow",
		Type: models.RuleCommand,
		Command: &models.CommandParams{
			Command:        "sleep 5",
			TimeoutSeconds: 1,
		},
	}

	start := time.Now()
	result := e.Evaluate(context.Background(), rule, Context{WorkDir: t.TempDir()})
	if time.Since(start) > 3*time.Second {
		t.Fatal("timeout did not kill the command")
	}
	if !result.Errored() {
		t.Fatalf("timed-out command should be an evaluator error, got %+v", result)
	}
	if !strings.Contains(result.Error, "timed out") {
		t.Errorf("Error = %q, want mention of timeout", result.Error)
	}
	if result.Passed {
		t.Error("timed-out command must not pass")
	}
}

func TestEvaluateCommandRunsInWorkDir(t *testing.T) {
	e := newTestEvaluator(t)
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "marker.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	rule := models.ValidationRule{Name: "ls", Type: models.RuleCommand,
		Command: &models.CommandParams{Command: "test -f marker.txt"}}
	result := e.Evaluate(context.Background(), rule, Context{WorkDir: workDir})
	if !result.Passed {
		t.Errorf("command did not run in the working directory: %s", result.Message)
	}
}

func TestEvaluatePattern(t *testing.T) {
	e := newTestEvaluator(t)
	vctx := Context{
		AgentOutput: "All 42 tests passed.\nTASK COMPLETE",
		TaskNotes:   "remember the TODO list",
		WorkProduct: "final draft",
	}

	tests := []struct {
		name       string
		params     models.ContentPatternParams
		wantPassed bool
		wantErr    bool
	}{
		{
			name:       "match in default target",
			params:     models.ContentPatternParams{Pattern: `\d+ tests passed`},
			wantPassed: true,
		},
		{
			name:       "case-insensitive flag",
			params:     models.ContentPatternParams{Pattern: "task complete", Flags: "i"},
			wantPassed: true,
		},
		{
			name:       "no match fails when must match",
			params:     models.ContentPatternParams{Pattern: "deployment finished"},
			wantPassed: false,
		},
		{
			name:       "forbidden pattern absent passes",
			params:     models.ContentPatternParams{Pattern: "TODO", Target: models.TargetWorkProduct, MustMatch: boolPtr(false)},
			wantPassed: true,
		},
		{
			name:       "forbidden pattern present fails",
			params:     models.ContentPatternParams{Pattern: "TODO", Target: models.TargetTaskNotes, MustMatch: boolPtr(false)},
			wantPassed: false,
		},
		{
			name:    "invalid regex is an error",
			params:  models.ContentPatternParams{Pattern: "("},
			wantErr: true,
		},
		{
			name:    "unknown flag is an error",
			params:  models.ContentPatternParams{Pattern: "x", Flags: "g"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := models.ValidationRule{Name: "pat", Type: models.RuleContentPattern, Pattern: &tt.params}
			result := e.Evaluate(context.Background(), rule, vctx)
			if result.Errored() != tt.wantErr {
				t.Fatalf("Errored() = %v (%s), want %v", result.Errored(), result.Error, tt.wantErr)
			}
			if !tt.wantErr && result.Passed != tt.wantPassed {
				t.Errorf("Passed = %v (%s), want %v", result.Passed, result.Message, tt.wantPassed)
			}
		})
	}
}

func TestEvaluatePatternEmptyWidthMatch(t *testing.T) {
	e := newTestEvaluator(t)
	rule := models.ValidationRule{
		Name:    "output-empty",
		Type:    models.RuleContentPattern,
		Pattern: &models.ContentPatternParams{Pattern: `^$`},
	}

	result := e.Evaluate(context.Background(), rule, Context{AgentOutput: ""})
	if result.Errored() {
		t.Fatalf("Errored: %s", result.Error)
	}
	if !result.Passed {
		t.Fatal("empty-width match on empty output should count as a match")
	}
}

func TestEvaluateCoverage(t *testing.T) {
	e := newTestEvaluator(t)
	workDir := t.TempDir()

	report := "total:\t(statements)\t82.1%\n"
	if err := os.WriteFile(filepath.Join(workDir, "cover.txt"), []byte(report), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		params     models.CoverageParams
		wantPassed bool
		wantErr    bool
	}{
		{
			name:       "above threshold passes",
			params:     models.CoverageParams{ReportPath: "cover.txt", Format: "go", MinCoverage: 80},
			wantPassed: true,
		},
		{
			name:       "below threshold fails",
			params:     models.CoverageParams{ReportPath: "cover.txt", Format: "go", MinCoverage: 90},
			wantPassed: false,
		},
		{
			name:    "missing report is an error",
			params:  models.CoverageParams{ReportPath: "absent.txt", Format: "go", MinCoverage: 50},
			wantErr: true,
		},
		{
			name:    "scope not in report is an error",
			params:  models.CoverageParams{ReportPath: "cover.txt", Format: "go", MinCoverage: 50, Scope: models.CoverageBranches},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := models.ValidationRule{Name: "cov", Type: models.RuleCoverage, Coverage: &tt.params}
			result := e.Evaluate(context.Background(), rule, Context{WorkDir: workDir})
			if result.Errored() != tt.wantErr {
				t.Fatalf("Errored() = %v (%s), want %v", result.Errored(), result.Error, tt.wantErr)
			}
			if !tt.wantErr && result.Passed != tt.wantPassed {
				t.Errorf("Passed = %v (%s), want %v", result.Passed, result.Message, tt.wantPassed)
			}
		})
	}
}

func TestEvaluateFiles(t *testing.T) {
	e := newTestEvaluator(t)
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "present.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		params     models.FileExistenceParams
		wantPassed bool
	}{
		{
			name:       "all exist",
			params:     models.FileExistenceParams{Paths: []string{"present.txt"}, AllMustExist: true},
			wantPassed: true,
		},
		{
			name:       "one missing fails all_must_exist",
			params:     models.FileExistenceParams{Paths: []string{"present.txt", "missing.txt"}, AllMustExist: true},
			wantPassed: false,
		},
		{
			name:       "any-mode passes with one present",
			params:     models.FileExistenceParams{Paths: []string{"present.txt", "missing.txt"}},
			wantPassed: true,
		},
		{
			name:       "any-mode fails with none present",
			params:     models.FileExistenceParams{Paths: []string{"missing.txt", "also-missing.txt"}},
			wantPassed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := models.ValidationRule{Name: "files", Type: models.RuleFileExistence, FileExistence: &tt.params}
			result := e.Evaluate(context.Background(), rule, Context{WorkDir: workDir})
			if result.Passed != tt.wantPassed {
				t.Errorf("Passed = %v (%s), want %v", result.Passed, result.Message, tt.wantPassed)
			}
		})
	}
}

func TestEvaluateCustom(t *testing.T) {
	e := newTestEvaluator(t)
	err := e.Registry().Register("always-pass", CustomValidatorFunc(
		func(ctx context.Context, cfg map[string]any, vctx Context) (bool, string, map[string]any, error) {
			return true, "ok", nil, nil
		}))
	if err != nil {
		t.Fatal(err)
	}

	rule := models.ValidationRule{Name: "custom", Type: models.RuleCustom,
		Custom: &models.CustomParams{ValidatorID: "always-pass"}}
	result := e.Evaluate(context.Background(), rule, Context{})
	if !result.Passed {
		t.Errorf("registered validator should pass: %+v", result)
	}

	rule.Custom.ValidatorID = "nobody-home"
	result = e.Evaluate(context.Background(), rule, Context{})
	if !result.Errored() {
		t.Error("unregistered validator should be an evaluator error")
	}
	if result.Passed {
		t.Error("unregistered validator must not pass")
	}
}

func TestEvaluateUnknownType(t *testing.T) {
	e := newTestEvaluator(t)
	rule := models.ValidationRule{Name: "x", Type: models.RuleType("telepathy")}
	result := e.Evaluate(context.Background(), rule, Context{})
	if !result.Errored() {
		t.Error("unknown rule type should be an evaluator error")
	}
}
