package models

import (
	"strings"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestValidationRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    ValidationRule
		wantErr string
	}{
		{
			name: "valid command",
			rule: ValidationRule{Name: "tests", Type: RuleCommand, Command: &CommandParams{Command: "go test ./..."}},
		},
		{
			name: "valid pattern",
			rule: ValidationRule{Name: "no-todo", Type: RuleContentPattern,
				Pattern: &ContentPatternParams{Pattern: "TODO", Target: TargetWorkProduct, MustMatch: boolPtr(false)}},
		},
		{
			name: "valid coverage",
			rule: ValidationRule{Name: "cov", Type: RuleCoverage,
				Coverage: &CoverageParams{ReportPath: "cover.out", Format: "go", MinCoverage: 80}},
		},
		{
			name: "valid files",
			rule: ValidationRule{Name: "artifacts", Type: RuleFileExistence,
				FileExistence: &FileExistenceParams{Paths: []string{"dist/app"}}},
		},
		{
			name: "valid custom",
			rule: ValidationRule{Name: "lint", Type: RuleCustom, Custom: &CustomParams{ValidatorID: "lint"}},
		},
		{
			name:    "missing name",
			rule:    ValidationRule{Type: RuleCommand, Command: &CommandParams{Command: "true"}},
			wantErr: "no name",
		},
		{
			name:    "unknown type",
			rule:    ValidationRule{Name: "x", Type: RuleType("magic")},
			wantErr: "unknown type",
		},
		{
			name:    "command without params",
			rule:    ValidationRule{Name: "x", Type: RuleCommand},
			wantErr: "needs command_params.command",
		},
		{
			name:    "pattern without params",
			rule:    ValidationRule{Name: "x", Type: RuleContentPattern},
			wantErr: "needs pattern_params.pattern",
		},
		{
			name: "pattern with bad target",
			rule: ValidationRule{Name: "x", Type: RuleContentPattern,
				Pattern: &ContentPatternParams{Pattern: "ok", Target: PatternTarget("chat")}},
			wantErr: "unknown pattern target",
		},
		{
			name: "coverage out of range",
			rule: ValidationRule{Name: "x", Type: RuleCoverage,
				Coverage: &CoverageParams{ReportPath: "c.out", MinCoverage: 120}},
			wantErr: "min_coverage must be 0-100",
		},
		{
			name:    "files without paths",
			rule:    ValidationRule{Name: "x", Type: RuleFileExistence, FileExistence: &FileExistenceParams{}},
			wantErr: "needs file_params.paths",
		},
		{
			name:    "custom without validator id",
			rule:    ValidationRule{Name: "x", Type: RuleCustom, Custom: &CustomParams{}},
			wantErr: "needs custom_params.validator_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
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

func TestRuleDefaults(t *testing.T) {
	rule := ValidationRule{Name: "x"}
	if !rule.IsEnabled() {
		t.Error("rules should be enabled by default")
	}
	rule.Enabled = boolPtr(false)
	if rule.IsEnabled() {
		t.Error("explicitly disabled rule reported enabled")
	}

	p := ContentPatternParams{}
	if !p.WantMatch() {
		t.Error("must_match should default to true")
	}
	p.MustMatch = boolPtr(false)
	if p.WantMatch() {
		t.Error("must_match=false ignored")
	}
}
