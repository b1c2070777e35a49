package models

import "fmt"

// RuleType identifies which evaluator a validation rule dispatches to.
type RuleType string

const (
	// RuleCommand runs a shell command and checks its exit code.
	RuleCommand RuleType = "command"
	// RuleContentPattern matches a regex against a session text field.
	RuleContentPattern RuleType = "content_pattern"
	// RuleCoverage parses a coverage report and checks a threshold.
	RuleCoverage RuleType = "coverage"
	// RuleFileExistence checks that paths exist in the working directory.
	RuleFileExistence RuleType = "file_existence"
	// RuleCustom dispatches to a caller-registered validator.
	RuleCustom RuleType = "custom"
)

// Valid returns true if the rule type is a known value.
func (t RuleType) Valid() bool {
	switch t {
	case RuleCommand, RuleContentPattern, RuleCoverage, RuleFileExistence, RuleCustom:
		return true
	default:
		return false
	}
}

// PatternTarget selects which session text a content_pattern rule searches.
type PatternTarget string

const (
	// TargetAgentOutput searches the agent's latest free-text output.
	TargetAgentOutput PatternTarget = "agent_output"
	// TargetTaskNotes searches the caller's task notes.
	TargetTaskNotes PatternTarget = "task_notes"
	// TargetWorkProduct searches the latest work-product text.
	TargetWorkProduct PatternTarget = "work_product"
)

// Valid returns true if the target is a known value.
func (t PatternTarget) Valid() bool {
	switch t {
	case TargetAgentOutput, TargetTaskNotes, TargetWorkProduct:
		return true
	default:
		return false
	}
}

// CoverageScope selects which percentage a coverage rule reads from a report.
type CoverageScope string

const (
	CoverageLines      CoverageScope = "lines"
	CoverageBranches   CoverageScope = "branches"
	CoverageFunctions  CoverageScope = "functions"
	CoverageStatements CoverageScope = "statements"
)

// Valid returns true if the scope is a known value.
func (s CoverageScope) Valid() bool {
	switch s {
	case CoverageLines, CoverageBranches, CoverageFunctions, CoverageStatements:
		return true
	default:
		return false
	}
}

// CommandParams configures a command rule.
type CommandParams struct {
	// Command is the shell command, run through "sh -c" in the working directory.
	Command string `json:"command" yaml:"command"`
	// ExpectedExitCode is the exit code that counts as a pass. Defaults to 0.
	ExpectedExitCode int `json:"expected_exit_code" yaml:"expected_exit_code"`
	// TimeoutSeconds is the hard kill deadline. Defaults to the engine's
	// configured command timeout when zero.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	// Env holds KEY=VALUE overrides appended to the inherited environment.
	Env []string `json:"env,omitempty" yaml:"env,omitempty"`
}

// ContentPatternParams configures a content_pattern rule.
type ContentPatternParams struct {
	// Pattern is the regular expression to compile.
	Pattern string `json:"pattern" yaml:"pattern"`
	// Flags holds regex flags ("i" case-insensitive, "m" multi-line, "s" dot-all).
	Flags string `json:"flags,omitempty" yaml:"flags,omitempty"`
	// Target selects which session text to search. Defaults to agent_output.
	Target PatternTarget `json:"target,omitempty" yaml:"target,omitempty"`
	// MustMatch: pass iff match-found equals this. Defaults to true.
	MustMatch *bool `json:"must_match,omitempty" yaml:"must_match,omitempty"`
}

// WantMatch resolves the MustMatch default.
func (p ContentPatternParams) WantMatch() bool {
	if p.MustMatch == nil {
		return true
	}
	return *p.MustMatch
}

// CoverageParams configures a coverage rule.
type CoverageParams struct {
	// ReportPath is the coverage report, relative to the working directory.
	ReportPath string `json:"report_path" yaml:"report_path"`
	// Format is one of: go, lcov, cobertura, json-summary.
	Format string `json:"format" yaml:"format"`
	// MinCoverage is the minimum acceptable percentage (0-100).
	MinCoverage float64 `json:"min_coverage" yaml:"min_coverage"`
	// Scope selects which metric to compare. Defaults to lines.
	Scope CoverageScope `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// FileExistenceParams configures a file_existence rule.
type FileExistenceParams struct {
	// Paths are checked relative to the working directory.
	Paths []string `json:"paths" yaml:"paths"`
	// AllMustExist: pass iff all paths exist; otherwise any one suffices.
	AllMustExist bool `json:"all_must_exist" yaml:"all_must_exist"`
}

// CustomParams configures a custom rule.
type CustomParams struct {
	// ValidatorID names a validator registered at engine construction.
	ValidatorID string `json:"validator_id" yaml:"validator_id"`
	// Config is an opaque blob handed to the validator.
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// ValidationRule is a declarative, named check. Exactly one of the parameter
// blocks matching Type must be set.
type ValidationRule struct {
	// Name is unique within a config.
	Name string `json:"name" yaml:"name"`
	// Type selects the evaluator.
	Type RuleType `json:"type" yaml:"type"`
	// Enabled rules are evaluated; disabled rules are skipped and excluded
	// from all counts. Defaults to true.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	Command       *CommandParams        `json:"command_params,omitempty" yaml:"command_params,omitempty"`
	Pattern       *ContentPatternParams `json:"pattern_params,omitempty" yaml:"pattern_params,omitempty"`
	Coverage      *CoverageParams       `json:"coverage_params,omitempty" yaml:"coverage_params,omitempty"`
	FileExistence *FileExistenceParams  `json:"file_params,omitempty" yaml:"file_params,omitempty"`
	Custom        *CustomParams         `json:"custom_params,omitempty" yaml:"custom_params,omitempty"`
}

// IsEnabled resolves the Enabled default.
func (r ValidationRule) IsEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// Validate checks that the rule is well-formed: a name, a known type, and
// the matching parameter block present.
func (r ValidationRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule has no name")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("rule %q: unknown type %q", r.Name, r.Type)
	}

	switch r.Type {
	case RuleCommand:
		if r.Command == nil || r.Command.Command == "" {
			return fmt.Errorf("rule %q: command rule needs command_params.command", r.Name)
		}
	case RuleContentPattern:
		if r.Pattern == nil || r.Pattern.Pattern == "" {
			return fmt.Errorf("rule %q: content_pattern rule needs pattern_params.pattern", r.Name)
		}
		if r.Pattern.Target != "" && !r.Pattern.Target.Valid() {
			return fmt.Errorf("rule %q: unknown pattern target %q", r.Name, r.Pattern.Target)
		}
	case RuleCoverage:
		if r.Coverage == nil || r.Coverage.ReportPath == "" {
			return fmt.Errorf("rule %q: coverage rule needs coverage_params.report_path", r.Name)
		}
		if r.Coverage.Scope != "" && !r.Coverage.Scope.Valid() {
			return fmt.Errorf("rule %q: unknown coverage scope %q", r.Name, r.Coverage.Scope)
		}
		if r.Coverage.MinCoverage < 0 || r.Coverage.MinCoverage > 100 {
			return fmt.Errorf("rule %q: min_coverage must be 0-100, got %v", r.Name, r.Coverage.MinCoverage)
		}
	case RuleFileExistence:
		if r.FileExistence == nil || len(r.FileExistence.Paths) == 0 {
			return fmt.Errorf("rule %q: file_existence rule needs file_params.paths", r.Name)
		}
	case RuleCustom:
		if r.Custom == nil || r.Custom.ValidatorID == "" {
			return fmt.Errorf("rule %q: custom rule needs custom_params.validator_id", r.Name)
		}
	}

	return nil
}
