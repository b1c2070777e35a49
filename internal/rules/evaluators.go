package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/iterguard/iterguard/internal/coverage"
	"github.com/iterguard/iterguard/pkg/models"
)

// outputSnippet bounds how much command output is carried in a message.
const outputSnippet = 500

// evaluateCommand runs the rule's shell command in the working directory and
// passes iff the exit code equals the expected one. A timeout or spawn
// failure is an evaluator error, never a silent pass or fail.
func (e *Evaluator) evaluateCommand(ctx context.Context, rule models.ValidationRule, vctx Context) models.ValidationResult {
	result := models.ValidationResult{RuleName: rule.Name}
	params := rule.Command
	if params == nil {
		result.Error = "command rule has no parameters"
		return result
	}

	timeout := e.defaultTimeout
	if params.TimeoutSeconds > 0 {
		timeout = time.Duration(params.TimeoutSeconds) * time.Second
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := e.runner.RunShell(cmdCtx, vctx.WorkDir, params.Command, params.Env)
	if res.TimedOut {
		result.Error = fmt.Sprintf("command timed out after %s", timeout)
		return result
	}
	if res.Err != nil {
		result.Error = fmt.Sprintf("command failed to run: %v", res.Err)
		return result
	}

	result.Passed = res.ExitCode == params.ExpectedExitCode
	result.Details = map[string]any{
		"exit_code": res.ExitCode,
		"command":   params.Command,
	}
	if result.Passed {
		result.Message = fmt.Sprintf("command exited %d", res.ExitCode)
	} else {
		result.Message = fmt.Sprintf("command exited %d, expected %d: %s",
			res.ExitCode, params.ExpectedExitCode, snippet(string(res.Output)))
	}
	return result
}

// evaluatePattern compiles the rule's regex and searches the selected text
// field. Pass iff match-found equals must-match. An invalid regex is an
// evaluator error.
func (e *Evaluator) evaluatePattern(rule models.ValidationRule, vctx Context) models.ValidationResult {
	result := models.ValidationResult{RuleName: rule.Name}
	params := rule.Pattern
	if params == nil {
		result.Error = "content_pattern rule has no parameters"
		return result
	}

	re, err := CompilePattern(params.Pattern, params.Flags)
	if err != nil {
		result.Error = fmt.Sprintf("invalid pattern: %v", err)
		return result
	}

	target := params.Target
	if target == "" {
		target = models.TargetAgentOutput
	}
	text := vctx.TextFor(target)
	var matched string
	loc := re.FindStringIndex(text)
	found := loc != nil
	if found {
		matched = text[loc[0]:loc[1]]
	}

	result.Passed = found == params.WantMatch()
	result.Details = map[string]any{"target": string(target), "matched": found}
	switch {
	case found && params.WantMatch():
		result.Message = fmt.Sprintf("pattern matched %q in %s", snippet(matched), target)
	case found && !params.WantMatch():
		result.Message = fmt.Sprintf("forbidden pattern matched %q in %s", snippet(matched), target)
	case !found && params.WantMatch():
		result.Message = fmt.Sprintf("pattern %q not found in %s", params.Pattern, target)
	default:
		result.Message = fmt.Sprintf("forbidden pattern absent from %s", target)
	}
	return result
}

// CompilePattern compiles pattern with the given flag letters
// ("i" case-insensitive, "m" multi-line, "s" dot-all).
func CompilePattern(pattern, flags string) (*regexp.Regexp, error) {
	if flags != "" {
		for _, f := range flags {
			switch f {
			case 'i', 'm', 's':
			default:
				return nil, fmt.Errorf("unknown regex flag %q", string(f))
			}
		}
		pattern = "(?" + flags + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// evaluateCoverage parses the report at the configured path and compares the
// declared scope's percentage against the minimum. A missing or unparseable
// report is an evaluator error.
func (e *Evaluator) evaluateCoverage(rule models.ValidationRule, vctx Context) models.ValidationResult {
	result := models.ValidationResult{RuleName: rule.Name}
	params := rule.Coverage
	if params == nil {
		result.Error = "coverage rule has no parameters"
		return result
	}

	path := params.ReportPath
	if !strings.HasPrefix(path, "/") && vctx.WorkDir != "" {
		path = vctx.WorkDir + "/" + path
	}

	metrics, err := coverage.ParseFile(path, params.Format)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	scope := params.Scope
	if scope == "" {
		scope = models.CoverageLines
	}
	pct, ok := metrics.Percent(scope)
	if !ok {
		result.Error = fmt.Sprintf("report carries no %s coverage (has %v)", scope, metrics.Scopes())
		return result
	}

	result.Passed = pct >= params.MinCoverage
	result.Details = map[string]any{"percentage": pct, "scope": string(scope)}
	if result.Passed {
		result.Message = fmt.Sprintf("%s coverage %.1f%% >= %.1f%%", scope, pct, params.MinCoverage)
	} else {
		result.Message = fmt.Sprintf("%s coverage %.1f%% below minimum %.1f%%", scope, pct, params.MinCoverage)
	}
	return result
}

// evaluateFiles checks each configured path relative to the working
// directory. Pass iff all exist when all_must_exist, otherwise any one.
func (e *Evaluator) evaluateFiles(rule models.ValidationRule, vctx Context) models.ValidationResult {
	result := models.ValidationResult{RuleName: rule.Name}
	params := rule.FileExistence
	if params == nil {
		result.Error = "file_existence rule has no parameters"
		return result
	}

	var present, missing []string
	for _, p := range params.Paths {
		if e.runner.Exists(vctx.WorkDir, p) {
			present = append(present, p)
		} else {
			missing = append(missing, p)
		}
	}

	if params.AllMustExist {
		result.Passed = len(missing) == 0
	} else {
		result.Passed = len(present) > 0
	}
	result.Details = map[string]any{"present": present, "missing": missing}
	if result.Passed {
		result.Message = fmt.Sprintf("%d/%d paths exist", len(present), len(params.Paths))
	} else if params.AllMustExist {
		result.Message = fmt.Sprintf("missing paths: %s", strings.Join(missing, ", "))
	} else {
		result.Message = fmt.Sprintf("none of %d paths exist", len(params.Paths))
	}
	return result
}

// evaluateCustom dispatches to a registered validator. An unregistered id is
// an evaluator error.
func (e *Evaluator) evaluateCustom(ctx context.Context, rule models.ValidationRule, vctx Context) models.ValidationResult {
	result := models.ValidationResult{RuleName: rule.Name}
	params := rule.Custom
	if params == nil {
		result.Error = "custom rule has no parameters"
		return result
	}

	validator, ok := e.registry.Lookup(params.ValidatorID)
	if !ok {
		result.Error = fmt.Sprintf("no custom validator registered for id %q", params.ValidatorID)
		return result
	}

	passed, message, details, err := validator.Validate(ctx, params.Config, vctx)
	if err != nil {
		result.Error = fmt.Sprintf("custom validator %q: %v", params.ValidatorID, err)
		return result
	}
	result.Passed = passed
	result.Message = message
	result.Details = details
	return result
}

// snippet truncates s for inclusion in a result message.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > outputSnippet {
		return s[:outputSnippet] + "..."
	}
	return s
}
