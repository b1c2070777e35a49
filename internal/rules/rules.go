// Package rules evaluates validation rules. Each evaluator checks one
// concrete condition (shell command exit code, regex match, coverage
// threshold, file existence, custom check) and returns a pass/fail result
// with a message. Evaluator failures are captured on the result, never
// propagated: a single bad rule must not abort a whole report.
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/iterguard/iterguard/internal/exec"
	"github.com/iterguard/iterguard/pkg/models"
)

// DefaultCommandTimeout bounds command rules that don't set their own.
const DefaultCommandTimeout = 2 * time.Minute

// Context supplies the read-only session state evaluators check against.
type Context struct {
	// WorkDir is the task's working directory.
	WorkDir string
	// AgentOutput is the caller's latest free-text output.
	AgentOutput string
	// TaskNotes is the caller's free-text task notes.
	TaskNotes string
	// WorkProduct is the latest work-product text.
	WorkProduct string
}

// TextFor returns the text field a pattern target selects.
func (c Context) TextFor(target models.PatternTarget) string {
	switch target {
	case models.TargetTaskNotes:
		return c.TaskNotes
	case models.TargetWorkProduct:
		return c.WorkProduct
	default:
		return c.AgentOutput
	}
}

// Evaluator runs individual validation rules.
type Evaluator struct {
	runner         exec.CommandRunner
	registry       *Registry
	defaultTimeout time.Duration
}

// NewEvaluator creates an evaluator backed by the given command runner and
// custom-validator registry. A nil registry means no custom validators.
func NewEvaluator(runner exec.CommandRunner, registry *Registry) *Evaluator {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Evaluator{
		runner:         runner,
		registry:       registry,
		defaultTimeout: DefaultCommandTimeout,
	}
}

// SetDefaultTimeout overrides the timeout applied to command rules that
// don't configure their own.
func (e *Evaluator) SetDefaultTimeout(d time.Duration) {
	if d > 0 {
		e.defaultTimeout = d
	}
}

// Registry returns the custom-validator registry.
func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// Evaluate runs one rule and returns its result. A panicking evaluator is
// captured as an errored result.
func (e *Evaluator) Evaluate(ctx context.Context, rule models.ValidationRule, vctx Context) (result models.ValidationResult) {
	start := time.Now()
	result = models.ValidationResult{RuleName: rule.Name}

	defer func() {
		if r := recover(); r != nil {
			result.Passed = false
			result.Error = fmt.Sprintf("evaluator panic: %v", r)
		}
		result.DurationMs = time.Since(start).Milliseconds()
		result.Timestamp = time.Now().UTC()
	}()

	switch rule.Type {
	case models.RuleCommand:
		result = e.evaluateCommand(ctx, rule, vctx)
	case models.RuleContentPattern:
		result = e.evaluatePattern(rule, vctx)
	case models.RuleCoverage:
		result = e.evaluateCoverage(rule, vctx)
	case models.RuleFileExistence:
		result = e.evaluateFiles(rule, vctx)
	case models.RuleCustom:
		result = e.evaluateCustom(ctx, rule, vctx)
	default:
		result.Error = fmt.Sprintf("unknown rule type %q", rule.Type)
	}

	return result
}
