// Package validation orchestrates rule evaluation for one iteration and
// detects completion signals in agent output. It aggregates per-rule results
// into a report with a 0-100 validation score.
package validation

import (
	"context"
	"sort"
	"time"

	"github.com/iterguard/iterguard/internal/exec"
	"github.com/iterguard/iterguard/internal/rules"
	"github.com/iterguard/iterguard/pkg/models"
)

// Engine evaluates a rule set against session state.
type Engine struct {
	evaluator *rules.Evaluator
}

// NewEngine creates an engine backed by the given command runner and
// custom-validator registry.
func NewEngine(runner exec.CommandRunner, registry *rules.Registry) *Engine {
	return &Engine{evaluator: rules.NewEvaluator(runner, registry)}
}

// SetDefaultCommandTimeout overrides the timeout for command rules without
// their own.
func (e *Engine) SetDefaultCommandTimeout(d time.Duration) {
	e.evaluator.SetDefaultTimeout(d)
}

// Registry returns the custom-validator registry.
func (e *Engine) Registry() *rules.Registry {
	return e.evaluator.Registry()
}

// Validate evaluates every enabled rule exactly once and aggregates the
// results. Rule evaluation is order-insensitive for correctness; results are
// sorted by rule name for display only. Disabled rules are skipped and
// excluded from all counts. An errored rule counts as a failure for scoring
// so evaluator crashes never inflate apparent success.
func (e *Engine) Validate(ctx context.Context, ruleSet []models.ValidationRule, vctx rules.Context, taskID string, iteration int) *models.ValidationReport {
	start := time.Now()
	report := &models.ValidationReport{
		TaskID:          taskID,
		IterationNumber: iteration,
	}

	for _, rule := range ruleSet {
		if !rule.IsEnabled() {
			continue
		}
		result := e.evaluator.Evaluate(ctx, rule, vctx)
		report.Results = append(report.Results, result)

		switch {
		case result.Errored():
			report.ErroredRules++
		case result.Passed:
			report.PassedRules++
		default:
			report.FailedRules++
		}
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].RuleName < report.Results[j].RuleName
	})

	enabled := report.PassedRules + report.FailedRules + report.ErroredRules
	if enabled == 0 {
		report.ValidationScore = 100
	} else {
		report.ValidationScore = 100 * float64(report.PassedRules) / float64(enabled)
	}
	report.OverallPassed = report.FailedRules == 0 && report.ErroredRules == 0
	report.TotalDuration = time.Since(start).Milliseconds()
	report.ValidatedAt = time.Now().UTC()

	return report
}
