package models

import "time"

// ValidationResult is the outcome of evaluating one rule.
type ValidationResult struct {
	// RuleName identifies the rule this result belongs to.
	RuleName string `json:"rule_name"`
	// Passed is the pass/fail outcome of the check.
	Passed bool `json:"passed"`
	// Message describes the outcome in human terms.
	Message string `json:"message"`
	// DurationMs is how long the evaluator ran.
	DurationMs int64 `json:"duration_ms"`
	// Timestamp is when the evaluation finished.
	Timestamp time.Time `json:"timestamp"`
	// Error records an evaluator-level failure (timeout, bad regex,
	// unreadable report). Distinct from a failed check: an errored result
	// has Passed == false and a non-empty Error.
	Error string `json:"error,omitempty"`
	// Details carries optional structured evaluator output.
	Details map[string]any `json:"details,omitempty"`
}

// Errored returns true if the evaluator itself failed to execute.
func (r ValidationResult) Errored() bool {
	return r.Error != ""
}

// ValidationReport aggregates one validate pass over a rule set.
type ValidationReport struct {
	TaskID          string             `json:"task_id"`
	IterationNumber int                `json:"iteration_number"`
	Results         []ValidationResult `json:"results"`
	// OverallPassed is true iff every enabled rule passed.
	OverallPassed bool `json:"overall_passed"`
	PassedRules   int  `json:"passed_rules"`
	FailedRules   int  `json:"failed_rules"`
	ErroredRules  int  `json:"errored_rules"`
	TotalDuration int64 `json:"total_duration_ms"`
	// ValidationScore is 100 * passed / enabled. Errored rules count as
	// failures so evaluator crashes never inflate apparent success.
	ValidationScore float64   `json:"validation_score"`
	ValidatedAt     time.Time `json:"validated_at"`
}

// FailureMessages returns the messages of failed and errored results, for
// feedback to the caller and for circuit-breaker evidence.
func (r ValidationReport) FailureMessages() []string {
	var msgs []string
	for _, res := range r.Results {
		if res.Passed {
			continue
		}
		msg := res.Message
		if res.Error != "" {
			msg = res.RuleName + ": " + res.Error
		} else if msg != "" {
			msg = res.RuleName + ": " + msg
		} else {
			msg = res.RuleName + " failed"
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
