// Package guards implements the safety checks that force a chain to
// escalate before the loop becomes a runaway cost sink. Guards share one
// signature, are pure functions of the session state they receive, and are
// evaluated short-circuit in a fixed order: iteration ceiling, circuit
// breaker, quality regression. The controller persists the resulting signal;
// guards never mutate stored state themselves.
package guards

import (
	"fmt"
	"strings"

	"github.com/iterguard/iterguard/pkg/models"
)

// Input is the session state a guard inspects: the immutable config, the
// history of completed iterations, the current validation report, and the
// signal the completion detector produced this round.
type Input struct {
	Config   models.IterationConfig
	History  []models.HistoryEntry
	Report   *models.ValidationReport
	Detected models.Signal
}

// Escalation is a guard's decision to halt the chain, with the evidence a
// human reviewing the task needs to understand why automation stopped.
type Escalation struct {
	// Guard names the guard that fired.
	Guard string
	// Reason is the short headline ("max iterations reached").
	Reason string
	// Evidence carries the supporting detail (last failure message, score trend).
	Evidence string
}

// Guard checks one halting condition. A nil return means no escalation.
type Guard struct {
	Name  string
	Check func(Input) *Escalation
}

// Stack is an ordered list of guards evaluated short-circuit.
type Stack []Guard

// DefaultStack returns the required guard order: iteration ceiling, circuit
// breaker, quality regression.
func DefaultStack() Stack {
	return Stack{
		{Name: "iteration_ceiling", Check: IterationCeiling},
		{Name: "circuit_breaker", Check: CircuitBreaker},
		{Name: "quality_regression", Check: QualityRegression},
	}
}

// Evaluate runs the stack in order and returns the first escalation, if any.
func (s Stack) Evaluate(in Input) *Escalation {
	for _, g := range s {
		if esc := g.Check(in); esc != nil {
			return esc
		}
	}
	return nil
}

// IterationCeiling escalates once the iteration number reaches the
// configured maximum without a completion signal detected this round.
func IterationCeiling(in Input) *Escalation {
	if in.Report == nil {
		return nil
	}
	if in.Detected == models.SignalComplete || in.Detected == models.SignalBlocked {
		return nil
	}
	if in.Report.IterationNumber < in.Config.MaxIterations {
		return nil
	}
	return &Escalation{
		Guard:  "iteration_ceiling",
		Reason: "max iterations reached",
		Evidence: fmt.Sprintf("iteration %d of %d without a completion signal",
			in.Report.IterationNumber, in.Config.MaxIterations),
	}
}

// CircuitBreaker escalates when the consecutive-failure streak reaches the
// configured threshold. The streak is derived from history plus the current
// report; one passing report resets it to zero, so the breaker measures
// current streaks, not lifetime failures.
func CircuitBreaker(in Input) *Escalation {
	if in.Report == nil {
		return nil
	}
	streak := FailureStreak(in.History, in.Report)
	if streak < in.Config.CircuitBreakerThreshold {
		return nil
	}

	evidence := fmt.Sprintf("%d consecutive validation failures", streak)
	if msgs := in.Report.FailureMessages(); len(msgs) > 0 {
		evidence = msgs[len(msgs)-1]
	}
	return &Escalation{
		Guard:    "circuit_breaker",
		Reason:   fmt.Sprintf("circuit breaker tripped after %d consecutive failures", streak),
		Evidence: evidence,
	}
}

// FailureStreak counts the trailing run of failed iterations ending with the
// current report. A passing current report always yields zero.
func FailureStreak(history []models.HistoryEntry, report *models.ValidationReport) int {
	if report == nil || report.OverallPassed {
		return 0
	}
	streak := 1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Passed {
			break
		}
		streak++
	}
	return streak
}

// QualityRegression escalates when the recent validation scores strictly
// decline across the configured window and the cumulative drop exceeds the
// configured threshold. The window requirement avoids false positives from
// single-iteration noise; plateaus break the decline, because a repeated
// score is a stall for the circuit breaker, not a regression.
func QualityRegression(in Input) *Escalation {
	if in.Report == nil {
		return nil
	}
	window := in.Config.RegressionWindow
	if window <= 0 {
		window = models.DefaultRegressionWindow
	}
	drop := in.Config.RegressionDrop
	if drop <= 0 {
		drop = models.DefaultRegressionDrop
	}

	scores := make([]float64, 0, len(in.History)+1)
	for _, h := range in.History {
		scores = append(scores, h.Score)
	}
	scores = append(scores, in.Report.ValidationScore)
	if len(scores) < window {
		return nil
	}
	scores = scores[len(scores)-window:]

	for i := 1; i < len(scores); i++ {
		if scores[i] >= scores[i-1] {
			return nil
		}
	}
	if scores[0]-scores[len(scores)-1] <= drop {
		return nil
	}

	return &Escalation{
		Guard:    "quality_regression",
		Reason:   "quality regression detected",
		Evidence: fmt.Sprintf("scores declined %s over the last %d iterations", trend(scores), window),
	}
}

// trend renders a score series like "90 -> 70 -> 55".
func trend(scores []float64) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%.0f", s)
	}
	return strings.Join(parts, " -> ")
}
