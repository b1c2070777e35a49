// Package models defines the shared data model for the iteration engine:
// signals, iteration configs, validation rules and reports, and checkpoints.
package models

// Signal tells the caller what the controller should do next.
type Signal string

const (
	// SignalContinue indicates the loop should run another iteration.
	SignalContinue Signal = "CONTINUE"
	// SignalComplete indicates a completion pattern matched the agent output.
	SignalComplete Signal = "COMPLETE"
	// SignalBlocked indicates a blocked pattern matched the agent output.
	SignalBlocked Signal = "BLOCKED"
	// SignalEscalate indicates a safety guard forced termination.
	SignalEscalate Signal = "ESCALATE"
)

// Valid returns true if the signal is a known value.
func (s Signal) Valid() bool {
	switch s {
	case SignalContinue, SignalComplete, SignalBlocked, SignalEscalate:
		return true
	default:
		return false
	}
}

// Terminal returns true if the signal ends the iteration chain.
func (s Signal) Terminal() bool {
	return s == SignalComplete || s == SignalBlocked || s == SignalEscalate
}

// ChainOutcome is the terminal disposition recorded when a chain closes.
type ChainOutcome string

const (
	// OutcomeSuccess indicates the task completed its success criteria.
	OutcomeSuccess ChainOutcome = "success"
	// OutcomeBlocked indicates the agent reported it cannot proceed.
	OutcomeBlocked ChainOutcome = "blocked"
	// OutcomeEscalated indicates a safety guard stopped the loop.
	OutcomeEscalated ChainOutcome = "escalated"
)

// Valid returns true if the outcome is a known value.
func (o ChainOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeBlocked, OutcomeEscalated:
		return true
	default:
		return false
	}
}
