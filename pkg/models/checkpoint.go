package models

import "time"

// HistoryEntry summarizes one completed iteration in a chain.
type HistoryEntry struct {
	// Iteration is the iteration number this entry records.
	Iteration int `json:"iteration"`
	// Score is the validation score the iteration ended with.
	Score float64 `json:"score"`
	// Passed is the overall pass/fail of the iteration's last report.
	Passed bool `json:"passed"`
	// Timestamp is when the iteration was advanced past.
	Timestamp time.Time `json:"timestamp"`
	// CheckpointID is the checkpoint that recorded the iteration.
	CheckpointID string `json:"checkpoint_id"`
}

// Checkpoint is an immutable snapshot of iteration state, appended once per
// iteration. Later checkpoints supersede earlier ones; rows are never
// mutated after creation.
type Checkpoint struct {
	// ID is the unique checkpoint identifier.
	ID string `json:"id"`
	// TaskID keys the chain this checkpoint belongs to.
	TaskID string `json:"task_id"`
	// Sequence is monotonic per task, starting at 1.
	Sequence int `json:"sequence"`
	// IterationNumber increases by exactly 1 along the chain, starting at 1.
	IterationNumber int `json:"iteration_number"`
	// Config is the session config, identical across the whole chain.
	Config IterationConfig `json:"iteration_config"`
	// History holds entries for iterations already advanced past.
	History []HistoryEntry `json:"iteration_history"`
	// CompletionPromises collects completion claims seen in agent output so
	// far, for the human reviewing an escalated task.
	CompletionPromises []string `json:"completion_promises_seen,omitempty"`
	// LastReport is the most recent validation report, if any.
	LastReport *ValidationReport `json:"last_validation_report,omitempty"`
	// AgentContext is an opaque blob the caller round-trips across iterations.
	AgentContext map[string]string `json:"agent_context,omitempty"`
	// CreatedAt is when the checkpoint was appended.
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt, when set, marks the checkpoint prunable after this time.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Chain describes one task's iteration session: the ordered checkpoints plus
// the terminal disposition once closed.
type Chain struct {
	TaskID    string        `json:"task_id"`
	WorkDir   string        `json:"work_dir"`
	Active    bool          `json:"active"`
	Outcome   ChainOutcome  `json:"outcome,omitempty"`
	Summary   string        `json:"summary,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
}
