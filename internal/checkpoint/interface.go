package checkpoint

import (
	"io"
	"time"

	"github.com/iterguard/iterguard/pkg/models"
)

// ChainStore handles chain lifecycle operations.
type ChainStore interface {
	CreateChain(taskID, workDir string, cfg models.IterationConfig, agentContext map[string]string) (*models.Checkpoint, error)
	ResumeLatest(taskID string) (*models.Checkpoint, error)
	ResumeByID(checkpointID string) (*models.Checkpoint, error)
	Append(taskID string, baseSequence int, cp *models.Checkpoint) (*models.Checkpoint, error)
	CloseChain(taskID string, outcome models.ChainOutcome, summary string) error
	Chain(taskID string) (*models.Chain, error)
}

// ValidationLog persists validate outcomes alongside the immutable chain.
type ValidationLog interface {
	RecordValidation(rec *ValidationRecord) error
	LatestValidation(taskID string) (*ValidationRecord, error)
	CompletionClaims(taskID string, iteration int) ([]string, error)
}

// Pruner handles retention.
type Pruner interface {
	PurgeClosedChains(olderThan time.Duration) (int64, error)
	PurgeExpiredCheckpoints() (int64, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// Store defines the interface for checkpoint persistence. The controller
// works against this rather than the concrete SQLite implementation; any
// backend satisfying the contract (and representable as JSON) serves.
type Store interface {
	io.Closer
	Migrator
	ChainStore
	ValidationLog
	Pruner
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store         = (*DB)(nil)
	_ ChainStore    = (*DB)(nil)
	_ ValidationLog = (*DB)(nil)
	_ Pruner        = (*DB)(nil)
)
