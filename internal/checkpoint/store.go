package checkpoint

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iterguard/iterguard/pkg/models"
)

// chainRow is the stored form of one chain.
type chainRow struct {
	ID        string
	TaskID    string
	WorkDir   string
	Active    bool
	Outcome   string
	Summary   string
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// ValidationRecord is one persisted validate outcome. Checkpoints stay
// immutable; validate results land here and the next append folds the
// latest one into the new checkpoint's history.
type ValidationRecord struct {
	TaskID          string                   `json:"task_id"`
	Iteration       int                      `json:"iteration"`
	Signal          models.Signal            `json:"signal"`
	Guard           string                   `json:"guard,omitempty"`
	Reason          string                   `json:"reason,omitempty"`
	DetectedPattern string                   `json:"detected_pattern,omitempty"`
	Report          *models.ValidationReport `json:"report"`
	CreatedAt       time.Time                `json:"created_at"`
}

// CreateChain starts a new chain for the task with a checkpoint at sequence
// 1, iteration 1. Fails with ErrDuplicateActiveSession if a non-terminal
// chain already exists for the task.
func (db *DB) CreateChain(taskID, workDir string, cfg models.IterationConfig, agentContext map[string]string) (*models.Checkpoint, error) {
	now := time.Now().UTC()
	cp := &models.Checkpoint{
		ID:              uuid.NewString(),
		TaskID:          taskID,
		Sequence:        1,
		IterationNumber: 1,
		Config:          cfg,
		AgentContext:    agentContext,
		CreatedAt:       now,
	}
	chainID := uuid.NewString()

	payload, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}

	err = db.Transaction(func(tx *sql.Tx) error {
		var existing int
		row := tx.QueryRow("SELECT COUNT(*) FROM chains WHERE task_id = ? AND active = 1", taskID)
		if err := row.Scan(&existing); err != nil {
			return fmt.Errorf("check active chain: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("task %s: %w", taskID, ErrDuplicateActiveSession)
		}

		if _, err := tx.Exec(`
			INSERT INTO chains (id, task_id, work_dir, active, created_at)
			VALUES (?, ?, ?, 1, ?)
		`, chainID, taskID, workDir, formatTime(now)); err != nil {
			return fmt.Errorf("create chain: %w", err)
		}

		if _, err := tx.Exec(`
			INSERT INTO checkpoints (id, chain_id, task_id, sequence, iteration, payload, created_at)
			VALUES (?, ?, ?, 1, 1, ?, ?)
		`, cp.ID, chainID, taskID, string(payload), formatTime(now)); err != nil {
			return fmt.Errorf("create checkpoint: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cp, nil
}

// activeChain returns the task's active chain row, or ErrNotFound.
func (db *DB) activeChain(taskID string) (*chainRow, error) {
	row := db.QueryRow(`
		SELECT id, task_id, work_dir, active, outcome, summary, created_at, closed_at
		FROM chains WHERE task_id = ? AND active = 1
	`, taskID)
	return scanChain(row)
}

// resolveActiveChain returns the id of the task's active chain inside a
// transaction. ErrChainClosed means every chain for the task is terminal;
// ErrNotFound means the task was never started.
func resolveActiveChain(tx *sql.Tx, taskID string) (string, error) {
	var chainID string
	row := tx.QueryRow("SELECT id FROM chains WHERE task_id = ? AND active = 1", taskID)
	if err := row.Scan(&chainID); err != nil {
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("find chain: %w", err)
		}
		var closed int
		if err := tx.QueryRow("SELECT COUNT(*) FROM chains WHERE task_id = ?", taskID).Scan(&closed); err != nil {
			return "", fmt.Errorf("find chain: %w", err)
		}
		if closed > 0 {
			return "", fmt.Errorf("task %s: %w", taskID, ErrChainClosed)
		}
		return "", fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return chainID, nil
}

// latestChain returns the task's most recent chain, preferring the active
// one. created_at has second precision, so rowid breaks same-second ties in
// insertion order; a closed predecessor must never shadow a restart.
func (db *DB) latestChain(taskID string) (*chainRow, error) {
	row := db.QueryRow(`
		SELECT id, task_id, work_dir, active, outcome, summary, created_at, closed_at
		FROM chains WHERE task_id = ?
		ORDER BY active DESC, created_at DESC, rowid DESC LIMIT 1
	`, taskID)
	return scanChain(row)
}

func scanChain(row *sql.Row) (*chainRow, error) {
	var c chainRow
	var active int
	var outcome, summary, closedAt sql.NullString
	var createdAt string
	err := row.Scan(&c.ID, &c.TaskID, &c.WorkDir, &active, &outcome, &summary, &createdAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan chain: %w", err)
	}
	c.Active = active == 1
	c.Outcome = outcome.String
	c.Summary = summary.String
	c.CreatedAt, _ = parseTime(createdAt)
	c.ClosedAt = parseNullableTime(closedAt)
	return &c, nil
}

// Chain returns the task's most recent chain as a model, or ErrNotFound.
func (db *DB) Chain(taskID string) (*models.Chain, error) {
	c, err := db.latestChain(taskID)
	if err != nil {
		return nil, err
	}
	return &models.Chain{
		TaskID:    c.TaskID,
		WorkDir:   c.WorkDir,
		Active:    c.Active,
		Outcome:   models.ChainOutcome(c.Outcome),
		Summary:   c.Summary,
		CreatedAt: c.CreatedAt,
		ClosedAt:  c.ClosedAt,
	}, nil
}

// ResumeLatest returns the newest non-expired checkpoint of the task's
// active chain. Resume never rewrites anything: any process restart calls
// this and continues from the last durable state.
func (db *DB) ResumeLatest(taskID string) (*models.Checkpoint, error) {
	chain, err := db.activeChain(taskID)
	if err != nil {
		return nil, err
	}

	row := db.QueryRow(`
		SELECT payload FROM checkpoints
		WHERE chain_id = ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY sequence DESC LIMIT 1
	`, chain.ID, formatTime(time.Now()))

	return scanCheckpoint(row)
}

// ResumeByID returns a specific checkpoint by its identifier.
func (db *DB) ResumeByID(checkpointID string) (*models.Checkpoint, error) {
	row := db.QueryRow("SELECT payload FROM checkpoints WHERE id = ?", checkpointID)
	return scanCheckpoint(row)
}

func scanCheckpoint(row *sql.Row) (*models.Checkpoint, error) {
	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}

	var cp models.Checkpoint
	if err := json.Unmarshal([]byte(payload), &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Append adds the next checkpoint to the task's active chain. baseSequence
// is the sequence the caller resumed from; if it no longer matches the
// stored latest, a concurrent advance won and Append fails with
// ErrStaleChain. Fails with ErrChainClosed when the chain is terminal.
func (db *DB) Append(taskID string, baseSequence int, cp *models.Checkpoint) (*models.Checkpoint, error) {
	now := time.Now().UTC()

	stored := *cp
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.TaskID = taskID
	stored.Sequence = baseSequence + 1
	stored.CreatedAt = now

	payload, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}

	err = db.Transaction(func(tx *sql.Tx) error {
		chainID, err := resolveActiveChain(tx, taskID)
		if err != nil {
			return err
		}

		var latestSeq int
		row := tx.QueryRow("SELECT COALESCE(MAX(sequence), 0) FROM checkpoints WHERE chain_id = ?", chainID)
		if err := row.Scan(&latestSeq); err != nil {
			return fmt.Errorf("get latest sequence: %w", err)
		}
		if latestSeq != baseSequence {
			return fmt.Errorf("task %s: base sequence %d, stored latest %d: %w",
				taskID, baseSequence, latestSeq, ErrStaleChain)
		}

		var expiresAt *string
		if stored.ExpiresAt != nil {
			s := formatTime(*stored.ExpiresAt)
			expiresAt = &s
		}

		if _, err := tx.Exec(`
			INSERT INTO checkpoints (id, chain_id, task_id, sequence, iteration, payload, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, stored.ID, chainID, taskID, stored.Sequence, stored.IterationNumber,
			string(payload), formatTime(now), expiresAt); err != nil {
			return fmt.Errorf("append checkpoint: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &stored, nil
}

// CloseChain marks the task's active chain terminal. No further appends are
// permitted afterwards. Fails with ErrChainClosed when the latest chain is
// already terminal, ErrNotFound when the task has no chain.
func (db *DB) CloseChain(taskID string, outcome models.ChainOutcome, summary string) error {
	return db.Transaction(func(tx *sql.Tx) error {
		chainID, err := resolveActiveChain(tx, taskID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(`
			UPDATE chains SET active = 0, outcome = ?, summary = ?, closed_at = ?
			WHERE id = ?
		`, string(outcome), summary, formatTime(time.Now()), chainID); err != nil {
			return fmt.Errorf("close chain: %w", err)
		}

		return nil
	})
}

// RecordValidation persists one validate outcome for the task's active chain.
func (db *DB) RecordValidation(rec *ValidationRecord) error {
	chain, err := db.activeChain(rec.TaskID)
	if err != nil {
		if err == ErrNotFound {
			return fmt.Errorf("task %s: %w", rec.TaskID, ErrChainClosed)
		}
		return err
	}

	report, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = db.Exec(`
		INSERT INTO validations (chain_id, task_id, iteration, signal, guard, reason, detected_pattern, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, chain.ID, rec.TaskID, rec.Iteration, string(rec.Signal), rec.Guard, rec.Reason,
		rec.DetectedPattern, string(report), formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("record validation: %w", err)
	}
	return nil
}

// CompletionClaims returns the distinct completion patterns detected across
// the iteration's validate calls on the task's active chain, oldest first.
// A COMPLETE superseded by a later re-validate still counts: the claim was
// made, and the next checkpoint carries it as evidence.
func (db *DB) CompletionClaims(taskID string, iteration int) ([]string, error) {
	chain, err := db.activeChain(taskID)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT detected_pattern FROM validations
		WHERE chain_id = ? AND iteration = ? AND signal = ? AND detected_pattern != ''
		GROUP BY detected_pattern ORDER BY MIN(id)
	`, chain.ID, iteration, string(models.SignalComplete))
	if err != nil {
		return nil, fmt.Errorf("list completion claims: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan completion claim: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestValidation returns the most recent validate outcome recorded for
// the task's current chain, or ErrNotFound.
func (db *DB) LatestValidation(taskID string) (*ValidationRecord, error) {
	chain, err := db.latestChain(taskID)
	if err != nil {
		return nil, err
	}

	row := db.QueryRow(`
		SELECT task_id, iteration, signal, guard, reason, detected_pattern, report, created_at
		FROM validations WHERE chain_id = ? ORDER BY id DESC LIMIT 1
	`, chain.ID)

	return scanValidation(row)
}

func scanValidation(row *sql.Row) (*ValidationRecord, error) {
	var rec ValidationRecord
	var signal, report, createdAt string
	var guard, reason, pattern sql.NullString
	err := row.Scan(&rec.TaskID, &rec.Iteration, &signal, &guard, &reason, &pattern, &report, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan validation: %w", err)
	}

	rec.Signal = models.Signal(signal)
	rec.Guard = guard.String
	rec.Reason = reason.String
	rec.DetectedPattern = pattern.String
	rec.CreatedAt, _ = parseTime(createdAt)
	if err := json.Unmarshal([]byte(report), &rec.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rec, nil
}

// ChainSummary is one row of the status listing.
type ChainSummary struct {
	TaskID      string
	Active      bool
	Outcome     models.ChainOutcome
	Summary     string
	Iteration   int
	Checkpoints int
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

// ListChains returns chain summaries, newest first, optionally only active
// ones.
func (db *DB) ListChains(activeOnly bool) ([]ChainSummary, error) {
	query := `
		SELECT c.task_id, c.active, c.outcome, c.summary, c.created_at, c.closed_at,
			COALESCE(MAX(p.iteration), 0), COUNT(p.id)
		FROM chains c LEFT JOIN checkpoints p ON p.chain_id = c.id
	`
	if activeOnly {
		query += " WHERE c.active = 1"
	}
	query += " GROUP BY c.id ORDER BY c.created_at DESC"

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	defer rows.Close()

	var out []ChainSummary
	for rows.Next() {
		var s ChainSummary
		var active int
		var outcome, summary, closedAt sql.NullString
		var createdAt string
		if err := rows.Scan(&s.TaskID, &active, &outcome, &summary, &createdAt, &closedAt,
			&s.Iteration, &s.Checkpoints); err != nil {
			return nil, fmt.Errorf("scan chain summary: %w", err)
		}
		s.Active = active == 1
		s.Outcome = models.ChainOutcome(outcome.String)
		s.Summary = summary.String
		s.CreatedAt, _ = parseTime(createdAt)
		s.ClosedAt = parseNullableTime(closedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PurgeClosedChains deletes closed chains older than the given duration,
// along with their checkpoints and validation records. Returns the number
// of chains deleted. Pruning is a maintenance operation, not part of the
// hot path.
func (db *DB) PurgeClosedChains(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	var deleted int64
	err := db.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query("SELECT id FROM chains WHERE active = 0 AND closed_at < ?", cutoff)
		if err != nil {
			return fmt.Errorf("find old chains: %w", err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan chain id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range ids {
			if _, err := tx.Exec("DELETE FROM validations WHERE chain_id = ?", id); err != nil {
				return fmt.Errorf("purge validations: %w", err)
			}
			if _, err := tx.Exec("DELETE FROM checkpoints WHERE chain_id = ?", id); err != nil {
				return fmt.Errorf("purge checkpoints: %w", err)
			}
			if _, err := tx.Exec("DELETE FROM chains WHERE id = ?", id); err != nil {
				return fmt.Errorf("purge chain: %w", err)
			}
		}
		deleted = int64(len(ids))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// PurgeExpiredCheckpoints deletes checkpoints whose expiry has passed.
// Returns the number of checkpoints deleted.
func (db *DB) PurgeExpiredCheckpoints() (int64, error) {
	result, err := db.Exec(`
		DELETE FROM checkpoints WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("purge expired checkpoints: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}
