// Package controller implements the iteration state machine tying the
// validation engine, completion detector, safety guards, and checkpoint
// store together. A chain moves UNINITIALIZED -> ACTIVE -> one of
// {COMPLETED, BLOCKED, ESCALATED}; validate never changes state by itself,
// next advances, complete closes.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iterguard/iterguard/internal/checkpoint"
	"github.com/iterguard/iterguard/internal/guards"
	"github.com/iterguard/iterguard/internal/rules"
	"github.com/iterguard/iterguard/internal/textstore"
	"github.com/iterguard/iterguard/internal/validation"
	"github.com/iterguard/iterguard/pkg/models"
)

var (
	// ErrMaxIterationsExceeded indicates next() was called past the
	// iteration ceiling. The caller should have observed ESCALATE first.
	ErrMaxIterationsExceeded = errors.New("max iterations exceeded")
	// ErrNotValidated indicates next() was called before validate() for the
	// current iteration.
	ErrNotValidated = errors.New("iteration not validated")
	// ErrCannotAdvance indicates the last validate signal was not CONTINUE.
	ErrCannotAdvance = errors.New("cannot advance")
)

// Controller drives iteration sessions against a checkpoint store.
type Controller struct {
	store  checkpoint.Store
	engine *validation.Engine
	guards guards.Stack
	texts  textstore.Provider
	logger *SessionLogger
}

// Option configures a Controller.
type Option func(*Controller)

// WithGuards replaces the default guard stack.
func WithGuards(stack guards.Stack) Option {
	return func(c *Controller) { c.guards = stack }
}

// WithLogger sets the session logger.
func WithLogger(logger *SessionLogger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New creates a controller. texts may be nil when the caller never uses
// text-dependent rules or signal detection.
func New(store checkpoint.Store, engine *validation.Engine, texts textstore.Provider, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		engine: engine,
		guards: guards.DefaultStack(),
		texts:  texts,
		logger: &SessionLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a session: validates the config, resolves custom validators,
// and creates the chain with a checkpoint at iteration 1.
func (c *Controller) Start(ctx context.Context, taskID, workDir string, cfg models.IterationConfig, agentContext map[string]string) (*models.Checkpoint, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid iteration config: %w", err)
	}
	if err := validation.ValidatePatterns(cfg); err != nil {
		return nil, fmt.Errorf("invalid iteration config: %w", err)
	}
	if err := c.engine.Registry().Resolve(cfg.ValidationRules); err != nil {
		return nil, err
	}

	cp, err := c.store.CreateChain(taskID, workDir, cfg, agentContext)
	if err != nil {
		return nil, err
	}

	c.logger.Log("START", "task %s: chain started, checkpoint %s, max %d iterations, %d rules",
		taskID, cp.ID, cfg.MaxIterations, len(cfg.ValidationRules))
	return cp, nil
}

// ValidateResult is the outcome of one validate call.
type ValidateResult struct {
	// Signal tells the caller what to do next.
	Signal models.Signal
	// OverallPassed mirrors the report.
	OverallPassed bool
	// ValidationScore mirrors the report.
	ValidationScore float64
	// Iteration is the iteration that was validated.
	Iteration int
	// DetectedPattern is the completion or blocked pattern that matched,
	// if any.
	DetectedPattern string
	// Feedback lists failure and error messages for the caller to act on.
	Feedback []string
	// Escalation carries the guard evidence when Signal is ESCALATE.
	Escalation *guards.Escalation
	// Report is the full validation report.
	Report *models.ValidationReport
}

// Validate runs the validation engine, the completion detector, and the
// safety guard stack for the current iteration, and persists the outcome.
// It causes no state transition and is idempotent: callable multiple times
// per iteration before a decision is made. An ESCALATE from the guards
// overrides any detector signal, including BLOCKED.
func (c *Controller) Validate(ctx context.Context, taskID string) (*ValidateResult, error) {
	cp, err := c.resumeActive(taskID)
	if err != nil {
		return nil, err
	}
	chain, err := c.store.Chain(taskID)
	if err != nil {
		return nil, err
	}

	vctx, err := c.buildContext(taskID, chain.WorkDir)
	if err != nil {
		return nil, err
	}

	report := c.engine.Validate(ctx, cp.Config.ValidationRules, vctx, taskID, cp.IterationNumber)
	detection := validation.DetectSignal(vctx.AgentOutput, cp.Config)

	escalation := c.guards.Evaluate(guards.Input{
		Config:   cp.Config,
		History:  cp.History,
		Report:   report,
		Detected: detection.Signal,
	})

	result := &ValidateResult{
		Signal:          detection.Signal,
		OverallPassed:   report.OverallPassed,
		ValidationScore: report.ValidationScore,
		Iteration:       cp.IterationNumber,
		DetectedPattern: detection.Pattern,
		Feedback:        report.FailureMessages(),
		Report:          report,
	}

	rec := &checkpoint.ValidationRecord{
		TaskID:          taskID,
		Iteration:       cp.IterationNumber,
		Signal:          detection.Signal,
		DetectedPattern: detection.Pattern,
		Report:          report,
	}
	if escalation != nil {
		result.Signal = models.SignalEscalate
		result.Escalation = escalation
		rec.Signal = models.SignalEscalate
		rec.Guard = escalation.Guard
		rec.Reason = fmt.Sprintf("%s: %s", escalation.Reason, escalation.Evidence)
	}

	if err := c.store.RecordValidation(rec); err != nil {
		return nil, err
	}

	c.logger.Log("VALIDATE", "task %s iteration %d: score %.1f passed=%v signal=%s",
		taskID, cp.IterationNumber, report.ValidationScore, report.OverallPassed, result.Signal)
	if escalation != nil {
		c.logger.Log("GUARD", "task %s: %s fired: %s (%s)",
			taskID, escalation.Guard, escalation.Reason, escalation.Evidence)
	}

	return result, nil
}

// Next advances the chain to the next iteration. Preconditions: the current
// iteration was validated, the signal was CONTINUE, and the ceiling has not
// been reached. Fails with ErrMaxIterationsExceeded past the ceiling — a
// programming error; the caller should have observed ESCALATE first.
func (c *Controller) Next(ctx context.Context, taskID, notes string) (*models.Checkpoint, error) {
	cp, err := c.resumeActive(taskID)
	if err != nil {
		return nil, err
	}

	rec, err := c.store.LatestValidation(taskID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, fmt.Errorf("task %s iteration %d: %w", taskID, cp.IterationNumber, ErrNotValidated)
		}
		return nil, err
	}
	if rec.Iteration != cp.IterationNumber {
		return nil, fmt.Errorf("task %s iteration %d: %w", taskID, cp.IterationNumber, ErrNotValidated)
	}
	if rec.Signal != models.SignalContinue {
		return nil, fmt.Errorf("task %s: last validate signal was %s: %w", taskID, rec.Signal, ErrCannotAdvance)
	}
	if cp.IterationNumber >= cp.Config.MaxIterations {
		return nil, fmt.Errorf("task %s at iteration %d of %d: %w",
			taskID, cp.IterationNumber, cp.Config.MaxIterations, ErrMaxIterationsExceeded)
	}

	entry := models.HistoryEntry{
		Iteration:    cp.IterationNumber,
		Score:        rec.Report.ValidationScore,
		Passed:       rec.Report.OverallPassed,
		Timestamp:    time.Now().UTC(),
		CheckpointID: cp.ID,
	}

	agentContext := make(map[string]string, len(cp.AgentContext)+1)
	for k, v := range cp.AgentContext {
		agentContext[k] = v
	}
	if notes != "" {
		agentContext["notes"] = notes
	}

	// Validate is re-callable per iteration, so a completion claim can be
	// superseded by a later CONTINUE; the claim still carries forward.
	claims, err := c.store.CompletionClaims(taskID, cp.IterationNumber)
	if err != nil {
		return nil, err
	}
	promises := append([]string{}, cp.CompletionPromises...)
	for _, claim := range claims {
		seen := false
		for _, p := range promises {
			if p == claim {
				seen = true
				break
			}
		}
		if !seen {
			promises = append(promises, claim)
		}
	}

	next := &models.Checkpoint{
		TaskID:             taskID,
		IterationNumber:    cp.IterationNumber + 1,
		Config:             cp.Config,
		History:            append(append([]models.HistoryEntry{}, cp.History...), entry),
		CompletionPromises: promises,
		LastReport:         rec.Report,
		AgentContext:       agentContext,
	}

	appended, err := c.store.Append(taskID, cp.Sequence, next)
	if err != nil {
		return nil, err
	}

	c.logger.Log("NEXT", "task %s: advanced to iteration %d, checkpoint %s",
		taskID, appended.IterationNumber, appended.ID)
	return appended, nil
}

// CompletionSummary is returned when a chain closes.
type CompletionSummary struct {
	TaskID          string              `json:"task_id"`
	Outcome         models.ChainOutcome `json:"outcome"`
	TotalIterations int                 `json:"total_iterations"`
	FinalScore      float64             `json:"final_score"`
	Summary         string              `json:"summary"`
	ClosedAt        time.Time           `json:"closed_at"`
}

// Complete closes the chain with the given outcome. When the chain ends in
// escalation, the stored summary includes which guard fired and its
// evidence, so a human reviewing the task understands why automation
// stopped without re-running the loop.
func (c *Controller) Complete(ctx context.Context, taskID string, outcome models.ChainOutcome, summary string) (*CompletionSummary, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("unknown outcome %q", outcome)
	}

	cp, err := c.resumeActive(taskID)
	if err != nil {
		return nil, err
	}

	finalScore := 0.0
	rec, err := c.store.LatestValidation(taskID)
	if err == nil {
		finalScore = rec.Report.ValidationScore
		if outcome == models.OutcomeEscalated && rec.Guard != "" {
			if summary == "" {
				summary = rec.Reason
			} else {
				summary = fmt.Sprintf("%s (guard %s: %s)", summary, rec.Guard, rec.Reason)
			}
		}
	} else if !errors.Is(err, checkpoint.ErrNotFound) {
		return nil, err
	}

	if err := c.store.CloseChain(taskID, outcome, summary); err != nil {
		return nil, err
	}

	closedAt := time.Now().UTC()
	c.logger.Log("COMPLETE", "task %s: chain closed %s after %d iterations, final score %.1f",
		taskID, outcome, cp.IterationNumber, finalScore)

	return &CompletionSummary{
		TaskID:          taskID,
		Outcome:         outcome,
		TotalIterations: cp.IterationNumber,
		FinalScore:      finalScore,
		Summary:         summary,
		ClosedAt:        closedAt,
	}, nil
}

// resumeActive returns the latest checkpoint of the task's active chain,
// translating a closed chain into ErrChainClosed.
func (c *Controller) resumeActive(taskID string) (*models.Checkpoint, error) {
	cp, err := c.store.ResumeLatest(taskID)
	if err == nil {
		return cp, nil
	}
	if !errors.Is(err, checkpoint.ErrNotFound) {
		return nil, err
	}

	// Distinguish "never started" from "already closed".
	chain, chainErr := c.store.Chain(taskID)
	if chainErr == nil && !chain.Active {
		return nil, fmt.Errorf("task %s: %w", taskID, checkpoint.ErrChainClosed)
	}
	return nil, fmt.Errorf("task %s: %w", taskID, checkpoint.ErrNotFound)
}

// buildContext assembles the read-only texts for one validate pass.
func (c *Controller) buildContext(taskID, workDir string) (rules.Context, error) {
	vctx := rules.Context{WorkDir: workDir}
	if c.texts == nil {
		return vctx, nil
	}

	var err error
	if vctx.AgentOutput, err = c.texts.AgentOutput(taskID); err != nil {
		return vctx, err
	}
	if vctx.TaskNotes, err = c.texts.TaskNotes(taskID); err != nil {
		return vctx, err
	}
	if vctx.WorkProduct, err = c.texts.WorkProduct(taskID); err != nil {
		return vctx, err
	}
	return vctx, nil
}
