// Package textstore is the read-only collaborator that serves the session
// texts validation runs against: the agent's latest output, the caller's
// task notes, and the latest work product, fetched by task id. The engine
// never writes these; the surrounding system drops them into the session
// data directory between iterations.
package textstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Provider fetches session texts by task id. Missing texts are empty
// strings, not errors — a task without notes is normal.
type Provider interface {
	AgentOutput(taskID string) (string, error)
	TaskNotes(taskID string) (string, error)
	WorkProduct(taskID string) (string, error)
}

// File names within a task's text directory.
const (
	agentOutputFile = "agent_output.txt"
	taskNotesFile   = "task_notes.md"
	workProductFile = "work_product.md"
)

// FileProvider reads session texts from <root>/tasks/<taskID>/.
type FileProvider struct {
	root string
}

// NewFileProvider creates a provider rooted at the session data directory.
func NewFileProvider(root string) *FileProvider {
	return &FileProvider{root: root}
}

// TaskDir returns the directory holding a task's texts.
func (p *FileProvider) TaskDir(taskID string) string {
	return filepath.Join(p.root, "tasks", taskID)
}

// AgentOutput returns the agent's latest free-text output for the task.
func (p *FileProvider) AgentOutput(taskID string) (string, error) {
	return p.read(taskID, agentOutputFile)
}

// TaskNotes returns the caller's task notes.
func (p *FileProvider) TaskNotes(taskID string) (string, error) {
	return p.read(taskID, taskNotesFile)
}

// WorkProduct returns the latest work-product text.
func (p *FileProvider) WorkProduct(taskID string) (string, error) {
	return p.read(taskID, workProductFile)
}

func (p *FileProvider) read(taskID, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(p.TaskDir(taskID), name))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s for task %s: %w", name, taskID, err)
	}
	return string(data), nil
}

// WriteAgentOutput stores agent output for the task. The engine itself only
// reads; this helper exists for the CLI's --output-file/stdin intake, which
// acts on the collaborator's behalf.
func (p *FileProvider) WriteAgentOutput(taskID, output string) error {
	dir := p.TaskDir(taskID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create task text directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, agentOutputFile), []byte(output), 0644); err != nil {
		return fmt.Errorf("write agent output for task %s: %w", taskID, err)
	}
	return nil
}

// Static is a fixed-text provider for tests and one-shot CLI overrides.
type Static struct {
	Output  string
	Notes   string
	Product string
}

// AgentOutput implements Provider.
func (s Static) AgentOutput(string) (string, error) { return s.Output, nil }

// TaskNotes implements Provider.
func (s Static) TaskNotes(string) (string, error) { return s.Notes, nil }

// WorkProduct implements Provider.
func (s Static) WorkProduct(string) (string, error) { return s.Product, nil }

// Verify implementations at compile time.
var (
	_ Provider = (*FileProvider)(nil)
	_ Provider = Static{}
)
