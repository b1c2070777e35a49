// Package exec provides an interface for command execution.
package exec

import (
	"context"
)

// Result captures the outcome of a command execution.
type Result struct {
	// Output is the combined stdout/stderr.
	Output []byte
	// ExitCode is the command's exit code. Meaningless when Err is set.
	ExitCode int
	// TimedOut is true when the context deadline killed the command.
	TimedOut bool
	// Err records a spawn-level failure (shell missing, bad workdir).
	// A non-zero exit code is not an Err.
	Err error
}

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// RunShell executes a shell command through "sh -c" in workDir with the
	// given KEY=VALUE env overrides appended to the inherited environment.
	// The command is hard-killed when ctx expires.
	RunShell(ctx context.Context, workDir string, command string, env []string) Result

	// Exists checks if a path exists, resolved relative to workDir when not
	// absolute.
	Exists(workDir string, path string) bool
}
