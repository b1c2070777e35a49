package exec

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunShell(t *testing.T) {
	r := NewRunner()
	ctx := context.Background()
	workDir := t.TempDir()

	res := r.RunShell(ctx, workDir, "echo hello", nil)
	if res.Err != nil || res.ExitCode != 0 {
		t.Fatalf("echo: %+v", res)
	}
	if !strings.Contains(string(res.Output), "hello") {
		t.Errorf("Output = %q", res.Output)
	}

	res = r.RunShell(ctx, workDir, "exit 7", nil)
	if res.Err != nil {
		t.Fatalf("exit 7 returned runner error: %v", res.Err)
	}
	if res.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", res.ExitCode)
	}
}

func TestRunShellCombinedOutput(t *testing.T) {
	r := NewRunner()
	res := r.RunShell(context.Background(), t.TempDir(), "echo out; echo err 1>&2", nil)
	if !strings.Contains(string(res.Output), "out") || !strings.Contains(string(res.Output), "err") {
		t.Errorf("combined output missing a stream: %q", res.Output)
	}
}

func TestRunShellTimeout(t *testing.T) {
	r := NewRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	res := r.RunShell(ctx, t.TempDir(), "sleep 5", nil)
	if !res.TimedOut {
		t.Fatalf("expected TimedOut, got %+v", res)
	}
}

func TestRunShellEnv(t *testing.T) {
	r := NewRunner()
	res := r.RunShell(context.Background(), t.TempDir(), "echo $RUNNER_TEST_VAR", []string{"RUNNER_TEST_VAR=ok"})
	if !strings.Contains(string(res.Output), "ok") {
		t.Errorf("env var not passed: %q", res.Output)
	}
}

func TestExists(t *testing.T) {
	r := NewRunner()
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "f.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !r.Exists(workDir, "f.txt") {
		t.Error("relative path not found")
	}
	if !r.Exists("", filepath.Join(workDir, "f.txt")) {
		t.Error("absolute path not found")
	}
	if r.Exists(workDir, "missing.txt") {
		t.Error("missing file reported present")
	}
}
