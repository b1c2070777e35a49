package validation

import (
	"strings"
	"testing"

	"github.com/iterguard/iterguard/pkg/models"
)

func detectCfg() models.IterationConfig {
	return models.IterationConfig{
		MaxIterations:      10,
		CompletionPatterns: []string{`(?i)^\s*TASK[ _]COMPLETE\b`, `<!-- COMPLETE -->`},
		BlockedPatterns:    []string{`(?i)^\s*TASK[ _]BLOCKED\b`, `<!-- BLOCKED -->`},
	}
}

func TestDetectSignal(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   models.Signal
	}{
		{
			name:   "no marker continues",
			output: "still iterating on the parser",
			want:   models.SignalContinue,
		},
		{
			name:   "completion marker",
			output: "TASK COMPLETE\nall checks green",
			want:   models.SignalComplete,
		},
		{
			name:   "completion marker case-insensitive",
			output: "task_complete",
			want:   models.SignalComplete,
		},
		{
			name:   "html comment marker",
			output: "done.\n<!-- COMPLETE -->",
			want:   models.SignalComplete,
		},
		{
			name:   "blocked marker",
			output: "TASK BLOCKED: missing credentials",
			want:   models.SignalBlocked,
		},
		{
			name:   "blocked beats complete in the same output",
			output: "TASK COMPLETE\nwait, actually\n<!-- BLOCKED -->",
			want:   models.SignalBlocked,
		},
		{
			name:   "substring does not match anchored pattern",
			output: "discussing TASK COMPLETE semantics mid-sentence",
			want:   models.SignalContinue,
		},
		{
			name:   "empty output continues",
			output: "",
			want:   models.SignalContinue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DetectSignal(tt.output, detectCfg())
			if d.Signal != tt.want {
				t.Errorf("DetectSignal() = %s (pattern %q), want %s", d.Signal, d.Pattern, tt.want)
			}
			if tt.want != models.SignalContinue && d.Pattern == "" {
				t.Error("matched detection should report the pattern")
			}
		})
	}
}

func TestDetectSignalMultiline(t *testing.T) {
	// ^ is a line anchor only with the m flag.
	cfg := models.IterationConfig{
		MaxIterations:      10,
		CompletionPatterns: []string{`(?im)^\s*TASK COMPLETE\b`},
	}
	d := DetectSignal("first line\nTASK COMPLETE\n", cfg)
	if d.Signal != models.SignalComplete {
		t.Errorf("DetectSignal() = %s, want COMPLETE", d.Signal)
	}
}

func TestDetectSignalEmptyWidthMatch(t *testing.T) {
	// An empty-width match is still a match: ^$ against empty output
	// signals completion rather than reading as "no marker".
	cfg := models.IterationConfig{CompletionPatterns: []string{`^$`}}
	d := DetectSignal("", cfg)
	if d.Signal != models.SignalComplete {
		t.Fatalf("Signal = %s, want COMPLETE", d.Signal)
	}
	if d.Pattern != `^$` {
		t.Errorf("Pattern = %q", d.Pattern)
	}
}

func TestValidatePatterns(t *testing.T) {
	cfg := detectCfg()
	if err := ValidatePatterns(cfg); err != nil {
		t.Fatalf("ValidatePatterns() on valid config: %v", err)
	}

	cfg.CompletionPatterns = append(cfg.CompletionPatterns, "(unclosed")
	err := ValidatePatterns(cfg)
	if err == nil || !strings.Contains(err.Error(), "completion pattern") {
		t.Fatalf("ValidatePatterns() = %v, want completion pattern error", err)
	}

	cfg = detectCfg()
	cfg.BlockedPatterns = []string{"[z-a]"}
	err = ValidatePatterns(cfg)
	if err == nil || !strings.Contains(err.Error(), "blocked pattern") {
		t.Fatalf("ValidatePatterns() = %v, want blocked pattern error", err)
	}
}
