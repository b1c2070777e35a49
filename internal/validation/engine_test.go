package validation

import (
	"context"
	"testing"

	"github.com/iterguard/iterguard/internal/exec"
	"github.com/iterguard/iterguard/internal/rules"
	"github.com/iterguard/iterguard/pkg/models"
)

// stubRunner scripts RunShell exit codes by command string.
type stubRunner struct {
	exitCodes map[string]int
	errs      map[string]error
}

func (s *stubRunner) RunShell(ctx context.Context, workDir, command string, env []string) exec.Result {
	if err, ok := s.errs[command]; ok {
		return exec.Result{Err: err}
	}
	return exec.Result{ExitCode: s.exitCodes[command]}
}

func (s *stubRunner) Exists(workDir, path string) bool { return false }

func commandRule(name, command string) models.ValidationRule {
	return models.ValidationRule{
		Name:    name,
		Type:    models.RuleCommand,
		Command: &models.CommandParams{Command: command},
	}
}

func TestEngineValidateScore(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{
		"pass-a": 0,
		"pass-b": 0,
		"fail-c": 1,
		"fail-d": 2,
	}}
	engine := NewEngine(runner, rules.NewRegistry())

	ruleSet := []models.ValidationRule{
		commandRule("a", "pass-a"),
		commandRule("b", "pass-b"),
		commandRule("c", "fail-c"),
		commandRule("d", "fail-d"),
	}

	report := engine.Validate(context.Background(), ruleSet, rules.Context{}, "task-1", 2)

	if report.TaskID != "task-1" || report.IterationNumber != 2 {
		t.Errorf("report identity = %s/%d, want task-1/2", report.TaskID, report.IterationNumber)
	}
	if report.PassedRules != 2 || report.FailedRules != 2 || report.ErroredRules != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/2/0", report.PassedRules, report.FailedRules, report.ErroredRules)
	}
	if report.ValidationScore != 50 {
		t.Errorf("ValidationScore = %v, want 50", report.ValidationScore)
	}
	if report.OverallPassed {
		t.Error("OverallPassed should be false with failed rules")
	}
}

func TestEngineOverallPassedIffAllPass(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{"ok": 0}}
	engine := NewEngine(runner, rules.NewRegistry())

	report := engine.Validate(context.Background(),
		[]models.ValidationRule{commandRule("a", "ok"), commandRule("b", "ok")},
		rules.Context{}, "t", 1)
	if !report.OverallPassed || report.ValidationScore != 100 {
		t.Errorf("all-pass report: OverallPassed=%v score=%v", report.OverallPassed, report.ValidationScore)
	}
}

func TestEngineErroredRuleCountsAsFailure(t *testing.T) {
	runner := &stubRunner{
		exitCodes: map[string]int{"ok": 0},
		errs:      map[string]error{"boom": context.Canceled},
	}
	engine := NewEngine(runner, rules.NewRegistry())

	report := engine.Validate(context.Background(),
		[]models.ValidationRule{commandRule("a", "ok"), commandRule("b", "boom")},
		rules.Context{}, "t", 1)

	if report.ErroredRules != 1 {
		t.Fatalf("ErroredRules = %d, want 1", report.ErroredRules)
	}
	if report.OverallPassed {
		t.Error("a report with errored rules must not pass overall")
	}
	if report.ValidationScore != 50 {
		t.Errorf("ValidationScore = %v, want 50 (errored counts as failure)", report.ValidationScore)
	}
}

func TestEngineSkipsDisabledRules(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{"ok": 0, "bad": 1}}
	engine := NewEngine(runner, rules.NewRegistry())

	disabled := false
	failing := commandRule("bad", "bad")
	failing.Enabled = &disabled

	report := engine.Validate(context.Background(),
		[]models.ValidationRule{commandRule("a", "ok"), failing},
		rules.Context{}, "t", 1)

	if len(report.Results) != 1 {
		t.Fatalf("Results = %d entries, want 1 (disabled rule excluded)", len(report.Results))
	}
	if !report.OverallPassed || report.ValidationScore != 100 {
		t.Errorf("disabled failing rule affected the report: passed=%v score=%v",
			report.OverallPassed, report.ValidationScore)
	}
}

func TestEngineEmptyRuleSet(t *testing.T) {
	engine := NewEngine(&stubRunner{}, rules.NewRegistry())
	report := engine.Validate(context.Background(), nil, rules.Context{}, "t", 1)
	if !report.OverallPassed || report.ValidationScore != 100 {
		t.Errorf("empty rule set: passed=%v score=%v, want true/100", report.OverallPassed, report.ValidationScore)
	}
}

func TestEngineResultsSortedByName(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{"ok": 0}}
	engine := NewEngine(runner, rules.NewRegistry())

	report := engine.Validate(context.Background(),
		[]models.ValidationRule{commandRule("zeta", "ok"), commandRule("alpha", "ok"), commandRule("mid", "ok")},
		rules.Context{}, "t", 1)

	want := []string{"alpha", "mid", "zeta"}
	for i, res := range report.Results {
		if res.RuleName != want[i] {
			t.Fatalf("Results[%d] = %s, want %s", i, res.RuleName, want[i])
		}
	}
}
