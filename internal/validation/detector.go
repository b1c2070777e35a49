package validation

import (
	"fmt"

	"github.com/iterguard/iterguard/internal/rules"
	"github.com/iterguard/iterguard/pkg/models"
)

// Detection is the outcome of scanning agent output for recognized markers.
// The detector returns at most one of CONTINUE, COMPLETE, or BLOCKED;
// ESCALATE is only ever produced by the safety guards.
type Detection struct {
	// Signal is CONTINUE when no pattern matched.
	Signal models.Signal
	// Pattern is the configured pattern that matched, if any.
	Pattern string
	// Matched is the text the pattern matched.
	Matched string
}

// DetectSignal scans agent output for the session's completion and blocked
// markers. Precedence when both appear in the same output is fixed:
// BLOCKED > COMPLETE > CONTINUE — a blocking condition always overrides an
// optimistic completion claim recorded in the same turn.
//
// Detection is two sets of implicit content_pattern rules layered over the
// configured rule set, matched against agent output only. Invalid patterns
// are skipped here; ValidatePatterns rejects them before a session starts.
func DetectSignal(agentOutput string, cfg models.IterationConfig) Detection {
	if match, ok := firstMatch(agentOutput, cfg.BlockedPatterns); ok {
		return Detection{Signal: models.SignalBlocked, Pattern: match.pattern, Matched: match.text}
	}
	if match, ok := firstMatch(agentOutput, cfg.CompletionPatterns); ok {
		return Detection{Signal: models.SignalComplete, Pattern: match.pattern, Matched: match.text}
	}
	return Detection{Signal: models.SignalContinue}
}

type patternMatch struct {
	pattern string
	text    string
}

func firstMatch(text string, patterns []string) (patternMatch, bool) {
	for _, p := range patterns {
		re, err := rules.CompilePattern(p, "")
		if err != nil {
			continue
		}
		// FindStringIndex, not FindString: an empty-width match is still
		// a match and must not read as "no marker".
		if loc := re.FindStringIndex(text); loc != nil {
			return patternMatch{pattern: p, text: text[loc[0]:loc[1]]}, true
		}
	}
	return patternMatch{}, false
}

// ValidatePatterns verifies every completion and blocked pattern compiles.
// Called before a session starts so bad patterns fail fast instead of being
// silently skipped mid-loop.
func ValidatePatterns(cfg models.IterationConfig) error {
	for _, p := range cfg.CompletionPatterns {
		if _, err := rules.CompilePattern(p, ""); err != nil {
			return fmt.Errorf("completion pattern %q: %w", p, err)
		}
	}
	for _, p := range cfg.BlockedPatterns {
		if _, err := rules.CompilePattern(p, ""); err != nil {
			return fmt.Errorf("blocked pattern %q: %w", p, err)
		}
	}
	return nil
}
