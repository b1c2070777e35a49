package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iterguard/iterguard/internal/checkpoint"
	"github.com/iterguard/iterguard/internal/config"
)

var (
	startRulesFile     string
	startWorkDir       string
	startMaxIterations int
	startContext       []string
)

var startCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Start an iteration session for a task",
	Long: `Start a new iteration chain for a task.

Creates the project-local .iterguard directory next to the working
directory, opens the checkpoint database, and records the first
checkpoint at iteration 1. Fails if the task already has an active
chain.

The rule file defines validation rules and can override the configured
iteration ceiling, circuit-breaker threshold, and signal patterns:

  iterguard start fix-auth --rules rules.yaml
  iterguard start fix-auth --dir ~/src/app --max-iterations 5
  iterguard start fix-auth --context branch=fix/auth --context owner=backend`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startRulesFile, "rules", "", "Path to a YAML rule file")
	startCmd.Flags().StringVar(&startWorkDir, "dir", "", "Working directory for command rules (default: current directory)")
	startCmd.Flags().IntVar(&startMaxIterations, "max-iterations", 0, "Override the iteration ceiling")
	startCmd.Flags().StringArrayVar(&startContext, "context", nil, "Opaque key=value context round-tripped across iterations (repeatable)")
}

func runStart(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	workDir := startWorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	rf := &config.RuleFile{}
	if startRulesFile != "" {
		if rf, err = config.LoadRuleFile(startRulesFile); err != nil {
			return err
		}
	}

	iterCfg := rf.IterationConfig(cfg)
	if startMaxIterations > 0 {
		iterCfg.MaxIterations = startMaxIterations
	}

	agentContext, err := parseContextPairs(startContext)
	if err != nil {
		return err
	}

	db, err := openStoreAt(checkpoint.ProjectDBPath(workDir))
	if err != nil {
		return err
	}
	defer db.Close()

	ctrl, _ := newController(db, cfg, taskID)
	cp, err := ctrl.Start(cmd.Context(), taskID, workDir, iterCfg, agentContext)
	if err != nil {
		return err
	}

	fmt.Printf("%s Started chain for task %s\n", color.GreenString("✓"), taskID)
	fmt.Printf("  Checkpoint: %s\n", cp.ID)
	fmt.Printf("  Iteration:  %d of %d\n", cp.IterationNumber, cp.Config.MaxIterations)
	fmt.Printf("  Rules:      %d\n", len(cp.Config.ValidationRules))
	fmt.Printf("  Database:   %s\n", db.Path())
	return nil
}

// parseContextPairs converts repeated key=value flags into a map.
func parseContextPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid context pair %q (expected key=value)", pair)
		}
		out[key] = value
	}
	return out, nil
}
