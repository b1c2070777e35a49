package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iterguard/iterguard/internal/config"
	"github.com/iterguard/iterguard/pkg/models"
)

var completeSummary string

var completeCmd = &cobra.Command{
	Use:   "complete <task-id> [success|blocked|escalated]",
	Short: "Close the task's iteration chain",
	Long: `Close the task's active chain with a terminal outcome. No further
iterations are possible afterwards; starting the task again creates a
fresh chain.

The outcome defaults to success. When closing an escalated chain, the
stored summary automatically includes which guard fired and why.

  iterguard complete fix-auth
  iterguard complete fix-auth blocked --summary "needs schema migration approval"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().StringVar(&completeSummary, "summary", "", "Human-readable summary stored with the closed chain")
}

func runComplete(cmd *cobra.Command, args []string) error {
	taskID := args[0]
	outcome := models.OutcomeSuccess
	if len(args) > 1 {
		outcome = models.ChainOutcome(args[1])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctrl, _ := newController(db, cfg, taskID)
	summary, err := ctrl.Complete(cmd.Context(), taskID, outcome, completeSummary)
	if err != nil {
		return err
	}

	mark := color.GreenString("✓")
	if summary.Outcome != models.OutcomeSuccess {
		mark = color.YellowString("✓")
	}
	fmt.Printf("%s Task %s closed: %s\n", mark, taskID, summary.Outcome)
	fmt.Printf("  Iterations:  %d\n", summary.TotalIterations)
	fmt.Printf("  Final score: %.1f\n", summary.FinalScore)
	if summary.Summary != "" {
		fmt.Printf("  Summary:     %s\n", summary.Summary)
	}
	return nil
}
