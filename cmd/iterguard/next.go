package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iterguard/iterguard/internal/config"
	"github.com/iterguard/iterguard/internal/controller"
)

var nextNotes string

var nextCmd = &cobra.Command{
	Use:   "next <task-id>",
	Short: "Advance the task to the next iteration",
	Long: `Append the next checkpoint and advance the iteration counter.

Requires that the current iteration has been validated and that the
last validate signal was CONTINUE. A COMPLETE or BLOCKED signal means
the chain should be closed with 'iterguard complete' instead; an
ESCALATE means a safety guard stopped the loop.

  iterguard next fix-auth
  iterguard next fix-auth --notes "retrying with smaller diff"`,
	Args: cobra.ExactArgs(1),
	RunE: runNext,
}

func init() {
	nextCmd.Flags().StringVar(&nextNotes, "notes", "", "Free-text notes carried into the next iteration's context")
}

func runNext(cmd *cobra.Command, args []string) error {
	taskID := args[0]

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
	cp, err := ctrl.Next(cmd.Context(), taskID, nextNotes)
	if err != nil {
		if errors.Is(err, controller.ErrNotValidated) {
			return fmt.Errorf("%w: run 'iterguard validate %s' first", err, taskID)
		}
		return err
	}

	fmt.Printf("%s Task %s advanced to iteration %d of %d\n",
		color.GreenString("✓"), taskID, cp.IterationNumber, cp.Config.MaxIterations)
	fmt.Printf("  Checkpoint: %s (sequence %d)\n", cp.ID, cp.Sequence)
	return nil
}
