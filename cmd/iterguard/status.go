package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iterguard/iterguard/internal/checkpoint"
	"github.com/iterguard/iterguard/internal/guards"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show chain state",
	Long: `Display iteration chains in the checkpoint database.

Without arguments, lists active chains and the most recent closed
ones. With a task id, shows that task's chain in detail: iteration
progress, score history, the latest validate outcome, and the current
failure streak.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveDBPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No database found. Run 'iterguard start <task-id>' to begin.")
		return nil
	}

	db, err := openStoreAt(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 1 {
		return displayTask(db, args[0])
	}
	return displayChains(db)
}

func displayTask(db *checkpoint.DB, taskID string) error {
	chain, err := db.Chain(taskID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			fmt.Printf("No chain found for task %s.\n", taskID)
			return nil
		}
		return err
	}

	fmt.Printf("Task %s\n", taskID)
	if chain.Active {
		fmt.Printf("  State:    %s\n", color.CyanString("active"))
	} else {
		fmt.Printf("  State:    closed (%s)\n", chain.Outcome)
		if chain.Summary != "" {
			fmt.Printf("  Summary:  %s\n", chain.Summary)
		}
	}
	fmt.Printf("  WorkDir:  %s\n", chain.WorkDir)
	fmt.Printf("  Started:  %s ago\n", formatDuration(time.Since(chain.CreatedAt)))
	if chain.ClosedAt != nil {
		fmt.Printf("  Closed:   %s ago\n", formatDuration(time.Since(*chain.ClosedAt)))
	}

	if !chain.Active {
		return nil
	}

	cp, err := db.ResumeLatest(taskID)
	if err != nil {
		return err
	}

	fmt.Printf("  Iteration: %d of %d (checkpoint %s)\n",
		cp.IterationNumber, cp.Config.MaxIterations, cp.ID)

	if len(cp.History) > 0 {
		fmt.Println("  History:")
		for _, entry := range cp.History {
			mark := color.RedString("✗")
			if entry.Passed {
				mark = color.GreenString("✓")
			}
			fmt.Printf("    %s iteration %d: score %.1f\n", mark, entry.Iteration, entry.Score)
		}
	}

	rec, err := db.LatestValidation(taskID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			fmt.Println("  Last validate: none yet")
			return nil
		}
		return err
	}

	fmt.Printf("  Last validate: iteration %d, score %.1f, signal %s\n",
		rec.Iteration, rec.Report.ValidationScore, colorSignal(rec.Signal))
	if rec.Guard != "" {
		fmt.Printf("  Guard: %s (%s)\n", rec.Guard, rec.Reason)
	}

	report := rec.Report
	if rec.Iteration != cp.IterationNumber {
		// The latest record belongs to an earlier iteration; the streak
		// then only counts history.
		report = nil
	}
	if streak := guards.FailureStreak(cp.History, report); streak > 0 {
		fmt.Printf("  Failure streak: %d (breaker threshold %d)\n",
			streak, cp.Config.CircuitBreakerThreshold)
	}
	return nil
}

func displayChains(db *checkpoint.DB) error {
	chains, err := db.ListChains(false)
	if err != nil {
		return err
	}
	if len(chains) == 0 {
		fmt.Println("No chains. Run 'iterguard start <task-id>' to begin.")
		return nil
	}

	var active, closed []checkpoint.ChainSummary
	for _, c := range chains {
		if c.Active {
			active = append(active, c)
		} else if len(closed) < 5 {
			closed = append(closed, c)
		}
	}

	if len(active) > 0 {
		fmt.Println("Active chains:")
		for _, c := range active {
			fmt.Printf("  %s: iteration %d, %d checkpoint(s), started %s ago\n",
				c.TaskID, c.Iteration, c.Checkpoints, formatDuration(time.Since(c.CreatedAt)))
		}
	} else {
		fmt.Println("No active chains.")
	}

	if len(closed) > 0 {
		fmt.Println()
		fmt.Println("Recent closed chains:")
		for _, c := range closed {
			age := formatDuration(time.Since(c.CreatedAt))
			if c.ClosedAt != nil {
				age = formatDuration(time.Since(*c.ClosedAt))
			}
			fmt.Printf("  %s: %s after %d iteration(s) (%s ago)\n",
				c.TaskID, c.Outcome, c.Iteration, age)
		}
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
