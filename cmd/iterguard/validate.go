package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iterguard/iterguard/internal/config"
	"github.com/iterguard/iterguard/internal/controller"
	"github.com/iterguard/iterguard/pkg/models"
)

var (
	validateOutputFile string
	validateStdin      bool
	validateJSON       bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <task-id>",
	Short: "Validate the current iteration",
	Long: `Run the validation rules, the completion-signal detector, and the
safety guards against the current iteration.

Validation never changes session state: run it as often as needed
before deciding to advance or complete. The printed signal tells you
what to do next:

  CONTINUE  run 'iterguard next' and iterate again
  COMPLETE  run 'iterguard complete <task> success'
  BLOCKED   run 'iterguard complete <task> blocked'
  ESCALATE  a safety guard fired; hand the task to a human

Agent output is read from the session data directory. Use
--output-file or --stdin to drop the agent's latest output in place
first:

  iterguard validate fix-auth --output-file /tmp/agent-out.txt
  some-agent run | iterguard validate fix-auth --stdin`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateOutputFile, "output-file", "", "File holding the agent's latest output")
	validateCmd.Flags().BoolVar(&validateStdin, "stdin", false, "Read the agent's latest output from stdin")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the result as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	ctrl, texts := newController(db, cfg, taskID)

	if validateOutputFile != "" || validateStdin {
		output, err := readAgentOutput()
		if err != nil {
			return err
		}
		if err := texts.WriteAgentOutput(taskID, output); err != nil {
			return err
		}
	}

	result, err := ctrl.Validate(cmd.Context(), taskID)
	if err != nil {
		return err
	}

	if validateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	displayValidateResult(taskID, result)
	return nil
}

func readAgentOutput() (string, error) {
	if validateOutputFile != "" {
		data, err := os.ReadFile(validateOutputFile)
		if err != nil {
			return "", fmt.Errorf("read agent output: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read agent output from stdin: %w", err)
	}
	return string(data), nil
}

func displayValidateResult(taskID string, result *controller.ValidateResult) {
	fmt.Printf("Task %s, iteration %d\n", taskID, result.Iteration)

	if result.Report != nil {
		for _, res := range result.Report.Results {
			switch {
			case res.Errored():
				fmt.Printf("  %s %s: %s\n", color.YellowString("!"), res.RuleName, res.Error)
			case res.Passed:
				fmt.Printf("  %s %s\n", color.GreenString("✓"), res.RuleName)
			default:
				fmt.Printf("  %s %s: %s\n", color.RedString("✗"), res.RuleName, res.Message)
			}
		}
		fmt.Printf("  Score: %.1f (%d passed, %d failed, %d errored)\n",
			result.ValidationScore,
			result.Report.PassedRules, result.Report.FailedRules, result.Report.ErroredRules)
	}

	fmt.Printf("  Signal: %s\n", colorSignal(result.Signal))
	if result.DetectedPattern != "" {
		fmt.Printf("  Matched pattern: %s\n", result.DetectedPattern)
	}
	if result.Escalation != nil {
		fmt.Printf("  Guard: %s — %s\n", result.Escalation.Guard, result.Escalation.Reason)
		if result.Escalation.Evidence != "" {
			fmt.Printf("  Evidence: %s\n", result.Escalation.Evidence)
		}
	}
}

func colorSignal(s models.Signal) string {
	switch s {
	case models.SignalContinue:
		return color.CyanString(string(s))
	case models.SignalComplete:
		return color.GreenString(string(s))
	case models.SignalBlocked:
		return color.YellowString(string(s))
	case models.SignalEscalate:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}
