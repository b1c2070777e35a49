package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iterguard/iterguard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the effective configuration after merging built-in defaults,
the user config (~/.config/iterguard/config.yaml), the project config
(.iterguard.yaml in the current directory or a parent), and ITERGUARD_*
environment variables.`,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Config files:")
	userPath := config.GetUserConfigPath()
	if _, err := os.Stat(userPath); err == nil {
		fmt.Printf("  user:    %s\n", userPath)
	} else {
		fmt.Printf("  user:    %s (not present)\n", userPath)
	}
	if projectPath := config.GetProjectConfigPath(); projectPath != "" {
		fmt.Printf("  project: %s\n", projectPath)
	} else {
		fmt.Println("  project: none")
	}

	fmt.Println()
	fmt.Println("Effective settings:")
	fmt.Printf("  defaults.max_iterations:          %d\n", cfg.Defaults.MaxIterations)
	fmt.Printf("  guards.circuit_breaker_threshold: %d\n", cfg.Guards.CircuitBreakerThreshold)
	fmt.Printf("  guards.regression_window:         %d\n", cfg.Guards.RegressionWindow)
	fmt.Printf("  guards.regression_drop:           %.1f\n", cfg.Guards.RegressionDrop)
	fmt.Printf("  timeouts.command:                 %s\n", cfg.Timeouts.Command)
	fmt.Printf("  retention.purge_after:            %s\n", cfg.Retention.PurgeAfter)
	fmt.Println("  patterns.completion:")
	for _, p := range cfg.Patterns.Completion {
		fmt.Printf("    - %s\n", p)
	}
	fmt.Println("  patterns.blocked:")
	for _, p := range cfg.Patterns.Blocked {
		fmt.Printf("    - %s\n", p)
	}
	return nil
}
