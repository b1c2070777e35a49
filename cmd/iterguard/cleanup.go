package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iterguard/iterguard/internal/config"
)

var (
	cleanupForce     bool
	cleanupDryRun    bool
	cleanupOlderThan time.Duration
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge old closed chains and expired checkpoints",
	Long: `Delete closed chains older than the retention period, along with
their checkpoints and validation records, and drop any checkpoints
whose expiry has passed. Active chains are never touched.

Examples:
  iterguard cleanup                   # Interactive cleanup with confirmation
  iterguard cleanup --force           # Skip confirmation prompt
  iterguard cleanup --dry-run         # Show what would be removed
  iterguard cleanup --older-than 168h # Override the retention period`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without removing")
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 0, "Purge closed chains older than this (default: configured retention)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	olderThan := cleanupOlderThan
	if olderThan == 0 {
		olderThan = cfg.Retention.PurgeAfter
	}

	dbPath, err := resolveDBPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No database found - nothing to clean up.")
		return nil
	}

	db, err := openStoreAt(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if cleanupDryRun {
		chains, err := db.ListChains(false)
		if err != nil {
			return err
		}
		cutoff := time.Now().Add(-olderThan)
		count := 0
		for _, c := range chains {
			if !c.Active && c.ClosedAt != nil && c.ClosedAt.Before(cutoff) {
				count++
			}
		}
		fmt.Printf("Dry run: would purge %d chain(s) closed more than %s ago.\n", count, olderThan)
		return nil
	}

	if !cleanupForce {
		fmt.Printf("Purge chains closed more than %s ago? [y/N] ", olderThan)
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cleanup cancelled.")
			return nil
		}
	}

	purged, err := db.PurgeClosedChains(olderThan)
	if err != nil {
		return fmt.Errorf("purge closed chains: %w", err)
	}
	expired, err := db.PurgeExpiredCheckpoints()
	if err != nil {
		return fmt.Errorf("purge expired checkpoints: %w", err)
	}

	if purged == 0 && expired == 0 {
		fmt.Println("Nothing to purge.")
		return nil
	}
	if purged > 0 {
		fmt.Printf("Purged %d closed chain(s).\n", purged)
	}
	if expired > 0 {
		fmt.Printf("Purged %d expired checkpoint(s).\n", expired)
	}
	return nil
}
