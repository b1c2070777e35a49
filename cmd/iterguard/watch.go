package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/iterguard/iterguard/internal/checkpoint"
	"github.com/iterguard/iterguard/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <task-id>",
	Short: "Watch a task's chain live",
	Long: `Open a live view of a task's iteration chain. The view re-reads the
checkpoint database whenever another iterguard process writes to it,
so you can leave it running while the loop advances in a separate
terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	dbPath, err := resolveDBPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no database found; run 'iterguard start %s' first", taskID)
	}

	db, err := openStoreAt(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	fetch := func() (tui.Snapshot, error) {
		var snap tui.Snapshot

		chain, err := db.Chain(taskID)
		if err != nil {
			if errors.Is(err, checkpoint.ErrNotFound) {
				return snap, nil
			}
			return snap, err
		}
		snap.Chain = chain

		cp, err := db.ResumeLatest(taskID)
		if err != nil && !errors.Is(err, checkpoint.ErrNotFound) {
			return snap, err
		}
		snap.Checkpoint = cp

		rec, err := db.LatestValidation(taskID)
		if err != nil && !errors.Is(err, checkpoint.ErrNotFound) {
			return snap, err
		}
		snap.Validation = rec

		return snap, nil
	}

	program := tui.NewWatchProgram(taskID, fetch)

	// SQLite in WAL mode writes the -wal file next to the database, so
	// watch the directory rather than the single file.
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(dbPath)); err == nil {
			go forwardDBChanges(program, watcher, dbPath)
		}
	}

	_, err = program.Run()
	return err
}

// forwardDBChanges turns database file writes into refresh messages.
func forwardDBChanges(program *tea.Program, watcher *fsnotify.Watcher, dbPath string) {
	base := filepath.Base(dbPath)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if name == base || name == base+"-wal" {
				program.Send(tui.RefreshMsg{})
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
