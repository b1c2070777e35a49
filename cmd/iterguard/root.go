package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iterguard/iterguard/internal/checkpoint"
	"github.com/iterguard/iterguard/internal/config"
	"github.com/iterguard/iterguard/internal/controller"
	"github.com/iterguard/iterguard/internal/exec"
	"github.com/iterguard/iterguard/internal/rules"
	"github.com/iterguard/iterguard/internal/textstore"
	"github.com/iterguard/iterguard/internal/validation"
)

var rootCmd = &cobra.Command{
	Use:   "iterguard",
	Short: "Iteration Validation & Checkpoint Engine",
	Long: `Iterguard drives bounded iteration loops for agent tasks: it validates
each iteration against declarative rules, detects completion and blocked
signals in agent output, and records every step as an append-only
checkpoint so a crashed loop resumes exactly where it stopped.

Typical flow:
  iterguard start my-task --rules rules.yaml
  iterguard validate my-task --output-file out.txt
  iterguard next my-task
  ...
  iterguard complete my-task success`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the project database if one exists under the
// current directory, otherwise the global database.
func resolveDBPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	dbPath := checkpoint.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = checkpoint.GlobalDBPath()
	}
	return dbPath, nil
}

// openStore opens the resolved database and brings the schema up to date.
func openStore() (*checkpoint.DB, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, err
	}
	return openStoreAt(dbPath)
}

func openStoreAt(dbPath string) (*checkpoint.DB, error) {
	db, err := checkpoint.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// dataDirFor returns the session data directory holding task texts and
// logs, which sits next to the database file.
func dataDirFor(db *checkpoint.DB) string {
	return filepath.Dir(db.Path())
}

// newController wires the validation engine and controller around an open
// store, with a session log when a task id is known.
func newController(db *checkpoint.DB, cfg *config.Config, taskID string) (*controller.Controller, *textstore.FileProvider) {
	engine := validation.NewEngine(exec.NewRunner(), rules.NewRegistry())
	engine.SetDefaultCommandTimeout(cfg.Timeouts.Command)

	texts := textstore.NewFileProvider(dataDirFor(db))

	opts := []controller.Option{}
	if taskID != "" {
		opts = append(opts, controller.WithLogger(
			controller.NewSessionLoggerForTask(dataDirFor(db), taskID)))
	}

	return controller.New(db, engine, texts, opts...), texts
}
