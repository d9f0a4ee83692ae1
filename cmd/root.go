package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/atomastery/internal/config"
	"github.com/abhisek/atomastery/internal/logger"
	"github.com/abhisek/atomastery/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "atomastery",
	Short:        "Per-element lesson mastery engine",
	Long:         "atomastery tracks mastery of the atomic elements of a lesson, schedules reviews and grades quizzes.",
	SilenceUsage: true,
}

// Execute runs the root command, cancelling its context on SIGINT or
// SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides MASTERY_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and builds the process logger.
func loadConfig() (config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log.WithSalt(cfg.LogHashSalt), nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then MASTERY_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
