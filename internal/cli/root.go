// Package cli implements the tebell CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohhhamed/tebell/internal/config"
)

var dbPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "tebell",
	Short: "Lesson bell engine for school timetables",
	Long: "tebell keeps a teacher's weekly timetable, arms start and end of lesson\n" +
		"triggers while the teacher is at school, and serves the engine state over HTTP.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (default: $TEBELL_SQLITE_PATH or ./tebell.db)")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.SQLitePath = dbPath
	}
	return cfg, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
