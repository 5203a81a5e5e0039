package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohhhamed/tebell/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored schedule as JSON",
		Long:  "Export the stored schedule document in the interchange format accepted by import.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load configuration", err)
	}
	storage, err := store.Open(cfg.SQLitePath)
	if err != nil {
		exitErr("open storage", err)
	}
	defer storage.Close()

	loaded, err := storage.Load(cmd.Context())
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "error: no schedule has been imported")
		os.Exit(1)
	}
	if err != nil {
		exitErr("load schedule", err)
	}

	b, err := json.MarshalIndent(loaded.Document, "", "  ")
	if err != nil {
		exitErr("encode schedule", err)
	}
	fmt.Println(string(b))
}
