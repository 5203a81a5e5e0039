package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohhhamed/tebell/internal/bell"
	"github.com/mohhhamed/tebell/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a schedule document",
		Long:  "Import a weekly schedule document from a JSON file or stdin. The import replaces the stored schedule wholesale.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var reader io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open document", err)
		}
		defer f.Close()
		reader = f
	}

	doc, err := store.DecodeDocument(reader)
	if err != nil {
		exitErr("parse document", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load configuration", err)
	}
	storage, err := store.Open(cfg.SQLitePath)
	if err != nil {
		exitErr("open storage", err)
	}
	defer storage.Close()

	// The service path gives imports the same validation the daemon applies.
	svc := bell.NewService(bell.Options{Store: storage})
	sched, err := svc.ImportSchedule(cmd.Context(), doc)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"version":%d,"lessons":%d}`+"\n", sched.Version(), sched.Len())
}
