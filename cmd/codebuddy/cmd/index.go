package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/phuetz/code-buddy/internal/index"
	"github.com/phuetz/code-buddy/internal/ui"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the project into the local vector store",
		Long: `Index walks the project tree, chunks every supported source file,
embeds the chunks, and stores them in the local index under .codebuddy/.
Re-running replaces the chunks of changed files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd)
		},
	}
	return cmd
}

func runIndex(cmd *cobra.Command) error {
	printer := ui.NewPrinter(os.Stdout, flagNoColor)

	a, err := newApp(flagRoot)
	if err != nil {
		return err
	}
	defer a.Close()

	a.index.Subscribe(func(ev index.Event) {
		switch ev.Type {
		case index.EventFilesFound:
			printer.Printf("found %d files\n", ev.Files)
		case index.EventFileProcessed:
			if ev.Processed%50 == 0 || ev.Processed == ev.Total {
				printer.Printf("  %d/%d files\n", ev.Processed, ev.Total)
			}
		}
	})

	printer.Header("Indexing " + a.root)
	result, err := a.index.IndexCodebase(cmd.Context(), a.root)
	if err != nil {
		return err
	}

	printer.Success("indexed %d chunks from %d files in %s",
		result.TotalChunks, result.TotalFiles-result.Failed, ui.Duration(result.Duration))
	if result.Failed > 0 {
		printer.Warn("skipped %d files (binary, unreadable, or unsupported)", result.Failed)
	}
	return nil
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flagRoot)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.index.Clear(); err != nil {
				return err
			}
			ui.NewPrinter(os.Stdout, flagNoColor).Success("index cleared")
			return nil
		},
	}
}
