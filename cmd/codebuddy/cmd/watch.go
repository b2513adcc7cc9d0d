package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phuetz/code-buddy/internal/ui"
	"github.com/phuetz/code-buddy/internal/watch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the project and keep the index up to date",
		Long: `Watch indexes the project, then monitors the file tree and reindexes
changed files as they are saved. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
	}
}

// skippedDirs never trigger reindexing in watch mode.
var skippedDirs = map[string]bool{
	".git":         true,
	".codebuddy":   true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

func runWatch(cmd *cobra.Command) error {
	printer := ui.NewPrinter(os.Stdout, flagNoColor)

	a, err := newApp(flagRoot)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.index.IndexCodebase(cmd.Context(), a.root); err != nil {
		return err
	}
	printer.Success("initial index complete, watching %s", a.root)

	skip := func(path string) bool {
		for _, part := range strings.Split(filepath.ToSlash(path), "/") {
			if skippedDirs[part] {
				return true
			}
		}
		return false
	}

	watcher, err := watch.New(a.cfg.Watch.Debounce, skip)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := watcher.Start(ctx, a.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			printer.Println("stopping")
			return nil
		case err := <-watcher.Errors():
			printer.Warn("watch error: %v", err)
		case batch, ok := <-watcher.Batches():
			if !ok {
				return nil
			}
			for _, ev := range batch {
				applyEvent(ctx, a, printer, ev)
			}
		}
	}
}

func applyEvent(ctx context.Context, a *app, printer *ui.Printer, ev watch.Event) {
	rel, err := filepath.Rel(a.root, ev.Path)
	if err != nil || !a.index.ShouldIndex(rel) {
		return
	}

	switch ev.Op {
	case watch.OpDelete:
		if err := a.index.RemoveFile(ev.Path); err != nil {
			printer.Warn("remove %s: %v", ev.Path, err)
			return
		}
		printer.Printf("removed %s\n", ev.Path)
	default:
		info, err := os.Stat(ev.Path)
		if err != nil || info.IsDir() {
			return
		}
		result := a.index.IndexFile(ctx, ev.Path)
		if !result.Success {
			printer.Printf("skipped %s: %s\n", ev.Path, result.Error)
			return
		}
		printer.Printf("reindexed %s (%d chunks)\n", ev.Path, result.ChunkCount)
	}
}
