package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/boardfile"
	"github.com/steveyegge/kanbeads/internal/reconcile"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/remote/memstore"
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/ui"
)

const watchDebounce = 300 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:     "watch <file>",
	GroupID: "data",
	Short:   "Re-print blocked and ready cards whenever a snapshot changes",
	Long: `Load a snapshot file into a scratch board and print its blocked and
ready cards, then again each time the file is saved. Nothing is written to
the configured store.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		if err := watchSnapshot(rootCtx, args[0]); err != nil {
			FatalError("%v", err)
		}
	},
}

// boardReport is one board's evaluation.
type boardReport struct {
	Board   *types.Board         `json:"board"`
	Ready   []*types.Card        `json:"ready"`
	Blocked []*types.BlockedCard `json:"blocked"`
}

// evaluateSnapshot imports snap into an in-memory store and reports each
// board's ready and blocked cards.
func evaluateSnapshot(snap *boardfile.Snapshot, log *zap.Logger) ([]boardReport, []string, error) {
	m := reconcile.New(remote.New(memstore.New()),
		reconcile.WithLogger(log),
		reconcile.WithAuthorizer(newAuthorizer(log)),
	)
	defer func() { _ = m.Close() }()

	res, err := boardfile.Import(m, snap)
	if err != nil {
		return nil, nil, err
	}
	m.Wait()
	reports := make([]boardReport, 0, len(m.Boards()))
	for _, b := range m.Boards() {
		reports = append(reports, boardReport{Board: b, Ready: m.Ready(b.ID), Blocked: m.Blocked(b.ID)})
	}
	return reports, res.Warnings, nil
}

func printReports(path string) {
	snap, err := boardfile.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	reports, warnings, err := evaluateSnapshot(snap, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if jsonOutput {
		outputJSON(reports)
		return
	}
	for _, w := range warnings {
		WarnError("%s", w)
	}
	fmt.Printf("\n%s %s\n", ui.RenderMuted(time.Now().Format("15:04:05")), path)
	for _, r := range reports {
		fmt.Printf("\n%s\n", ui.RenderAccent(r.Board.Title))
		for _, c := range r.Ready {
			fmt.Printf("  %s %s\n", ui.RenderPass("ready  "), c.Title)
		}
		for _, b := range r.Blocked {
			labels := make([]string, len(b.Unmet))
			for i, d := range b.Unmet {
				labels[i] = d.Label()
			}
			fmt.Printf("  %s %s %s\n", ui.RenderFail("blocked"), b.Card.Title,
				ui.RenderMuted("waiting on "+strings.Join(labels, ", ")))
		}
	}
}

// watchSnapshot prints the report for path and again after every write,
// until ctx is cancelled. The directory is watched so editors that save by
// renaming are still seen.
func watchSnapshot(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	printReports(abs)
	fmt.Fprintf(os.Stderr, "\nWatching %s for changes... (Press Ctrl+C to exit)\n", path)

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Fprintf(os.Stderr, "\nStopped watching.\n")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || (!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create)) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() { printReports(abs) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
