package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/config"
	"github.com/steveyegge/kanbeads/internal/debug"
	"github.com/steveyegge/kanbeads/internal/logging"
	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/reconcile"
	"github.com/steveyegge/kanbeads/internal/telemetry"
)

var (
	// Version is the current version of kb (overridden by ldflags at build time)
	Version = "0.3.0"

	jsonOutput  bool
	actor       string
	boardRef    string
	backendFlag string
	verboseFlag bool
	quietFlag   bool

	rootCtx    context.Context
	rootCancel context.CancelFunc

	logger   *zap.Logger
	manager  *reconcile.Manager
	recorder *notify.Recorder
)

// skipStoreAnnotation marks commands that run without opening the store.
const skipStoreAnnotation = "kb:no-store"

var rootCmd = &cobra.Command{
	Use:   "kb",
	Short: "kb - kanban boards with dependency-aware moves",
	Long: `kb keeps kanban boards in a remote document store.

Cards can depend on other cards. A card cannot be moved to done while its
dependencies are unfinished, and a done card cannot be reopened while
unfinished cards depend on it. Changes apply locally first and are sent to
the store in the background; failed writes are rolled back.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		if !cmd.Flags().Changed("json") {
			jsonOutput = config.GetBool("json")
		}
		if !cmd.Flags().Changed("actor") {
			actor = config.GetString("actor")
		}
		if actor == "" {
			actor = os.Getenv("USER")
		}
		if !cmd.Flags().Changed("board") {
			boardRef = config.GetString("board")
		}
		if backendFlag != "" {
			config.Set("remote.backend", backendFlag)
		}

		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		level := config.GetString("log.level")
		if verboseFlag {
			level = "debug"
		}
		l, err := logging.New(level, config.GetString("log.format"))
		if err != nil {
			FatalError("%v", err)
		}
		logger = l.With(zap.String("actor", actor))

		if err := telemetry.Init(rootCtx, "kb", Version); err != nil {
			WarnError("telemetry disabled: %v", err)
		}

		if skipsStore(cmd) {
			return
		}
		if err := openManager(rootCtx); err != nil {
			FatalErrorWithHint(err.Error(), "check remote.backend and remote.url with 'kb config list'")
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Actor name recorded in logs (default: $USER)")
	rootCmd.PersistentFlags().StringVar(&boardRef, "board", "", "Board ID or title (default: the only board)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Override remote.backend (mem, file, redis, mysql, http)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "boards", Title: "Boards:"},
		&cobra.Group{ID: "cards", Title: "Cards:"},
		&cobra.Group{ID: "deps", Title: "Dependencies:"},
		&cobra.Group{ID: "data", Title: "Import/Export:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)
}

// skipsStore reports whether cmd or one of its parents opts out of the store.
func skipsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipStoreAnnotation] == "true" {
			return true
		}
	}
	return false
}

// shutdown waits for queued writes, closes the store and flushes telemetry.
// It is safe to call more than once.
func shutdown() {
	if manager != nil {
		m := manager
		manager = nil
		if err := m.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: closing store: %v\n", err)
		}
	}
	if rootCtx != nil {
		telemetry.Shutdown(rootCtx)
	}
	if logger != nil {
		_ = logging.Sync(logger)
	}
	if rootCancel != nil {
		rootCancel()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			outputJSONError(err, "")
		}
		FatalError("%v", err)
	}
}
