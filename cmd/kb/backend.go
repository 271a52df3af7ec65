package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/config"
	"github.com/steveyegge/kanbeads/internal/debug"
	"github.com/steveyegge/kanbeads/internal/deps"
	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/reconcile"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/remote/httpstore"
	"github.com/steveyegge/kanbeads/internal/remote/memstore"
	"github.com/steveyegge/kanbeads/internal/remote/redisstore"
	"github.com/steveyegge/kanbeads/internal/remote/sqlstore"
	"github.com/steveyegge/kanbeads/internal/telemetry"
	"github.com/steveyegge/kanbeads/internal/transition"
	"github.com/steveyegge/kanbeads/internal/workflow"
)

// openStore connects to the configured backend. The result is instrumented
// when telemetry is enabled.
func openStore(ctx context.Context, rs config.RemoteSettings) (remote.DocumentStore, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	debug.Logf("opening %s store", rs.Backend)

	var (
		s   remote.DocumentStore
		err error
	)
	switch rs.Backend {
	case config.BackendMem:
		s = memstore.New()
	case config.BackendFile:
		s, err = memstore.OpenFile(storePath(rs.Path))
	case config.BackendRedis:
		s, err = redisstore.Open(ctx, rs.URL, rs.RedisPrefix)
	case config.BackendMySQL:
		s, err = sqlstore.Open(ctx, rs.URL, sqlstore.WithRetryMaxElapsed(rs.RetryMaxElapsed))
	case config.BackendHTTP:
		c := httpstore.New(rs.URL, rs.Timeout)
		if err := c.Health(ctx); err != nil {
			return nil, fmt.Errorf("remote %s: %w", rs.URL, err)
		}
		s = c
	default:
		return nil, fmt.Errorf("unknown backend %q", rs.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", rs.Backend, err)
	}
	return telemetry.WrapDocumentStore(s), nil
}

// storePath anchors a relative store path at the project root, when there
// is one.
func storePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	dir, err := config.ProjectDir()
	if err != nil {
		return path
	}
	return filepath.Join(filepath.Dir(dir), path)
}

// newAuthorizer builds the transition rules from workflow.* settings.
func newAuthorizer(log *zap.Logger) *transition.Authorizer {
	wf := config.GetWorkflowSettings()
	eval := deps.New(workflow.New(wf.Aliases), deps.WithResolutionHook(func(e *deps.ResolutionError) {
		log.Warn("unresolved dependency", zap.Stringer("card", e.CardID), zap.Error(e))
	}))
	return transition.New(eval, wf.Locale)
}

// newBus routes manager notifications to the log, the terminal and the
// project event log. The recorder keeps outcomes for settle.
func newBus(log *zap.Logger) (*notify.Bus, *notify.Recorder) {
	bus := notify.NewBus(log)
	bus.Register(notify.NewLogHandler(log))

	rec := notify.NewRecorder()
	bus.Register(rec)

	if !quietFlag && !jsonOutput {
		levels := []notify.Level{notify.LevelWarning}
		if verboseFlag {
			levels = nil
		}
		bus.Register(notify.NewToastHandler(os.Stderr, levels...))
	}
	if dir, err := config.ProjectDir(); err == nil {
		bus.Register(notify.NewEventLogHandler(debug.NewEventLog(dir)))
	}
	return bus, rec
}

func managerConfig(rs config.RemoteSettings) reconcile.Config {
	cfg := reconcile.DefaultConfig()
	cfg.Timeout = rs.Timeout
	cfg.RetryMaxElapsed = rs.RetryMaxElapsed
	cfg.RollbackOnFailure = rs.RollbackOnFailure
	cfg.LoadConcurrency = rs.LoadConcurrency
	return cfg
}

// openManager opens the store and loads every board into a new manager.
func openManager(ctx context.Context) error {
	rs := config.GetRemoteSettings()
	s, err := openStore(ctx, rs)
	if err != nil {
		return err
	}
	bus, rec := newBus(logger)
	recorder = rec
	manager = reconcile.New(remote.New(s),
		reconcile.WithLogger(logger),
		reconcile.WithNotifier(bus),
		reconcile.WithAuthorizer(newAuthorizer(logger)),
		reconcile.WithConfig(managerConfig(rs)),
	)
	if err := manager.LoadAll(ctx); err != nil {
		return err
	}
	debug.Logf("loaded %d board(s)", len(manager.Boards()))
	return nil
}
