package notify

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/steveyegge/kanbeads/internal/ui"
)

// Handler priorities
const (
	PriorityLog      = 10
	PriorityRecorder = 20
	PriorityToast    = 30
	PriorityEventLog = 40
)

// LogHandler writes every notification to a zap logger.
type LogHandler struct {
	log *zap.Logger
}

// NewLogHandler returns a handler logging to log.
func NewLogHandler(log *zap.Logger) *LogHandler { return &LogHandler{log: log} }

func (h *LogHandler) ID() string      { return "log" }
func (h *LogHandler) Handles() []Type { return nil }
func (h *LogHandler) Priority() int   { return PriorityLog }

func (h *LogHandler) Handle(_ context.Context, n *Notification) error {
	fields := []zap.Field{zap.String("type", string(n.Type))}
	if n.Op != "" {
		fields = append(fields, zap.String("op", n.Op))
	}
	if n.Kind != "" {
		fields = append(fields, zap.String("kind", string(n.Kind)))
	}
	if !n.EntityID.IsZero() {
		fields = append(fields, zap.Stringer("id", n.EntityID))
	}
	if !n.TempID.IsZero() {
		fields = append(fields, zap.Stringer("temp_id", n.TempID))
	}
	if n.CorrelationID != "" {
		fields = append(fields, zap.String("correlation_id", n.CorrelationID))
	}
	if n.Err != nil {
		fields = append(fields, zap.Error(n.Err))
	}
	level := zapcore.InfoLevel
	switch n.Level {
	case LevelWarning:
		level = zapcore.WarnLevel
	case LevelError:
		level = zapcore.ErrorLevel
	case LevelSuccess:
		level = zapcore.DebugLevel
	}
	h.log.Log(level, n.Summary(), fields...)
	return nil
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) ID() string      { return "recorder" }
func (r *Recorder) Handles() []Type { return nil }
func (r *Recorder) Priority() int   { return PriorityRecorder }

func (r *Recorder) Handle(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *n)
	return nil
}

// Notify lets a Recorder stand in for a Bus.
func (r *Recorder) Notify(ctx context.Context, n *Notification) { _ = r.Handle(ctx, n) }

// All returns the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

// OfType returns the recorded notifications of type t.
func (r *Recorder) OfType(t Type) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.items {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// ToastHandler prints notifications as terminal toasts.
type ToastHandler struct {
	mu     sync.Mutex
	w      io.Writer
	levels map[Level]bool
}

// NewToastHandler prints toasts of the given levels (all when empty) to w.
func NewToastHandler(w io.Writer, levels ...Level) *ToastHandler {
	h := &ToastHandler{w: w}
	if len(levels) > 0 {
		h.levels = make(map[Level]bool, len(levels))
		for _, l := range levels {
			h.levels[l] = true
		}
	}
	return h
}

func (h *ToastHandler) ID() string      { return "toast" }
func (h *ToastHandler) Handles() []Type { return nil }
func (h *ToastHandler) Priority() int   { return PriorityToast }

func (h *ToastHandler) Handle(_ context.Context, n *Notification) error {
	if h.levels != nil && !h.levels[n.Level] {
		return nil
	}
	level := ui.ToastInfo
	switch n.Level {
	case LevelSuccess:
		level = ui.ToastSuccess
	case LevelWarning:
		level = ui.ToastWarning
	case LevelError:
		level = ui.ToastError
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, ui.RenderToast(level, n.Title, n.Message))
	return err
}

// EventRecorder is the subset of debug.EventLog used by EventLogHandler.
type EventRecorder interface {
	Record(code, entityID, correlationID, details string)
}

// EventLogHandler appends reconcile outcomes to an event log.
type EventLogHandler struct {
	log EventRecorder
}

func NewEventLogHandler(log EventRecorder) *EventLogHandler { return &EventLogHandler{log: log} }

func (h *EventLogHandler) ID() string { return "event-log" }

func (h *EventLogHandler) Handles() []Type {
	return []Type{TypeReconciled, TypeReconcileDiscarded, TypeRolledBack, TypeMutationFailed}
}

func (h *EventLogHandler) Priority() int { return PriorityEventLog }

func (h *EventLogHandler) Handle(_ context.Context, n *Notification) error {
	id := n.EntityID.String()
	if id == "" {
		id = n.TempID.String()
	}
	h.log.Record(string(n.Type), id, n.CorrelationID, n.Summary())
	return nil
}
