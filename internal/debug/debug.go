// Package debug prints human diagnostics for --verbose runs and keeps the
// optional reconcile event log.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	enabled     = os.Getenv("KB_DEBUG") != ""
	verboseMode = false
	quietMode   = false

	mu     sync.Mutex
	stderr io.Writer = os.Stderr
	stdout io.Writer = os.Stdout
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet suppresses non-essential output
func SetQuiet(quiet bool) {
	quietMode = quiet
}

func IsQuiet() bool {
	return quietMode
}

func Logf(format string, args ...any) {
	if Enabled() {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(stderr, format, args...)
	}
}

// PrintNormal prints unless quiet mode is on.
func PrintNormal(format string, args ...any) {
	if !quietMode {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(stdout, format, args...)
	}
}

// EventLog appends reconcile events to a file, one per line:
// TIMESTAMP|CODE|ENTITY|CORRELATION|DETAILS
type EventLog struct {
	path string
	mu   sync.Mutex
}

// NewEventLog logs to <dir>/events.log.
func NewEventLog(dir string) *EventLog {
	return &EventLog{path: filepath.Join(dir, "events.log")}
}

// Path returns the log file path.
func (l *EventLog) Path() string { return l.path }

// Record appends one event. Failures are reported on the debug stream and
// otherwise ignored.
func (l *EventLog) Record(code, entityID, correlationID, details string) {
	if entityID == "" {
		entityID = "none"
	}
	entry := fmt.Sprintf("%s|%s|%s|%s|%s\n",
		time.Now().UTC().Format(time.RFC3339), code, entityID, correlationID, details)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		Logf("event log: %v\n", err)
		return
	}
	// #nosec G304 - path derived from the workspace directory
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		Logf("event log: %v\n", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		Logf("event log: %v\n", err)
	}
}
