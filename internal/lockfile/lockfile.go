// Package lockfile guards a file-backed store against a second writer.
//
// The lock is an OS advisory lock (flock on Unix, LockFileEx on Windows) on
// a sidecar file. It is released by the kernel when the holder exits, so a
// crashed process never leaves a stale lock behind. The sidecar also
// records who holds it.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLockBusy is returned when another process holds the lock.
var ErrLockBusy = errors.New("lock held by another process")

// LockInfo is written into the lock file by its holder.
type LockInfo struct {
	PID       int       `json:"pid"`
	Command   string    `json:"command,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// BusyError reports the current holder of a busy lock, when known.
type BusyError struct {
	Path   string
	Holder *LockInfo
}

func (e *BusyError) Error() string {
	if e.Holder == nil {
		return fmt.Sprintf("%s: %v", e.Path, ErrLockBusy)
	}
	return fmt.Sprintf("%s: %v (pid %d, since %s)", e.Path, ErrLockBusy,
		e.Holder.PID, e.Holder.StartedAt.Local().Format(time.DateTime))
}

func (e *BusyError) Unwrap() error { return ErrLockBusy }

// Lock is a held lock.
type Lock struct {
	f    *os.File
	path string
}

// TryLock takes the lock at path without waiting. The parent directory is
// created if needed.
func TryLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	// #nosec G304 - path is derived from the configured store path
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}
	if err := flockExclusiveNonBlock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockBusy) {
			holder, _ := ReadLockInfo(path)
			return nil, &BusyError{Path: path, Holder: holder}
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	info := LockInfo{PID: os.Getpid(), StartedAt: time.Now().UTC()}
	if len(os.Args) > 0 {
		info.Command = filepath.Base(os.Args[0])
	}
	data, _ := json.Marshal(info)
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt(data, 0)
	}
	return &Lock{f: f, path: path}, nil
}

// Path returns the lock file's location.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. The file stays in place for the next holder.
// Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	_ = f.Truncate(0)
	err := flockUnlock(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadLockInfo reads the holder recorded at path.
func ReadLockInfo(path string) (*LockInfo, error) {
	// #nosec G304 - path is derived from the configured store path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse lock %s: %w", path, err)
	}
	return &info, nil
}
