package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Backend selects the document store behind the board.
type Backend string

const (
	// BackendMem keeps documents in process memory (lost on exit)
	BackendMem Backend = "mem"
	// BackendFile keeps documents in a JSON file (default)
	BackendFile Backend = "file"
	// BackendRedis stores documents as Redis hashes
	BackendRedis Backend = "redis"
	// BackendMySQL stores documents in a MySQL-compatible database
	BackendMySQL Backend = "mysql"
	// BackendHTTP talks to another kb serve instance
	BackendHTTP Backend = "http"
)

// validBackends is the set of allowed backend values
var validBackends = map[Backend]bool{
	BackendMem:   true,
	BackendFile:  true,
	BackendRedis: true,
	BackendMySQL: true,
	BackendHTTP:  true,
}

func backendList() string {
	return "mem, file, redis, mysql, http"
}

// RemoteSettings gathers the remote.* and sync.* keys.
type RemoteSettings struct {
	Backend           Backend
	URL               string
	Path              string
	RedisPrefix       string
	Timeout           time.Duration
	RetryMaxElapsed   time.Duration
	LoadConcurrency   int
	RollbackOnFailure bool
}

// GetBackend retrieves the store backend.
// Returns the configured backend, or BackendFile (default) if not set or invalid.
// Logs a warning to stderr if an invalid value is configured.
//
// Config key: remote.backend
// Valid values: mem, file, redis, mysql, http
func GetBackend() Backend {
	value := GetString("remote.backend")
	if value == "" {
		return BackendFile
	}

	backend := Backend(strings.ToLower(strings.TrimSpace(value)))
	if !validBackends[backend] {
		fmt.Fprintf(os.Stderr, "Warning: invalid remote.backend %q in config (valid: %s), using default 'file'\n", value, backendList())
		return BackendFile
	}
	return backend
}

// GetRemoteSettings returns the effective remote configuration. Durations
// and counts that are unset or non-positive fall back to their defaults.
func GetRemoteSettings() RemoteSettings {
	s := RemoteSettings{
		Backend:           GetBackend(),
		URL:               GetString("remote.url"),
		Path:              GetString("remote.path"),
		RedisPrefix:       GetString("remote.redis-prefix"),
		Timeout:           GetDuration("remote.timeout"),
		RetryMaxElapsed:   GetDuration("remote.retry.max-elapsed"),
		LoadConcurrency:   GetInt("remote.load-concurrency"),
		RollbackOnFailure: GetBool("sync.rollback-on-failure"),
	}
	if s.Path == "" {
		s.Path = DirName + "/store.json"
	}
	if s.RedisPrefix == "" {
		s.RedisPrefix = "kb"
	}
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	if s.RetryMaxElapsed <= 0 {
		s.RetryMaxElapsed = 5 * time.Second
	}
	if s.LoadConcurrency <= 0 {
		s.LoadConcurrency = 8
	}
	if v == nil {
		s.RollbackOnFailure = true
	}
	return s
}

// Validate checks that the backend has what it needs to connect.
func (s RemoteSettings) Validate() error {
	switch s.Backend {
	case BackendRedis, BackendMySQL, BackendHTTP:
		if s.URL == "" {
			return fmt.Errorf("remote.backend %s requires remote.url", s.Backend)
		}
	}
	return nil
}
