package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Key describes a configuration key kb understands.
type Key struct {
	Key         string      // Full key name (e.g., "remote.backend")
	Description string      // Human-readable description
	Default     interface{} // Default value (nil = no default)
	Validate    func(string) error
}

// Keys lists every known key. Initialize registers their defaults.
var Keys = []Key{
	// Output and identity
	{Key: "json", Description: "Emit JSON instead of text", Default: false, Validate: validateBool},
	{Key: "actor", Description: "Name recorded in the debug event log", Default: ""},
	{Key: "board", Description: "Board used when a command does not name one", Default: ""},

	// Remote store
	{
		Key:         "remote.backend",
		Description: "Store backend (mem, file, redis, mysql, http)",
		Default:     string(BackendFile),
		Validate:    validateBackend,
	},
	{Key: "remote.url", Description: "Connection URL or DSN for redis, mysql and http backends", Default: ""},
	{Key: "remote.path", Description: "File backend location", Default: DirName + "/store.json"},
	{Key: "remote.redis-prefix", Description: "Redis key namespace prefix", Default: "kb"},
	{Key: "remote.timeout", Description: "Deadline of one remote operation", Default: "10s", Validate: validateDuration},
	{Key: "remote.retry.max-elapsed", Description: "Total time spent retrying transient failures", Default: "5s", Validate: validateDuration},
	{Key: "remote.load-concurrency", Description: "Parallel list calls while loading", Default: 8, Validate: validatePositive},

	// Reconciliation
	{Key: "sync.rollback-on-failure", Description: "Undo local changes the store rejected", Default: true, Validate: validateBool},

	// Workflow
	{Key: "workflow.locale", Description: "Language of move denial messages (pt-BR, en)", Default: "pt-BR"},

	// Logging
	{Key: "log.level", Description: "Log level (debug, info, warn, error)", Default: "warn", Validate: validateLogLevel},
	{Key: "log.format", Description: "Log encoding (console, json)", Default: "console", Validate: validateLogFormat},

	// Server
	{Key: "server.addr", Description: "Listen address of kb serve", Default: ":8088"},
}

// keyMap is a lookup table built from Keys.
var keyMap map[string]*Key

func init() {
	keyMap = make(map[string]*Key, len(Keys))
	for i := range Keys {
		keyMap[Keys[i].Key] = &Keys[i]
	}
}

// LookupKey returns the Key definition, or nil if key is unknown.
func LookupKey(key string) *Key {
	return keyMap[key]
}

// ValidateKey checks whether key is known and the value acceptable.
// workflow.aliases.<status> keys are accepted for every status.
func ValidateKey(key, value string) error {
	if status, ok := strings.CutPrefix(key, KeyWorkflowAliases+"."); ok {
		if _, known := aliasKeys[status]; !known {
			return fmt.Errorf("unknown workflow status %q in %s", status, key)
		}
		return nil
	}
	k := keyMap[key]
	if k == nil {
		known := make([]string, 0, len(Keys))
		for _, k := range Keys {
			known = append(known, k.Key)
		}
		sort.Strings(known)
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(known, ", "))
	}
	if k.Validate != nil {
		if err := k.Validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	return nil
}

// Validation helpers

func validateBool(value string) error {
	switch strings.ToLower(value) {
	case "true", "false", "1", "0", "yes", "no":
		return nil
	default:
		return fmt.Errorf("must be true or false, got %q", value)
	}
}

func validateDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration like 5s or 1m, got %q", value)
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

func validatePositive(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be a number, got %q", value)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

func validateLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("must be one of: debug, info, warn, error; got %q", value)
	}
}

func validateLogFormat(value string) error {
	switch strings.ToLower(value) {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("must be console or json, got %q", value)
	}
}

func validateBackend(value string) error {
	if !validBackends[Backend(strings.ToLower(value))] {
		return fmt.Errorf("must be one of: %s; got %q", backendList(), value)
	}
	return nil
}
