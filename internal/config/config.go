// Package config loads kb settings from config files, environment variables
// and flag overrides through a process-wide viper instance.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DirName is the per-project directory holding config.yaml, templates and
// the file store.
const DirName = ".kanbeads"

var v *viper.Viper

// Initialize sets up the viper configuration singleton. It reads the first
// .kanbeads/config.yaml found walking up from the working directory, then
// falls back to ~/.config/kb/config.yaml. Environment variables prefixed
// with KB_ override both (remote.retry.max-elapsed -> KB_REMOTE_RETRY_MAX_ELAPSED).
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	if path, err := findProjectConfigYaml(); err == nil {
		v.SetConfigFile(path)
	} else if dir, err := os.UserConfigDir(); err == nil {
		userPath := filepath.Join(dir, "kb", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			v.SetConfigFile(userPath)
		}
	}

	v.SetEnvPrefix("KB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, k := range Keys {
		if k.Default != nil {
			v.SetDefault(k.Key, k.Default)
		}
	}
	RegisterWorkflowDefaults()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// ResetForTesting drops the singleton so the next Initialize starts clean.
func ResetForTesting() {
	v = nil
}

// ConfigFileUsed returns the config file in effect, or "" when running on
// defaults and environment only.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// GetStringSlice retrieves a string slice configuration value. A plain
// string (as set through the environment) is split on commas.
func GetStringSlice(key string) []string {
	if v == nil {
		return nil
	}
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Set overrides a value for the rest of the process, typically from a flag.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns every known key with its effective value.
func AllSettings() map[string]interface{} {
	out := make(map[string]interface{}, len(Keys))
	for _, k := range Keys {
		if v == nil {
			out[k.Key] = k.Default
			continue
		}
		out[k.Key] = v.Get(k.Key)
	}
	return out
}
