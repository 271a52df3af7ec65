package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/steveyegge/kanbeads/internal/types"
)

func TestInitialize(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	if v == nil {
		t.Fatal("viper instance is nil after Initialize()")
	}
	if got := ConfigFileUsed(); got != "" {
		t.Errorf("ConfigFileUsed() = %q, want none", got)
	}
}

func TestDefaults(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"json", false, func(k string) interface{} { return GetBool(k) }},
		{"actor", "", func(k string) interface{} { return GetString(k) }},
		{"remote.backend", "file", func(k string) interface{} { return GetString(k) }},
		{"remote.path", ".kanbeads/store.json", func(k string) interface{} { return GetString(k) }},
		{"remote.timeout", 10 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"remote.retry.max-elapsed", 5 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"remote.load-concurrency", 8, func(k string) interface{} { return GetInt(k) }},
		{"sync.rollback-on-failure", true, func(k string) interface{} { return GetBool(k) }},
		{"workflow.locale", "pt-BR", func(k string) interface{} { return GetString(k) }},
		{"log.level", "warn", func(k string) interface{} { return GetString(k) }},
		{"server.addr", ":8088", func(k string) interface{} { return GetString(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := tt.getter(tt.key)
			if got != tt.expected {
				t.Errorf("GetXXX(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestEnvironmentBinding(t *testing.T) {
	tests := []struct {
		envVar   string
		key      string
		value    string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"KB_JSON", "json", "true", true, func(k string) interface{} { return GetBool(k) }},
		{"KB_ACTOR", "actor", "testuser", "testuser", func(k string) interface{} { return GetString(k) }},
		{"KB_REMOTE_BACKEND", "remote.backend", "redis", "redis", func(k string) interface{} { return GetString(k) }},
		{"KB_REMOTE_RETRY_MAX_ELAPSED", "remote.retry.max-elapsed", "2s", 2 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"KB_SYNC_ROLLBACK_ON_FAILURE", "sync.rollback-on-failure", "false", false, func(k string) interface{} { return GetBool(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)

			if err := Initialize(); err != nil {
				t.Fatalf("Initialize() returned error: %v", err)
			}

			got := tt.getter(tt.key)
			if got != tt.expected {
				t.Errorf("GetXXX(%q) with %s=%s = %v, want %v", tt.key, tt.envVar, tt.value, got, tt.expected)
			}
		})
	}
}

// chdir switches to dir for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestProjectConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	kbDir := filepath.Join(tmpDir, ".kanbeads")
	if err := os.MkdirAll(kbDir, 0750); err != nil {
		t.Fatalf("failed to create .kanbeads directory: %v", err)
	}
	configContent := `
board: Sprint 12
remote:
  backend: mem
  retry:
    max-elapsed: 750ms
workflow:
  locale: en
  aliases:
    done: [shipped, released]
`
	if err := os.WriteFile(filepath.Join(kbDir, "config.yaml"), []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	// Discovery walks up from a nested directory.
	nested := filepath.Join(tmpDir, "src", "app")
	if err := os.MkdirAll(nested, 0750); err != nil {
		t.Fatalf("failed to create nested directory: %v", err)
	}
	chdir(t, nested)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("board"); got != "Sprint 12" {
		t.Errorf("board = %q, want Sprint 12", got)
	}

	rs := GetRemoteSettings()
	if rs.Backend != BackendMem {
		t.Errorf("Backend = %q, want mem", rs.Backend)
	}
	if rs.RetryMaxElapsed != 750*time.Millisecond {
		t.Errorf("RetryMaxElapsed = %v, want 750ms", rs.RetryMaxElapsed)
	}
	if rs.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want default 10s", rs.Timeout)
	}
	if !rs.RollbackOnFailure {
		t.Error("RollbackOnFailure should default to true")
	}

	ws := GetWorkflowSettings()
	if ws.Locale != "en" {
		t.Errorf("Locale = %q, want en", ws.Locale)
	}
	if got := ws.Aliases[types.StatusDone]; !reflect.DeepEqual(got, []string{"shipped", "released"}) {
		t.Errorf("done aliases = %v", got)
	}
	if got := ws.Aliases[types.StatusInProgress]; len(got) == 0 || got[0] != "in progress" {
		t.Errorf("in_progress aliases should keep defaults, got %v", got)
	}
}

func TestGetBackendInvalidFallsBack(t *testing.T) {
	t.Setenv("KB_REMOTE_BACKEND", "floppy")
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetBackend(); got != BackendFile {
		t.Errorf("GetBackend() = %q, want file", got)
	}
}

func TestRemoteSettingsValidate(t *testing.T) {
	tests := []struct {
		s       RemoteSettings
		wantErr bool
	}{
		{RemoteSettings{Backend: BackendMem}, false},
		{RemoteSettings{Backend: BackendFile}, false},
		{RemoteSettings{Backend: BackendRedis}, true},
		{RemoteSettings{Backend: BackendRedis, URL: "redis://localhost:6379"}, false},
		{RemoteSettings{Backend: BackendMySQL}, true},
		{RemoteSettings{Backend: BackendHTTP, URL: "http://localhost:8088"}, false},
	}
	for _, tt := range tests {
		err := tt.s.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.s, err, tt.wantErr)
		}
	}
}

func TestWorkflowAliasesFromEnv(t *testing.T) {
	t.Setenv("KB_WORKFLOW_ALIASES_IN_REVIEW", "qa, staging")
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	ws := GetWorkflowSettings()
	if got := ws.Aliases[types.StatusInReview]; !reflect.DeepEqual(got, []string{"qa", "staging"}) {
		t.Errorf("in_review aliases = %v, want [qa staging]", got)
	}
}

func TestNilViperAccessors(t *testing.T) {
	ResetForTesting()
	defer func() { _ = Initialize() }()

	if GetString("actor") != "" || GetBool("json") || GetInt("remote.load-concurrency") != 0 {
		t.Error("accessors should return zero values before Initialize")
	}
	rs := GetRemoteSettings()
	if rs.Backend != BackendFile || !rs.RollbackOnFailure || rs.LoadConcurrency != 8 {
		t.Errorf("GetRemoteSettings() before Initialize = %+v", rs)
	}
	if got := AllSettings()["server.addr"]; got != ":8088" {
		t.Errorf("AllSettings()[server.addr] = %v", got)
	}
}
