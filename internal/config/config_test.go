package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadWithEnv(filepath.Join(home, "does-not-exist.toml"), "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Backend != BackendMongo || !cfg.Store.Fallback {
		t.Fatalf("Store = %+v, want mongo with fallback", cfg.Store)
	}
	if cfg.Store.PollInterval != defaultPollInterval {
		t.Fatalf("PollInterval = %v, want %v", cfg.Store.PollInterval, defaultPollInterval)
	}
	if cfg.Mongo.URI != defaultMongoURI || cfg.Mongo.Collection != defaultCollection {
		t.Fatalf("Mongo = %+v", cfg.Mongo)
	}
	wantFile, err := expandPath(defaultDataDir + "/flights.json")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if cfg.File.Path != wantFile {
		t.Fatalf("File.Path = %q, want %q", cfg.File.Path, wantFile)
	}
	if !strings.HasPrefix(cfg.Log.Path, home) {
		t.Fatalf("Log.Path = %q, want it under HOME %q", cfg.Log.Path, home)
	}
	if cfg.Metrics.Addr != "" {
		t.Fatalf("Metrics.Addr = %q, want disabled", cfg.Metrics.Addr)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
[store]
backend = "  Redis  "
fallback = false
poll_interval = "500ms"

[redis]
addr = " 10.0.0.5:6380 "
db = 2

[file]
path = "  ~/flights/slot.json  "

[gate]
secret = "  s3cret  "
session = "badger"
session_ttl = "1h"

[metrics]
addr = " :9464 "

[ui]
refresh = "250ms"
`)

	cfg, err := LoadWithEnv(path, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Backend != BackendRedis || cfg.Store.Fallback {
		t.Fatalf("Store = %+v, want redis without fallback", cfg.Store)
	}
	if cfg.Store.PollInterval != 500*time.Millisecond {
		t.Fatalf("PollInterval = %v", cfg.Store.PollInterval)
	}
	if cfg.Redis.Addr != "10.0.0.5:6380" || cfg.Redis.DB != 2 || cfg.Redis.Prefix != defaultRedisPrefix {
		t.Fatalf("Redis = %+v", cfg.Redis)
	}
	if cfg.File.Path != filepath.Join(home, "flights/slot.json") {
		t.Fatalf("File.Path = %q", cfg.File.Path)
	}
	if cfg.Gate.Secret != "s3cret" || cfg.Gate.Session != SessionBadger || cfg.Gate.SessionTTL != time.Hour {
		t.Fatalf("Gate = %+v", cfg.Gate)
	}
	if cfg.Metrics.Addr != ":9464" || cfg.UI.Refresh != 250*time.Millisecond {
		t.Fatalf("Metrics/UI = %+v / %+v", cfg.Metrics, cfg.UI)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
[store]
backend = "mongo"
[gate]
secret = "from-file"
`)
	t.Setenv("TARMAC_STORE_BACKEND", "file")
	t.Setenv("TARMAC_STORE_POLL_INTERVAL", "3s")
	t.Setenv("TARMAC_GATE_SECRET", "from-env")
	t.Setenv("TARMAC_REDIS_DB", "4")

	cfg, err := LoadWithEnv(path, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Backend != BackendFile || cfg.Store.PollInterval != 3*time.Second {
		t.Fatalf("Store = %+v", cfg.Store)
	}
	if cfg.Gate.Secret != "from-env" || cfg.Redis.DB != 4 {
		t.Fatalf("Gate.Secret = %q, Redis.DB = %d", cfg.Gate.Secret, cfg.Redis.DB)
	}
}

func TestLoad_IgnoresUnprefixedEnvironment(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PATH", "/usr/bin:/bin")
	t.Setenv("LEVEL", "debug")
	t.Setenv("ADDR", "10.0.0.1:6379")
	t.Setenv("DB", "9")
	t.Setenv("SECRET", "leaked")
	t.Setenv("BACKEND", "redis")

	cfg, err := LoadWithEnv(filepath.Join(home, "none.toml"), "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !strings.HasPrefix(cfg.File.Path, home) || !strings.HasPrefix(cfg.Log.Path, home) {
		t.Fatalf("File.Path = %q, Log.Path = %q, want both under HOME %q", cfg.File.Path, cfg.Log.Path, home)
	}
	if cfg.Log.Level != defaultLogLevel {
		t.Fatalf("Log.Level = %q, want %q", cfg.Log.Level, defaultLogLevel)
	}
	if cfg.Redis.Addr != defaultRedisAddr || cfg.Redis.DB != 0 {
		t.Fatalf("Redis = %+v, want defaults", cfg.Redis)
	}
	if cfg.Gate.Secret != "" || cfg.Store.Backend != BackendMongo {
		t.Fatalf("Gate.Secret = %q, Store.Backend = %q, want defaults", cfg.Gate.Secret, cfg.Store.Backend)
	}
}

func TestLoad_MultiWordEnvironmentKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TARMAC_GATE_SESSION_TTL", "30m")
	t.Setenv("TARMAC_GATE_SESSION_ID", "tower")
	t.Setenv("TARMAC_GATE_BADGER_DIR", "/var/lib/tarmac/session")
	t.Setenv("TARMAC_MONGO_URI", "mongodb://db:27017")
	t.Setenv("TARMAC_UI_REFRESH", "250ms")
	t.Setenv("TARMAC_STORE_FALLBACK", "false")

	cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "none.toml"), "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Gate.SessionTTL != 30*time.Minute || cfg.Gate.SessionID != "tower" || cfg.Gate.BadgerDir != "/var/lib/tarmac/session" {
		t.Fatalf("Gate = %+v", cfg.Gate)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" || cfg.UI.Refresh != 250*time.Millisecond || cfg.Store.Fallback {
		t.Fatalf("Mongo.URI = %q, UI.Refresh = %v, Store.Fallback = %v", cfg.Mongo.URI, cfg.UI.Refresh, cfg.Store.Fallback)
	}
}

func TestLoad_ReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TARMAC_LOG_LEVEL", "warn")
	t.Cleanup(func() { _ = os.Unsetenv("TARMAC_GATE_SECRET_HASH") })

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("TARMAC_GATE_SECRET_HASH=hash-from-dotenv\nTARMAC_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "none.toml"), envFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Gate.SecretHash != "hash-from-dotenv" {
		t.Fatalf("SecretHash = %q, want value from .env", cfg.Gate.SecretHash)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("Log.Level = %q, want the process environment to win", cfg.Log.Level)
	}
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := LoadWithEnv("", filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := writeConfig(t, `[store`)
	_, err := LoadWithEnv(path, "")
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	path := writeConfig(t, "[store]\npoll_interval = \"soon\"\n")
	_, err := LoadWithEnv(path, "")
	if err == nil || !strings.Contains(err.Error(), "store.poll_interval") {
		t.Fatalf("Load error = %v, want poll_interval parse error", err)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Gate.Secret = "s3cret"

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"hash only", func(c *Config) { c.Gate.Secret = ""; c.Gate.SecretHash = "$2a$10$x" }, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"unknown session", func(c *Config) { c.Gate.Session = "cookie" }, "gate.session"},
		{"missing secret", func(c *Config) { c.Gate.Secret = "" }, "gate.secret"},
		{"zero poll", func(c *Config) { c.Store.PollInterval = 0 }, "poll_interval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("Validate returned error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if want := filepath.Join(home, "a/b"); got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
