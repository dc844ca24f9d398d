package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, "campusnote.yaml", "api:\n  base_url: http://localhost:8000/api\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.ConnectTimeout != 30*time.Second || cfg.API.ReadTimeout != 30*time.Second {
		t.Errorf("timeouts = %s/%s, want 30s/30s", cfg.API.ConnectTimeout, cfg.API.ReadTimeout)
	}
	if cfg.Daemon.RefreshInterval != 5*time.Minute {
		t.Errorf("RefreshInterval = %s", cfg.Daemon.RefreshInterval)
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("Port = %d", cfg.Dashboard.Port)
	}
	if !strings.HasSuffix(cfg.Cache.Path, "cache.db") || !strings.HasSuffix(cfg.Session.Path, "session.toml") {
		t.Errorf("paths = %s, %s", cfg.Cache.Path, cfg.Session.Path)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, "campusnote.toml", `
[api]
base_url = "https://campus.example/api"
read_timeout = "45s"

[daemon]
refresh_interval = "1m"

[log]
file = "/tmp/cn.log"
max_backups = 9
`)
	t.Setenv("CAMPUSNOTE_API_BASE_URL", "https://override.example/api")
	t.Setenv("CAMPUSNOTE_DASHBOARD_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.API.BaseURL != "https://override.example/api" {
		t.Errorf("BaseURL = %q, env should win", cfg.API.BaseURL)
	}
	if cfg.API.ReadTimeout != 45*time.Second {
		t.Errorf("ReadTimeout = %s", cfg.API.ReadTimeout)
	}
	if cfg.Daemon.RefreshInterval != time.Minute {
		t.Errorf("RefreshInterval = %s", cfg.Daemon.RefreshInterval)
	}
	if cfg.Dashboard.Port != 9090 {
		t.Errorf("Port = %d", cfg.Dashboard.Port)
	}
	if cfg.Log.File != "/tmp/cn.log" || cfg.Log.MaxBackups != 9 || cfg.Log.MaxSizeMB != 10 {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing explicit file should fail")
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "campusnote.yaml", "daemon:\n  refresh_interval: 10ms\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject a sub-second refresh interval")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/x/cache.db"); got != filepath.Join(home, "x/cache.db") {
		t.Errorf("expandHome() = %s", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome() = %s", got)
	}
}

func TestLogWriter(t *testing.T) {
	w := Log{}.Writer()
	if err := w.Close(); err != nil {
		t.Errorf("stderr sink Close() = %v", err)
	}

	file := filepath.Join(t.TempDir(), "cn.log")
	w = Log{File: file, MaxSizeMB: 1}.Writer()
	logger := NewLogger(w, "test")
	logger.Print("hello")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !strings.Contains(string(data), "[test] ") || !strings.Contains(string(data), "hello") {
		t.Errorf("log file = %q", data)
	}
}
