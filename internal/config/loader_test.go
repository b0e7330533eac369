package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WARDEN_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Name != "anthropic/claude-sonnet-4-5" {
		t.Errorf("model = %q", cfg.Model.Name)
	}
	if cfg.Model.MaxTokens != 4096 || cfg.Model.MaxToolIterations != 20 {
		t.Errorf("model defaults = %+v", cfg.Model)
	}
	if cfg.Gateway.Host != "127.0.0.1" || cfg.Gateway.Port != 8787 {
		t.Errorf("gateway defaults = %+v", cfg.Gateway)
	}
	if cfg.Tools.Exec.Timeout != 60*time.Second {
		t.Errorf("exec timeout = %s", cfg.Tools.Exec.Timeout)
	}
	if cfg.Tools.Web.MaxBodyBytes != 512*1024 {
		t.Errorf("web max body = %d", cfg.Tools.Web.MaxBodyBytes)
	}
	if cfg.Audit.Topic != "warden.audit" {
		t.Errorf("audit topic = %q", cfg.Audit.Topic)
	}
	if cfg.Paths.HomeRoot == "" || cfg.Paths.DataDir == "" {
		t.Errorf("path defaults = %+v", cfg.Paths)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"model": {"name": "openai/gpt-4o", "maxTokens": 2048},
		"gateway": {"port": 9900},
		"tools": {"exec": {"enabled": true, "timeout": 5000000000}}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WARDEN_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Name != "openai/gpt-4o" || cfg.Model.MaxTokens != 2048 {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Gateway.Port != 9900 {
		t.Errorf("port = %d", cfg.Gateway.Port)
	}
	if !cfg.Tools.Exec.Enabled || cfg.Tools.Exec.Timeout != 5*time.Second {
		t.Errorf("exec = %+v", cfg.Tools.Exec)
	}
	// Unset fields still get defaults.
	if cfg.Gateway.Host != "127.0.0.1" {
		t.Errorf("host = %q", cfg.Gateway.Host)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"model": {"name": "openai/gpt-4o"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WARDEN_CONFIG", path)
	t.Setenv("WARDEN_MODEL_MODEL", "ollama/llama3")
	t.Setenv("WARDEN_GATEWAY_PORT", "7001")
	t.Setenv("WARDEN_PROVIDERS_ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Name != "ollama/llama3" {
		t.Errorf("model = %q", cfg.Model.Name)
	}
	if cfg.Gateway.Port != 7001 {
		t.Errorf("port = %d", cfg.Gateway.Port)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.Providers.Anthropic.APIKey)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WARDEN_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("malformed config accepted")
	}
}

func TestConfigPathOverride(t *testing.T) {
	t.Setenv("WARDEN_CONFIG", "/etc/warden/custom.json")
	path, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if path != "/etc/warden/custom.json" {
		t.Errorf("path = %q", path)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := &Config{}
	cfg.Paths.DataDir = "/data/warden"
	if got := cfg.DatabasePath(); got != "/data/warden/warden.db" {
		t.Errorf("db path = %q", got)
	}
}
