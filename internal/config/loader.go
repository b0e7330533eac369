package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".warden"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file. WARDEN_CONFIG overrides
// the default ~/.warden/config.json location.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("WARDEN_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the config file (if present), overlays WARDEN_* environment
// variables, and applies defaults. A missing config file is not an error.
func Load() (*Config, error) {
	cfg := &Config{}

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if data, readErr := os.ReadFile(path); readErr == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(readErr) {
		return nil, fmt.Errorf("read config %s: %w", path, readErr)
	}

	envconfig.Process("WARDEN_PATHS", &cfg.Paths)
	envconfig.Process("WARDEN_MODEL", &cfg.Model)
	envconfig.Process("WARDEN_PROVIDERS_ANTHROPIC", &cfg.Providers.Anthropic)
	envconfig.Process("WARDEN_PROVIDERS_OPENAI", &cfg.Providers.OpenAI)
	envconfig.Process("WARDEN_PROVIDERS_OPENROUTER", &cfg.Providers.OpenRouter)
	envconfig.Process("WARDEN_PROVIDERS_GEMINI", &cfg.Providers.Gemini)
	envconfig.Process("WARDEN_PROVIDERS_OLLAMA", &cfg.Providers.Ollama)
	envconfig.Process("WARDEN_GATEWAY", &cfg.Gateway)
	envconfig.Process("WARDEN_TOOLS", &cfg.Tools)
	envconfig.Process("WARDEN_TOOLS_EXEC", &cfg.Tools.Exec)
	envconfig.Process("WARDEN_TOOLS_WEB", &cfg.Tools.Web)
	envconfig.Process("WARDEN_SCHEDULER", &cfg.Scheduler)
	envconfig.Process("WARDEN_AUDIT", &cfg.Audit)
	envconfig.Process("WARDEN_NOTIFY_SLACK", &cfg.Notify.Slack)

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	home, _ := os.UserHomeDir()

	if cfg.Paths.HomeRoot == "" {
		cfg.Paths.HomeRoot = home
	}
	cfg.Paths.HomeRoot = expandPath(cfg.Paths.HomeRoot, home)
	if cfg.Paths.Workspace == "" {
		cfg.Paths.Workspace = filepath.Join(home, "workspace")
	}
	cfg.Paths.Workspace = expandPath(cfg.Paths.Workspace, home)
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = filepath.Join(home, ConfigDir)
	}
	cfg.Paths.DataDir = expandPath(cfg.Paths.DataDir, home)

	if cfg.Model.Name == "" {
		cfg.Model.Name = "anthropic/claude-sonnet-4-5"
	}
	if cfg.Model.MaxTokens <= 0 {
		cfg.Model.MaxTokens = 4096
	}
	if cfg.Model.Temperature <= 0 {
		cfg.Model.Temperature = 0.7
	}
	if cfg.Model.MaxToolIterations <= 0 {
		cfg.Model.MaxToolIterations = 20
	}

	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port <= 0 {
		cfg.Gateway.Port = 8787
	}

	if cfg.Tools.Exec.Timeout <= 0 {
		cfg.Tools.Exec.Timeout = 60 * time.Second
	}
	if cfg.Tools.Web.Timeout <= 0 {
		cfg.Tools.Web.Timeout = 30 * time.Second
	}
	if cfg.Tools.Web.MaxBodyBytes <= 0 {
		cfg.Tools.Web.MaxBodyBytes = 512 * 1024
	}

	if cfg.Audit.Topic == "" {
		cfg.Audit.Topic = "warden.audit"
	}
}

// DatabasePath returns the path of the shared SQLite store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "warden.db")
}

func expandPath(path, home string) string {
	if strings.HasPrefix(path, "~") && home != "" {
		path = filepath.Join(home, path[1:])
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
