// Package config provides configuration types and loading for warden.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Providers, Gateway, Tools, Scheduler, Audit, Notify.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	Gateway   GatewayConfig   `json:"gateway"`
	Tools     ToolsConfig     `json:"tools"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Audit     AuditConfig     `json:"audit"`
	Notify    NotifyConfig    `json:"notify"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
// HomeRoot is the hard confinement boundary: no tool may touch a path outside
// it, authorized or not.
type PathsConfig struct {
	HomeRoot  string `json:"homeRoot" envconfig:"HOME_ROOT"`
	Workspace string `json:"workspace" envconfig:"WORKSPACE"`
	DataDir   string `json:"dataDir" envconfig:"DATA_DIR"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model and loop settings. Name uses the
// "provider/model" form, e.g. "anthropic/claude-sonnet-4-5".
type ModelConfig struct {
	Name              string  `json:"name" envconfig:"MODEL"`
	MaxTokens         int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature       float64 `json:"temperature" envconfig:"TEMPERATURE"`
	MaxToolIterations int     `json:"maxToolIterations" envconfig:"MAX_TOOL_ITERATIONS"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains the five backend configurations.
type ProvidersConfig struct {
	Anthropic  ProviderConfig `json:"anthropic"`
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Gemini     ProviderConfig `json:"gemini"`
	Ollama     ProviderConfig `json:"ollama"`
}

// ProviderConfig contains settings for a single LLM backend.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Gateway – client-facing WebSocket server
// ---------------------------------------------------------------------------

// GatewayConfig contains gateway server settings.
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}

// ---------------------------------------------------------------------------
// Tools – tool-specific behaviour
// ---------------------------------------------------------------------------

// ToolsConfig contains tool-specific settings.
type ToolsConfig struct {
	Exec ExecToolConfig `json:"exec"`
	Web  WebToolConfig  `json:"web"`
	// RepeatLimit caps invocations of the same tool within one loop run.
	// 0 means unlimited.
	RepeatLimit int `json:"repeatLimit" envconfig:"REPEAT_LIMIT"`
}

// ExecToolConfig configures the shell exec tool.
type ExecToolConfig struct {
	Enabled bool          `json:"enabled" envconfig:"ENABLED"`
	Timeout time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// WebToolConfig configures the web fetch tool.
type WebToolConfig struct {
	Enabled      bool          `json:"enabled" envconfig:"ENABLED"`
	Timeout      time.Duration `json:"timeout" envconfig:"TIMEOUT"`
	MaxBodyBytes int64         `json:"maxBodyBytes" envconfig:"MAX_BODY_BYTES"`
}

// ---------------------------------------------------------------------------
// Scheduler – cron-originated messages
// ---------------------------------------------------------------------------

// SchedulerConfig contains scheduler settings.
type SchedulerConfig struct {
	Enabled bool `json:"enabled" envconfig:"ENABLED"`
}

// ---------------------------------------------------------------------------
// Audit – optional Kafka event mirror
// ---------------------------------------------------------------------------

// AuditConfig configures the Kafka audit mirror. When disabled, audit
// events stay local.
type AuditConfig struct {
	Enabled bool     `json:"enabled" envconfig:"ENABLED"`
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic" envconfig:"TOPIC"`
}

// ---------------------------------------------------------------------------
// Notify – optional Slack approval notifications
// ---------------------------------------------------------------------------

// NotifyConfig configures out-of-band notification of authorization requests.
type NotifyConfig struct {
	Slack SlackNotifyConfig `json:"slack"`
}

// SlackNotifyConfig configures the Slack notifier.
type SlackNotifyConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"ENABLED"`
	BotToken string `json:"botToken" envconfig:"BOT_TOKEN"`
	Channel  string `json:"channel" envconfig:"CHANNEL"`
}
