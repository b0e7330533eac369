package provider

import (
	"fmt"
	"strings"

	"github.com/wardenhq/warden/internal/config"
)

// modelAliases maps short model names to their provider-qualified form so
// users can configure "sonnet" instead of the full spelling.
var modelAliases = map[string]string{
	"sonnet": "anthropic/claude-sonnet-4-5",
	"opus":   "anthropic/claude-opus-4-1",
	"haiku":  "anthropic/claude-haiku-4-5",
	"gpt-4o": "openai/gpt-4o",
	"gemini": "gemini/gemini-2.5-pro",
}

// ParseModelString splits a "provider/model" string. A bare model name with a
// known alias resolves through the alias table; otherwise the provider
// defaults to anthropic.
func ParseModelString(s string) (providerName, model string) {
	s = strings.TrimSpace(s)
	if alias, ok := modelAliases[s]; ok {
		s = alias
	}
	if i := strings.Index(s, "/"); i > 0 {
		return strings.ToLower(s[:i]), s[i+1:]
	}
	return "anthropic", s
}

// Resolve builds the provider named by the configured model string.
func Resolve(cfg *config.Config) (LLMProvider, string, error) {
	providerName, model := ParseModelString(cfg.Model.Name)
	switch providerName {
	case "anthropic":
		if cfg.Providers.Anthropic.APIKey == "" {
			return nil, "", fmt.Errorf("anthropic API key not configured")
		}
		return NewAnthropicProvider(cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.APIBase, model), model, nil
	case "openai":
		if cfg.Providers.OpenAI.APIKey == "" {
			return nil, "", fmt.Errorf("openai API key not configured")
		}
		return NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, model), model, nil
	case "openrouter":
		if cfg.Providers.OpenRouter.APIKey == "" {
			return nil, "", fmt.Errorf("openrouter API key not configured")
		}
		return NewOpenRouterProvider(cfg.Providers.OpenRouter.APIKey, cfg.Providers.OpenRouter.APIBase, model), model, nil
	case "gemini":
		if cfg.Providers.Gemini.APIKey == "" {
			return nil, "", fmt.Errorf("gemini API key not configured")
		}
		return NewGeminiProvider(cfg.Providers.Gemini.APIKey, model), model, nil
	case "ollama":
		return NewOllamaProvider(cfg.Providers.Ollama.APIBase, model), model, nil
	default:
		return nil, "", fmt.Errorf("unknown provider %q", providerName)
	}
}
