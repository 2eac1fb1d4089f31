package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/kris-hansen/versecraft/utils/config"
	"github.com/kris-hansen/versecraft/utils/retry"
)

// Chat message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat exchange
type Message struct {
	Role    string
	Content string
}

// ModelConfig represents sampling options for model calls
type ModelConfig struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// Provider represents a chat-completion backend (e.g., DeepSeek, Ark, Anthropic)
type Provider interface {
	Name() string
	SupportsModel(modelName string) bool
	Configure(apiKey string) error
	Chat(ctx context.Context, modelName string, messages []Message) (string, error)
	SetVerbose(verbose bool)
}

// Tunable is implemented by providers whose endpoint, retry policy and
// sampling options can be adjusted after construction
type Tunable interface {
	SetBaseURL(baseURL string)
	SetRetryConfig(rc retry.RetryConfig)
	SetConfig(mc ModelConfig)
	GetConfig() ModelConfig
}

// ImageDescriber is implemented by providers with a vision model
type ImageDescriber interface {
	DescribeImage(ctx context.Context, modelName, imageURL, question string) (string, error)
}

// DetectProviderFunc is the type for the provider detection function
type DetectProviderFunc func(modelName string) Provider

// DetectProvider determines the appropriate provider based on the model name.
// It is a variable so tests can substitute fakes.
var DetectProvider DetectProviderFunc = defaultDetectProvider

func defaultDetectProvider(modelName string) Provider {
	config.DebugLog("[Provider] Attempting to detect provider for model: %s", modelName)

	switch GetRegistry().ProviderFor(modelName) {
	case "deepseek":
		return NewDeepseekProvider()
	case "ark":
		return NewArkProvider()
	case "anthropic":
		return NewAnthropicProvider()
	}

	config.DebugLog("[Provider] No provider found for model %s", modelName)
	return nil
}

// NewProviderForModel detects the provider for modelName and configures it
// from cfg: API key, base URL and retry policy. A missing key is reported
// here, before any network call is made.
func NewProviderForModel(modelName string, cfg *config.Config) (Provider, error) {
	provider := DetectProvider(modelName)
	if provider == nil {
		return nil, fmt.Errorf("could not detect provider for model: %s", modelName)
	}

	apiKey := cfg.APIKey(provider.Name())
	if apiKey == "" {
		hint := ""
		if env := config.EnvKeyFor(provider.Name()); env != "" {
			hint = fmt.Sprintf(" (set %s)", env)
		}
		return nil, &AuthError{
			Provider: provider.Name(),
			Err:      fmt.Errorf("missing API key for model %s%s", modelName, hint),
		}
	}
	if err := provider.Configure(apiKey); err != nil {
		return nil, fmt.Errorf("failed to configure provider %s: %w", provider.Name(), err)
	}

	if t, ok := provider.(Tunable); ok {
		if baseURL := cfg.BaseURL(provider.Name()); baseURL != "" {
			t.SetBaseURL(baseURL)
		}
		t.SetRetryConfig(retry.FromSettings(cfg.Retry))
	}
	provider.SetVerbose(config.Verbose || config.Debug)
	return provider, nil
}

// firstChoice trims the content of the first choice, or reports a
// malformed response when there is none
func firstChoice(provider string, contents []string) (string, error) {
	if len(contents) == 0 {
		return "", &MalformedResponseError{Provider: provider, Reason: "no choices in response"}
	}
	return strings.TrimSpace(contents[0]), nil
}
