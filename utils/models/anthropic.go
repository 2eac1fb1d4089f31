package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/kris-hansen/versecraft/utils/config"
	"github.com/kris-hansen/versecraft/utils/retry"
)

// AnthropicProvider handles Claude models through the Messages API
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	config  ModelConfig
	retry   retry.RetryConfig
	verbose bool
	mu      sync.Mutex
}

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider() *AnthropicProvider {
	return &AnthropicProvider{
		config: ModelConfig{
			Temperature: 0.7,
			MaxTokens:   2000,
			TopP:        1.0,
		},
		retry: retry.DefaultRetryConfig,
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) debugf(format string, args ...interface{}) {
	if p.verbose {
		p.mu.Lock()
		defer p.mu.Unlock()
		config.DebugLog("[Anthropic] "+format, args...)
	}
}

// SupportsModel checks if the given model name is a Claude model
func (p *AnthropicProvider) SupportsModel(modelName string) bool {
	return GetRegistry().ValidateModel(p.Name(), modelName)
}

// Configure sets up the provider with necessary credentials
func (p *AnthropicProvider) Configure(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key is required for Anthropic provider")
	}
	p.apiKey = apiKey
	return nil
}

// SetBaseURL overrides the API endpoint; empty keeps the SDK default
func (p *AnthropicProvider) SetBaseURL(baseURL string) {
	p.baseURL = strings.TrimRight(baseURL, "/")
}

// SetRetryConfig replaces the backoff policy for retryable errors
func (p *AnthropicProvider) SetRetryConfig(rc retry.RetryConfig) {
	p.retry = rc
}

// SetConfig updates the provider configuration
func (p *AnthropicProvider) SetConfig(mc ModelConfig) {
	p.config = mc
}

// GetConfig returns the current provider configuration
func (p *AnthropicProvider) GetConfig() ModelConfig {
	return p.config
}

// SetVerbose enables or disables verbose mode
func (p *AnthropicProvider) SetVerbose(verbose bool) {
	p.verbose = verbose
}

// Chat maps system messages onto the Messages API system block and the
// rest onto user/assistant turns, then joins the text blocks of the reply
func (p *AnthropicProvider) Chat(ctx context.Context, modelName string, messages []Message) (string, error) {
	p.debugf("Preparing to send %d messages to model: %s", len(messages), modelName)

	if p.apiKey == "" {
		return "", &AuthError{Provider: p.Name(), Err: errors.New("provider not configured: missing API key")}
	}
	if !p.SupportsModel(modelName) {
		return "", fmt.Errorf("invalid Anthropic model: %s", modelName)
	}

	var system []anthropic.TextBlockParam
	var turns []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(p.apiKey),
		option.WithMaxRetries(0),
	}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL+"/"))
	}
	client := anthropic.NewClient(opts...)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelName),
		MaxTokens:   int64(p.config.MaxTokens),
		System:      system,
		Messages:    turns,
		Temperature: anthropic.Float(p.config.Temperature),
	}

	response, err := retry.WithRetry(ctx, func(ctx context.Context) (string, error) {
		resp, err := client.Messages.New(ctx, params)
		if err != nil {
			return "", p.classify(err)
		}

		var text strings.Builder
		for _, block := range resp.Content {
			if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
				text.WriteString(variant.Text)
			}
		}
		if text.Len() == 0 {
			return "", &MalformedResponseError{Provider: p.Name(), Reason: "no text content in response"}
		}
		return strings.TrimSpace(text.String()), nil
	}, IsRetryable, p.retry)
	if err != nil {
		return "", err
	}

	p.debugf("API call completed, response length: %d characters", len(response))
	return response, nil
}

func (p *AnthropicProvider) classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(p.Name(), apiErr.StatusCode, err)
	}
	if isDecodeError(err) {
		return &MalformedResponseError{Provider: p.Name(), Reason: err.Error()}
	}
	return classifyStatus(p.Name(), 0, err)
}
