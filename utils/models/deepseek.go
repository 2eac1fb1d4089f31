package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kris-hansen/versecraft/utils/config"
	"github.com/kris-hansen/versecraft/utils/retry"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultDeepseekBaseURL is the OpenAI-compatible DeepSeek endpoint
const DefaultDeepseekBaseURL = "https://api.deepseek.com/v1"

// DeepseekProvider handles Deepseek family of models
type DeepseekProvider struct {
	apiKey  string
	baseURL string
	config  ModelConfig
	retry   retry.RetryConfig
	verbose bool
	mu      sync.Mutex
}

// NewDeepseekProvider creates a new Deepseek provider instance
func NewDeepseekProvider() *DeepseekProvider {
	return &DeepseekProvider{
		baseURL: DefaultDeepseekBaseURL,
		config: ModelConfig{
			Temperature: 0.7,
			MaxTokens:   2000,
			TopP:        1.0,
		},
		retry: retry.DefaultRetryConfig,
	}
}

// Name returns the provider name
func (d *DeepseekProvider) Name() string {
	return "deepseek"
}

// debugf prints debug information if verbose mode is enabled (thread-safe)
func (d *DeepseekProvider) debugf(format string, args ...interface{}) {
	if d.verbose {
		d.mu.Lock()
		defer d.mu.Unlock()
		config.DebugLog("[Deepseek] "+format, args...)
	}
}

// SupportsModel checks if the given model name is supported by Deepseek
func (d *DeepseekProvider) SupportsModel(modelName string) bool {
	return GetRegistry().ValidateModel(d.Name(), modelName)
}

// Configure sets up the provider with necessary credentials
func (d *DeepseekProvider) Configure(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key is required for Deepseek provider")
	}
	d.apiKey = apiKey
	d.debugf("API key configured successfully")
	return nil
}

// SetBaseURL points the provider at a different OpenAI-compatible endpoint
func (d *DeepseekProvider) SetBaseURL(baseURL string) {
	d.baseURL = strings.TrimRight(baseURL, "/")
}

// SetRetryConfig replaces the backoff policy for retryable errors
func (d *DeepseekProvider) SetRetryConfig(rc retry.RetryConfig) {
	d.retry = rc
}

// SetConfig updates the provider configuration
func (d *DeepseekProvider) SetConfig(mc ModelConfig) {
	d.config = mc
}

// GetConfig returns the current provider configuration
func (d *DeepseekProvider) GetConfig() ModelConfig {
	return d.config
}

// SetVerbose enables or disables verbose mode
func (d *DeepseekProvider) SetVerbose(verbose bool) {
	d.verbose = verbose
}

// createChatCompletionRequest creates a ChatCompletionRequest with the appropriate parameters
func (d *DeepseekProvider) createChatCompletionRequest(modelName string, messages []Message) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: msgs,
	}

	// deepseek-reasoner doesn't support sampling parameters
	if !strings.HasSuffix(modelName, "reasoner") {
		req.MaxTokens = d.config.MaxTokens
		req.Temperature = float32(d.config.Temperature)
		req.TopP = float32(d.config.TopP)
	}

	return req
}

// Chat posts messages to <baseURL>/chat/completions and returns the trimmed
// content of the first choice. Rate limits and transport failures are
// retried with backoff; auth and shape errors are returned immediately.
func (d *DeepseekProvider) Chat(ctx context.Context, modelName string, messages []Message) (string, error) {
	d.debugf("Preparing to send %d messages to model: %s", len(messages), modelName)

	if d.apiKey == "" {
		return "", &AuthError{Provider: d.Name(), Err: errors.New("provider not configured: missing API key")}
	}
	if !d.SupportsModel(modelName) {
		return "", fmt.Errorf("invalid Deepseek model: %s", modelName)
	}

	clientConfig := openai.DefaultConfig(d.apiKey)
	clientConfig.BaseURL = d.baseURL
	client := openai.NewClientWithConfig(clientConfig)
	req := d.createChatCompletionRequest(modelName, messages)

	response, err := retry.WithRetry(ctx, func(ctx context.Context) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", d.classify(err)
		}

		contents := make([]string, 0, len(resp.Choices))
		for _, c := range resp.Choices {
			contents = append(contents, c.Message.Content)
		}
		return firstChoice(d.Name(), contents)
	}, IsRetryable, d.retry)
	if err != nil {
		return "", err
	}

	d.debugf("API call completed, response length: %d characters", len(response))
	return response, nil
}

// classify maps go-openai errors onto the provider error kinds
func (d *DeepseekProvider) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(d.Name(), apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(d.Name(), reqErr.HTTPStatusCode, err)
	}
	if isDecodeError(err) {
		return &MalformedResponseError{Provider: d.Name(), Reason: err.Error()}
	}
	return classifyStatus(d.Name(), 0, err)
}
