package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kris-hansen/versecraft/utils/config"
	"github.com/kris-hansen/versecraft/utils/retry"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultArkBaseURL is the Volcengine Ark endpoint for the Beijing region
const DefaultArkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// DefaultVisionModel is the Doubao model used for image description
const DefaultVisionModel = "doubao-seed-1-6-250615"

// DefaultVisionQuestion is asked when the caller supplies no question
const DefaultVisionQuestion = "这是哪里？"

// ArkProvider talks to Volcengine Ark (Doubao models) through its
// OpenAI-compatible API using the official openai-go SDK
type ArkProvider struct {
	apiKey  string
	baseURL string
	config  ModelConfig
	retry   retry.RetryConfig
	verbose bool
	mu      sync.Mutex
}

var _ ImageDescriber = (*ArkProvider)(nil)

// NewArkProvider creates a new Ark provider instance
func NewArkProvider() *ArkProvider {
	return &ArkProvider{
		baseURL: DefaultArkBaseURL,
		config: ModelConfig{
			Temperature: 0.7,
			MaxTokens:   2000,
			TopP:        1.0,
		},
		retry: retry.DefaultRetryConfig,
	}
}

// Name returns the provider name
func (a *ArkProvider) Name() string {
	return "ark"
}

func (a *ArkProvider) debugf(format string, args ...interface{}) {
	if a.verbose {
		a.mu.Lock()
		defer a.mu.Unlock()
		config.DebugLog("[Ark] "+format, args...)
	}
}

// SupportsModel checks if the given model name is a Doubao model or Ark endpoint ID
func (a *ArkProvider) SupportsModel(modelName string) bool {
	return GetRegistry().ValidateModel(a.Name(), modelName)
}

// Configure sets up the provider with necessary credentials
func (a *ArkProvider) Configure(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key is required for Ark provider")
	}
	a.apiKey = apiKey
	return nil
}

// SetBaseURL overrides the Ark endpoint (e.g. another region)
func (a *ArkProvider) SetBaseURL(baseURL string) {
	a.baseURL = strings.TrimRight(baseURL, "/")
}

// SetRetryConfig replaces the backoff policy for retryable errors
func (a *ArkProvider) SetRetryConfig(rc retry.RetryConfig) {
	a.retry = rc
}

// SetConfig updates the provider configuration
func (a *ArkProvider) SetConfig(mc ModelConfig) {
	a.config = mc
}

// GetConfig returns the current provider configuration
func (a *ArkProvider) GetConfig() ModelConfig {
	return a.config
}

// SetVerbose enables or disables verbose mode
func (a *ArkProvider) SetVerbose(verbose bool) {
	a.verbose = verbose
}

func (a *ArkProvider) client() openai.Client {
	return openai.NewClient(
		option.WithAPIKey(a.apiKey),
		option.WithBaseURL(a.baseURL+"/"),
		// backoff is handled by utils/retry so the error kinds stay in charge
		option.WithMaxRetries(0),
	)
}

// Chat sends messages to the chat completions endpoint and returns the
// trimmed content of the first choice
func (a *ArkProvider) Chat(ctx context.Context, modelName string, messages []Message) (string, error) {
	a.debugf("Preparing to send %d messages to model: %s", len(messages), modelName)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(modelName),
		Messages:    msgs,
		Temperature: openai.Float(a.config.Temperature),
		TopP:        openai.Float(a.config.TopP),
		MaxTokens:   openai.Int(int64(a.config.MaxTokens)),
	}
	return a.complete(ctx, modelName, params)
}

// DescribeImage asks a vision model about the image at imageURL. An empty
// model or question falls back to DefaultVisionModel and DefaultVisionQuestion.
func (a *ArkProvider) DescribeImage(ctx context.Context, modelName, imageURL, question string) (string, error) {
	if imageURL == "" {
		return "", fmt.Errorf("image URL is required")
	}
	if modelName == "" {
		modelName = DefaultVisionModel
	}
	if question == "" {
		question = DefaultVisionQuestion
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
		openai.TextContentPart(question),
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	}
	return a.complete(ctx, modelName, params)
}

func (a *ArkProvider) complete(ctx context.Context, modelName string, params openai.ChatCompletionNewParams) (string, error) {
	if a.apiKey == "" {
		return "", &AuthError{Provider: a.Name(), Err: errors.New("provider not configured: missing API key")}
	}
	if !a.SupportsModel(modelName) {
		return "", fmt.Errorf("invalid Ark model: %s", modelName)
	}

	client := a.client()
	response, err := retry.WithRetry(ctx, func(ctx context.Context) (string, error) {
		resp, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", a.classify(err)
		}

		contents := make([]string, 0, len(resp.Choices))
		for _, c := range resp.Choices {
			contents = append(contents, c.Message.Content)
		}
		return firstChoice(a.Name(), contents)
	}, IsRetryable, a.retry)
	if err != nil {
		return "", err
	}

	a.debugf("API call completed, response length: %d characters", len(response))
	return response, nil
}

func (a *ArkProvider) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(a.Name(), apiErr.StatusCode, err)
	}
	if isDecodeError(err) {
		return &MalformedResponseError{Provider: a.Name(), Reason: err.Error()}
	}
	return classifyStatus(a.Name(), 0, err)
}
