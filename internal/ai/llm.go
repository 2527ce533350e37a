package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DeepSeek pricing per 1M tokens (USD). Prompts served from the
// provider's cache are billed at the discounted input rate.
const (
	inputCostPerMTok      = 0.27
	inputCostPerMTokCache = 0.068
	outputCostPerMTok     = 1.09
)

var (
	// ErrNotConfigured means no API key was provided; callers should fall
	// back to the manual menu.
	ErrNotConfigured = errors.New("llm client is not configured")
	// ErrExhausted means all retry attempts failed on transient errors.
	ErrExhausted = errors.New("llm request failed after all retry attempts")
)

// LLMConfig configures the chat-completions client.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// LLMClient wraps an OpenAI-compatible chat-completions API with retry
// and usage accounting. It is stateless per call; conversation context is
// supplied by the caller.
type LLMClient struct {
	api    *openai.Client
	model  string
	temp   float32
	maxTok int
	policy RetryPolicy
	logger *zap.Logger
}

// Turn is one prior message in the conversation window.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// NewLLMClient creates an LLM client. With an empty API key the client is
// created in disabled state and Available reports false.
func NewLLMClient(cfg LLMConfig, policy RetryPolicy, logger *zap.Logger) *LLMClient {
	client := &LLMClient{
		model:  cfg.Model,
		temp:   cfg.Temperature,
		maxTok: cfg.MaxTokens,
		policy: policy,
		logger: logger,
	}
	if client.temp == 0 {
		client.temp = 0.7
	}
	if client.maxTok == 0 {
		client.maxTok = 500
	}

	if cfg.APIKey == "" {
		logger.Warn("DEEPSEEK_API_KEY not configured - AI features will be disabled")
		return client
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	apiConfig.HTTPClient = &http.Client{Timeout: timeout}

	client.api = openai.NewClientWithConfig(apiConfig)
	logger.Info("LLM client initialized", zap.String("model", client.model))
	return client
}

// Available reports whether the client can make API calls.
func (c *LLMClient) Available() bool {
	return c != nil && c.api != nil
}

// Chat sends a chat-completion request with the given tool contract and
// conversation history, retrying transient failures per the injected
// policy.
func (c *LLMClient) Chat(ctx context.Context, systemPrompt, userMessage string, tools []openai.Tool, history []Turn) (*openai.ChatCompletionResponse, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temp,
		MaxTokens:   c.maxTok,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		start := time.Now()
		resp, err := c.api.CreateChatCompletion(ctx, req)
		latency := time.Since(start)

		if err == nil {
			finishReason := ""
			if len(resp.Choices) > 0 {
				finishReason = string(resp.Choices[0].FinishReason)
			}
			c.logger.Info("LLM API call completed",
				zap.Int("total_tokens", resp.Usage.TotalTokens),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
				zap.Int("cache_hit_tokens", cachedTokens(resp.Usage)),
				zap.Int("cache_miss_tokens", resp.Usage.PromptTokens-cachedTokens(resp.Usage)),
				zap.Duration("latency", latency),
				zap.String("finish_reason", finishReason),
				zap.Int("attempt", attempt),
			)
			return &resp, nil
		}

		lastErr = err
		c.logger.Error("LLM API call failed",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.policy.MaxAttempts),
		)

		if !c.policy.Retryable(err) {
			return nil, err
		}
		if attempt == c.policy.MaxAttempts {
			break
		}
		if err := c.policy.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

// CalculateCost prices a request in USD, applying the discounted input
// rate when the prompt was served from the provider cache. This is an
// observability concern only.
func CalculateCost(promptTokens, completionTokens int, cacheHit bool) float64 {
	inputRate := inputCostPerMTok
	if cacheHit {
		inputRate = inputCostPerMTokCache
	}
	inputCost := float64(promptTokens) / 1_000_000 * inputRate
	outputCost := float64(completionTokens) / 1_000_000 * outputCostPerMTok
	return inputCost + outputCost
}

// cachedTokens extracts the cache-hit token count from the usage block.
func cachedTokens(usage openai.Usage) int {
	if usage.PromptTokensDetails == nil {
		return 0
	}
	return usage.PromptTokensDetails.CachedTokens
}

// ErrorStatusCode returns the HTTP status carried by a provider error, or
// 0 when the error has none (network failures, exhausted retries).
func ErrorStatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
