package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"aivy-conversation/internal/common/logger"
)

// Generator writes the executive reply for a context bundle.
type Generator interface {
	Generate(ctx context.Context, bundle ContextBundle) (string, error)
}

type OpenAIGenerator struct {
	client *openai.Client
	config Config
	logger logger.Logger
}

func NewOpenAIGenerator(client *openai.Client, cfg Config, log logger.Logger) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: client,
		config: cfg,
		logger: logger.ForComponent(log, "llm-generator"),
	}
}

// Generate calls the chat model, retrying transient failures with
// exponential backoff. An empty completion is an error.
func (g *OpenAIGenerator) Generate(ctx context.Context, bundle ContextBundle) (string, error) {
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       g.config.ChatModel,
		Messages:    BuildMessages(bundle),
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	var (
		resp    openai.ChatCompletionResponse
		lastErr error
	)
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrLLMTimeout
			}
		}

		resp, lastErr = g.client.CreateChatCompletion(ctx, req)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return "", ErrLLMTimeout
		}
		if !retryable(lastErr) {
			break
		}
		g.logger.Warn("chat completion failed, retrying", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		})
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMSynthesisFailed, lastErr)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrLLMSynthesisFailed)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrLLMSynthesisFailed)
	}

	g.logger.Debug("response generated", map[string]interface{}{
		"model":            g.config.ChatModel,
		"chunks":           len(bundle.Chunks),
		"historyTurns":     len(bundle.History),
		"completionTokens": resp.Usage.CompletionTokens,
	})
	return text, nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
