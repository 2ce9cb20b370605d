package llm

import (
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"

	"aivy-conversation/internal/common/config"
)

var (
	ErrLLMTimeout         = errors.New("LLM_TIMEOUT")
	ErrLLMSynthesisFailed = errors.New("LLM_SYNTHESIS_FAILED")
	ErrEmbeddingFailed    = errors.New("EMBEDDING_FAILED")
)

// Config covers both the chat and the embedding model. Any
// OpenAI-compatible endpoint works through BaseURL.
type Config struct {
	BaseURL             string
	APIKey              string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
	MaxTokens           int
	Temperature         float32
	MaxRetries          int
	Timeout             time.Duration
}

func ConfigFromApp(cfg *config.Config) Config {
	o := cfg.APIs.OpenAI
	return Config{
		BaseURL:             o.BaseURL,
		APIKey:              o.APIKey,
		ChatModel:           o.ChatModel,
		EmbeddingModel:      o.EmbeddingModel,
		EmbeddingDimensions: o.EmbeddingDimensions,
		MaxTokens:           o.MaxTokens,
		Temperature:         o.Temperature,
		MaxRetries:          o.MaxRetries,
		Timeout:             config.GetDuration(o.Timeout),
	}
}

func NewClient(cfg Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
