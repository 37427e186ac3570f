package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"chat-shell/internal/config"
)

// LLMClient define la interfaz para obtener la respuesta del asistente.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var (
	ErrEmptyResponse   = errors.New("llm empty response")
	ErrUnknownProvider = errors.New("unknown llm provider")
)

const (
	ProviderPlaceholder = "placeholder"
	ProviderOpenAI      = "openai"
)

// PlaceholderClient simula la llamada: espera un retardo fijo y devuelve un texto fijo.
type PlaceholderClient struct {
	delay time.Duration
	reply string
}

func NewPlaceholderClient(delay time.Duration, reply string) *PlaceholderClient {
	return &PlaceholderClient{delay: delay, reply: reply}
}

func (c *PlaceholderClient) Generate(ctx context.Context, _ string) (string, error) {
	if c.delay <= 0 {
		return c.reply, nil
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return c.reply, nil
	}
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implementa LLMClient contra una API compatible con OpenAI.
// Un solo intento, sin reintentos.
type OpenAIClient struct {
	client chatCompleter
	model  string
	logger *zap.Logger
}

func NewOpenAIClient(baseURL, apiKey, model string, logger *zap.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		N:     1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("llm completion failed", zap.String("model", c.model), zap.Error(err))
		}
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// NewFromConfig elige la implementación según LLM_PROVIDER.
func NewFromConfig(cfg *config.Config, placeholderReply string, logger *zap.Logger) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", ProviderPlaceholder:
		return NewPlaceholderClient(cfg.ReplyDelay, placeholderReply), nil
	case ProviderOpenAI:
		if cfg.LLMAPIKey == "" {
			return nil, fmt.Errorf("openai provider: LLM_API_KEY not set")
		}
		return NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.LLMProvider)
	}
}
