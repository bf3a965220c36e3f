package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIGenerator работает с любым OpenAI-совместимым API.
type OpenAIGenerator struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIGenerator(apiKey, baseURL, model string, timeout time.Duration, logger *zap.Logger) *OpenAIGenerator {
	cfg := openaigo.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	logger.Info("OpenAI client created", zap.String("baseURL", cfg.BaseURL), zap.String("model", model), zap.Duration("timeout", timeout))
	return &OpenAIGenerator{
		client: openaigo.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.Named("OpenAI"),
	}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: g.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxOutputTokens,
	})
	duration := time.Since(start)

	if err != nil {
		aiRequestsTotal.WithLabelValues(g.Name(), g.model, "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiRequestsTotal.WithLabelValues(g.Name(), g.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	aiRequestsTotal.WithLabelValues(g.Name(), g.model, "success").Inc()
	aiRequestDuration.WithLabelValues(g.Name(), g.model).Observe(duration.Seconds())

	text := resp.Choices[0].Message.Content
	promptTokens, completionTokens := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if resp.Usage.TotalTokens == 0 {
		promptTokens, completionTokens = g.estimateTokens(prompt, text)
	}
	observeUsage(g.Name(), g.model, promptTokens, completionTokens)

	g.logger.Debug("Model response received",
		zap.Duration("duration", duration),
		zap.Int("responseLength", len(text)),
		zap.Int("promptTokens", promptTokens),
		zap.Int("completionTokens", completionTokens),
	)
	return text, nil
}

// estimateTokens считает токены через tiktoken, если API не вернул usage.
func (g *OpenAIGenerator) estimateTokens(prompt, completion string) (int, int) {
	tke, err := tiktoken.EncodingForModel(g.model)
	if err != nil {
		tke, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			g.logger.Debug("Token estimation unavailable", zap.Error(err))
			return 0, 0
		}
	}
	return len(tke.Encode(prompt, nil, nil)), len(tke.Encode(completion, nil, nil))
}
