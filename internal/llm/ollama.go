package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaGenerator ходит в локальный Ollama через нативный API.
type OllamaGenerator struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

func NewOllamaGenerator(baseURL, model string, timeout time.Duration, logger *zap.Logger) (*OllamaGenerator, error) {
	// api.NewClient ждет адрес без суффикса /v1
	base := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL '%s': %w", base, err)
	}
	logger.Info("Ollama client created", zap.String("baseURL", base), zap.String("model", model), zap.Duration("timeout", timeout))
	return &OllamaGenerator{
		client: api.NewClient(parsed, &http.Client{Timeout: timeout}),
		model:  model,
		logger: logger.Named("Ollama"),
	}, nil
}

func (g *OllamaGenerator) Name() string { return "ollama" }

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    g.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]interface{}{
			"num_predict": maxOutputTokens,
		},
	}

	start := time.Now()
	var resp api.ChatResponse
	err := g.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		aiRequestsTotal.WithLabelValues(g.Name(), g.model, "error").Inc()
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		aiRequestsTotal.WithLabelValues(g.Name(), g.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	aiRequestsTotal.WithLabelValues(g.Name(), g.model, "success").Inc()
	aiRequestDuration.WithLabelValues(g.Name(), g.model).Observe(duration.Seconds())
	observeUsage(g.Name(), g.model, resp.PromptEvalCount, resp.EvalCount)

	g.logger.Debug("Model response received",
		zap.Duration("duration", duration),
		zap.Int("responseLength", len(resp.Message.Content)),
		zap.Int("promptTokens", resp.PromptEvalCount),
		zap.Int("completionTokens", resp.EvalCount),
	)
	return resp.Message.Content, nil
}
