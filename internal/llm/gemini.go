package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiGenerator ходит в Google Gemini.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	logger.Info("Gemini client created", zap.String("model", model))
	return &GeminiGenerator{client: client, model: model, logger: logger.Named("Gemini")}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	model := g.client.GenerativeModel(g.model)
	if maxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(maxOutputTokens))
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	duration := time.Since(start)
	if err != nil {
		aiRequestsTotal.WithLabelValues(g.Name(), g.model, "error").Inc()
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	text := responseText(resp)
	if text == "" {
		aiRequestsTotal.WithLabelValues(g.Name(), g.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	aiRequestsTotal.WithLabelValues(g.Name(), g.model, "success").Inc()
	aiRequestDuration.WithLabelValues(g.Name(), g.model).Observe(duration.Seconds())
	if resp.UsageMetadata != nil {
		observeUsage(g.Name(), g.model, int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount))
	}
	return text, nil
}

// responseText склеивает текстовые части первого кандидата.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
