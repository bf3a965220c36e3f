package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Options - параметры выбора модели.
type Options struct {
	ClientType string
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
}

// NewGenerator создает Generator по типу клиента. Без ключа облачные
// клиенты заменяются демо-режимом.
func NewGenerator(ctx context.Context, opts Options, logger *zap.Logger) (Generator, error) {
	clientType := strings.ToLower(strings.TrimSpace(opts.ClientType))
	switch clientType {
	case "openai", "gemini":
		if opts.APIKey == "" {
			logger.Warn("AI API key not configured, using demo mode", zap.String("clientType", clientType))
			return DemoGenerator{}, nil
		}
	}

	switch clientType {
	case "openai":
		return NewOpenAIGenerator(opts.APIKey, opts.BaseURL, opts.Model, opts.Timeout, logger), nil
	case "ollama":
		return NewOllamaGenerator(opts.BaseURL, opts.Model, opts.Timeout, logger)
	case "gemini":
		return NewGeminiGenerator(ctx, opts.APIKey, opts.Model, logger)
	case "", "demo":
		logger.Info("Using demo model backend")
		return DemoGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown AI client type '%s'", opts.ClientType)
	}
}
