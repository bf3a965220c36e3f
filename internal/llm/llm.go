package llm

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrGenerationFailed - модель не вернула пригодный текст.
var ErrGenerationFailed = errors.New("model text generation failed")

// Generator - низкоуровневый вызов конкретной модели. Ошибки возвращаются как есть.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
	Name() string
}

// Caller - вызов модели, который никогда не падает: вместо ошибки
// возвращается заготовленный ответ.
type Caller interface {
	Call(ctx context.Context, prompt string, maxOutputTokens int) string
}

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleplay_ai_requests_total",
			Help: "Total number of requests to the language model.",
		},
		[]string{"backend", "model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roleplay_ai_request_duration_seconds",
			Help:    "Histogram of language model request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roleplay_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		},
		[]string{"backend", "model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roleplay_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.ExponentialBuckets(16, 2, 10),
		},
		[]string{"backend", "model"},
	)
	aiFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleplay_ai_fallbacks_total",
			Help: "Number of model calls answered from the fallback pool.",
		},
		[]string{"backend", "reason"},
	)
)

func observeUsage(backend, model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		aiPromptTokens.WithLabelValues(backend, model).Observe(float64(promptTokens))
	}
	if completionTokens > 0 {
		aiCompletionTokens.WithLabelValues(backend, model).Observe(float64(completionTokens))
	}
}
