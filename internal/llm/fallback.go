package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout - ограничение на один вызов модели.
const DefaultTimeout = 60 * time.Second

// FallbackCaller оборачивает Generator: таймаут, ошибка, пустой ответ или паника
// заменяются случайной строкой из пула.
type FallbackCaller struct {
	gen     Generator
	pool    []string
	timeout time.Duration
	logger  *zap.Logger
	intN    func(n int) int
}

func NewFallbackCaller(gen Generator, pool []string, timeout time.Duration, logger *zap.Logger) *FallbackCaller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if len(pool) == 0 {
		pool = []string{"..."}
	}
	return &FallbackCaller{
		gen:     gen,
		pool:    pool,
		timeout: timeout,
		logger:  logger.Named("ModelCaller").With(zap.String("backend", gen.Name())),
		intN:    rand.IntN,
	}
}

// Fallback возвращает случайный ответ из пула.
func (f *FallbackCaller) Fallback() string {
	return f.pool[f.intN(len(f.pool))]
}

// IsFallback сообщает, взят ли текст из пула.
func (f *FallbackCaller) IsFallback(text string) bool {
	for _, s := range f.pool {
		if s == text {
			return true
		}
	}
	return false
}

func (f *FallbackCaller) Call(ctx context.Context, prompt string, maxOutputTokens int) (out string) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Panic in model backend, using fallback", zap.Any("panic", r))
			aiFallbacksTotal.WithLabelValues(f.gen.Name(), "panic").Inc()
			out = f.Fallback()
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	text, err := f.gen.Generate(callCtx, prompt, maxOutputTokens)
	switch {
	case errors.Is(err, ErrDemoMode):
		aiFallbacksTotal.WithLabelValues(f.gen.Name(), "demo").Inc()
		return f.Fallback()
	case errors.Is(err, context.DeadlineExceeded):
		f.logger.Warn("Model call timed out, using fallback", zap.Duration("timeout", f.timeout))
		aiFallbacksTotal.WithLabelValues(f.gen.Name(), "timeout").Inc()
		return f.Fallback()
	case err != nil:
		f.logger.Error("Model call failed, using fallback", zap.Error(err))
		aiFallbacksTotal.WithLabelValues(f.gen.Name(), "error").Inc()
		return f.Fallback()
	case strings.TrimSpace(text) == "":
		f.logger.Warn("Model returned empty text, using fallback")
		aiFallbacksTotal.WithLabelValues(f.gen.Name(), "empty").Inc()
		return f.Fallback()
	}
	return text
}
