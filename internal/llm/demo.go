package llm

import (
	"context"
	"errors"
)

// ErrDemoMode - ключ модели не настроен, ответы берутся из пула.
var ErrDemoMode = errors.New("demo mode: no model backend configured")

// DemoGenerator всегда отказывает, и FallbackCaller отвечает из пула.
type DemoGenerator struct{}

func (DemoGenerator) Generate(context.Context, string, int) (string, error) {
	return "", ErrDemoMode
}

func (DemoGenerator) Name() string { return "demo" }
