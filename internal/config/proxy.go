package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// ProxyConfig - конфигурация прокси к Ollama со статикой клиента.
type ProxyConfig struct {
	AppEnv    string `env:"APP_ENV" env-default:"development"`
	Port      string `env:"PROXY_PORT" env-default:"9425"`
	OllamaURL string `env:"OLLAMA_URL" env-default:"http://localhost:11434"`
	StaticDir string `env:"STATIC_DIR" env-default:"."`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
}

// LoadProxyConfig читает ProxyConfig из окружения.
func LoadProxyConfig() (*ProxyConfig, error) {
	var cfg ProxyConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read proxy config: %w", err)
	}
	return &cfg, nil
}
