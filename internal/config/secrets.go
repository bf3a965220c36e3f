package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir - каталог Docker Secrets.
var SecretsDir = "/run/secrets"

// ReadSecret читает секрет из файла в SecretsDir. Пустой файл считается ошибкой.
func ReadSecret(name string) (string, error) {
	path := filepath.Join(SecretsDir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}

// applySecrets подменяет значения из окружения секретами, если файлы есть.
// Возвращает имена примененных секретов.
func applySecrets(cfg *Config) ([]string, error) {
	targets := []struct {
		name  string
		field *string
	}{
		{"ai_api_key", &cfg.AIAPIKey},
		{"redis_password", &cfg.RedisPassword},
	}
	var applied []string
	for _, t := range targets {
		secret, err := ReadSecret(t.name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return applied, err
		}
		*t.field = secret
		applied = append(applied, t.name)
	}
	return applied, nil
}
