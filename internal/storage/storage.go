package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	NamespaceWorldState = "roleplay_world_state"
	NamespaceHistory    = "roleplay_history"
	NamespaceGame       = "roleplay_game"
)

// Store - простое хранилище строк по ключу.
// Отсутствие ключа - не ошибка: found == false.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Key строит ключ "<namespace>_<gameId>".
func Key(namespace, gameID string) string {
	return namespace + "_" + gameID
}

// Options - параметры выбора хранилища.
type Options struct {
	Driver        string
	Dir           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

// New создает хранилище по имени драйвера. Для redis проверяется соединение.
func New(ctx context.Context, opts Options, logger *zap.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(opts.Driver) {
	case "", "memory":
		logger.Info("Using in-memory store")
		return NewMemoryStore(), noop, nil
	case "file":
		fs, err := NewFileStore(opts.Dir)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("Using file store", zap.String("dir", opts.Dir))
		return fs, noop, nil
	case "redis":
		client, err := setupRedis(ctx, opts, logger)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisStore(client, opts.RedisTTL), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver '%s'", opts.Driver)
	}
}

// setupRedis подключается к Redis с несколькими попытками ping.
func setupRedis(ctx context.Context, opts Options, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	var err error
	for i := 0; i < 5; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err = client.Ping(pingCtx).Result()
		cancel()
		if err == nil {
			logger.Info("Connected to Redis", zap.String("addr", opts.RedisAddr), zap.Int("db", opts.RedisDB))
			return client, nil
		}
		logger.Warn("Failed to connect to Redis, retrying...", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.RedisAddr, err)
}
