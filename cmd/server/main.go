package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roleplay-server/internal/config"
	"roleplay-server/internal/dice"
	"roleplay-server/internal/extraction"
	"roleplay-server/internal/game"
	"roleplay-server/internal/handler"
	"roleplay-server/internal/llm"
	"roleplay-server/internal/locale"
	"roleplay-server/internal/messaging"
	"roleplay-server/internal/prompt"
	"roleplay-server/internal/storage"
	"roleplay-server/pkg/logger"
	"roleplay-server/pkg/taskmanager"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const (
	taskCleanupInterval = 5 * time.Minute
	taskRetention       = 10 * time.Minute
	shutdownTimeout     = 15 * time.Second
)

func main() {
	_ = godotenv.Load()

	// уровень и формат нужны до загрузки остальной конфигурации
	zapLogger, err := logger.New(logger.Config{
		Level:    os.Getenv("LOG_LEVEL"),
		Encoding: os.Getenv("LOG_ENCODING"),
		Service:  "roleplay-server",
	})
	if err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	cfg, err := config.LoadConfig(zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pack := locale.Lookup(cfg.Language)

	store, closeStore, err := storage.New(ctx, storage.Options{
		Driver:        cfg.StorageDriver,
		Dir:           cfg.StorageDir,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisTTL:      cfg.RedisTTL,
	}, zapLogger.Named("Storage"))
	if err != nil {
		zapLogger.Fatal("Failed to initialise storage", zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			zapLogger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	generator, err := llm.NewGenerator(ctx, llm.Options{
		ClientType: cfg.AIClientType,
		APIKey:     cfg.AIAPIKey,
		BaseURL:    cfg.AIBaseURL,
		Model:      cfg.AIModel,
		Timeout:    cfg.AITimeout,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialise model backend", zap.Error(err))
	}
	if closer, ok := generator.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	caller := llm.NewFallbackCaller(generator, pack.FallbackPool, cfg.AITimeout, zapLogger)

	tasks := taskmanager.New(taskmanager.Config{
		MaxTasks:    cfg.ExtractionMaxTasks,
		TaskTimeout: 2 * cfg.AITimeout,
	}, zapLogger)
	tasks.OnFinished(func(t taskmanager.Task) {
		if t.Status != taskmanager.TaskStatusCompleted {
			zapLogger.Info("Background task did not complete",
				zap.String("gameID", t.Key),
				zap.String("task", t.Name),
				zap.String("status", string(t.Status)),
				zap.String("reason", t.Message),
			)
		}
	})
	go cleanupTasks(ctx, tasks, zapLogger)

	hub := handler.NewHub(zapLogger)
	go hub.Run(ctx)

	var events game.Broadcaster = hub
	if cfg.RabbitMQURL != "" {
		rabbitConn, err := connectRabbitMQ(ctx, cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbitConn.Close()

		publisher, err := messaging.NewEventPublisher(rabbitConn, cfg.RabbitMQExchange, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to create event publisher", zap.Error(err))
		}
		defer publisher.Close()

		consumer, err := messaging.NewEventConsumer(rabbitConn, cfg.RabbitMQExchange, hub, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to create event consumer", zap.Error(err))
		}
		defer consumer.Close()
		go func() {
			if err := consumer.StartConsuming(ctx); err != nil {
				zapLogger.Error("Event consumer stopped with error", zap.Error(err))
			}
		}()
		events = publisher
	}

	svc := game.NewService(game.Deps{
		Store:     store,
		Caller:    caller,
		Composer:  prompt.NewComposer(pack),
		Extractor: extraction.NewExtractor(caller, pack, cfg.AIExtractionMaxTokens, zapLogger),
		Tasks:     tasks,
		Dice:      dice.NewEngine(),
		Events:    events,
		Pack:      pack,
	}, game.Options{
		HistoryMaxMessages:    cfg.HistoryMaxMessages,
		PromptHistoryMessages: cfg.PromptHistoryMessages,
		MaxTokens:             cfg.AIMaxTokens,
		InitMaxTokens:         cfg.AIMaxTokens,
		ExtractionEnabled:     cfg.ExtractionEnabled,
	}, zapLogger)
	if cfg.SeedDemo {
		svc.SeedDemo(ctx)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(handler.ZapLogging(zapLogger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Request-ID")
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler.NewRoleplayHandler(svc, hub, pack, zapLogger).RegisterRoutes(router)
	if cfg.StaticDir != "" {
		handler.ServeStatic(router, cfg.StaticDir)
		zapLogger.Info("Serving static client", zap.String("dir", cfg.StaticDir))
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLogger.Info("Roleplay server listening", zap.String("port", cfg.Port), zap.String("language", pack.Tag.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Task manager shutdown failed", zap.Error(err))
	}
	zapLogger.Info("Roleplay server stopped")
}

// connectRabbitMQ подключается к RabbitMQ с несколькими попытками.
func connectRabbitMQ(ctx context.Context, url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 3 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("Connected to RabbitMQ")
			notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
			go func() {
				if closeErr, ok := <-notifyClose; ok && closeErr != nil {
					logger.Error("RabbitMQ connection closed", zap.Error(closeErr))
				}
			}()
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("maxAttempts", maxRetries),
			zap.Duration("retryDelay", retryDelay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, err
}

// cleanupTasks периодически удаляет завершенные задачи извлечения.
func cleanupTasks(ctx context.Context, tasks *taskmanager.TaskManager, logger *zap.Logger) {
	ticker := time.NewTicker(taskCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := tasks.CleanupTasks(taskRetention); n > 0 {
				logger.Debug("Finished tasks removed", zap.Int("count", n))
			}
		}
	}
}
