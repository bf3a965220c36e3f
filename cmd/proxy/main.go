package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roleplay-server/internal/config"
	"roleplay-server/internal/proxy"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadProxyConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := proxy.NewLogger(cfg.AppEnv, cfg.LogLevel, os.Stdout)

	srv, err := proxy.New(cfg.OllamaURL, cfg.StaticDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create proxy")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("ollamaURL", cfg.OllamaURL).
			Str("staticDir", cfg.StaticDir).
			Msg("starting Ollama proxy")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down proxy...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("proxy shutdown failed")
	}
	logger.Info().Msg("proxy stopped gracefully")
}
