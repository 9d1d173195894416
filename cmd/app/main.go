package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/api/v1/router"
	"app/internal/config"
	"app/internal/logger"
	"app/internal/pubsub"

	"github.com/joho/godotenv"
)

func main() {
	logger := logger.New()

	// 1. Load configuration
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}
	if err := cfg.ResolveSecrets(context.Background()); err != nil {
		logger.Fatal().Msgf("Error resolving secrets: %v", err)
	}

	// 2. Build router (and get DB pool + progress service)
	r, pool, progressSvc, err := router.New(cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build router: %v", err)
	}
	defer pool.Close()

	// 3. Start the judged-record subscriber, if configured
	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	if cfg.GCPProjectID != "" {
		sub, err := pubsub.NewSubscriber(subCtx, cfg, logger)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Pub/Sub subscriber: %v", err)
		}
		defer sub.Close()
		go func() {
			if err := sub.Run(subCtx, progressSvc.RecordJudged); err != nil {
				logger.Error().Err(err).Msg("Judged-record subscriber stopped")
			}
		}()
	} else {
		logger.Warn().Msg("GCP_PROJECT_ID not set; judged-record ingestion disabled")
	}

	// 4. Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Start server in a goroutine
	go func() {
		logger.Info().Msgf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Msgf("Listen: %s\n", err)
		}
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")

	subCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Msgf("Server forced to shutdown: %v", err)
	}
	logger.Info().Msg("Server shut down gracefully")
}
