package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teamroom/teamroom/internal/api"
	"github.com/teamroom/teamroom/internal/config"
	"github.com/teamroom/teamroom/internal/core"
	"github.com/teamroom/teamroom/internal/logger"
	"github.com/teamroom/teamroom/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer dbStore.Close()

	// Seed the built-in persona roster; existing names are skipped.
	inserted, err := dbStore.SeedBots(store.DefaultBots(cfg.DefaultModel))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed default bots")
	}
	if inserted > 0 {
		log.Info().Int("count", inserted).Msg("seeded default bots")
	}

	// Pick the inference provider
	var inference core.InferenceService
	switch cfg.InferenceProvider {
	case "gemini":
		gemini, err := core.NewGeminiService(cfg.GeminiAPIKey, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Gemini provider")
		}
		defer gemini.Close()
		inference = gemini
	default:
		inference = core.NewOllamaService(cfg.OllamaHost, cfg.OllamaTimeout, log)
	}
	log.Info().Str("provider", cfg.InferenceProvider).Str("default_model", cfg.DefaultModel).Msg("inference provider ready")

	// Wire services and the HTTP layer
	conversationService := core.NewConversationService(dbStore, core.NewRouterBot(), inference, log)
	apiHandler := api.NewAPIHandler(conversationService, cfg.JWTSecret, cfg.DefaultModel, log)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OllamaTimeout + 30*time.Second, // inference calls can take minutes
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("could not listen on %s", serverAddr)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting gracefully")
}
