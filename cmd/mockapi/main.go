package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rewired-gh/tennisoracle/internal/config"
	"github.com/rewired-gh/tennisoracle/internal/logger"
	"github.com/rewired-gh/tennisoracle/internal/mockapi"
	"github.com/rewired-gh/tennisoracle/internal/models"
)

var configPath = flag.String("config", "", "Path to configuration file (optional)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	var fixtures []models.PredictionRecord
	if cfg.MockAPI.FixturesPath != "" {
		fixtures, err = mockapi.LoadFixtures(cfg.MockAPI.FixturesPath)
		if err != nil {
			logger.Fatal("Failed to load fixtures: %v", err)
		}
		logger.Info("Loaded %d fixture predictions from %s", len(fixtures), cfg.MockAPI.FixturesPath)
	} else {
		fixtures = mockapi.SampleFixtures()
		logger.Info("Serving %d built-in sample predictions", len(fixtures))
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.MockAPI.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Mount("/", mockapi.New(fixtures).Router())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.MockAPI.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Mock prediction service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Shutdown error: %v", err)
	}
	logger.Info("Mock prediction service stopped")
}
