package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/tennisoracle/internal/cache"
	"github.com/rewired-gh/tennisoracle/internal/config"
	"github.com/rewired-gh/tennisoracle/internal/logger"
	"github.com/rewired-gh/tennisoracle/internal/predictapi"
	"github.com/rewired-gh/tennisoracle/internal/storage"
)

var configPath = flag.String("config", "", "Path to configuration file (optional)")

const usage = `Usage: tennisoracle [-config FILE] <command> [args]

Commands:
  health                                   check that the prediction service is reachable
  predictions [-q TEXT] [-band BAND]       list predictions, optionally filtered
  dashboard                                show aggregate statistics
  match <tournament> <player A vs player B>
                                           show one match with its analysis
  tournament <name>                        list predictions for one tournament
  predict [-surface S] [-tournament T] <player1> <player2>
                                           request a fresh prediction
  watch                                    poll for new predictions and notify
  settings [show|reset|set-url URL|set KEY on|off]
                                           view or change saved settings
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if *configPath != "" {
		logger.Debug("Configuration loaded from %s", *configPath)
	}

	store, err := storage.New(cfg.Storage.MaxChecks, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	settings, err := store.LoadSettings()
	if err != nil {
		logger.Fatal("Failed to load settings: %v", err)
	}

	// An explicit api.base_url wins over the address saved in settings.
	baseURL := cfg.API.BaseURL
	if baseURL == "" {
		baseURL = settings.APIURL
		if err := settings.Validate(); err != nil {
			logger.Warn("Ignoring saved api url, using %s: %v", storage.DefaultAPIURL, err)
			baseURL = storage.DefaultAPIURL
		}
	}
	client, err := predictapi.NewClient(baseURL, cfg.API.Timeout, predictapi.ClientConfig{
		RequestsPerSec: cfg.API.RequestsPerSec,
	})
	if err != nil {
		logger.Fatal("Failed to initialize prediction client: %v", err)
	}
	logger.Debug("Prediction service at %s (timeout %v)", client.BaseURL(), client.Timeout())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:      cfg,
		store:    store,
		client:   client,
		source:   client,
		settings: settings,
		out:      os.Stdout,
	}

	if cfg.Cache.Enabled {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := cache.NewRedisClient(connectCtx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		cancel()
		if err != nil {
			logger.Warn("Cache disabled, redis unavailable: %v", err)
		} else {
			defer func() { _ = rdb.Close() }()
			a.source = cache.New(client, cache.NewRedisStore(rdb, "tennisoracle"), cfg.Cache.TTL)
			logger.Debug("Read-through cache enabled (ttl %v)", cfg.Cache.TTL)
		}
	}

	if err := a.run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
