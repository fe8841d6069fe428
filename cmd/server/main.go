package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialist-recommender/internal/api"
	"github.com/specialist-recommender/internal/app"
	"github.com/specialist-recommender/internal/config"
	"github.com/specialist-recommender/internal/logging"
	"github.com/specialist-recommender/internal/setup"
)

func main() {
	configFile := flag.String("config", os.Getenv(setup.ConfigFileEnv), "path to the config file")
	flag.Parse()

	// Load configuration
	var opts []config.Option
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	configManager, err := config.NewManager(opts...)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logCloser.Close()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize service")
	}
	defer components.Close()

	deps := api.Dependencies{
		Recommender: components.Recommender,
		Audit:       components.Audit,
		Model:       components.Provider,
		Logger:      logger,
	}
	if components.Retrainer != nil {
		deps.Retrainer = components.Retrainer
	}

	server, err := api.NewServer(configManager, deps)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	logger.WithField("port", cfg.Server.Port).Info("Starting specialist recommender")
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}

	logger.Info("Server stopped")
}
