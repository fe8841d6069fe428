package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/specialist-recommender/internal/app"
	"github.com/specialist-recommender/internal/config"
	"github.com/specialist-recommender/internal/logging"
	"github.com/specialist-recommender/internal/mcp"
	"github.com/specialist-recommender/internal/setup"
)

func main() {
	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI(os.Stdin, os.Stdout)
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

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
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	// stdout carries the protocol
	if strings.EqualFold(cfg.Logging.Output, logging.OutputStdout) || cfg.Logging.Output == "" {
		cfg.Logging.Output = logging.OutputStderr
	}
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize service")
	}
	defer components.Close()

	server, err := mcp.NewServer(cfg.MCP, components.Recommender, components.Audit, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		return
	}

	logger.Info("MCP server stopped")
}
