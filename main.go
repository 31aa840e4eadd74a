package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"walletscope/config"
	"walletscope/internal/app"
	"walletscope/internal/audit"
	"walletscope/internal/dashboard"
	"walletscope/internal/metrics"
	"walletscope/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithEnv("APP_ENV", "AWS_REGION").WithFields(logger.Fields{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
		"env":     config.AppEnvironment(),
	}).Info("starting walletscope")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	if cw := cfg.Metrics.CloudWatch; cw.Enabled {
		logger.InitCloudWatch(ctx, cw.Region, cw.Namespace, cw.Dashboard)
	}
	defer logger.FlushMetrics()

	service, err := app.Bootstrap(cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to build holdings service")
		os.Exit(1)
	}

	if !cfg.Dashboard.Enabled {
		log.WithComponent("main").Info("dashboard disabled; use cmd/holdings for one-off lookups")
		return
	}

	store, err := audit.Open(ctx, cfg.Audit.DBPath)
	if err != nil {
		log.WithError(err).Error("failed to open login audit store")
		os.Exit(1)
	}
	defer store.Close()

	server, err := dashboard.NewServer(cfg.Dashboard, cfg.App.Name, service, store, log)
	if err != nil {
		log.WithError(err).Error("failed to create dashboard")
		os.Exit(1)
	}

	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-done:
		if err != nil {
			log.WithError(err).Error("dashboard stopped")
			store.Close()
			os.Exit(1)
		}
		return
	}

	select {
	case err := <-done:
		if err != nil {
			log.WithError(err).Warn("dashboard shutdown error")
		}
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("walletscope stopped")
}
