package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"sync"
	"time"

	"aspirebot/internal/amqp"
	"aspirebot/internal/cli"
	applog "aspirebot/internal/log"
	gsheet "aspirebot/internal/sheets/google"
	"aspirebot/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "config file (default: ./config.toml or ~/.config/aspirebot/config.toml)")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(*configPath, true)
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.Log, applog.ComponentWorker)
	logger.Info("Starting aspire-worker")

	sqliteRepo, err := cli.InitSQLite(logger.Logger, cfg.Queue.SQLitePath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GSheet.SpreadsheetID,
		CredentialsJSON:    cfg.GSheet.CredentialsJSON,
		CredentialsFile:    cfg.GSheet.CredentialsFile,
		ConfigurationRange: cfg.GSheet.ConfigurationRange,
		CategoriesRange:    cfg.GSheet.CategoriesRange,
		AccountsRange:      cfg.GSheet.AccountsRange,
		DatesRange:         cfg.GSheet.DatesRange,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GSheet.SpreadsheetID)

	syncWorker := worker.NewSyncWorker(sqliteRepo, sheetsClient, cfg.Queue.SyncBatchSize)

	var amqpClient *amqp.Client
	if cfg.Queue.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.Queue.AMQPURL, cfg.Queue.Exchange, cfg.Queue.Queue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("No AMQP URL configured, relying on periodic sync only")
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)

	// On startup, process any pending transactions that might have been missed
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	var wg sync.WaitGroup
	if amqpClient != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := amqpClient.ConsumeTransactions(ctx, syncWorker.HandleSubmitted)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Periodic sync started", "interval", cfg.Queue.SyncInterval)
		if err := syncWorker.Run(ctx, cfg.Queue.SyncInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Periodic sync stopped", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	wg.Wait()
	logger.Info("Worker shutdown complete")
}
