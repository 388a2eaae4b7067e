package main

import (
	"context"
	"errors"
	"os"

	"tally/internal/amqp"
	"tally/internal/cli"
	"tally/internal/log"
	"tally/internal/sheets"
	gsheet "tally/internal/sheets/google"
	"tally/internal/worker"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup happens before the process
// exits.
func run() int {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info").Error("Configuration validation failed", log.FieldError, err)
		return 1
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)
	logger.Info("Starting tally-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		return 1
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	// The sheet is optional; archives always land on disk.
	var sheet sheets.ArchiveWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewFromConfig(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			return 1
		}
		sheet = client
	} else {
		logger.Info("Google Sheets archive disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	archiver, err := worker.NewArchiveWorker(cfg.ArchiveDir, sheet, logger)
	if err != nil {
		logger.Error("Failed to initialize archive worker", log.FieldError, err, "dir", cfg.ArchiveDir)
		return 1
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		return 1
	}
	defer func() {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}()

	if err := amqpClient.ConsumeEvents(ctx, archiver.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		return 1
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
	return 0
}
