package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cashplet/internal/amqp"
	"cashplet/internal/cli"
	applog "cashplet/internal/log"
	gsheet "cashplet/internal/sheets/google"
	"cashplet/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the mirror worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	mirror, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	mirrorWorker := worker.NewMirrorWorker(mirror)

	// Consume until shutdown, reconnecting after transient broker
	// failures. Unprocessed deliveries are requeued by the nack path.
	for {
		err := consumeOnce(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, mirrorWorker)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			logger.Info("Worker stopped gracefully")
			return
		}
		logger.Error("Consumption interrupted, reconnecting",
			"error", err, "retry_in", cfg.SyncInterval)

		select {
		case <-ctx.Done():
			logger.Info("Worker stopped gracefully")
			return
		case <-time.After(cfg.SyncInterval):
		}
	}
}

func consumeOnce(ctx context.Context, url, exchange, queue string, w *worker.MirrorWorker) error {
	client, err := amqp.NewClient(url, exchange, queue)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
}
