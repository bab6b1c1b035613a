package main

import (
	"context"
	"os"
	"time"

	"cashplet/internal/amqp"
	"cashplet/internal/app"
	"cashplet/internal/auth"
	"cashplet/internal/backend"
	"cashplet/internal/cli"
	apphttp "cashplet/internal/http"
	applog "cashplet/internal/log"
	"cashplet/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	result, err := backend.Open(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to open data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	// The event pipeline is optional: without a broker URL mutations are
	// simply not mirrored.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("Initialized AMQP publisher",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	authSvc := auth.NewService(result.Store)
	kv := app.NewFileKV(cfg.StatePath)
	srv := apphttp.NewServer(cfg.Port, result.Store, authSvc, publisher, kv)

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting cashplet server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
