package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	logger = logger.WithComponent(log.ComponentWorker)

	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required for ledger-worker")
	}

	var out io.Writer = os.Stdout
	if cfg.AuditLogPath != "" {
		f, err := os.OpenFile(cfg.AuditLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer f.Close()
		out = f
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	audit := worker.NewAuditWorker(out, logger)
	caches := cache.NewManager(logger)
	caches.Register(audit.Seen())
	caches.StartCleanup(time.Hour)
	defer caches.Stop()

	logger.Info("Starting ledger-worker",
		"queue", cfg.AMQPQueue,
		"audit_log", cfg.AuditLogPath,
		log.FieldOperation, log.OpStartup)

	start := time.Now()
	err = client.ConsumeBillEvents(ctx, audit.HandleBillEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		return err
	}

	logger.Info("Worker stopped",
		"uptime", time.Since(start).Round(time.Second).String(),
		"events", audit.Counts())
	return nil
}
