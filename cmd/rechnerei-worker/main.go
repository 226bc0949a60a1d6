package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"rechnerei/internal/amqp"
	"rechnerei/internal/config"
	"rechnerei/internal/document"
	"rechnerei/internal/export"
	gsheet "rechnerei/internal/export/google"
	applog "rechnerei/internal/log"
	"rechnerei/internal/services"
	"rechnerei/internal/storage"
	"rechnerei/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting rechnerei-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	renderer, err := document.NewRenderer(cfg.DocumentDir)
	if err != nil {
		logger.Error("Failed to initialize document renderer", "error", err, "dir", cfg.DocumentDir)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The bookkeeping sheet export is optional; without it invoices are
	// still rendered, only the ledger rows stay local.
	var ledger export.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.New(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = sheetsClient
		logger.Info("Google Sheets ledger export initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	invoiceWorker := worker.NewInvoiceWorker(repo, renderer, ledger, cfg.RenderBatchSize)

	// Catch up on anything that queued while the worker was down.
	if err := invoiceWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup pending check failed", "error", err)
	}

	recurring := services.NewRecurringProcessor(repo)
	if count, err := recurring.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Initial recurring processing failed", "error", err)
	} else if count > 0 {
		logger.Info("Recurring transactions booked", "count", count)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeInvoiceJobs(ctx, func(msg *amqp.InvoiceJobMessage) error {
				return invoiceWorker.HandleJob(ctx, msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - relying on the periodic pending sweep")
	}

	// The pending sweep is the safety net behind the AMQP path.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.RenderInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := invoiceWorker.ProcessPending(ctx); err != nil {
					logger.Error("Pending sweep failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				count, err := recurring.ProcessDue(ctx, now)
				if err != nil {
					logger.Error("Recurring processing failed", "error", err)
				} else if count > 0 {
					logger.Info("Recurring transactions booked", "count", count)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
