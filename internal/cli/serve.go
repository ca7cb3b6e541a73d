package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/record"
	"weighbridge-backend/internal/report"
	"weighbridge-backend/internal/repository/mongodb"
	"weighbridge-backend/internal/repository/sheets"
	"weighbridge-backend/internal/scale"
	"weighbridge-backend/internal/scheduler"
	"weighbridge-backend/internal/server"
	"weighbridge-backend/pkg/clients/notify"
	"weighbridge-backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, scale client and daily scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := database.Init(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	hub := scale.NewHub(cfg.Scale.StaleAfter)
	if cfg.Scale.URL != "" {
		client := scale.NewClient(cfg.Scale.URL, cfg.Scale.ReconnectMin, cfg.Scale.ReconnectMax, hub, logger.Named(log, "scale"))
		go client.Run(ctx)
	}

	var mirror record.Mirror
	if cfg.Sheets.SpreadsheetID != "" {
		sheetRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, loc, logger.Named(log, "sheets"))
		if err != nil {
			return fmt.Errorf("google sheets: %w", err)
		}
		mirror = sheetRepo
	}

	closer := &report.Closer{Location: loc, Logger: logger.Named(log, "daily-close")}
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return fmt.Errorf("mongodb: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := mongoRepo.Close(closeCtx); err != nil {
				log.Warn("mongodb disconnect failed", zap.Error(err))
			}
		}()
		closer.Archive = mongoRepo
	}
	if cfg.Notify.WebhookURL != "" {
		closer.Notifier = notify.NewWebhookClient(cfg.Notify.WebhookURL, cfg.Notify.Token)
	}

	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, closer, logger.Named(log, "scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := server.New(server.Deps{
		Config: cfg,
		Hub:    hub,
		Mirror: mirror,
		Closer: closer,
		Logger: logger.Named(log, "http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.HTTPPort), zap.String("timezone", loc.String()))
		errCh <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
