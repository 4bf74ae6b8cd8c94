package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ClawPulse/ClawPulse/internal/analytics"
	"github.com/ClawPulse/ClawPulse/internal/api"
	"github.com/ClawPulse/ClawPulse/internal/config"
	"github.com/ClawPulse/ClawPulse/internal/ingest"
	"github.com/ClawPulse/ClawPulse/internal/intake"
	"github.com/ClawPulse/ClawPulse/internal/notify"
	"github.com/ClawPulse/ClawPulse/internal/retention"
	"github.com/ClawPulse/ClawPulse/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion and analytics gateway",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	printHeader("🌐 ClawPulse Gateway")
	fmt.Println("Starting ClawPulse Gateway...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		fmt.Printf("Data dir error: %v\n", err)
		os.Exit(1)
	}
	if err := config.EnsureDir(filepath.Dir(dbPath)); err != nil {
		fmt.Printf("Data dir error: %v\n", err)
		os.Exit(1)
	}
	st, err := store.New(dbPath)
	if err != nil {
		fmt.Printf("Failed to open event store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	tracker := ingest.NewTracker(st, cfg.Ingest)
	engine := analytics.New(st)
	server := api.NewServer(engine, tracker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Retention.Enabled {
		sweeper := retention.New(cfg.Retention, st)
		go func() {
			if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("Retention sweeper stopped", "error", err)
			}
		}()
	}

	if cfg.Intake.Enabled {
		consumer := intake.NewKafka(cfg.Intake, tracker)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Kafka intake stopped", "error", err)
			}
		}()
		fmt.Printf("📥 Kafka intake on %s (topic %s)\n", cfg.Intake.Brokers, cfg.Intake.Topic)
	}

	if cfg.Notify.Enabled {
		alerter := notify.New(cfg.Notify, engine)
		go func() {
			if err := alerter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("Slack alerter stopped", "error", err)
			}
		}()
		fmt.Printf("🔔 Slack alerts to %s\n", cfg.Notify.Channel)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: server.Mux(),
	}
	go func() {
		fmt.Printf("📡 API Server listening on http://%s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	fmt.Println("\nShutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	// Drain whatever the HTTP handlers queued before the listener closed.
	tracker.Close()
	fmt.Printf("Stored %d events this run (%d dropped)\n", tracker.Stored(), tracker.Dropped())
}
