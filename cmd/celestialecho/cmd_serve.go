package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/celestialecho/internal/bot"
	"github.com/user/celestialecho/internal/delivery"
	"github.com/user/celestialecho/internal/gateway"
	"github.com/user/celestialecho/internal/horizons"
	"github.com/user/celestialecho/internal/scheduler"
	"github.com/user/celestialecho/internal/state"
	"github.com/user/celestialecho/internal/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the celestialecho daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "celestialecho.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Write PID file
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Event store
	events, err := state.Open(cfg.DatabaseFile())
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer events.Close()

	lastSeen, err := events.MaxMessageID(cmd.Context())
	if err != nil {
		return fmt.Errorf("read resume point: %w", err)
	}

	// Every lookup drives its own HORIZONS session.
	hcfg := horizonsConfig(cfg)
	lookup := func(ctx context.Context, startTime, target string) (string, error) {
		return horizons.Fetch(ctx, hcfg, horizons.Request{
			Target:     target,
			StartTime:  startTime,
			StepSize:   cfg.Horizons.StepSize,
			Quantities: cfg.Horizons.Quantities,
		})
	}

	// Gateway
	gw := gateway.New(events, lookup, int64(cfg.MaxConcurrent), cfg.ReplyLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("celestialecho started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"database", cfg.DatabaseFile(),
		"max_concurrent", cfg.MaxConcurrent,
		"horizons", fmt.Sprintf("%s:%d", cfg.Horizons.Host, cfg.Horizons.Port),
		"reply_schedule", cfg.ReplySchedule,
		"last_message_id", lastSeen,
		"pid_file", pidPath,
	)

	// Delivery registry
	deliveryReg := delivery.NewRegistry()

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		adapter, err := bot.New(cfg.Telegram.Token, gw, events)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		go adapter.Start(ctx)
		slog.Info("telegram adapter started")

		// Register telegram delivery for scheduled echo replies
		deliveryReg.Register("telegram:", adapter.DeliveryHandler())
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// Reply scheduler
	sched := scheduler.New(events, scheduler.LookupFunc(lookup), deliveryReg.Deliver, cfg.ReplySchedule)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started")

	// Webhook HTTP server
	if cfg.Webhook.Addr != "" {
		webhookSrv := webhook.NewServer(events, webhook.LookupFunc(lookup))
		httpServer := &http.Server{
			Addr:    cfg.Webhook.Addr,
			Handler: webhookSrv,
		}
		go func() {
			slog.Info("webhook server started", "listen", cfg.Webhook.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("webhook server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				// Re-write PID file since we failed to re-exec
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
