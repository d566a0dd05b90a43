package main

// Sweep expired batch archives and generation workspaces outside the API process:
//   go run ./cmd/sweeper          # run on ARCHIVE_SWEEP_SCHEDULE until stopped
//   go run ./cmd/sweeper -once    # sweep once and exit

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"verifycert-backend/internal/batches"
	"verifycert-backend/internal/shared/config"
	"verifycert-backend/internal/shared/telemetry"
)

func main() {
	once := flag.Bool("once", false, "sweep once and exit")
	flag.Parse()

	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once); err != nil {
		telemetry.Error("sweeper.failed", map[string]any{"error": err})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, once bool) error {
	janitor := batches.NewJanitor(cfg.WorkDir, cfg.ArchiveTTL)
	if once {
		removed := janitor.Sweep()
		telemetry.Info("sweeper.done", map[string]any{"work_dir": cfg.WorkDir, "removed": removed})
		return nil
	}

	if err := janitor.Start(cfg.ArchiveSweepSchedule); err != nil {
		return err
	}
	janitor.Sweep()
	<-ctx.Done()
	janitor.Stop()
	telemetry.Info("sweeper.stopped", nil)
	return nil
}
