package main

// Manage the database schema:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate -down      # revert the latest migration
//   go run ./cmd/migrate -version   # print the current schema version

import (
	"context"
	"flag"
	"fmt"
	"os"

	"verifycert-backend/internal/shared/config"
	"verifycert-backend/internal/shared/storage/db"
	"verifycert-backend/internal/shared/telemetry"
)

func main() {
	down := flag.Bool("down", false, "revert the latest migration")
	version := flag.Bool("version", false, "print the current schema version and exit")
	flag.Parse()

	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch {
	case *version:
		v, err := db.MigrationVersion(ctx, sqlDB)
		if err != nil {
			telemetry.Error("migrate.version_failed", map[string]any{"error": err})
			sqlDB.Close()
			os.Exit(1)
		}
		fmt.Println(v)
	case *down:
		if err := db.RollbackMigration(ctx, sqlDB); err != nil {
			telemetry.Error("migrate.down_failed", map[string]any{"error": err})
			sqlDB.Close()
			os.Exit(1)
		}
		telemetry.Info("migrate.rolled_back", nil)
	default:
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			telemetry.Error("migrate.failed", map[string]any{"error": err})
			sqlDB.Close()
			os.Exit(1)
		}
		telemetry.Info("migrate.done", nil)
	}
}
