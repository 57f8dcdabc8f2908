package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/dariomutua/fundraza-backend/pkg/config"
	"github.com/dariomutua/fundraza-backend/pkg/db"
	"github.com/dariomutua/fundraza-backend/pkg/logger"
	"github.com/dariomutua/fundraza-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up, down, status, create, validate, version")
	dir := flag.String("dir", migrate.DefaultDir, "directory holding goose SQL migrations")
	name := flag.String("name", "", "migration name (required for create)")
	version := flag.String("version", "", "target version (required for version)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd": *cmd,
		"dir": *dir,
	})

	// create and validate never touch the database.
	switch *cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(*dir, requireResource(ctx, logg, "name", *name))
		if err != nil {
			logg.Error(ctx, "failed to create migration", err)
			os.Exit(1)
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"path": path}), "created migration")
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			logg.Error(ctx, "migration directory is invalid", err)
			os.Exit(1)
		}
		logg.Info(ctx, "migration directory is valid")
		return
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := client.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to extract sql.DB", err)
		os.Exit(1)
	}

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
			logg.Error(ctx, "migration command failed", err)
			os.Exit(1)
		}
	case "version":
		target := requireResource(ctx, logg, "version", *version)
		if err := migrate.ToVersion(ctx, sqlDB, *dir, target); err != nil {
			logg.Error(ctx, "migration to version failed", err)
			os.Exit(1)
		}
	default:
		logg.Error(ctx, "unknown migration command", nil)
		os.Exit(1)
	}

	logg.Info(ctx, "migration command completed")
}

func requireResource(ctx context.Context, logg *logger.Logger, flagName, value string) string {
	if value == "" {
		logg.Error(logg.WithFields(ctx, map[string]any{"flag": flagName}), "required flag is missing", nil)
		os.Exit(1)
	}
	return value
}
