// Command migrate runs schema operations for the blog database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"blogcms/internal/config"
	"blogcms/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|auto|status|down|version>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))

	if cmd == "auto" {
		db, err := database.Open(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer func() { _ = database.Close(db) }()

		cfg.SchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
		return nil
	}

	sqlDB, err := database.OpenSQL(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, sqlDB, cfg.DBDriver); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "status":
		if err := database.MigrationStatus(ctx, sqlDB, cfg.DBDriver); err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
	case "down":
		if err := database.RollbackMigration(ctx, sqlDB, cfg.DBDriver); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Println("rolled back latest migration")
	case "version":
		version, err := database.CurrentVersion(ctx, sqlDB, cfg.DBDriver)
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		log.Printf("driver=%s version=%d", cfg.DBDriver, version)
	default:
		return usage()
	}

	return nil
}
