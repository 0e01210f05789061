package database

import (
	"context"
	"fmt"
	"log/slog"

	"blogcms/internal/config"
	"blogcms/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeSQL  = "sql"
	SchemaModeAuto = "auto"
)

// ApplySchema brings the schema up to date: goose SQL migrations in "sql"
// mode, GORM AutoMigrate in "auto" mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	switch cfg.SchemaMode {
	case SchemaModeSQL:
		middleware.Logger.Info("Running SQL migrations", slog.String("driver", cfg.DBDriver))
		if err := runSQLMigrations(ctx, db, cfg.DBDriver); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	case SchemaModeAuto, "":
		if cfg.IsProduction() {
			middleware.Logger.Warn("SCHEMA_MODE=auto in production; prefer SCHEMA_MODE=sql with cmd/migrate")
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	default:
		return fmt.Errorf("unsupported SCHEMA_MODE %q", cfg.SchemaMode)
	}
	return nil
}
