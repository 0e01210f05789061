package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"blogcms/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// migrationSource returns the goose dialect and embedded directory for a driver.
func migrationSource(driver string) (dialect, dir string, err error) {
	switch driver {
	case "postgres":
		return "postgres", "migrations/postgres", nil
	case "sqlite", "":
		return "sqlite3", "migrations/sqlite", nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

func prepareGoose(driver string) (string, error) {
	dialect, dir, err := migrationSource(driver)
	if err != nil {
		return "", err
	}
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect(dialect); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	return dir, nil
}

// OpenSQL opens a plain database/sql handle for migration tooling. Postgres
// goes through the pgx stdlib driver; SQLite reuses the gorm connection.
func OpenSQL(cfg *config.Config) (*sql.DB, error) {
	if cfg.DBDriver == "postgres" {
		db, err := sql.Open("pgx", PostgresDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	}

	gdb, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return gdb.DB()
}

// RunMigrations applies every pending embedded SQL migration.
func RunMigrations(ctx context.Context, db *sql.DB, driver string) error {
	dir, err := prepareGoose(driver)
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// RollbackMigration reverts the most recently applied migration.
func RollbackMigration(ctx context.Context, db *sql.DB, driver string) error {
	dir, err := prepareGoose(driver)
	if err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db, dir); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// MigrationStatus prints applied and pending migrations through goose's logger.
func MigrationStatus(ctx context.Context, db *sql.DB, driver string) error {
	dir, err := prepareGoose(driver)
	if err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, dir)
}

// CurrentVersion returns the newest applied migration version.
func CurrentVersion(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	if _, err := prepareGoose(driver); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}

func runSQLMigrations(ctx context.Context, db *gorm.DB, driver string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return RunMigrations(ctx, sqlDB, driver)
}
