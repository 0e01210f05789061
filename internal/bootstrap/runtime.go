// Package bootstrap wires the process-wide resources every command needs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"blogcms/internal/cache"
	"blogcms/internal/config"
	"blogcms/internal/database"
	"blogcms/internal/repository"
	"blogcms/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// EnsureAdmin creates the configured bootstrap account when missing.
	EnsureAdmin bool
	// SkipRedis leaves Runtime.Redis nil. CLIs that only touch the
	// database use it.
	SkipRedis bool
}

// Runtime holds the shared connections.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// InitRuntime connects to the database and Redis. Redis is optional: when it
// is unreachable Runtime.Redis is nil and callers run without cache, rate
// limits and admin events.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rt := &Runtime{DB: db}
	if !opts.SkipRedis {
		rt.Redis = cache.Connect(ctx, cfg.RedisURL)
	}

	if opts.EnsureAdmin {
		if _, err := EnsureAdmin(ctx, cfg, db); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
		}
	}
	return rt, nil
}

// EnsureAdmin creates the BOOTSTRAP_ADMIN_* account unless it already exists.
func EnsureAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) (bool, error) {
	accounts := service.NewAuthService(repository.NewAccountRepository(db), nil, nil)
	return accounts.EnsureBootstrapAdmin(ctx,
		cfg.BootstrapAdminUsername,
		cfg.BootstrapAdminPassword,
		cfg.BootstrapAdminEmail,
	)
}

// Close releases Redis and the database pool.
func (r *Runtime) Close() error {
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, database.Close(r.DB))
	}
	return errors.Join(errs...)
}
