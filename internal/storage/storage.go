// Package storage persists uploaded media bytes on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"blogcms/internal/config"
)

// Store saves and removes uploaded objects by key.
type Store interface {
	// Save writes size bytes from r under key.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// Location is the backend-specific place the object lives, recorded in
	// the media row.
	Location(key string) string
	// URL is where clients fetch the object.
	URL(key string) string
	Name() string
}

// New builds the store selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	case "local", "":
		return NewLocalStore(cfg.UploadDir, PublicUploadsPath)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// validKey rejects keys that could escape the upload directory or bucket
// prefix.
func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
