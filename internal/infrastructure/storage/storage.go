// Package storage holds the résumé blob drivers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"jobtracker/internal/config"

	"go.uber.org/zap"
)

var ErrInvalidPath = errors.New("invalid object path")

// Store uploads objects into one bucket and resolves their public URLs.
type Store interface {
	Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) error
	PublicURL(path string) string
}

// New picks the driver named by cfg.Driver.
func New(cfg config.StorageConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalDir, cfg.Bucket, cfg.PublicBaseURL), nil
	case "supabase":
		return NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket, log), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func cleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", ErrInvalidPath
	}
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrInvalidPath
		}
	}
	return p, nil
}
