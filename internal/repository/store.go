// Package repository persists the owner graph.
//
// Three drivers are available:
//   - json: a single JSON document on disk (the default)
//   - sqlite: owners, pets and tasks tables through gorm
//   - redis: the JSON document stored under one key
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"pawpal/internal/config"
	"pawpal/internal/model"
)

// Store loads and saves the whole owner graph at once.
//
// Load returns (nil, false, nil) when nothing has been saved yet; callers
// treat that as a first run rather than a failure.
type Store interface {
	Load(ctx context.Context) (*model.Owner, bool, error)
	Save(ctx context.Context, owner *model.Owner) error
	Reset(ctx context.Context) error
	Close() error
}

// Open initializes the store selected by cfg.Driver.
func Open(cfg config.StorageConfig, log zerolog.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "json", "file":
		return NewJSONStore(cfg.Path), nil
	case "sqlite", "sqlite3":
		db, err := NewDB(cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		return NewOwnerRepository(db), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
