package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/pairwise/internal/model"
)

// New creates a store based on configuration
func New(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	backend := strings.ToLower(cfg.Backend)

	switch backend {
	case "memory", "":
		return NewMemoryStore(), nil

	case "disk":
		return NewDiskStore(cfg.Dir), nil

	case "layered":
		return NewLayeredStore(cfg.Dir), nil

	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	case "mongo", "mongodb":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)

	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: memory, disk, layered, redis, mongo)", cfg.Backend)
	}
}

// Durable reports whether the backend survives a process restart
func Durable(backend string) bool {
	switch strings.ToLower(backend) {
	case "memory", "":
		return false
	default:
		return true
	}
}
