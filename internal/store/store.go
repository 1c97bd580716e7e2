package store

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
)

// New creates the store backend selected in the configuration.
func New(ctx context.Context, cfg config.StoreConfig) (model.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(cfg.NumShards), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown store type: '%s'", cfg.Type)
	}
}
