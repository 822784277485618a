package cache

import (
	"context"
	"fmt"

	"recipe-importer/internal/infrastructure/config"
)

// Store 補全結果快取；未命中回傳 common.ErrCacheMiss
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// New 依設定建立快取；停用時回傳 nil
func New(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Type {
	case "redis":
		svc, err := NewService(cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "memory", "":
		return NewManager(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
