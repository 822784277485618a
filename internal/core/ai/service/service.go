package service

import (
	"context"
	"errors"

	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Service 在補全客戶端外加一層快取
type Service struct {
	completer provider.Completer
	cache     cache.Store
}

// NewService 創建 AI 服務；store 為 nil 時不快取
func NewService(completer provider.Completer, store cache.Store) *Service {
	return &Service{
		completer: completer,
		cache:     store,
	}
}

// Complete 先查快取，未命中才呼叫上游，成功結果寫回快取
func (s *Service) Complete(ctx context.Context, req *provider.Request) (string, error) {
	if s.cache == nil {
		return s.completer.Complete(ctx, req)
	}

	key := req.CacheKey()
	if val, err := s.cache.Get(ctx, key); err == nil && val != "" {
		return val, nil
	} else if err != nil && !errors.Is(err, common.ErrCacheMiss) {
		common.LogWarn("Cache lookup failed", zap.Error(err))
	}

	content, err := s.completer.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, key, content); err != nil {
		common.LogWarn("Cache store failed", zap.Error(err))
	}
	return content, nil
}
