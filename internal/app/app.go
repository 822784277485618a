// Package app 依設定組裝各服務，供 HTTP 服務與 CLI 共用。
package app

import (
	"context"
	"fmt"

	"recipe-importer/internal/api"
	"recipe-importer/internal/api/handlers/health"
	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/openrouter"
	"recipe-importer/internal/core/ai/queue"
	"recipe-importer/internal/core/ai/service"
	"recipe-importer/internal/core/image"
	"recipe-importer/internal/core/page"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/shopping"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/infrastructure/database"
	"recipe-importer/internal/pkg/common"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// App 已組裝的服務
type App struct {
	Config    *config.Config
	Fetcher   *page.Fetcher
	Extractor *recipe.Extractor
	Importer  *recipe.ImportService
	Shopping  *shopping.Engine
	Queue     *queue.Manager

	db    *sqlx.DB
	cache cache.Store
}

// New 依設定建立所有服務；失敗時釋放已建立的資源
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// 初始化快取
	a.cache, err = cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	if cfg.OpenRouter.APIKey == "" {
		common.LogWarn("OPENROUTER_API_KEY 未設定，擷取請求將回傳 503")
	}
	completer := service.NewService(openrouter.NewClient(cfg.OpenRouter), a.cache)

	a.Queue = queue.NewManager(cfg.Queue)
	a.Fetcher = page.NewFetcher(cfg.Fetch)
	images := image.NewService(cfg.Image, a.Fetcher, a.Queue)
	a.Extractor = recipe.NewExtractor(completer, cfg.OpenRouter, cfg.Image.MaxImages)

	var (
		recipeStore   recipe.Store
		shoppingStore shopping.Store
	)
	switch cfg.Database.Driver {
	case "postgres":
		a.db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		recipeStore = recipe.NewPostgresStore(a.db)
		shoppingStore = shopping.NewPostgresStore(a.db)
	default:
		common.LogWarn("使用記憶體儲存，重啟後資料會遺失")
		recipeStore = recipe.NewMemoryStore()
		shoppingStore = shopping.NewMemoryStore()
	}

	a.Importer = recipe.NewImportService(a.Fetcher, a.Extractor, recipeStore, images, cfg.Image.MaxImages)
	a.Shopping = shopping.NewEngine(shoppingStore, a.Extractor, cfg.Shopping)

	common.LogInfo("服務初始化完成",
		zap.String("database", cfg.Database.Driver),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("cache_type", cfg.Cache.Type),
		zap.Int("queue_workers", cfg.Queue.Workers),
		zap.String("model", cfg.OpenRouter.Model),
		zap.String("api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
	)
	return a, nil
}

// RouterDeps 路由依賴與就緒檢查
func (a *App) RouterDeps() api.Deps {
	checks := make(map[string]health.CheckFunc)
	if a.db != nil {
		checks["database"] = a.db.PingContext
	}
	if p, ok := a.cache.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = p.Ping
	}
	deps := api.Deps{
		Importer: a.Importer,
		Shopping: a.Shopping,
		Queue:    a.Queue,
		Checks:   checks,
	}
	if m, ok := a.cache.(*cache.CacheManager); ok {
		deps.CacheStats = m.GetStats
	}
	return deps
}

// Close 釋放工作池、快取與資料庫連線
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			common.LogWarn("Failed to close cache", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			common.LogWarn("Failed to close database", zap.Error(err))
		}
	}
}
