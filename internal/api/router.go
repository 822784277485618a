package api

import (
	"time"

	"recipe-importer/internal/api/handlers"
	"recipe-importer/internal/api/handlers/health"
	ingredientHandler "recipe-importer/internal/api/handlers/ingredient"
	recipeHandler "recipe-importer/internal/api/handlers/recipe"
	shoppingHandler "recipe-importer/internal/api/handlers/shopping"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps 路由所需的服務
type Deps struct {
	Importer recipeHandler.Importer
	Shopping shoppingHandler.Merger
	Queue    health.QueueStatusProvider
	// Checks 就緒檢查，鍵為依賴名稱
	Checks     map[string]health.CheckFunc
	CacheStats func() map[string]interface{}
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.SetDebug(cfg.App.Debug)

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	// 健康檢查路由（不受限流）
	healthHandler := health.NewHandler(cfg.App.Version, deps.Queue)
	for name, check := range deps.Checks {
		healthHandler.AddCheck(name, check)
	}
	if deps.CacheStats != nil {
		healthHandler.SetCacheStats(deps.CacheStats)
	}
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	{
		if deps.Importer != nil {
			rh := recipeHandler.NewHandler(deps.Importer)
			recipes := api.Group("/recipes")
			// 只對匯入去重；購物清單重複新增是合法的累加
			dedup := middleware.NewDeduplicator(cfg.DedupWindow).Middleware()
			recipes.POST("/import", dedup, rh.HandleImportURL)
			recipes.POST("/import/images", dedup, rh.HandleImportImages)
			recipes.GET("", rh.HandleList)
			recipes.GET("/:id", rh.HandleGet)
		}

		if deps.Shopping != nil {
			sh := shoppingHandler.NewHandler(deps.Shopping)
			shopping := api.Group("/shopping")
			shopping.GET("", sh.HandleList)
			shopping.POST("", sh.HandleCreate)
			shopping.POST("/merge", sh.HandleMerge)
			shopping.PATCH("/:id", sh.HandleUpdate)
			// DELETE /shopping/done 由同一處理器分派
			shopping.DELETE("/:id", sh.HandleDelete)
		}

		api.POST("/ingredients/parse", ingredientHandler.HandleParse)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Int("ready_checks", len(deps.Checks)),
	)

	return router
}
