package recipe

import (
	"context"
	"net/http"
	"strconv"

	"recipe-importer/internal/api/handlers"
	recipeService "recipe-importer/internal/core/recipe"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Importer 食譜匯入服務
type Importer interface {
	ImportURL(ctx context.Context, req recipeService.ImportURLRequest) (*recipeService.Recipe, error)
	ImportImages(ctx context.Context, req recipeService.ImportImagesRequest) (*recipeService.Recipe, error)
	Get(ctx context.Context, id string) (*recipeService.Recipe, error)
	List(ctx context.Context, limit int) ([]*recipeService.Recipe, error)
}

// Handler 食譜處理程序
type Handler struct {
	importer Importer
}

// NewHandler 創建新的食譜處理程序
func NewHandler(importer Importer) *Handler {
	return &Handler{importer: importer}
}

// HandleImportURL 從網址匯入食譜
func (h *Handler) HandleImportURL(c *gin.Context) {
	var req recipeService.ImportURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BindError(c, err)
		return
	}

	common.LogInfo("開始處理網址匯入請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("url", req.URL),
		zap.String("client_ip", c.ClientIP()),
	)

	recipe, err := h.importer.ImportURL(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// HandleImportImages 從照片匯入食譜
func (h *Handler) HandleImportImages(c *gin.Context) {
	var req recipeService.ImportImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BindError(c, err)
		return
	}

	kinds := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		kinds = append(kinds, getImagePrefix(img)+getImageType(img))
	}
	common.LogInfo("開始處理照片匯入請求",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("images", len(req.Images)),
		zap.Strings("image_types", kinds),
	)

	recipe, err := h.importer.ImportImages(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// HandleGet 取得單一食譜
func (h *Handler) HandleGet(c *gin.Context) {
	recipe, err := h.importer.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// HandleList 列出最近匯入的食譜，?limit= 可調整筆數
func (h *Handler) HandleList(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			handlers.RespondError(c, common.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	recipes, err := h.importer.List(c.Request.Context(), limit)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}
