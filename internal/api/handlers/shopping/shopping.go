package shopping

import (
	"context"
	"net/http"

	"recipe-importer/internal/api/handlers"
	shoppingService "recipe-importer/internal/core/shopping"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// doneSegment DELETE /shopping/done 的路徑段，與 :id 共用同一路由
const doneSegment = "done"

// Merger 購物清單合併引擎
type Merger interface {
	Create(ctx context.Context, text string) (*shoppingService.Entry, error)
	Merge(ctx context.Context, items []shoppingService.Item) ([]*shoppingService.Entry, error)
	Update(ctx context.Context, id string, patch shoppingService.Patch) (*shoppingService.Entry, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*shoppingService.Entry, error)
	ClearDone(ctx context.Context) (int64, error)
}

// Handler 購物清單處理程序
type Handler struct {
	engine Merger
}

// NewHandler 創建購物清單處理程序
func NewHandler(engine Merger) *Handler {
	return &Handler{engine: engine}
}

// HandleList 列出完整清單
func (h *Handler) HandleList(c *gin.Context) {
	items, err := h.engine.List(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// HandleCreate 以自由文字新增（如 "2 tbsp olive oil"）
func (h *Handler) HandleCreate(c *gin.Context) {
	var req shoppingService.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BindError(c, err)
		return
	}

	entry, err := h.engine.Create(c.Request.Context(), req.Text)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// HandleMerge 批次合併，回傳合併後的完整清單
func (h *Handler) HandleMerge(c *gin.Context) {
	var req shoppingService.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BindError(c, err)
		return
	}

	common.LogInfo("開始合併購物清單",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("items", len(req.Items)),
	)

	items, err := h.engine.Merge(c.Request.Context(), req.Items)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// HandleUpdate 部分更新單筆
func (h *Handler) HandleUpdate(c *gin.Context) {
	var patch shoppingService.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handlers.BindError(c, err)
		return
	}

	entry, err := h.engine.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// HandleDelete 刪除單筆；路徑為 /done 時清除所有已完成項目
func (h *Handler) HandleDelete(c *gin.Context) {
	id := c.Param("id")
	if id == doneSegment {
		n, err := h.engine.ClearDone(c.Request.Context())
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": n})
		return
	}

	if err := h.engine.Delete(c.Request.Context(), id); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
