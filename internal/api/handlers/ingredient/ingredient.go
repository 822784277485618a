package ingredient

import (
	"fmt"
	"net/http"

	"recipe-importer/internal/api/handlers"
	"recipe-importer/internal/core/ingredient"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// 單次解析的行數上限
const maxLines = 500

// ParseRequest 食材行解析請求
type ParseRequest struct {
	Lines []string `json:"lines" binding:"required"`
}

// ParsedLine 單行解析結果，Text 為正規化後的顯示文字
type ParsedLine struct {
	ingredient.ParsedIngredient
	Text string `json:"text"`
}

// HandleParse 解析食材行，不寫入任何儲存
func HandleParse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BindError(c, err)
		return
	}
	if len(req.Lines) > maxLines {
		handlers.RespondError(c, common.NewValidationError(fmt.Sprintf("at most %d lines are allowed", maxLines)))
		return
	}

	out := make([]ParsedLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		p := ingredient.ParseLine(line)
		if p.Name == "" {
			continue
		}
		out = append(out, ParsedLine{ParsedIngredient: p, Text: p.String()})
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": out})
}
