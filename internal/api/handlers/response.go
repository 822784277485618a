package handlers

import (
	"strings"

	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// debugDetails 為 true 時錯誤回應附帶原始錯誤內容（僅開發模式）
var debugDetails bool

// SetDebug 設定錯誤回應是否附帶詳細信息
func SetDebug(debug bool) {
	debugDetails = debug
}

// RespondError 將錯誤轉換為 ErrorResponse 並以對應狀態碼回應
func RespondError(c *gin.Context, err error) {
	ce := common.AsCustomError(err)

	fields := []zap.Field{
		zap.String("code", ce.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
		zap.Error(err),
	}
	if ce.Status >= 500 {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogWarn("請求無效", fields...)
	}

	resp := common.ErrorResponse{
		Code:    ce.Code,
		Message: ce.Message,
	}
	if debugDetails && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, resp)
}

// BindError 請求體無法解析時的回應
func BindError(c *gin.Context, err error) {
	msg := "invalid request body"
	if s := strings.TrimSpace(err.Error()); s != "" {
		msg += ": " + s
	}
	RespondError(c, common.NewValidationError(msg))
}
