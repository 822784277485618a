package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Request 聊天補全請求：system + user 文字，可附帶圖片（data URI）
type Request struct {
	Model       string
	System      string
	User        string
	Images      []string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	JSONMode    bool // 要求 response_format=json_object
}

// Completer 聊天補全介面：送出提示詞，回傳模型原始文字
type Completer interface {
	Complete(ctx context.Context, req *Request) (string, error)
}

// CacheKey 依請求內容產生快取鍵（圖片以雜湊參與）
func (r *Request) CacheKey() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%g\x00%d\x00%t", r.Model, r.System, r.User, r.Temperature, r.MaxTokens, r.JSONMode)
	for _, img := range r.Images {
		sum := sha256.Sum256([]byte(img))
		h.Write(sum[:])
	}
	kind := "text"
	if len(r.Images) > 0 {
		kind = "multimodal"
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}
