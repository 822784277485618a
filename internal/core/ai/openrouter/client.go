package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 錯誤訊息中回應內容的最大長度
const maxErrorBody = 2000

// Client OpenRouter（OpenAI 相容）聊天補全客戶端
type Client struct {
	config config.OpenRouterConfig
	client *resty.Client
}

// NewClient 創建客戶端
func NewClient(cfg config.OpenRouterConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://github.com/recipe-importer").
		SetHeader("X-Title", "Recipe Importer")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		config: cfg,
		client: client,
	}
}

// Enabled 是否設定了 API Key
func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.config.APIKey) != ""
}

// Complete 送出聊天補全請求並回傳第一個 choice 的文字
func (c *Client) Complete(ctx context.Context, req *provider.Request) (string, error) {
	if !c.Enabled() {
		return "", common.ErrMissingAPIKey
	}

	body := c.buildRequest(req)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := c.send(ctx, body)
	common.LogAICall(body.Model, time.Since(start), err)
	return content, err
}

func (c *Client) buildRequest(req *provider.Request) *ChatRequest {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	userContent := []Content{{Type: "text", Text: req.User}}
	for _, img := range req.Images {
		url := img
		if !strings.HasPrefix(img, "data:image/") && !strings.HasPrefix(img, "http") {
			url = "data:image/jpeg;base64," + img
		}
		userContent = append(userContent, Content{Type: "image_url", ImageURL: &ImageURL{URL: url}})
	}

	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: []Content{{Type: "text", Text: req.System}}})
	}
	messages = append(messages, Message{Role: "user", Content: userContent})

	body := &ChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	return body
}

func (c *Client) send(ctx context.Context, body *ChatRequest) (string, error) {
	common.LogDebug("送出聊天補全請求",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
		zap.Int("max_tokens", body.MaxTokens),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to send chat completion request: %w", err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode(), truncate(resp.String(), maxErrorBody))
	}

	var result ChatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse chat completion response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat completion response")
	}

	common.LogDebug("聊天補全完成",
		zap.String("model", body.Model),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)
	return result.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
