package page

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Page 抓取結果
type Page struct {
	URL         string // 請求的 URL
	FinalURL    string // 重新導向後的 URL
	HTML        string
	ContentType string
}

// Fetcher 網頁與圖片抓取器
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	maxBody int64
}

// NewFetcher 創建抓取器：整體逾時與連線逾時分開設定
func NewFetcher(cfg config.FetchConfig) *Fetcher {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	client := resty.New().
		SetTransport(transport).
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.8")

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		maxBody: cfg.MaxBodyBytes,
	}
}

// Fetch 抓取 HTML 頁面，非 2xx 回傳 ErrUpstreamFetch
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	body, resp, err := f.get(ctx, rawURL, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8", f.maxBody)
	if err != nil {
		return nil, err
	}

	finalURL := rawURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	common.LogDebug("頁面抓取完成",
		zap.String("url", rawURL),
		zap.String("final_url", finalURL),
		zap.Int("bytes", len(body)),
		zap.Duration("耗時", resp.Time()),
	)

	return &Page{
		URL:         rawURL,
		FinalURL:    finalURL,
		HTML:        string(body),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}

// Download 下載任意資源（圖片），maxBytes <= 0 時沿用頁面上限
func (f *Fetcher) Download(ctx context.Context, rawURL string, maxBytes int64) ([]byte, string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, "", err
	}
	if maxBytes <= 0 {
		maxBytes = f.maxBody
	}
	body, resp, err := f.get(ctx, rawURL, "image/avif,image/webp,image/*,*/*;q=0.8", maxBytes)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header().Get("Content-Type"), nil
}

func (f *Fetcher) get(ctx context.Context, rawURL, accept string, maxBytes int64) ([]byte, *resty.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, nil, common.ErrUpstreamFetch.Wrap(err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", accept).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return nil, nil, common.ErrUpstreamFetch.Wrap(fmt.Errorf("GET %s: %w", rawURL, err))
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, nil, common.ErrUpstreamFetch.Wrap(fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode()))
	}

	reader := io.Reader(raw)
	if maxBytes > 0 {
		reader = io.LimitReader(raw, maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, common.ErrUpstreamFetch.Wrap(fmt.Errorf("read %s: %w", rawURL, err))
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, nil, common.ErrUpstreamFetch.Wrap(fmt.Errorf("GET %s: body exceeds %d bytes", rawURL, maxBytes))
	}
	return body, resp, nil
}

// ValidateURL 僅接受帶主機的 http(s) URL
func ValidateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return common.NewValidationError("url must be an absolute http(s) URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return common.NewValidationError("url must be an absolute http(s) URL")
	}
	return nil
}
