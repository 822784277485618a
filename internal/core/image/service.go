package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"recipe-importer/internal/core/ai/queue"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/nfnt/resize"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// Downloader 下載遠端圖片
type Downloader interface {
	Download(ctx context.Context, rawURL string, maxBytes int64) ([]byte, string, error)
}

// Runner 在工作池中執行 CPU 密集工作
type Runner interface {
	Do(ctx context.Context, task queue.Task) error
}

// Stored 寫入磁碟後的圖片路徑
type Stored struct {
	ImagePath string `json:"image_path"`
	ThumbPath string `json:"thumb_path"`
}

// Service 圖片處理服務：下載、解碼、縮圖、JPEG 編碼
type Service struct {
	config     config.ImageConfig
	downloader Downloader
	runner     Runner
}

// NewService 創建新的圖片處理服務；runner 為 nil 時於呼叫端 goroutine 執行
func NewService(cfg config.ImageConfig, downloader Downloader, runner Runner) *Service {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 85
	}
	return &Service{
		config:     cfg,
		downloader: downloader,
		runner:     runner,
	}
}

// FetchAndStore 下載圖片並以 id 為檔名寫入主圖與縮圖
func (s *Service) FetchAndStore(ctx context.Context, rawURL, id string) (*Stored, error) {
	if s.downloader == nil {
		return nil, fmt.Errorf("image downloader not configured")
	}
	data, contentType, err := s.downloader.Download(ctx, rawURL, s.config.MaxSizeBytes)
	if err != nil {
		return nil, err
	}
	common.LogImageProcessing("info",
		zap.String("url", rawURL),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)),
	)
	return s.Store(ctx, data, id)
}

// Store 解碼原始位元組，縮放後寫入磁碟
func (s *Service) Store(ctx context.Context, data []byte, id string) (*Stored, error) {
	if int64(len(data)) > s.config.MaxSizeBytes && s.config.MaxSizeBytes > 0 {
		return nil, common.ErrInvalidImageSize
	}

	var main, thumb []byte
	err := s.run(ctx, func(ctx context.Context) error {
		img, err := decode(data)
		if err != nil {
			return err
		}
		if main, err = s.encode(fit(img, s.config.MaxWidth)); err != nil {
			return err
		}
		thumb, err = s.encode(fit(img, s.config.ThumbWidth))
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}
	stored := &Stored{
		ImagePath: filepath.Join(s.config.Dir, id+".jpg"),
		ThumbPath: filepath.Join(s.config.Dir, id+"_thumb.jpg"),
	}
	if err := os.WriteFile(stored.ImagePath, main, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.WriteFile(stored.ThumbPath, thumb, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return stored, nil
}

// NormalizeDataURI 將 data URI 或純 base64 轉為寬度受限的 JPEG data URI
func (s *Service) NormalizeDataURI(ctx context.Context, raw string) (string, error) {
	data, err := DecodeDataURI(raw)
	if err != nil {
		return "", err
	}
	if s.config.MaxSizeBytes > 0 && int64(len(data)) > s.config.MaxSizeBytes {
		return "", common.ErrInvalidImageSize
	}

	var out []byte
	err = s.run(ctx, func(ctx context.Context) error {
		img, err := decode(data)
		if err != nil {
			return err
		}
		out, err = s.encode(fit(img, s.config.MaxWidth))
		return err
	})
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(out), nil
}

// DecodeDataURI 解析 data:image/...;base64, 前綴（可省略）後的內容
func DecodeDataURI(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, common.ErrInvalidImageFormat.WithMessage("empty image data")
	}
	if strings.HasPrefix(raw, "data:") {
		if !strings.HasPrefix(raw, "data:image/") {
			return nil, common.ErrInvalidImageFormat
		}
		idx := strings.Index(raw, ",")
		if idx < 0 || !strings.Contains(raw[:idx], ";base64") {
			return nil, common.ErrInvalidImageFormat.WithMessage("invalid base64 data format")
		}
		raw = raw[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to decode base64 data: %w", err))
	}
	return data, nil
}

func (s *Service) run(ctx context.Context, task queue.Task) error {
	if s.runner == nil {
		return task(ctx)
	}
	return s.runner.Do(ctx, task)
}

func (s *Service) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.config.JPEGQuality}); err != nil {
		return nil, common.ErrImageEncoding.Wrap(err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to decode image: %w", err))
	}
	if !isSupportedFormat(format) {
		return nil, common.ErrInvalidImageFormat.WithMessage("unsupported image format: " + format)
	}
	return img, nil
}

// fit 等比縮小到指定寬度；原圖較窄或 width 為 0 時不放大
func fit(img image.Image, width uint) image.Image {
	if width == 0 || uint(img.Bounds().Dx()) <= width {
		return img
	}
	return resize.Resize(width, 0, img, resize.Lanczos3)
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
