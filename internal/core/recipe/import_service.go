package recipe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recipe-importer/internal/core/image"
	"recipe-importer/internal/core/page"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// 列表預設與上限筆數
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// PageFetcher 抓取網頁
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*page.Page, error)
}

// ImageAttacher 下載或轉檔圖片並保存
type ImageAttacher interface {
	FetchAndStore(ctx context.Context, rawURL, id string) (*image.Stored, error)
	Store(ctx context.Context, data []byte, id string) (*image.Stored, error)
	NormalizeDataURI(ctx context.Context, raw string) (string, error)
}

// ImportService 匯入流程：抓取、擷取、保存，最後補上主圖
type ImportService struct {
	fetcher   PageFetcher
	extractor *Extractor
	store     Store
	images    ImageAttacher
	maxImages int
}

// NewImportService 創建匯入服務；images 可為 nil（不處理圖片）
func NewImportService(fetcher PageFetcher, extractor *Extractor, store Store, images ImageAttacher, maxImages int) *ImportService {
	if maxImages <= 0 {
		maxImages = 3
	}
	return &ImportService{
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		images:    images,
		maxImages: maxImages,
	}
}

// ImportURL 從網址匯入食譜。擷取成功即保存，圖片階段失敗只記錄警告。
func (s *ImportService) ImportURL(ctx context.Context, req ImportURLRequest) (*Recipe, error) {
	rawURL := strings.TrimSpace(req.URL)
	if err := page.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	start := time.Now()
	pg, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	text, err := page.ExtractText(pg.HTML)
	if err != nil {
		return nil, common.ErrExtraction.Wrap(fmt.Errorf("failed to extract page text: %w", err))
	}
	title := page.ResolveTitle(pg.HTML, pg.FinalURL)

	result, err := s.extractor.ExtractFromText(ctx, text, Options{Model: req.Model})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recipe := &Recipe{
		ID:           common.GenerateUUID(),
		Title:        title,
		SourceURL:    common.StringPtr(rawURL),
		Ingredients:  result.Ingredients,
		Instructions: result.Instructions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, recipe); err != nil {
		return nil, err
	}

	common.LogInfo("食譜已匯入",
		zap.String("id", recipe.ID),
		zap.String("url", rawURL),
		zap.String("title", title),
		zap.Int("ingredients", len(recipe.Ingredients)),
		zap.Duration("耗時", time.Since(start)),
	)

	if heroURL, ok := page.SelectHeroImage(pg.HTML, pg.FinalURL); ok {
		s.attachRemote(ctx, recipe, heroURL)
	}
	return recipe, nil
}

func (s *ImportService) attachRemote(ctx context.Context, recipe *Recipe, heroURL string) {
	if s.images == nil {
		return
	}
	stored, err := s.images.FetchAndStore(ctx, heroURL, recipe.ID)
	if err != nil {
		common.LogWarn("主圖處理失敗，食譜保留無圖版本",
			zap.String("id", recipe.ID),
			zap.String("image_url", heroURL),
			zap.Error(err),
		)
		return
	}
	s.applyImage(ctx, recipe, stored)
}

func (s *ImportService) applyImage(ctx context.Context, recipe *Recipe, stored *image.Stored) {
	if err := s.store.UpdateImage(ctx, recipe.ID, stored.ImagePath, stored.ThumbPath); err != nil {
		common.LogWarn("主圖路徑更新失敗", zap.String("id", recipe.ID), zap.Error(err))
		return
	}
	recipe.ImagePath = common.StringPtr(stored.ImagePath)
	recipe.ThumbPath = common.StringPtr(stored.ThumbPath)
}

// ImportImages 從 1..maxImages 張照片匯入食譜，第一張照片作為主圖
func (s *ImportService) ImportImages(ctx context.Context, req ImportImagesRequest) (*Recipe, error) {
	if len(req.Images) == 0 {
		return nil, common.NewValidationError("at least one image is required")
	}
	if len(req.Images) > s.maxImages {
		return nil, common.NewValidationError(fmt.Sprintf("at most %d images are allowed", s.maxImages))
	}
	if s.images == nil {
		return nil, common.ErrServiceUnavailable.WithMessage("image processing is not configured")
	}

	normalized := make([]string, 0, len(req.Images))
	for i, raw := range req.Images {
		uri, err := s.images.NormalizeDataURI(ctx, raw)
		if err != nil {
			common.LogImageProcessing("warn", zap.Int("index", i), zap.Error(err))
			return nil, err
		}
		normalized = append(normalized, uri)
	}

	result, err := s.extractor.ExtractFromImages(ctx, normalized, "", Options{Model: req.Model})
	if err != nil {
		return nil, err
	}

	title := page.CleanTitle(result.Title)
	if title == "" {
		title = "Untitled recipe"
	}
	now := time.Now().UTC()
	recipe := &Recipe{
		ID:           common.GenerateUUID(),
		Title:        title,
		Ingredients:  result.Ingredients,
		Instructions: result.Instructions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, recipe); err != nil {
		return nil, err
	}

	common.LogInfo("照片食譜已匯入",
		zap.String("id", recipe.ID),
		zap.Int("images", len(normalized)),
		zap.Int("ingredients", len(recipe.Ingredients)),
	)

	data, err := image.DecodeDataURI(normalized[0])
	if err == nil {
		var stored *image.Stored
		if stored, err = s.images.Store(ctx, data, recipe.ID); err == nil {
			s.applyImage(ctx, recipe, stored)
		}
	}
	if err != nil {
		common.LogWarn("照片主圖保存失敗", zap.String("id", recipe.ID), zap.Error(err))
	}
	return recipe, nil
}

// Get 取得單一食譜
func (s *ImportService) Get(ctx context.Context, id string) (*Recipe, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.NewValidationError("id is required")
	}
	return s.store.Get(ctx, id)
}

// List 列出最近的食譜
func (s *ImportService) List(ctx context.Context, limit int) ([]*Recipe, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.List(ctx, limit)
}
