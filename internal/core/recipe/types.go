package recipe

import (
	"time"

	"recipe-importer/internal/core/ingredient"
)

// Recipe 已保存的食譜
type Recipe struct {
	ID           string                        `json:"id" db:"id"`
	Title        string                        `json:"title" db:"title"`
	SourceURL    *string                       `json:"source_url,omitempty" db:"source_url"`
	Ingredients  []ingredient.ParsedIngredient `json:"ingredients" db:"-"`
	Instructions []string                      `json:"instructions" db:"-"`
	ImagePath    *string                       `json:"image_path,omitempty" db:"image_path"`
	ThumbPath    *string                       `json:"thumb_path,omitempty" db:"thumb_path"`
	CreatedAt    time.Time                     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time                     `json:"updated_at" db:"updated_at"`
}

// ExtractionResult 結構化擷取結果；兩個清單皆已去重並保留首見順序
type ExtractionResult struct {
	Title        string                        `json:"title,omitempty"`
	Ingredients  []ingredient.ParsedIngredient `json:"ingredients"`
	Instructions []string                      `json:"instructions"`
}

// Options 單次擷取的模型參數，零值沿用設定檔
type Options struct {
	Model       string
	Temperature *float64
	Timeout     time.Duration
	MaxTokens   int
}

// ImportURLRequest 網址匯入請求
type ImportURLRequest struct {
	URL   string `json:"url" binding:"required"`
	Model string `json:"model"`
}

// ImportImagesRequest 照片匯入請求，images 為 data URI 或 base64
type ImportImagesRequest struct {
	Images []string `json:"images" binding:"required"`
	Model  string   `json:"model"`
}
