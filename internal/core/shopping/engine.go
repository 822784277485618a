package shopping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"recipe-importer/internal/core/ingredient"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// 分類名稱長度上限
const maxCategoryRunes = 64

// Classifier 分類模型，失敗時回傳 fallback
type Classifier interface {
	ClassifyCategory(ctx context.Context, name string, allowed []string, fallback string) string
}

// Engine 購物清單合併引擎
type Engine struct {
	store      Store
	classifier Classifier
	config     config.ShoppingConfig
}

// NewEngine 創建合併引擎；classifier 可為 nil
func NewEngine(store Store, classifier Classifier, cfg config.ShoppingConfig) *Engine {
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = "Other"
	}
	return &Engine{
		store:      store,
		classifier: classifier,
		config:     cfg,
	}
}

// Create 以自由文字新增一筆（或累加到既有項目）
func (e *Engine) Create(ctx context.Context, text string) (*Entry, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.NewValidationError("text is required")
	}

	r := ResolveItem(Item{Name: text})
	if r.Name == "" {
		return nil, common.NewValidationError("text is required")
	}
	r.Category = e.resolveCategory(ctx, nil, r)

	entry, err := e.store.Upsert(ctx, r)
	if err != nil {
		return nil, err
	}
	common.LogDebug("購物項目已合併", zap.String("merge_key", entry.MergeKey))
	return entry, nil
}

// Merge 驗證全部項目後於單一交易中依序合併，回傳完整清單
func (e *Engine) Merge(ctx context.Context, items []Item) ([]*Entry, error) {
	if len(items) == 0 {
		return nil, common.NewValidationError("items are required")
	}

	resolved := make([]Resolved, 0, len(items))
	for i, item := range items {
		if err := validateItem(item); err != nil {
			return nil, common.NewValidationError(fmt.Sprintf("items[%d]: %s", i, err.Error()))
		}
		r := ResolveItem(item)
		if r.Name == "" {
			return nil, common.NewValidationError(fmt.Sprintf("items[%d]: name is required", i))
		}
		resolved = append(resolved, r)
	}

	// 同一批次中同一 merge_key 只推測一次分類
	guessed := make(map[string]*string, len(resolved))
	for i := range resolved {
		r := &resolved[i]
		if c := explicitCategory(r.Category); c != nil {
			r.Category = c
			continue
		}
		if c, ok := guessed[r.Key]; ok {
			r.Category = c
			continue
		}
		r.Category = e.resolveCategory(ctx, nil, *r)
		guessed[r.Key] = r.Category
	}

	if err := e.store.UpsertBatch(ctx, resolved); err != nil {
		return nil, err
	}
	common.LogInfo("購物清單批次合併完成", zap.Int("items", len(resolved)))
	return e.store.List(ctx)
}

// Update 部分更新；名稱或數量單位改變時重新計算 merge_key，與其他項目衝突回傳 ErrConflict
func (e *Engine) Update(ctx context.Context, id string, patch Patch) (*Entry, error) {
	existing, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, common.NewValidationError("name must not be empty")
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, common.NewValidationError("quantity must not be negative")
	}
	category, err := normalizeCategory(patch.Category)
	if err != nil {
		return nil, err
	}

	var r Resolved
	if patch.Name != nil {
		item := Item{Name: *patch.Name, Quantity: existing.Quantity, Unit: existing.Unit}
		// 新名稱自帶數量時以名稱為準
		if ingredient.ParseLine(*patch.Name).Quantity != nil {
			item.Quantity, item.Unit = nil, nil
		}
		applyQuantityPatch(&item, patch)
		r = ResolveItem(item)
	} else {
		item := Item{Quantity: existing.Quantity, Unit: existing.Unit}
		applyQuantityPatch(&item, patch)
		r = ResolveFields(existing.Name, common.Deref(item.Unit), item.Quantity)
	}
	if r.Name == "" {
		return nil, common.NewValidationError("name must not be empty")
	}

	updated := *existing
	updated.Name = r.Name
	updated.Unit = r.Unit
	updated.Quantity = r.Quantity
	updated.MergeKey = r.Key
	if patch.Done != nil {
		updated.Done = *patch.Done
	}
	if patch.Category != nil {
		updated.Category = category
	}

	if updated.MergeKey != existing.MergeKey {
		other, err := e.store.GetByKey(ctx, updated.MergeKey)
		if err == nil && other.ID != existing.ID {
			return nil, common.ErrConflict.WithMessage("another item already uses this name and unit")
		}
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}

	return e.store.Update(ctx, &updated)
}

func applyQuantityPatch(item *Item, patch Patch) {
	if patch.Quantity != nil {
		item.Quantity = patch.Quantity
	}
	if patch.Unit != nil {
		item.Unit = patch.Unit
	}
	if patch.ClearQuantity {
		item.Quantity, item.Unit = nil, nil
	}
}

// Delete 刪除單筆
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// List 列出完整清單
func (e *Engine) List(ctx context.Context) ([]*Entry, error) {
	return e.store.List(ctx)
}

// ClearDone 刪除所有已完成項目
func (e *Engine) ClearDone(ctx context.Context) (int64, error) {
	return e.store.DeleteDone(ctx)
}

// resolveCategory 明確分類 > 關鍵字表 > 分類模型（若啟用）> 不指定（保留既有分類）
func (e *Engine) resolveCategory(ctx context.Context, explicit *string, r Resolved) *string {
	if c := explicitCategory(explicit); c != nil {
		return c
	}
	if guess := GuessCategory(r.Name); guess != "" {
		return &guess
	}
	if !e.config.ClassifierEnabled || e.classifier == nil {
		return nil
	}

	// 既有項目已有分類時不會被覆寫，不必詢問模型
	if existing, err := e.store.GetByKey(ctx, r.Key); err == nil && existing.Category != nil {
		return nil
	}
	c := e.classifier.ClassifyCategory(ctx, r.Name, Categories, e.config.DefaultCategory)
	return common.StringPtr(c)
}

func explicitCategory(c *string) *string {
	if c == nil {
		return nil
	}
	return common.StringPtr(strings.TrimSpace(*c))
}

func validateItem(item Item) error {
	if strings.TrimSpace(item.Name) == "" {
		return errors.New("name is required")
	}
	if item.Quantity != nil && *item.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	if item.Category != nil && utf8.RuneCountInString(strings.TrimSpace(*item.Category)) > maxCategoryRunes {
		return errors.New("category is too long")
	}
	return nil
}

// normalizeCategory 空字串代表清除分類
func normalizeCategory(c *string) (*string, error) {
	if c == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*c)
	if utf8.RuneCountInString(v) > maxCategoryRunes {
		return nil, common.NewValidationError("category is too long")
	}
	return common.StringPtr(v), nil
}
