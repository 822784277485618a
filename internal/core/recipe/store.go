package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"recipe-importer/internal/pkg/common"

	"github.com/jmoiron/sqlx"
)

// Store 食譜儲存
type Store interface {
	Create(ctx context.Context, r *Recipe) error
	UpdateImage(ctx context.Context, id, imagePath, thumbPath string) error
	Get(ctx context.Context, id string) (*Recipe, error)
	List(ctx context.Context, limit int) ([]*Recipe, error)
}

// PostgresStore 以 PostgreSQL 保存食譜，食材與步驟存為 JSONB
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type recipeRow struct {
	Recipe
	IngredientsJSON  []byte `db:"ingredients"`
	InstructionsJSON []byte `db:"instructions"`
}

func (row *recipeRow) decode() (*Recipe, error) {
	r := row.Recipe
	if err := json.Unmarshal(row.IngredientsJSON, &r.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal(row.InstructionsJSON, &r.Instructions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instructions: %w", err)
	}
	return &r, nil
}

const recipeColumns = `id, title, source_url, ingredients, instructions, image_path, thumb_path, created_at, updated_at`

// Create 新增食譜（不含圖片欄位以外的更新）
func (s *PostgresStore) Create(ctx context.Context, r *Recipe) error {
	ingredientsJSON, err := json.Marshal(r.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	instructionsJSON, err := json.Marshal(r.Instructions)
	if err != nil {
		return fmt.Errorf("failed to marshal instructions: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recipes (`+recipeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.Title, r.SourceURL, ingredientsJSON, instructionsJSON, r.ImagePath, r.ThumbPath, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

// UpdateImage 匯入後補上圖片路徑
func (s *PostgresStore) UpdateImage(ctx context.Context, id, imagePath, thumbPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recipes SET image_path = $2, thumb_path = $3, updated_at = now() WHERE id = $1`,
		id, imagePath, thumbPath,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe image: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Get 依 id 取得食譜
func (s *PostgresStore) Get(ctx context.Context, id string) (*Recipe, error) {
	var row recipeRow
	err := s.db.GetContext(ctx, &row, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return row.decode()
}

// List 依建立時間新到舊列出
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Recipe, error) {
	var rows []recipeRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+recipeColumns+` FROM recipes ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	out := make([]*Recipe, 0, len(rows))
	for i := range rows {
		r, err := rows[i].decode()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// MemoryStore 記憶體食譜儲存，未設定資料庫時使用
type MemoryStore struct {
	mu      sync.RWMutex
	recipes map[string]*Recipe
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recipes: make(map[string]*Recipe)}
}

func (s *MemoryStore) Create(ctx context.Context, r *Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recipes[r.ID]; exists {
		return common.ErrConflict
	}
	cp := *r
	s.recipes[r.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateImage(ctx context.Context, id, imagePath, thumbPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	if !ok {
		return common.ErrNotFound
	}
	r.ImagePath = common.StringPtr(imagePath)
	r.ThumbPath = common.StringPtr(thumbPath)
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
