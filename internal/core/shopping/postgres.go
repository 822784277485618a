package shopping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"recipe-importer/internal/pkg/common"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgreSQL unique_violation
const uniqueViolation = "23505"

const entryColumns = `id, name_norm, unit_norm, quantity, done, category, merge_key, created_at, updated_at`

// upsertSQL 數量：任一邊為 NULL 取另一邊；分類：已有值不覆寫
const upsertSQL = `
INSERT INTO shopping_items (id, name_norm, unit_norm, quantity, done, category, merge_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, FALSE, $5, $6, now(), now())
ON CONFLICT (merge_key) DO UPDATE SET
	name_norm = EXCLUDED.name_norm,
	unit_norm = EXCLUDED.unit_norm,
	quantity = CASE
		WHEN shopping_items.quantity IS NULL THEN EXCLUDED.quantity
		WHEN EXCLUDED.quantity IS NULL THEN shopping_items.quantity
		ELSE shopping_items.quantity + EXCLUDED.quantity
	END,
	category = COALESCE(shopping_items.category, EXCLUDED.category),
	updated_at = now()
RETURNING ` + entryColumns

// PostgresStore 以 PostgreSQL 保存購物清單，merge_key 有唯一約束
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, r Resolved) (*Entry, error) {
	var e Entry
	err := s.db.GetContext(ctx, &e, upsertSQL,
		common.GenerateUUID(), r.Name, r.Unit, r.Quantity, r.Category, r.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert shopping item: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) UpsertBatch(ctx context.Context, items []Resolved) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range items {
		var e Entry
		if err = stmt.GetContext(ctx, &e, common.GenerateUUID(), r.Name, r.Unit, r.Quantity, r.Category, r.Key); err != nil {
			return fmt.Errorf("failed to upsert shopping item %q: %w", r.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Entry, error) {
	return s.getOne(ctx, `SELECT `+entryColumns+` FROM shopping_items WHERE id = $1`, id)
}

func (s *PostgresStore) GetByKey(ctx context.Context, key string) (*Entry, error) {
	return s.getOne(ctx, `SELECT `+entryColumns+` FROM shopping_items WHERE merge_key = $1`, key)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg interface{}) (*Entry, error) {
	var e Entry
	if err := s.db.GetContext(ctx, &e, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shopping item: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) Update(ctx context.Context, in *Entry) (*Entry, error) {
	var e Entry
	err := s.db.GetContext(ctx, &e, `
UPDATE shopping_items
SET name_norm = $2, unit_norm = $3, quantity = $4, done = $5, category = $6, merge_key = $7, updated_at = now()
WHERE id = $1
RETURNING `+entryColumns,
		in.ID, in.Name, in.Unit, in.Quantity, in.Done, in.Category, in.MergeKey)
	if err != nil {
		return nil, mapUpdateError(err)
	}
	return &e, nil
}

// mapUpdateError 找不到列回傳 ErrNotFound；改名撞到既有 merge_key 回傳 ErrConflict
func mapUpdateError(err error) error {
	var pqErr *pq.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrNotFound
	case errors.As(err, &pqErr) && pqErr.Code == uniqueViolation:
		return common.ErrConflict.Wrap(err)
	}
	return fmt.Errorf("failed to update shopping item: %w", err)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shopping_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shopping item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Entry, error) {
	var entries []*Entry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT `+entryColumns+` FROM shopping_items ORDER BY done, category NULLS LAST, name_norm, merge_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping items: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) DeleteDone(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shopping_items WHERE done`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear done items: %w", err)
	}
	return res.RowsAffected()
}
