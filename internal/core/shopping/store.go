package shopping

import (
	"context"
	"sort"
	"sync"
	"time"

	"recipe-importer/internal/pkg/common"
)

// Store 購物清單儲存。Upsert 以 merge_key 衝突時：數量累加、名稱單位覆寫、分類先寫先贏。
type Store interface {
	Upsert(ctx context.Context, r Resolved) (*Entry, error)
	// UpsertBatch 依序套用，全部成功或全部不生效
	UpsertBatch(ctx context.Context, items []Resolved) error
	Get(ctx context.Context, id string) (*Entry, error)
	GetByKey(ctx context.Context, key string) (*Entry, error)
	// Update 覆寫整筆項目；merge_key 與其他項目衝突時回傳 ErrConflict
	Update(ctx context.Context, e *Entry) (*Entry, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Entry, error)
	DeleteDone(ctx context.Context) (int64, error)
}

// MemoryStore 記憶體實作，語意與 PostgresStore 相同
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*Entry
	byKey map[string]string
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*Entry),
		byKey: make(map[string]string),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, r Resolved) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.upsertLocked(r)
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) UpsertBatch(ctx context.Context, items []Resolved) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range items {
		s.upsertLocked(r)
	}
	return nil
}

func (s *MemoryStore) upsertLocked(r Resolved) *Entry {
	now := time.Now().UTC()
	if id, ok := s.byKey[r.Key]; ok {
		e := s.byID[id]
		e.Name = r.Name
		e.Unit = r.Unit
		e.Quantity = accumulate(e.Quantity, r.Quantity)
		if e.Category == nil {
			e.Category = r.Category
		}
		e.UpdatedAt = now
		return e
	}

	e := &Entry{
		ID:        common.GenerateUUID(),
		Name:      r.Name,
		Unit:      r.Unit,
		Quantity:  r.Quantity,
		Category:  r.Category,
		MergeKey:  r.Key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[e.ID] = e
	s.byKey[e.MergeKey] = e.ID
	return e
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) GetByKey(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) Update(ctx context.Context, e *Entry) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[e.ID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if id, taken := s.byKey[e.MergeKey]; taken && id != e.ID {
		return nil, common.ErrConflict
	}

	delete(s.byKey, cur.MergeKey)
	cp := *e
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.byID[e.ID] = &cp
	s.byKey[cp.MergeKey] = cp.ID

	out := cp
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	delete(s.byKey, e.MergeKey)
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.byID))
	for _, e := range s.byID {
		cp := *e
		out = append(out, &cp)
	}
	sortEntries(out)
	return out, nil
}

func (s *MemoryStore) DeleteDone(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.byID {
		if e.Done {
			delete(s.byKey, e.MergeKey)
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// sortEntries 未完成在前，再依分類（無分類最後）與名稱排序
func sortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Done != b.Done {
			return !a.Done
		}
		if (a.Category == nil) != (b.Category == nil) {
			return a.Category != nil
		}
		if a.Category != nil && *a.Category != *b.Category {
			return *a.Category < *b.Category
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.MergeKey < b.MergeKey
	})
}
