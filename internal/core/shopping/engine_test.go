package shopping

import (
	"context"
	"errors"
	"testing"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	calls int
	reply string
}

func (f *fakeClassifier) ClassifyCategory(ctx context.Context, name string, allowed []string, fallback string) string {
	f.calls++
	if f.reply == "" {
		return fallback
	}
	return f.reply
}

func newEngine(classifier Classifier, enabled bool) (*Engine, *MemoryStore) {
	store := NewMemoryStore()
	return NewEngine(store, classifier, config.ShoppingConfig{DefaultCategory: "Other", ClassifierEnabled: enabled}), store
}

func TestEngine_CreateAccumulates(t *testing.T) {
	e, _ := newEngine(nil, false)
	ctx := context.Background()

	_, err := e.Create(ctx, "100 g flour")
	require.NoError(t, err)
	entry, err := e.Create(ctx, "200 g Flour")
	require.NoError(t, err)

	assert.Equal(t, "g|flour", entry.MergeKey)
	assert.Equal(t, 300.0, *entry.Quantity)
	assert.Equal(t, "Pantry", *entry.Category)

	list, err := e.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEngine_CreateCrossUnit(t *testing.T) {
	e, _ := newEngine(nil, false)
	ctx := context.Background()

	_, err := e.Create(ctx, "1 kg sugar")
	require.NoError(t, err)
	entry, err := e.Create(ctx, "250 g sugar")
	require.NoError(t, err)
	assert.Equal(t, 1250.0, *entry.Quantity)

	_, err = e.Create(ctx, "1 tbsp vanilla")
	require.NoError(t, err)
	entry, err = e.Create(ctx, "2 tsp vanilla")
	require.NoError(t, err)
	assert.Equal(t, "ml|vanilla", entry.MergeKey)
	assert.Equal(t, 25.0, *entry.Quantity)
}

func TestEngine_CreateUnitless(t *testing.T) {
	e, _ := newEngine(nil, false)
	ctx := context.Background()

	entry, err := e.Create(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, "|milk", entry.MergeKey)
	assert.Nil(t, entry.Quantity)
	assert.Nil(t, entry.Unit)
	assert.Equal(t, "milk", entry.Name)

	// 沒有數量的一方不會把數量歸零
	entry, err = e.Create(ctx, "2 milk")
	require.NoError(t, err)
	assert.Equal(t, 2.0, *entry.Quantity)
	entry, err = e.Create(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, 2.0, *entry.Quantity)
}

func TestEngine_CreateRejectsEmpty(t *testing.T) {
	e, store := newEngine(nil, false)
	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := e.Create(context.Background(), text)
		assert.True(t, common.IsValidationError(err))
	}
	list, _ := store.List(context.Background())
	assert.Empty(t, list)
}

func TestEngine_CategoryFirstWriteWins(t *testing.T) {
	e, _ := newEngine(nil, false)
	ctx := context.Background()

	list, err := e.Merge(ctx, []Item{
		{Name: "tofu", Quantity: common.Float64Ptr(200), Unit: common.StringPtr("g"), Category: common.StringPtr("Asian")},
		{Name: "tofu", Quantity: common.Float64Ptr(100), Unit: common.StringPtr("g"), Category: common.StringPtr("Dairy & Eggs")},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Asian", *list[0].Category)
	assert.Equal(t, 300.0, *list[0].Quantity)
}

func TestEngine_CategoryFilledWhenAbsent(t *testing.T) {
	e, _ := newEngine(nil, false)
	ctx := context.Background()

	entry, err := e.Create(ctx, "1 widget")
	require.NoError(t, err)
	assert.Nil(t, entry.Category)

	list, err := e.Merge(ctx, []Item{{Name: "widget", Quantity: common.Float64Ptr(1), Category: common.StringPtr("Household")}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Household", *list[0].Category)
	assert.Equal(t, 2.0, *list[0].Quantity)
}

func TestEngine_Classifier(t *testing.T) {
	fc := &fakeClassifier{reply: "Household"}
	e, _ := newEngine(fc, true)
	ctx := context.Background()

	entry, err := e.Create(ctx, "flour")
	require.NoError(t, err)
	assert.Equal(t, "Pantry", *entry.Category)
	assert.Equal(t, 0, fc.calls)

	_, err = e.Merge(ctx, []Item{{Name: "widget"}, {Name: "widget"}})
	require.NoError(t, err)
	assert.Equal(t, 1, fc.calls)

	// 已有分類時不再詢問
	entry, err = e.Create(ctx, "widget")
	require.NoError(t, err)
	assert.Equal(t, "Household", *entry.Category)
	assert.Equal(t, 1, fc.calls)

	disabled, _ := newEngine(fc, false)
	entry, err = disabled.Create(ctx, "gizmo")
	require.NoError(t, err)
	assert.Nil(t, entry.Category)
	assert.Equal(t, 1, fc.calls)

	fallback, _ := newEngine(&fakeClassifier{}, true)
	entry, err = fallback.Create(ctx, "gizmo")
	require.NoError(t, err)
	assert.Equal(t, "Other", *entry.Category)
}

func TestEngine_MergeValidatesBeforeWriting(t *testing.T) {
	e, store := newEngine(nil, false)
	ctx := context.Background()

	_, err := e.Merge(ctx, []Item{{Name: "100 g flour"}, {Name: "  "}})
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
	assert.Contains(t, err.Error(), "items[1]")

	_, err = e.Merge(ctx, []Item{{Name: "flour", Quantity: common.Float64Ptr(-1)}})
	assert.True(t, common.IsValidationError(err))

	_, err = e.Merge(ctx, nil)
	assert.True(t, common.IsValidationError(err))

	list, _ := store.List(ctx)
	assert.Empty(t, list)
}

func TestEngine_MergeReturnsFullList(t *testing.T) {
	e, _ := newEngine(nil, false)
	ctx := context.Background()

	_, err := e.Create(ctx, "apples")
	require.NoError(t, err)
	list, err := e.Merge(ctx, []Item{
		{Name: "500 ml milk"},
		{Name: "0.5 L milk"},
		{Name: "1 tbsp salt"},
	})
	require.NoError(t, err)
	require.Len(t, list, 3)

	byKey := map[string]*Entry{}
	for _, entry := range list {
		byKey[entry.MergeKey] = entry
	}
	assert.Equal(t, 1000.0, *byKey["ml|milk"].Quantity)
	assert.Equal(t, 15.0, *byKey["ml|salt"].Quantity)
	assert.Contains(t, byKey, "|apples")
}

func TestEngine_Update(t *testing.T) {
	e, _ := newEngine(nil, false)
	ctx := context.Background()

	flour, err := e.Create(ctx, "100 g flour")
	require.NoError(t, err)
	sugar, err := e.Create(ctx, "50 g sugar")
	require.NoError(t, err)

	done := true
	updated, err := e.Update(ctx, flour.ID, Patch{Done: &done})
	require.NoError(t, err)
	assert.True(t, updated.Done)
	assert.Equal(t, "g|flour", updated.MergeKey)
	assert.Equal(t, 100.0, *updated.Quantity)

	updated, err = e.Update(ctx, flour.ID, Patch{Name: common.StringPtr("Rye Flour")})
	require.NoError(t, err)
	assert.Equal(t, "g|rye flour", updated.MergeKey)
	assert.Equal(t, 100.0, *updated.Quantity)

	updated, err = e.Update(ctx, flour.ID, Patch{Quantity: common.Float64Ptr(1), Unit: common.StringPtr("kg")})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, *updated.Quantity)

	updated, err = e.Update(ctx, flour.ID, Patch{ClearQuantity: true})
	require.NoError(t, err)
	assert.Equal(t, "|rye flour", updated.MergeKey)
	assert.Nil(t, updated.Quantity)
	assert.Nil(t, updated.Unit)

	_, err = e.Update(ctx, flour.ID, Patch{Name: common.StringPtr("200 g sugar")})
	assert.True(t, errors.Is(err, common.ErrConflict))

	_, err = e.Update(ctx, sugar.ID, Patch{Name: common.StringPtr(" ")})
	assert.True(t, common.IsValidationError(err))

	_, err = e.Update(ctx, "missing", Patch{Done: &done})
	assert.True(t, errors.Is(err, common.ErrNotFound))

	cleared, err := e.Update(ctx, sugar.ID, Patch{Category: common.StringPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.Category)
}

func TestEngine_DeleteAndClearDone(t *testing.T) {
	e, _ := newEngine(nil, false)
	ctx := context.Background()

	a, _ := e.Create(ctx, "apples")
	b, _ := e.Create(ctx, "bread")
	_, _ = e.Create(ctx, "cheese")

	require.NoError(t, e.Delete(ctx, a.ID))
	assert.True(t, errors.Is(e.Delete(ctx, a.ID), common.ErrNotFound))

	done := true
	_, err := e.Update(ctx, b.ID, Patch{Done: &done})
	require.NoError(t, err)

	n, err := e.ClearDone(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := e.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cheese", list[0].Name)
}

func TestSortEntries(t *testing.T) {
	entries := []*Entry{
		{Name: "b", Done: true, MergeKey: "|b"},
		{Name: "z", MergeKey: "|z"},
		{Name: "a", Category: common.StringPtr("Produce"), MergeKey: "|a"},
		{Name: "c", Category: common.StringPtr("Bakery"), MergeKey: "|c"},
	}
	sortEntries(entries)
	names := []string{entries[0].Name, entries[1].Name, entries[2].Name, entries[3].Name}
	assert.Equal(t, []string{"c", "a", "z", "b"}, names)
}
