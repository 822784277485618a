package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantQty  *float64
		wantUnit string
		wantName string
	}{
		{"grams with space", "200 g flour", f(200), "g", "flour"},
		{"glued unit", "500g Flour", f(500), "g", "Flour"},
		{"comma decimal", "1,5 kg potatoes", f(1.5), "kg", "potatoes"},
		{"dot decimal plural unit", "2.5 tablespoons olive oil", f(2.5), "tbsp", "olive oil"},
		{"optional of", "3 tsp of salt", f(3), "tsp", "salt"},
		{"en dash range", "1–2 litres water", f(1.5), "L", "water"},
		{"no unit", "3 eggs", f(3), "", "eggs"},
		{"imperial ounces", "4 oz cheddar", f(112), "g", "cheddar"},
		{"fluid ounces", "2 fl oz cream", f(60), "ml", "cream"},
		{"no number", "Salt to taste", nil, "", "Salt to taste"},
		{"name empty after unit", "2 kg", nil, "", "2 kg"},
		{"name empty after number", "  3  ", nil, "", "3"},
		{"whitespace collapsed, casing kept", "  2   Red   Onions ", f(2), "", "Red Onions"},
		{"empty", "", nil, "", ""},
		{"whitespace only", "   ", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.line)
			assert.Equal(t, tt.wantName, got.Name)
			if tt.wantQty == nil {
				assert.Nil(t, got.Quantity)
			} else {
				require.NotNil(t, got.Quantity)
				assert.InDelta(t, *tt.wantQty, *got.Quantity, 1e-9)
			}
			if tt.wantUnit == "" {
				assert.Nil(t, got.Unit)
			} else {
				require.NotNil(t, got.Unit)
				assert.Equal(t, tt.wantUnit, *got.Unit)
			}
		})
	}
}

func TestParseLine_RangeAveragedBeforeConversion(t *testing.T) {
	got := ParseLine("2-4 cups sugar")
	require.NotNil(t, got.Quantity)
	require.NotNil(t, got.Unit)
	// mean of 2 and 4 cups, then 240 ml per cup
	assert.InDelta(t, 3*240.0, *got.Quantity, 1e-9)
	assert.Equal(t, "ml", *got.Unit)
	assert.Equal(t, "sugar", got.Name)
}

func TestParsedIngredient_DedupKeyAndString(t *testing.T) {
	a := ParseLine("2 TBSP Olive Oil")
	b := ParseLine("1 tablespoon olive oil ")
	assert.Equal(t, a.DedupKey(), b.DedupKey())
	assert.Equal(t, "tbsp|olive oil", a.DedupKey())
	assert.Equal(t, "2 tbsp Olive Oil", a.String())
	assert.Equal(t, "|milk", ParseLine("milk").DedupKey())
}

func TestParseQuantity(t *testing.T) {
	v, ok := ParseQuantity("2-3")
	require.True(t, ok)
	assert.Equal(t, 2.5, v)

	v, ok = ParseQuantity("1,5")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = ParseQuantity("a few")
	assert.False(t, ok)
	_, ok = ParseQuantity("2 cups")
	assert.False(t, ok)
}

func TestParseLines(t *testing.T) {
	got := ParseLines([]string{"1 l milk", "", "  ", "bread"})
	require.Len(t, got, 2)
	assert.Equal(t, "milk", got[0].Name)
	assert.Equal(t, "bread", got[1].Name)
}

func f(v float64) *float64 { return &v }
