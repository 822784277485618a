package recipe

import (
	"context"
	"errors"
	"testing"

	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply string
	err   error
	last  *provider.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req *provider.Request) (string, error) {
	f.last = req
	return f.reply, f.err
}

func testOpenRouterConfig() config.OpenRouterConfig {
	return config.OpenRouterConfig{
		Model:       "text/model",
		VisionModel: "vision/model",
		MaxTokens:   2000,
		Temperature: 0.2,
	}
}

func TestParseExtraction_NormalizesAndDedups(t *testing.T) {
	reply := "Sure! Here it is:\n```json\n" + `{
		"ingredients": [
			{"quantity": 200, "unit": "grams", "name": "Flour"},
			{"quantity": 300, "unit": "g", "name": "flour "},
			{"quantity": "1,5", "unit": "tbsp", "name": "olive oil"},
			{"quantity": 2, "unit": "oz", "name": "butter"},
			{"quantity": 2, "unit": "cloves", "name": "garlic, minced"},
			{"quantity": null, "unit": "tsp", "name": "salt"},
			"3 eggs",
			{"quantity": 1, "unit": "g", "name": "  "}
		],
		"instructions": ["Mix.", "mix.", {"text": "Bake  for 20 min."}, ""]
	}` + "\n```\nEnjoy"

	result, err := ParseExtraction(reply)
	require.NoError(t, err)

	require.Len(t, result.Ingredients, 6)
	assert.Equal(t, "Flour", result.Ingredients[0].Name)
	assert.Equal(t, 200.0, *result.Ingredients[0].Quantity)
	assert.Equal(t, "g", *result.Ingredients[0].Unit)

	assert.Equal(t, 1.5, *result.Ingredients[1].Quantity)
	assert.Equal(t, "tbsp", *result.Ingredients[1].Unit)

	assert.Equal(t, 56.0, *result.Ingredients[2].Quantity)
	assert.Equal(t, "g", *result.Ingredients[2].Unit)

	assert.Equal(t, "cloves garlic, minced", result.Ingredients[3].Name)
	assert.Nil(t, result.Ingredients[3].Unit)

	assert.Equal(t, "salt", result.Ingredients[4].Name)
	assert.Nil(t, result.Ingredients[4].Quantity)
	assert.Nil(t, result.Ingredients[4].Unit)

	assert.Equal(t, "eggs", result.Ingredients[5].Name)
	assert.Equal(t, 3.0, *result.Ingredients[5].Quantity)

	assert.Equal(t, []string{"Mix.", "Bake for 20 min."}, result.Instructions)
}

func TestParseExtraction_Unrecoverable(t *testing.T) {
	_, err := ParseExtraction("I could not find a recipe on this page.")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNoJSON))
}

func TestExtractFromText(t *testing.T) {
	fc := &fakeCompleter{reply: `{"ingredients":[{"quantity":1,"unit":"L","name":"milk"}],"instructions":["Boil."]}`}
	e := NewExtractor(fc, testOpenRouterConfig(), 3)

	result, err := e.ExtractFromText(context.Background(), "Milk soup ...", Options{})
	require.NoError(t, err)
	require.Len(t, result.Ingredients, 1)
	assert.Equal(t, "L", *result.Ingredients[0].Unit)

	assert.Equal(t, "text/model", fc.last.Model)
	assert.True(t, fc.last.JSONMode)
	assert.Contains(t, fc.last.System, "strict JSON")
	assert.Contains(t, fc.last.User, "Milk soup")
	assert.Empty(t, fc.last.Images)

	temp := 0.7
	_, err = e.ExtractFromText(context.Background(), "x", Options{Model: "other/model", Temperature: &temp, MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "other/model", fc.last.Model)
	assert.Equal(t, 0.7, fc.last.Temperature)
	assert.Equal(t, 10, fc.last.MaxTokens)
}

func TestExtractFromText_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		fc      *fakeCompleter
		wantErr error
	}{
		{"empty text", "  ", &fakeCompleter{}, nil},
		{"missing key", "x", &fakeCompleter{err: common.ErrMissingAPIKey}, common.ErrMissingAPIKey},
		{"upstream", "x", &fakeCompleter{err: errors.New("status 500")}, common.ErrExtraction},
		{"timeout", "x", &fakeCompleter{err: context.DeadlineExceeded}, common.ErrGatewayTimeout},
		{"bad json", "x", &fakeCompleter{reply: "nope"}, common.ErrExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.fc, testOpenRouterConfig(), 3)
			_, err := e.ExtractFromText(context.Background(), tt.text, Options{})
			require.Error(t, err)
			if tt.wantErr == nil {
				assert.True(t, common.IsValidationError(err))
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestExtractFromImages(t *testing.T) {
	fc := &fakeCompleter{reply: `{"title":"Pancakes","ingredients":["2 eggs"],"instructions":["Whisk."]}`}
	e := NewExtractor(fc, testOpenRouterConfig(), 2)

	result, err := e.ExtractFromImages(context.Background(), []string{"data:image/jpeg;base64,AA=="}, "", Options{})
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", result.Title)
	assert.Equal(t, "vision/model", fc.last.Model)
	assert.Len(t, fc.last.Images, 1)

	_, err = e.ExtractFromImages(context.Background(), nil, "", Options{})
	assert.True(t, common.IsValidationError(err))
	_, err = e.ExtractFromImages(context.Background(), []string{"a", "b", "c"}, "", Options{})
	assert.True(t, common.IsValidationError(err))
}

func TestClassifyCategory(t *testing.T) {
	allowed := []string{"Produce", "Dairy", "Other"}
	tests := []struct {
		name string
		fc   *fakeCompleter
		want string
	}{
		{"valid", &fakeCompleter{reply: `{"category":"dairy"}`}, "Dairy"},
		{"noisy", &fakeCompleter{reply: `The answer: {"category": "Produce"}`}, "Produce"},
		{"outside enum", &fakeCompleter{reply: `{"category":"Toys"}`}, "Other"},
		{"unparseable", &fakeCompleter{reply: `Dairy`}, "Other"},
		{"missing key", &fakeCompleter{err: common.ErrMissingAPIKey}, "Other"},
		{"transport", &fakeCompleter{err: errors.New("boom")}, "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.fc, testOpenRouterConfig(), 3)
			assert.Equal(t, tt.want, e.ClassifyCategory(context.Background(), "yogurt", allowed, "Other"))
		})
	}

	var nilCompleter *Extractor = NewExtractor(nil, testOpenRouterConfig(), 3)
	assert.Equal(t, "Other", nilCompleter.ClassifyCategory(context.Background(), "yogurt", allowed, "Other"))
}
