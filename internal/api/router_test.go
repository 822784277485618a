package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-importer/internal/api/handlers/health"
	recipeService "recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/shopping"
	"recipe-importer/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Debug: true, Version: "test"},
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 10},
		RateLimit:   config.RateLimitConfig{Enabled: true, Requests: 3, Window: time.Minute},
		DedupWindow: time.Second,
	}
}

type countingImporter struct {
	calls int
}

func (f *countingImporter) ImportURL(ctx context.Context, req recipeService.ImportURLRequest) (*recipeService.Recipe, error) {
	f.calls++
	return &recipeService.Recipe{ID: "r1", Title: "Pancakes"}, nil
}

func (f *countingImporter) ImportImages(ctx context.Context, req recipeService.ImportImagesRequest) (*recipeService.Recipe, error) {
	f.calls++
	return &recipeService.Recipe{ID: "r2", Title: "Soup"}, nil
}

func (f *countingImporter) Get(ctx context.Context, id string) (*recipeService.Recipe, error) {
	return nil, errors.New("not found")
}

func (f *countingImporter) List(ctx context.Context, limit int) ([]*recipeService.Recipe, error) {
	return nil, nil
}

func newRouter(t *testing.T, cfg *config.Config, checks map[string]health.CheckFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := shopping.NewEngine(shopping.NewMemoryStore(), nil, config.ShoppingConfig{})
	return SetupRouter(cfg, Deps{Shopping: engine, Checks: checks})
}

func request(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterHealthEndpoints(t *testing.T) {
	r := newRouter(t, testConfig(), map[string]health.CheckFunc{
		"database": func(context.Context) error { return errors.New("down") },
	})

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/live", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, request(r, http.MethodGet, "/ready", "").Code)
}

func TestRouterRequestID(t *testing.T) {
	r := newRouter(t, testConfig(), nil)
	w := request(r, http.MethodGet, "/live", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouterShoppingRoutes(t *testing.T) {
	r := newRouter(t, testConfig(), nil)

	w := request(r, http.MethodPost, "/api/v1/shopping", `{"text":"500 g pasta"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, "/api/v1/shopping", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"merge_key":"g|pasta"`)

	w = request(r, http.MethodDelete, "/api/v1/shopping/done", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterIngredientParse(t *testing.T) {
	r := newRouter(t, testConfig(), nil)
	w := request(r, http.MethodPost, "/api/v1/ingredients/parse", `{"lines":["1 kg potatoes"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unit":"kg"`)
}

func TestRouterRejectsDuplicateImport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	importer := &countingImporter{}
	r := SetupRouter(testConfig(), Deps{Importer: importer})

	body := `{"url":"https://example.com/pancakes"}`
	assert.Equal(t, http.StatusCreated, request(r, http.MethodPost, "/api/v1/recipes/import", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodPost, "/api/v1/recipes/import", body).Code)
	assert.Equal(t, 1, importer.calls)
}

func TestRouterRepeatedShoppingAddAccumulates(t *testing.T) {
	r := newRouter(t, testConfig(), nil)

	body := `{"text":"1 egg"}`
	require.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/v1/shopping", body).Code)
	require.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/v1/shopping", body).Code)

	w := request(r, http.MethodGet, "/api/v1/shopping", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"merge_key":"|egg"`)
	assert.Contains(t, w.Body.String(), `"quantity":2`)
}

func TestRouterRepeatedIngredientParseAllowed(t *testing.T) {
	r := newRouter(t, testConfig(), nil)

	body := `{"lines":["2 eggs"]}`
	assert.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/v1/ingredients/parse", body).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/v1/ingredients/parse", body).Code)
}

func TestRouterRateLimit(t *testing.T) {
	r := newRouter(t, testConfig(), nil)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/shopping", "").Code)
	}
	w := request(r, http.MethodGet, "/api/v1/shopping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRouterBodySizeLimit(t *testing.T) {
	r := newRouter(t, testConfig(), nil)
	big := `{"lines":["` + strings.Repeat("a", 2<<10) + `"]}`
	w := request(r, http.MethodPost, "/api/v1/ingredients/parse", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouterUnknownRecipeRoutesWithoutImporter(t *testing.T) {
	r := newRouter(t, testConfig(), nil)
	w := request(r, http.MethodGet, "/api/v1/recipes", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
