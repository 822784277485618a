package ingredient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/parse", HandleParse)

	body := `{"lines":["2 tbsp olive oil","", "salt to taste"]}`
	req := httptest.NewRequest(http.MethodPost, "/parse", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Ingredients []ParsedLine `json:"ingredients"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Ingredients, 2)

	oil := resp.Ingredients[0]
	require.NotNil(t, oil.Quantity)
	require.NotNil(t, oil.Unit)
	assert.Equal(t, 2.0, *oil.Quantity)
	assert.Equal(t, "tbsp", *oil.Unit)
	assert.Equal(t, "olive oil", oil.Name)
	assert.Equal(t, "2 tbsp olive oil", oil.Text)

	salt := resp.Ingredients[1]
	assert.Nil(t, salt.Quantity)
	assert.Equal(t, "salt to taste", salt.Name)
}

func TestHandleParseRejectsMissingLines(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/parse", HandleParse)

	req := httptest.NewRequest(http.MethodPost, "/parse", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
