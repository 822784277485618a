package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recipe-importer/internal/core/ingredient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "", "parse", "2 tbsp olive oil", "salt")
	require.NoError(t, err)

	var got []ingredient.ParsedIngredient
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Unit)
	assert.Equal(t, "tbsp", *got[0].Unit)
	assert.Equal(t, "olive oil", got[0].Name)
	assert.Nil(t, got[1].Quantity)
	assert.Equal(t, "salt", got[1].Name)
}

func TestTitleCommand(t *testing.T) {
	out, err := run(t, "", "title", "Pasta", "|", "Site", "Name")
	require.NoError(t, err)
	assert.JSONEq(t, `{"raw":"Pasta | Site Name","title":"Pasta"}`, out)
}

func TestUnitsCommand(t *testing.T) {
	out, err := run(t, "", "units", "tbsp", "cups", "pinch")
	require.NoError(t, err)

	var got []unitReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 3)

	assert.Equal(t, "tbsp", *got[0].Display)
	assert.Equal(t, "ml", *got[0].MergeUnit)
	assert.InDelta(t, 15, *got[0].MergeScale, 1e-9)

	assert.Equal(t, "ml", *got[1].Display)
	assert.InDelta(t, 240, *got[1].MergeScale, 1e-9)

	assert.Nil(t, got[2].Display)
	assert.Nil(t, got[2].MergeUnit)
}

func TestRecoverCommand(t *testing.T) {
	reply := "Sure! Here it is:\n```json\n{\"ingredients\":[]}\n```\nEnjoy."

	out, err := run(t, reply, "recover")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ingredients":[]}`, out)

	path := filepath.Join(t.TempDir(), "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(reply), 0o644))
	out, err = run(t, "", "recover", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ingredients":[]}`, out)

	_, err = run(t, "no json here", "recover", "-")
	assert.Error(t, err)
}

func TestHeroCommandFromFile(t *testing.T) {
	html := `<html><head><meta property="og:image" content="https://cdn.example.com/og.jpg"></head><body></body></html>`
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	out, err := run(t, "", "hero", "--html", path, "https://example.com/soup")
	require.NoError(t, err)

	var got heroReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://cdn.example.com/og.jpg", got.Hero)
	assert.Len(t, got.Candidates, 1)
}

func TestHeroCommandRejectsBadURL(t *testing.T) {
	_, err := run(t, "", "hero", "--html", "unused.html", "ftp://example.com")
	assert.Error(t, err)
}
