package provider

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	base := Request{Model: "m", System: "s", User: "u"}
	same := base
	other := base
	other.User = "v"
	withImage := base
	withImage.Images = []string{"abc"}

	assert.Equal(t, base.CacheKey(), same.CacheKey())
	assert.NotEqual(t, base.CacheKey(), other.CacheKey())
	assert.True(t, strings.HasPrefix(base.CacheKey(), "text:"))
	assert.True(t, strings.HasPrefix(withImage.CacheKey(), "multimodal:"))
}
