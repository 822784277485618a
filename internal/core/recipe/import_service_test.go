package recipe

import (
	"context"
	"errors"
	"testing"

	"recipe-importer/internal/core/image"
	"recipe-importer/internal/core/page"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const soupPage = `<html><head>
<title>Easy Tomato Soup Recipe | Cooking Site</title>
<meta property="og:image" content="https://cdn.example.com/soup-hero.jpg">
</head><body>
<h1>Easy Tomato Soup</h1>
<ul><li>500 g tomatoes</li><li>1 onion</li></ul>
<p>Simmer everything for 20 minutes.</p>
</body></html>`

type fakeFetcher struct {
	html string
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*page.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &page.Page{URL: rawURL, FinalURL: rawURL, HTML: f.html}, nil
}

type fakeImages struct {
	fetchErr   error
	fetchedURL string
	storedIDs  []string
}

func (f *fakeImages) FetchAndStore(ctx context.Context, rawURL, id string) (*image.Stored, error) {
	f.fetchedURL = rawURL
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &image.Stored{ImagePath: "data/" + id + ".jpg", ThumbPath: "data/" + id + "_thumb.jpg"}, nil
}

func (f *fakeImages) Store(ctx context.Context, data []byte, id string) (*image.Stored, error) {
	f.storedIDs = append(f.storedIDs, id)
	return &image.Stored{ImagePath: "data/" + id + ".jpg", ThumbPath: "data/" + id + "_thumb.jpg"}, nil
}

func (f *fakeImages) NormalizeDataURI(ctx context.Context, raw string) (string, error) {
	if raw == "bad" {
		return "", common.ErrInvalidImageFormat
	}
	return "data:image/jpeg;base64,AA==", nil
}

const soupReply = `{"ingredients":[{"quantity":500,"unit":"g","name":"tomatoes"},{"quantity":1,"unit":null,"name":"onion"}],"instructions":["Simmer everything for 20 minutes."]}`

func TestImportURL(t *testing.T) {
	store := NewMemoryStore()
	images := &fakeImages{}
	svc := NewImportService(&fakeFetcher{html: soupPage}, NewExtractor(&fakeCompleter{reply: soupReply}, testOpenRouterConfig(), 3), store, images, 3)

	r, err := svc.ImportURL(context.Background(), ImportURLRequest{URL: "https://example.com/soup"})
	require.NoError(t, err)
	assert.Equal(t, "Tomato Soup", r.Title)
	assert.Len(t, r.Ingredients, 2)
	assert.Equal(t, "https://cdn.example.com/soup-hero.jpg", images.fetchedURL)
	require.NotNil(t, r.ImagePath)

	saved, err := svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, *r.ImagePath, *saved.ImagePath)
	assert.Equal(t, "https://example.com/soup", *saved.SourceURL)
}

func TestImportURL_ImageFailureIsNonFatal(t *testing.T) {
	store := NewMemoryStore()
	images := &fakeImages{fetchErr: common.ErrUpstreamFetch}
	svc := NewImportService(&fakeFetcher{html: soupPage}, NewExtractor(&fakeCompleter{reply: soupReply}, testOpenRouterConfig(), 3), store, images, 3)

	r, err := svc.ImportURL(context.Background(), ImportURLRequest{URL: "https://example.com/soup"})
	require.NoError(t, err)
	assert.Nil(t, r.ImagePath)

	saved, err := store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Nil(t, saved.ImagePath)
}

func TestImportURL_Errors(t *testing.T) {
	extractor := NewExtractor(&fakeCompleter{reply: "no json here"}, testOpenRouterConfig(), 3)

	svc := NewImportService(&fakeFetcher{html: soupPage}, extractor, NewMemoryStore(), nil, 3)
	_, err := svc.ImportURL(context.Background(), ImportURLRequest{URL: "ftp://example.com"})
	assert.True(t, common.IsValidationError(err))

	_, err = svc.ImportURL(context.Background(), ImportURLRequest{URL: "https://example.com/soup"})
	assert.True(t, errors.Is(err, common.ErrExtraction))

	svc = NewImportService(&fakeFetcher{err: common.ErrUpstreamFetch}, extractor, NewMemoryStore(), nil, 3)
	_, err = svc.ImportURL(context.Background(), ImportURLRequest{URL: "https://example.com/soup"})
	assert.True(t, errors.Is(err, common.ErrUpstreamFetch))

	list, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportImages(t *testing.T) {
	store := NewMemoryStore()
	images := &fakeImages{}
	fc := &fakeCompleter{reply: `{"title":"Best Pancakes Recipe","ingredients":["2 eggs"],"instructions":["Whisk."]}`}
	svc := NewImportService(nil, NewExtractor(fc, testOpenRouterConfig(), 3), store, images, 3)

	r, err := svc.ImportImages(context.Background(), ImportImagesRequest{Images: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", r.Title)
	assert.Len(t, fc.last.Images, 2)
	assert.Equal(t, []string{r.ID}, images.storedIDs)
	require.NotNil(t, r.ThumbPath)

	_, err = svc.ImportImages(context.Background(), ImportImagesRequest{})
	assert.True(t, common.IsValidationError(err))
	_, err = svc.ImportImages(context.Background(), ImportImagesRequest{Images: []string{"a", "b", "c", "d"}})
	assert.True(t, common.IsValidationError(err))
	_, err = svc.ImportImages(context.Background(), ImportImagesRequest{Images: []string{"bad"}})
	assert.True(t, errors.Is(err, common.ErrInvalidImageFormat))

	list, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.True(t, errors.Is(store.UpdateImage(context.Background(), "missing", "a", "b"), common.ErrNotFound))
}
