package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icoffio/articleflow/internal/core/domain"
	"github.com/icoffio/articleflow/internal/llm"
)

type fakePlanner struct {
	llm.Client
}

func (fakePlanner) PlanImages(_ context.Context, title, category, _ string) (*llm.ImagePlan, error) {
	return &llm.ImagePlan{
		HeroPrompt:     "hero shot of " + title,
		ContentPrompts: []string{"detail one", "detail two"},
		Tags:           []string{strings.ToLower(category), "modern"},
		Keywords:       []string{"chips"},
	}, nil
}

type fakeStock struct{ err error }

func (f fakeStock) Search(_ context.Context, query string) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	return "https://stock.example/" + strings.ReplaceAll(query, " ", "-"), nil
}

type fakeGenerative struct{ err error }

func (f fakeGenerative) Generate(_ context.Context, _ string) (string, float64, error) {
	if f.err != nil {
		return "", 0, f.err
	}

	return "https://gen.example/img.png", 0.04, nil
}

func newTestService(stock StockProvider, gen GenerativeProvider) *Service {
	return NewService(fakePlanner{}, stock, gen, zerolog.Nop())
}

func TestSourcePairAlwaysMixed(t *testing.T) {
	svc := newTestService(fakeStock{}, fakeGenerative{})

	// Two images split one stock + one generated whatever the source says.
	for _, strategy := range []string{"", domain.ImagesSourceStock, domain.ImagesSourceGenerative} {
		descriptors, err := svc.Source(context.Background(), "Title", "Tech", "sum", 2, strategy)
		require.NoError(t, err)
		require.Len(t, descriptors, 2)

		assert.Equal(t, domain.ImagesSourceStock, descriptors[0].Source)
		assert.Equal(t, domain.ImagesSourceGenerative, descriptors[1].Source)
		assert.Equal(t, 0.04, descriptors[1].Cost)
	}
}

func TestSourceExplicitStrategy(t *testing.T) {
	svc := newTestService(fakeStock{}, fakeGenerative{})

	descriptors, err := svc.Source(context.Background(), "Title", "Tech", "sum", 3, domain.ImagesSourceGenerative)
	require.NoError(t, err)
	require.Len(t, descriptors, 3)

	for _, d := range descriptors {
		assert.Equal(t, domain.ImagesSourceGenerative, d.Source)
	}

	descriptors, err = svc.Source(context.Background(), "Title", "Tech", "sum", 1, domain.ImagesSourceStock)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, domain.ImagesSourceStock, descriptors[0].Source)
}

func TestSourceNone(t *testing.T) {
	svc := newTestService(fakeStock{}, fakeGenerative{})

	descriptors, err := svc.Source(context.Background(), "Title", "Tech", "sum", 3, domain.ImagesSourceNone)
	require.NoError(t, err)
	assert.Empty(t, descriptors)

	descriptors, err = svc.Source(context.Background(), "Title", "Tech", "sum", 0, domain.ImagesSourceStock)
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}

func TestSourceSkipsFailedProvider(t *testing.T) {
	svc := newTestService(fakeStock{err: errors.New("quota exceeded")}, fakeGenerative{})

	descriptors, err := svc.Source(context.Background(), "Title", "Tech", "sum", 2, "")
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, domain.ImagesSourceGenerative, descriptors[0].Source)
}

func TestInsertIntoContentPositions(t *testing.T) {
	paragraphs := make([]string, 10)
	for i := range paragraphs {
		paragraphs[i] = "para"
	}

	content := strings.Join(paragraphs, "\n\n")
	descriptors := []Descriptor{
		{URL: "https://a.png", Alt: "first"},
		{URL: "https://b.png", Alt: "second"},
	}

	out := strings.Split(InsertIntoContent(content, descriptors), "\n\n")
	require.Len(t, out, 12)

	assert.Equal(t, "![first](https://a.png)", out[3])
	assert.Equal(t, "![second](https://b.png)", out[7])
}

func TestInsertIntoContentShortArticleAppends(t *testing.T) {
	out := InsertIntoContent("only\n\ntwo", []Descriptor{{URL: "https://a.png", Alt: "x"}})

	assert.True(t, strings.HasSuffix(out, "![x](https://a.png)"))
	assert.True(t, strings.HasPrefix(out, "only\n\ntwo"))
}

func TestUnsplashProviderSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Client-ID test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "server racks", r.URL.Query().Get("query"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"urls":{"regular":"https://images.example/photo.jpg"}}]}`))
	}))
	defer srv.Close()

	provider := NewUnsplashProvider(srv.URL, "test-key", 5*time.Second)

	url, err := provider.Search(context.Background(), "server racks")
	require.NoError(t, err)
	assert.Equal(t, "https://images.example/photo.jpg", url)
}

func TestUnsplashProviderNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	provider := NewUnsplashProvider(srv.URL, "k", 5*time.Second)

	_, err := provider.Search(context.Background(), "nothing")
	assert.Error(t, err)
}

func TestCostFor(t *testing.T) {
	assert.Equal(t, 0.040, costFor("dall-e-3", "1024x1024"))
	assert.Equal(t, 0.080, costFor("dall-e-3", "1792x1024"))
	assert.Equal(t, defaultImageCost, costFor("unknown", "1024x1024"))
}
