package photos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avtopress/internal/httpx"
	"avtopress/internal/model"
)

func commonsPayload(pages map[string]commonsPage) []byte {
	var payload commonsResponse
	payload.Query.Pages = pages
	data, _ := json.Marshal(payload)
	return data
}

func newTestResolver(t *testing.T, handler http.Handler) (*Resolver, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := httpx.New(5*time.Second, "test-agent", 8<<20)
	resolver := NewResolver(client, nil).WithEndpoint(server.URL)
	return resolver, server
}

func TestResolveCandidatesPrefersSourceImages(t *testing.T) {
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no search expected when source images satisfy the limit")
	}))

	candidates := resolver.ResolveCandidates(context.Background(), "BMW M5",
		[]string{"https://example.com/feed.jpg"},
		[]string{"https://example.com/article.jpg"},
		ResolveOptions{})

	require.Len(t, candidates, 2)
	assert.Equal(t, model.ProviderFeed, candidates[0].Provider)
	assert.Equal(t, model.ProviderArticle, candidates[1].Provider)
	assert.Equal(t, defaultUnknownLicense, candidates[0].License)
	assert.Equal(t, defaultUnknownCredit, candidates[0].Credit)
	assert.Equal(t, candidates[0].URL, candidates[0].AttributionURL)
}

func TestResolveCandidatesOnlyFreeMediaSkipsSourceImages(t *testing.T) {
	var queries []string
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("gsrsearch"))
		w.Write(commonsPayload(map[string]commonsPage{
			"1": {
				Title: "File:BMW M5 front view.jpg",
				ImageInfo: []commonsImageInfo{{
					ThumbURL:       "https://upload.example.org/bmw-m5.jpg",
					DescriptionURL: "https://commons.example.org/wiki/File:BMW_M5.jpg",
					ExtMetadata: map[string]commonsMetaField{
						"LicenseShortName": {Value: "CC BY-SA 4.0"},
						"Artist":           {Value: "<a href=\"#\">Jane Doe</a>"},
					},
				}},
			},
		}))
	}))

	candidates := resolver.ResolveCandidates(context.Background(), "BMW M5 review",
		[]string{"https://example.com/feed.jpg"}, nil,
		ResolveOptions{OnlyFreeMedia: true})

	require.NotEmpty(t, candidates)
	require.NotEmpty(t, queries)
	assert.Contains(t, queries[0], "filetype:bitmap")
	first := candidates[0]
	assert.Equal(t, model.ProviderWikimedia, first.Provider)
	assert.Equal(t, "https://upload.example.org/bmw-m5.jpg", first.URL)
	assert.Equal(t, "CC BY-SA 4.0", first.License)
	assert.Equal(t, "Jane Doe", first.Credit)
	assert.Equal(t, "https://commons.example.org/wiki/File:BMW_M5.jpg", first.AttributionURL)
}

func TestResolveCandidatesDefaultsLicenseAndCredit(t *testing.T) {
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(commonsPayload(map[string]commonsPage{
			"1": {
				Title: "File:Toyota Corolla street.jpg",
				ImageInfo: []commonsImageInfo{{
					URL: "https://upload.example.org/toyota-corolla.jpg",
				}},
			},
		}))
	}))

	candidates := resolver.ResolveCandidates(context.Background(), "Toyota Corolla facelift",
		nil, nil, ResolveOptions{OnlyFreeMedia: true})

	require.NotEmpty(t, candidates)
	assert.Equal(t, "Wikimedia Commons (license in attribution URL)", candidates[0].License)
	assert.Equal(t, "Wikimedia Commons", candidates[0].Credit)
	assert.Equal(t, candidates[0].URL, candidates[0].AttributionURL)
}

func TestResolveCandidatesFiltersNonPhotographic(t *testing.T) {
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(commonsPayload(map[string]commonsPage{
			"1": {
				Title: "File:Toyota sales chart 2024.png",
				ImageInfo: []commonsImageInfo{{
					URL: "https://upload.example.org/toyota-chart.png",
				}},
			},
		}))
	}))

	candidates := resolver.ResolveCandidates(context.Background(), "Toyota Corolla facelift",
		nil, nil, ResolveOptions{OnlyFreeMedia: true})
	assert.Empty(t, candidates)
}

func TestResolveCandidatesExcludedURLsReusedWhenAllExcluded(t *testing.T) {
	const imageURL = "https://upload.example.org/kia-ev6.jpg"
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(commonsPayload(map[string]commonsPage{
			"1": {
				Title: "File:Kia EV6 charging.jpg",
				ImageInfo: []commonsImageInfo{{
					URL: imageURL,
					ExtMetadata: map[string]commonsMetaField{
						"LicenseShortName": {Value: "CC0"},
					},
				}},
			},
		}))
	}))

	candidates := resolver.ResolveCandidates(context.Background(), "Kia EV6 electric",
		nil, nil, ResolveOptions{OnlyFreeMedia: true, ExcludeURLs: []string{imageURL}})

	require.NotEmpty(t, candidates)
	assert.Equal(t, imageURL, candidates[0].URL)
}

func TestResolveCandidatesCachesIdenticalQueries(t *testing.T) {
	var hits int
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(commonsPayload(nil))
	}))

	ctx := context.Background()
	resolver.searchCommons(ctx, "kia ev6", wikimediaCandidateLimit, []string{"kia"}, relevanceStrict, true)
	resolver.searchCommons(ctx, "kia ev6", wikimediaCandidateLimit, []string{"kia"}, relevanceStrict, true)

	assert.Equal(t, 1, hits)
}

func TestDownloadCandidatesWritesFilesAndCapsCount(t *testing.T) {
	image := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	t.Cleanup(image.Close)

	client := httpx.New(5*time.Second, "test-agent", 8<<20)
	resolver := NewResolver(client, nil)

	root := t.TempDir()
	articleDir := filepath.Join(root, "data", "run", "article")

	candidates := []Candidate{
		{URL: image.URL + "/1.jpg", Provider: model.ProviderWikimedia, License: "CC BY 4.0", Credit: "A", AttributionURL: image.URL + "/p1"},
		{URL: image.URL + "/1.jpg", Provider: model.ProviderWikimedia, License: "CC BY 4.0", Credit: "A", AttributionURL: image.URL + "/p1"},
		{URL: image.URL + "/2.jpg", Provider: model.ProviderWikimedia, License: "CC BY 4.0", Credit: "B", AttributionURL: image.URL + "/p2"},
		{URL: image.URL + "/3.jpg", Provider: model.ProviderWikimedia, License: "CC BY 4.0", Credit: "C", AttributionURL: image.URL + "/p3"},
	}

	assets := resolver.DownloadCandidates(context.Background(), candidates, root, articleDir)
	require.Len(t, assets, 2)

	for _, asset := range assets {
		assert.Equal(t, model.ProviderWikimedia, asset.Provider)
		abs := filepath.Join(root, asset.LocalPath)
		info, err := os.Stat(abs)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
		assert.Contains(t, asset.LocalPath, "photo-")
	}
	assert.NotEqual(t, assets[0].SourceURL, assets[1].SourceURL)
}

func TestDownloadCandidatesSkipsRightsViolations(t *testing.T) {
	var requested int
	image := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested++
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{1})
	}))
	t.Cleanup(image.Close)

	client := httpx.New(5*time.Second, "test-agent", 8<<20)
	resolver := NewResolver(client, nil)
	root := t.TempDir()

	candidates := []Candidate{{
		URL:      image.URL + "/car-mirrored.png",
		Provider: model.ProviderArticle,
		License:  defaultUnknownLicense,
		Credit:   defaultUnknownCredit,
	}}

	assets := resolver.DownloadCandidates(context.Background(), candidates, root, filepath.Join(root, "article"))
	assert.Empty(t, assets)
	assert.Zero(t, requested)
}
