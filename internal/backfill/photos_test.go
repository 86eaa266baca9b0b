package backfill

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
	"avtopress/internal/photos"
	"avtopress/internal/storage"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, storage.WriteJSONFile(path, v))
}

// newPhotoBackend serves both the Commons search API and the image bytes.
func newPhotoBackend(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/img.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"query": map[string]any{
				"pages": map[string]any{
					"1": map[string]any{
						"title": "File:Kia EV6 charging.jpg",
						"imageinfo": []map[string]any{{
							"url":            server.URL + "/img.jpg",
							"descriptionurl": server.URL + "/wiki/File:Kia_EV6.jpg",
							"extmetadata": map[string]any{
								"LicenseShortName": map[string]any{"value": "CC0"},
								"Artist":           map[string]any{"value": "Jane Doe"},
							},
						}},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(payload)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newBackfillStore(t *testing.T, backend *httptest.Server) (*storage.Store, model.NewsItem) {
	t.Helper()
	root := t.TempDir()

	client := httpx.New(5*time.Second, "test-agent", 8<<20)
	resolver := photos.NewResolver(client, nil).WithEndpoint(backend.URL)
	store := storage.New(filepath.Join(root, "data", "news.json"), root, resolver)

	item := model.NewsItem{
		ID:            "abc1234567",
		Title:         "Kia EV6 gets more range",
		Content:       "The Kia EV6 update brings a bigger battery.",
		URL:           "https://example.com/kia-ev6",
		Source:        "Test Source",
		PublishedDate: "2024-08-12",
		PublishedTime: "10:30:00",
		ScrapedAt:     "2024-08-12T11:00:00Z",
		ArticlePath:   "data/runs/2024-08-12T11-00-00Z/kia-ev6-gets-more-range-abc1234567",
		RightsFlag:    model.RightsOfficialPress,
		LicenseText:   "Official press materials.",
	}

	runDir := filepath.Join(root, "data", "runs", "2024-08-12T11-00-00Z")
	require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(item.ArticlePath)), 0o755))
	writeJSON(t, filepath.Join(runDir, "news.json"), []model.NewsItem{item})
	writeJSON(t, store.OutputPath, []model.NewsItem{item})
	writeJSON(t, filepath.Join(root, "data", "latest_run.json"), model.RunSummary{
		RunID:   "2024-08-12T11-00-00Z",
		RunPath: "data/runs/2024-08-12T11-00-00Z",
	})

	return store, item
}

func TestMissingPhotosForRunBackfills(t *testing.T) {
	backend := newPhotoBackend(t)
	store, item := newBackfillStore(t, backend)

	summary, err := MissingPhotosForRun(context.Background(), store, PhotoOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ScannedItems)
	assert.Equal(t, 1, summary.MissingBefore)
	assert.Equal(t, 1, summary.UpdatedItems)
	assert.Equal(t, 1, summary.SyncedSnapshotItems)
	assert.Zero(t, summary.RemainingMissing)
	require.Positive(t, summary.UpdatedPhotos)

	var runItems []model.NewsItem
	data, err := os.ReadFile(filepath.Join(store.AbsPath(summary.RunPath), "news.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &runItems))
	require.Len(t, runItems, 1)
	require.NotEmpty(t, runItems[0].Photos)

	photo := runItems[0].Photos[0]
	assert.Equal(t, model.ProviderWikimedia, photo.Provider)
	assert.Equal(t, "CC0", photo.License)
	_, err = os.Stat(store.AbsPath(photo.LocalPath))
	assert.NoError(t, err)

	snapshot := store.ReadSnapshot()
	require.Len(t, snapshot, 1)
	assert.NotEmpty(t, snapshot[0].Photos)

	// The article file set was rewritten with the photo section.
	md, err := os.ReadFile(filepath.Join(store.AbsPath(item.ArticlePath), "article.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "### Photo 1")
}

func TestMissingPhotosForRunSkipsItemsWithPhotos(t *testing.T) {
	backend := newPhotoBackend(t)
	store, item := newBackfillStore(t, backend)

	root := store.Root
	photoRel := "data/runs/2024-08-12T11-00-00Z/existing/photo-1.jpg"
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(root, photoRel)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, photoRel), []byte{1}, 0o644))

	item.Photos = []model.PhotoAsset{{SourceURL: "https://example.com/a.jpg", LocalPath: photoRel, Provider: model.ProviderFeed}}
	runNewsPath := filepath.Join(root, "data", "runs", "2024-08-12T11-00-00Z", "news.json")
	writeJSON(t, runNewsPath, []model.NewsItem{item})

	summary, err := MissingPhotosForRun(context.Background(), store, PhotoOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ScannedItems)
	assert.Zero(t, summary.MissingBefore)
	assert.Zero(t, summary.UpdatedItems)
	assert.Zero(t, summary.RemainingMissing)
}

func TestMissingPhotosForRunRequiresRunPath(t *testing.T) {
	root := t.TempDir()
	store := storage.New(filepath.Join(root, "data", "news.json"), root, nil)

	_, err := MissingPhotosForRun(context.Background(), store, PhotoOptions{})
	require.Error(t, err)
}

func TestMissingPhotosForRunExplicitRunPath(t *testing.T) {
	backend := newPhotoBackend(t)
	store, _ := newBackfillStore(t, backend)

	// Remove the latest_run pointer; the explicit path must still work.
	require.NoError(t, os.Remove(filepath.Join(store.Root, "data", "latest_run.json")))

	summary, err := MissingPhotosForRun(context.Background(), store, PhotoOptions{
		RunPath: "data/runs/2024-08-12T11-00-00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UpdatedItems)
}

func TestMissingPhotosForRunCleansStaleReferences(t *testing.T) {
	backend := newPhotoBackend(t)
	store, item := newBackfillStore(t, backend)
	root := store.Root

	goodRel := "data/runs/2024-08-12T11-00-00Z/good/photo-1.jpg"
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(root, goodRel)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, goodRel), []byte{1}, 0o644))

	intact := item
	intact.Photos = []model.PhotoAsset{{SourceURL: "https://example.com/good.jpg", LocalPath: goodRel, Provider: model.ProviderFeed}}

	stale := item
	stale.ID = "def7654321"
	stale.Title = "Kia EV9 spotted testing"
	stale.URL = "https://example.com/kia-ev9"
	stale.ArticlePath = "data/runs/2024-08-12T11-00-00Z/kia-ev9-def7654321"
	stale.Photos = []model.PhotoAsset{{SourceURL: "https://example.com/gone.jpg", LocalPath: "data/runs/2024-08-12T11-00-00Z/gone/photo-1.jpg", Provider: model.ProviderFeed}}
	require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(stale.ArticlePath)), 0o755))

	runNewsPath := filepath.Join(root, "data", "runs", "2024-08-12T11-00-00Z", "news.json")
	writeJSON(t, runNewsPath, []model.NewsItem{intact, stale})
	writeJSON(t, store.OutputPath, []model.NewsItem{intact, stale})

	summary, err := MissingPhotosForRun(context.Background(), store, PhotoOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CleanedItems)
	assert.Equal(t, 1, summary.MissingBefore)
	assert.Equal(t, 1, summary.UpdatedItems)

	var runItems []model.NewsItem
	data, err := os.ReadFile(runNewsPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &runItems))
	require.Len(t, runItems, 2)

	// The intact item keeps its original photo; the stale one was replaced.
	assert.Equal(t, goodRel, runItems[0].Photos[0].LocalPath)
	require.NotEmpty(t, runItems[1].Photos)
	assert.Equal(t, model.ProviderWikimedia, runItems[1].Photos[0].Provider)
}

func TestCollectUsedWikimediaURLs(t *testing.T) {
	items := []model.NewsItem{
		{Photos: []model.PhotoAsset{
			{Provider: model.ProviderWikimedia, SourceURL: "https://upload.example.org/a.jpg"},
			{Provider: model.ProviderFeed, SourceURL: "https://example.com/feed.jpg"},
		}},
	}
	used := collectUsedWikimediaURLs(items)
	assert.True(t, used["https://upload.example.org/a.jpg"])
	assert.False(t, used["https://example.com/feed.jpg"])
}
