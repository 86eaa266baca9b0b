package runner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avtopress/internal/config"
	"avtopress/internal/httpx"
	"avtopress/internal/scraper"
	"avtopress/internal/storage"
	"avtopress/internal/translate"
)

func newPipelineServer(t *testing.T) *httptest.Server {
	t.Helper()
	paragraph := strings.Repeat("The updated model gets a reworked drivetrain and new driver assists. ", 3)
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Test Source</title>
<link>`+server.URL+`</link>
<item>
<title>BMW reveals the new M5 Touring</title>
<link>`+server.URL+`/article</link>
<description>Short teaser.</description>
<pubDate>Mon, 12 Aug 2024 10:30:00 GMT</pubDate>
</item>
</channel></rss>`)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body><article><p>%s</p><p>%s</p></article></body></html>", paragraph, paragraph)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestRunner(t *testing.T, server *httptest.Server) *Runner {
	t.Helper()
	root := t.TempDir()

	sourcesPath := filepath.Join(root, "sources.yaml")
	sourcesYAML := fmt.Sprintf(`sources:
  - id: test
    name: Test Source
    url: %s
    feed_url: %s/feed
    rights_flag: official_press
`, server.URL, server.URL)
	require.NoError(t, os.WriteFile(sourcesPath, []byte(sourcesYAML), 0o644))

	cfg := &config.Config{
		SourcesPath:        sourcesPath,
		OutputDir:          filepath.Join(root, "data"),
		DisableTranslation: true,
		MaxContentChars:    6000,
		MinArticleChars:    1200,
		MaxParagraphs:      24,
		MaxImageBytes:      8 << 20,
		UserAgent:          "test-agent",
		RequestTimeout:     5 * time.Second,
	}

	client := httpx.New(cfg.RequestTimeout, cfg.UserAgent, cfg.MaxImageBytes)
	return &Runner{
		cfg:       cfg,
		collector: scraper.NewCollector(client, cfg.MinArticleChars, cfg.MaxParagraphs),
		engine:    translate.New(cfg.RequestTimeout, cfg.UserAgent),
		store:     storage.New(filepath.Join(cfg.OutputDir, "news.json"), root, nil),
	}
}

func TestRunProducesCompleteRun(t *testing.T) {
	server := newPipelineServer(t)
	r := newTestRunner(t, server)
	tracker := NewTracker()
	require.True(t, tracker.TryStart())

	result, err := r.Run(context.Background(), tracker)
	require.NoError(t, err)

	assert.Equal(t, 1, result.CollectedItems)
	assert.Equal(t, 1, result.TranslatedItems)
	assert.NotEmpty(t, result.Run.RunID)

	snapshot := tracker.Snapshot()
	assert.Equal(t, StateSuccess, snapshot.State)
	assert.Equal(t, 100, snapshot.ProgressPercent)
	assert.Contains(t, snapshot.Message, "Scrape complete. Run "+result.Run.RunID)
	assert.Equal(t, result.Run.RunID, snapshot.RunID)

	// Run outputs landed on disk.
	_, err = os.Stat(r.store.AbsPath(result.Run.RunPath))
	assert.NoError(t, err)
	_, err = os.Stat(r.store.OutputPath)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(r.cfg.OutputDir, "latest_run.json"))
	assert.NoError(t, err)
}

func TestRunFailsOnMissingSources(t *testing.T) {
	server := newPipelineServer(t)
	r := newTestRunner(t, server)
	r.cfg.SourcesPath = filepath.Join(t.TempDir(), "missing.yaml")

	tracker := NewTracker()
	require.True(t, tracker.TryStart())

	_, err := r.Run(context.Background(), tracker)
	require.Error(t, err)

	snapshot := tracker.Snapshot()
	assert.Equal(t, StateError, snapshot.State)
	assert.Equal(t, "Scrape failed.", snapshot.Message)
	assert.Contains(t, snapshot.Error, "load sources")
}

func TestRunWorksWithoutTracker(t *testing.T) {
	server := newPipelineServer(t)
	r := newTestRunner(t, server)

	result, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CollectedItems)
}
