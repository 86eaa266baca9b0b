package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avtopress/internal/httpx"
	"avtopress/internal/model"
)

const testArticleHTML = `<html><body><article>
<p>%s</p>
<p>%s</p>
<img src="https://example.com/photos/bmw-m5.jpg">
</article></body></html>`

func testFeedXML(selfURL, itemLink string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Test Source</title>
<link>` + selfURL + `</link>
<item>
<title>BMW reveals the new M5 Touring</title>
<link>` + itemLink + `</link>
<description>Short teaser.</description>
<pubDate>Mon, 12 Aug 2024 10:30:00 GMT</pubDate>
</item>
<item>
<title>Audi updates the Q8</title>
<link>` + itemLink + `</link>
<description>Another teaser.</description>
</item>
</channel></rss>`
}

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	paragraph := strings.Repeat("The new model brings a reworked drivetrain and chassis tuning. ", 3)
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeedXML(server.URL, server.URL+"/article"))
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, testArticleHTML, paragraph, paragraph)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestCollector() func(*httptest.Server) *Collector {
	return func(server *httptest.Server) *Collector {
		client := httpx.New(5*time.Second, "test-agent", 8<<20)
		return NewCollector(client, 1200, 24)
	}
}

func TestCollectFetchesArticleWhenFeedContentShort(t *testing.T) {
	server := newFeedServer(t)
	collector := newTestCollector()(server)

	source := model.Source{
		ID:         "test",
		Name:       "Test Source",
		URL:        server.URL,
		FeedURL:    server.URL + "/feed",
		Enabled:    true,
		MaxItems:   4,
		RightsFlag: model.RightsOfficialPress,
	}

	result := collector.Collect(context.Background(), []model.Source{source}, "2024-08-12T11:00:00Z", nil)

	require.Len(t, result.SourceReports, 1)
	report := result.SourceReports[0]
	assert.Equal(t, model.StatusOK, report.Status)
	assert.Equal(t, 2, report.FeedEntries)

	require.NotEmpty(t, result.Items)
	first := result.Items[0]
	assert.Equal(t, "BMW reveals the new M5 Touring", first.Title)
	assert.Contains(t, first.Content, "reworked drivetrain")
	assert.Contains(t, first.ArticleImageCandidates, "https://example.com/photos/bmw-m5.jpg")
	assert.Equal(t, "2024-08-12", first.PublishedDate)
}

func TestCollectDeduplicatesSharedLinks(t *testing.T) {
	server := newFeedServer(t)
	collector := newTestCollector()(server)

	source := model.Source{
		ID:       "test",
		Name:     "Test Source",
		URL:      server.URL,
		FeedURL:  server.URL + "/feed",
		MaxItems: 4,
	}

	result := collector.Collect(context.Background(), []model.Source{source}, "2024-08-12T11:00:00Z", nil)

	// Both feed entries point at the same article URL.
	assert.Len(t, result.Items, 1)
}

func TestCollectFailedSourceDoesNotAbortOthers(t *testing.T) {
	server := newFeedServer(t)
	collector := newTestCollector()(server)

	broken := model.Source{
		ID:       "broken",
		Name:     "Broken Source",
		FeedURL:  server.URL + "/missing-feed",
		MaxItems: 4,
	}
	working := model.Source{
		ID:       "test",
		Name:     "Test Source",
		URL:      server.URL,
		FeedURL:  server.URL + "/feed",
		MaxItems: 4,
	}

	result := collector.Collect(context.Background(), []model.Source{broken, working}, "2024-08-12T11:00:00Z", nil)

	require.Len(t, result.SourceReports, 2)
	assert.Equal(t, model.StatusFailed, result.SourceReports[0].Status)
	assert.NotEmpty(t, result.SourceReports[0].Error)
	assert.Equal(t, model.StatusOK, result.SourceReports[1].Status)
	assert.NotEmpty(t, result.Items)
}

func TestCollectRespectsMaxItems(t *testing.T) {
	server := newFeedServer(t)
	collector := newTestCollector()(server)

	source := model.Source{
		ID:       "test",
		Name:     "Test Source",
		URL:      server.URL,
		FeedURL:  server.URL + "/feed",
		MaxItems: 1,
	}

	result := collector.Collect(context.Background(), []model.Source{source}, "2024-08-12T11:00:00Z", nil)
	require.Len(t, result.SourceReports, 1)
	assert.Equal(t, 1, result.SourceReports[0].FeedEntries)
}

func TestCollectEmitsProgress(t *testing.T) {
	server := newFeedServer(t)
	collector := newTestCollector()(server)

	source := model.Source{
		ID:       "test",
		Name:     "Test Source",
		URL:      server.URL,
		FeedURL:  server.URL + "/feed",
		MaxItems: 4,
	}

	var updates []model.CollectProgress
	collector.Collect(context.Background(), []model.Source{source}, "2024-08-12T11:00:00Z", func(p model.CollectProgress) {
		updates = append(updates, p)
	})

	require.NotEmpty(t, updates)
	assert.Equal(t, 0, updates[0].CompletedSources)
	assert.Equal(t, 1, updates[len(updates)-1].CompletedSources)
	assert.Equal(t, "test", updates[0].CurrentSourceID)
}

func TestSelectBestContentPrefersLonger(t *testing.T) {
	assert.Equal(t, "longer page text", selectBestContent("feed", "longer page text"))
	assert.Equal(t, "feed text wins", selectBestContent("feed text wins", ""))
}
