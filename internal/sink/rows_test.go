package sink

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avtopress/internal/model"
)

func sampleItem() model.NewsItem {
	return model.NewsItem{
		ID:            "abc1234567",
		Title:         "Kia EV6 gets more range",
		Content:       "The updated Kia EV6 brings a bigger battery pack.",
		URL:           "https://example.com/news/kia-ev6",
		Source:        "Test Source",
		SourceID:      "test",
		PublishedDate: "2024-08-12",
		PublishedTime: "10:30",
		ScrapedAt:     "2024-08-12T11:00:00Z",
		ArticlePath:   "data/runs/r1/kia-ev6-abc1234567",
		RightsFlag:    model.RightsOfficialPress,
		LicenseText:   "Official press materials.",
	}
}

func TestDedupeKeyIsStableAcrossCosmeticChanges(t *testing.T) {
	item := sampleItem()
	key := DedupeKey(item)
	assert.Len(t, key, 40)

	tweaked := item
	tweaked.Content = "completely different body"
	tweaked.ScrapedAt = "2024-08-13T09:00:00Z"
	assert.Equal(t, key, DedupeKey(tweaked))

	other := item
	other.URL = "https://example.com/news/audi-q8"
	other.Title = "Audi updates the Q8"
	assert.NotEqual(t, key, DedupeKey(other))
}

func TestDedupeItemsKeepsRicherDuplicate(t *testing.T) {
	thin := sampleItem()
	rich := sampleItem()
	rich.Photos = []model.PhotoAsset{{SourceURL: "https://example.com/a.jpg", LocalPath: "data/a.jpg"}}

	unique := DedupeItems([]model.NewsItem{thin, rich})
	require.Len(t, unique, 1)
	assert.Len(t, unique[0].Photos, 1)

	other := sampleItem()
	other.URL = "https://example.com/news/audi-q8"
	other.Title = "Audi updates the Q8"
	unique = DedupeItems([]model.NewsItem{thin, other})
	assert.Len(t, unique, 2)
}

func TestMapItemToRowBasics(t *testing.T) {
	item := sampleItem()
	row := MapItemToRow(item, nil)

	assert.True(t, strings.HasPrefix(row.Slug, "kia-ev6-gets-more-range-"))
	assert.Equal(t, item.ID, row.ExternalID)
	assert.Equal(t, DedupeKey(item), row.DedupeKey)
	require.NotNil(t, row.SourceID)
	assert.Equal(t, "test", *row.SourceID)
	require.NotNil(t, row.Date)
	assert.Equal(t, "2024-08-12", *row.Date)
	assert.Equal(t, model.RightsOfficialPress, row.RightsFlag)
	assert.Nil(t, row.Image)
	assert.Nil(t, row.ImageURL)

	var photos []model.PhotoAsset
	require.NoError(t, json.Unmarshal(row.Photos, &photos))
	assert.Empty(t, photos)
}

func TestMapItemToRowReconstructsPublishedAt(t *testing.T) {
	item := sampleItem()
	row := MapItemToRow(item, nil)
	require.NotNil(t, row.PublishedAt)
	assert.Equal(t, "2024-08-12T10:30:00Z", *row.PublishedAt)

	item.PublishedAt = "2024-08-12T09:15:00Z"
	row = MapItemToRow(item, nil)
	require.NotNil(t, row.PublishedAt)
	assert.Equal(t, "2024-08-12T09:15:00Z", *row.PublishedAt)

	item.PublishedAt = ""
	item.PublishedDate = ""
	row = MapItemToRow(item, nil)
	assert.Nil(t, row.PublishedAt)
}

func TestMapItemToRowUsesPrimaryPhoto(t *testing.T) {
	item := sampleItem()
	assets := []model.PhotoAsset{
		{SourceURL: "https://example.com/a.jpg", LocalPath: "data/a.jpg", Provider: model.ProviderFeed},
		{SourceURL: "https://example.com/b.jpg", LocalPath: "data/b.jpg", Provider: model.ProviderFeed},
	}
	row := MapItemToRow(item, assets)

	require.NotNil(t, row.Image)
	assert.Equal(t, "data/a.jpg", *row.Image)
	require.NotNil(t, row.ImageURL)
	assert.Equal(t, "https://example.com/a.jpg", *row.ImageURL)

	var photos []model.PhotoAsset
	require.NoError(t, json.Unmarshal(row.Photos, &photos))
	assert.Len(t, photos, 2)
}

func TestMapItemToRowExcerptTruncation(t *testing.T) {
	item := sampleItem()
	item.Content = strings.Repeat("Випробування нового кросовера тривають. ", 20)
	row := MapItemToRow(item, nil)

	require.NotNil(t, row.Excerpt)
	assert.LessOrEqual(t, len([]rune(*row.Excerpt)), excerptMaxChars+3)
	assert.True(t, strings.HasSuffix(*row.Excerpt, "..."))
}

func TestMapItemToRowNormalizesRightsFlag(t *testing.T) {
	item := sampleItem()
	item.RightsFlag = model.RightsFlag("bogus")
	row := MapItemToRow(item, nil)
	assert.Equal(t, model.RightsUnknown, row.RightsFlag)
}

func TestNormalizePublishedTime(t *testing.T) {
	assert.Equal(t, "10:30:00", normalizePublishedTime("10:30:00"))
	assert.Equal(t, "10:30:00", normalizePublishedTime("10:30"))
	assert.Equal(t, "00:00:00", normalizePublishedTime("mid-day"))
	assert.Equal(t, "00:00:00", normalizePublishedTime(""))
}

func TestParseScope(t *testing.T) {
	assert.Equal(t, ScopeSnapshot, ParseScope("snapshot"))
	assert.Equal(t, ScopeLatestRun, ParseScope("latest-run"))
	assert.Equal(t, ScopeLatestRun, ParseScope("latest_run"))
	assert.Equal(t, ScopeLatestRun, ParseScope("anything"))
}
