package sink

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"

	"avtopress/internal/dedup"
	"avtopress/internal/model"
	"avtopress/internal/textutil"
)

const (
	dedupeKeyLength  = 40
	slugTitleLength  = 64
	slugSuffixLength = 8
	excerptMaxChars  = 320
)

var (
	fullTimePattern  = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
	shortTimePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// NewsRow is one record of the news_items table.
type NewsRow struct {
	Slug          string           `db:"slug"`
	ExternalID    string           `db:"external_id"`
	DedupeKey     string           `db:"dedupe_key"`
	SourceID      *string          `db:"source_id"`
	SourceName    string           `db:"source_name"`
	SourceURL     string           `db:"source_url"`
	ArticlePath   string           `db:"article_path"`
	Title         string           `db:"title"`
	Excerpt       *string          `db:"excerpt"`
	Summary       *string          `db:"summary"`
	Content       string           `db:"content"`
	Image         *string          `db:"image"`
	ImageURL      *string          `db:"image_url"`
	Photos        types.JSONText   `db:"photos"`
	Date          *string          `db:"date"`
	PublishedAt   *string          `db:"published_at"`
	PublishedDate *string          `db:"published_date"`
	PublishedTime *string          `db:"published_time"`
	ScrapedAt     string           `db:"scraped_at"`
	RightsFlag    model.RightsFlag `db:"rights_flag"`
	LicenseText   string           `db:"license_text"`
	Category      *string          `db:"category"`
	IsFeatured    bool             `db:"is_featured"`
	IsPopular     bool             `db:"is_popular"`
}

func normalizeRightsFlag(value model.RightsFlag) model.RightsFlag {
	switch value {
	case model.RightsOfficialPress, model.RightsQuoteOnly, model.RightsUnknown:
		return value
	default:
		return model.RightsUnknown
	}
}

func nonEmptyOrNil(value string) *string {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return nil
	}
	return &normalized
}

func normalizePublishedTime(value string) string {
	normalized := strings.TrimSpace(value)
	switch {
	case fullTimePattern.MatchString(normalized):
		return normalized
	case shortTimePattern.MatchString(normalized):
		return normalized + ":00"
	default:
		return "00:00:00"
	}
}

// resolvePublishedAt prefers the item's own timestamp and reconstructs one
// from the date plus time parts when it is missing.
func resolvePublishedAt(item model.NewsItem) string {
	if iso := model.ToISOOrEmpty(item.PublishedAt); iso != "" {
		return iso
	}
	date := strings.TrimSpace(item.PublishedDate)
	if date == "" {
		return ""
	}
	return model.ToISOOrEmpty(date + "T" + normalizePublishedTime(item.PublishedTime) + "Z")
}

func buildExcerpt(content string) *string {
	normalized := strings.TrimSpace(content)
	if normalized == "" {
		return nil
	}
	runes := []rune(normalized)
	if len(runes) <= excerptMaxChars {
		return &normalized
	}
	excerpt := strings.TrimSpace(string(runes[:excerptMaxChars])) + "..."
	return &excerpt
}

func fallbackDedupeToken(item model.NewsItem) string {
	return fmt.Sprintf("fallback:%s|%s|%s",
		strings.TrimSpace(item.Source),
		strings.TrimSpace(item.Title),
		strings.TrimSpace(item.PublishedDate))
}

// DedupeKey hashes the item's strongest identity key so repeated syncs of
// the same article always hit the same row.
func DedupeKey(item model.NewsItem) string {
	keys := dedup.Keys(dedup.KeyableFromNews(item))
	primary := fallbackDedupeToken(item)
	if len(keys) > 0 {
		primary = keys[0]
	}
	return textutil.ShortHash(primary, dedupeKeyLength)
}

func buildSlug(item model.NewsItem) string {
	return textutil.Slugify(item.Title, slugTitleLength) + "-" + textutil.ShortHash(item.ID, slugSuffixLength)
}

func timestampMillisOrZero(value string) int64 {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return parsed.UnixMilli()
}

func scoreItemQuality(item model.NewsItem) int64 {
	contentLength := int64(len(strings.TrimSpace(item.Content)))
	return int64(len(item.Photos))*1_000_000 +
		contentLength*1000 +
		timestampMillisOrZero(item.PublishedAt) +
		timestampMillisOrZero(item.ScrapedAt)
}

// DedupeItems collapses items sharing a dedupe key, keeping the richer one.
// Input order is preserved for the survivors.
func DedupeItems(items []model.NewsItem) []model.NewsItem {
	byKey := make(map[string]int, len(items))
	out := make([]model.NewsItem, 0, len(items))

	for _, item := range items {
		key := DedupeKey(item)
		if i, ok := byKey[key]; ok {
			if scoreItemQuality(item) > scoreItemQuality(out[i]) {
				out[i] = item
			}
			continue
		}
		byKey[key] = len(out)
		out = append(out, item)
	}
	return out
}

// MapItemToRow builds the database row for one item. photos must already
// be integrity and policy filtered.
func MapItemToRow(item model.NewsItem, photos []model.PhotoAsset) NewsRow {
	if photos == nil {
		photos = []model.PhotoAsset{}
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		photosJSON = []byte("[]")
	}

	scrapedAt := model.ToISOOrEmpty(item.ScrapedAt)
	if scrapedAt == "" {
		scrapedAt = time.Now().UTC().Format(time.RFC3339)
	}

	summary := strings.TrimSpace(textutil.NormalizeArticleContent(item.Content))
	if summary == "" {
		summary = strings.TrimSpace(item.Content)
	}

	row := NewsRow{
		Slug:          buildSlug(item),
		ExternalID:    item.ID,
		DedupeKey:     DedupeKey(item),
		SourceID:      nonEmptyOrNil(item.SourceID),
		SourceName:    item.Source,
		SourceURL:     item.URL,
		ArticlePath:   item.ArticlePath,
		Title:         item.Title,
		Excerpt:       buildExcerpt(summary),
		Summary:       nonEmptyOrNil(summary),
		Content:       summary,
		Photos:        types.JSONText(photosJSON),
		Date:          nonEmptyOrNil(item.PublishedDate),
		PublishedAt:   nonEmptyOrNil(resolvePublishedAt(item)),
		PublishedDate: nonEmptyOrNil(item.PublishedDate),
		PublishedTime: nonEmptyOrNil(item.PublishedTime),
		ScrapedAt:     scrapedAt,
		RightsFlag:    normalizeRightsFlag(item.RightsFlag),
		LicenseText:   item.LicenseText,
		Category:      nonEmptyOrNil(item.Source),
	}
	if len(photos) > 0 {
		row.Image = nonEmptyOrNil(photos[0].LocalPath)
		row.ImageURL = nonEmptyOrNil(photos[0].SourceURL)
	}
	return row
}
