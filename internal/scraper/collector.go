// Package scraper collects candidate items from configured press sources:
// feed fetch and parse, entry extraction, article page fallback and the
// translation pass that follows collection.
package scraper

import (
	"context"

	"github.com/mmcdole/gofeed"

	"avtopress/internal/dedup"
	"avtopress/internal/httpx"
	"avtopress/internal/logger"
	"avtopress/internal/model"
	"avtopress/internal/photos"
	"avtopress/internal/report"
	"avtopress/internal/textutil"
)

const (
	quoteOnlyExcerptSentences = 10
	quoteOnlyExcerptChars     = 2200
)

// Collector walks the configured sources and produces the raw batch of
// collected items plus a health report per source.
type Collector struct {
	client          *httpx.Client
	parser          *gofeed.Parser
	minArticleChars int
	maxParagraphs   int
}

// NewCollector wires a collector around the shared HTTP client.
func NewCollector(client *httpx.Client, minArticleChars, maxParagraphs int) *Collector {
	return &Collector{
		client:          client,
		parser:          gofeed.NewParser(),
		minArticleChars: minArticleChars,
		maxParagraphs:   maxParagraphs,
	}
}

// CollectResult is the outcome of one collection pass: items are already
// deduplicated within the batch.
type CollectResult struct {
	Items         []model.CollectedItem
	SourceReports []model.ResourceRunReport
}

// Collect fetches every source in order. A broken source marks its report
// failed and never aborts the others. onProgress may be nil.
func (c *Collector) Collect(ctx context.Context, sources []model.Source, scrapedAt string, onProgress func(model.CollectProgress)) CollectResult {
	var allItems []model.CollectedItem
	reports := make([]model.ResourceRunReport, 0, len(sources))

	emit := func(completed int, source model.Source) {
		if onProgress == nil {
			return
		}
		onProgress(model.CollectProgress{
			TotalSources:      len(sources),
			CompletedSources:  completed,
			CurrentSourceID:   source.ID,
			CurrentSourceName: source.Name,
		})
	}

	for i, source := range sources {
		emit(i, source)
		log := logger.With("source", source.ID)
		log.Debug("collecting source", "feed", source.FeedURL)

		sourceReport := report.NewResourceReport(source)

		feed, err := c.fetchFeed(ctx, source.FeedURL)
		if err != nil {
			sourceReport.Status = model.StatusFailed
			sourceReport.Error = report.ShortError(err)
			log.Warn("feed fetch failed", "error", sourceReport.Error)
			reports = append(reports, sourceReport)
			emit(i+1, source)
			continue
		}

		entries := feed.Items
		if len(entries) > source.MaxItems {
			entries = entries[:source.MaxItems]
		}
		sourceReport.FeedEntries = len(entries)

		for _, entry := range entries {
			if item, ok := c.collectEntry(ctx, source, entry, scrapedAt); ok {
				allItems = append(allItems, item)
			}
		}

		reports = append(reports, sourceReport)
		emit(i+1, source)
	}

	deduped := dedup.DedupeBatch(allItems)
	return CollectResult{
		Items:         deduped,
		SourceReports: report.FinalizeCollectedReports(reports, deduped),
	}
}

func (c *Collector) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	xml, err := c.client.FetchText(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseString(xml)
}

func (c *Collector) collectEntry(ctx context.Context, source model.Source, entry *gofeed.Item, scrapedAt string) (model.CollectedItem, bool) {
	title := textutil.NormalizeText(entry.Title)
	link := textutil.NormalizeText(entry.Link)
	if link == "" {
		link = textutil.NormalizeText(source.URL)
	}
	if title == "" || link == "" {
		return model.CollectedItem{}, false
	}

	feedContent := extractEntryText(entry)
	feedImageURLs := photos.ExtractFeedImageURLs(entry)

	var articleContent string
	var articleImageURLs []string

	// The feed alone rarely carries the full story. Fetch the article page
	// when the feed text is short or ships no usable image.
	if len([]rune(feedContent)) < c.minArticleChars || len(feedImageURLs) == 0 {
		if body := c.client.FetchHTMLOrEmpty(ctx, link); body != "" {
			articleContent = extractLongArticleContent(body, c.maxParagraphs)
			articleImageURLs = photos.ExtractHTMLImageURLs(body)
		}
	}

	content := selectBestContent(feedContent, articleContent)
	if source.RightsFlag == model.RightsQuoteOnly {
		content = textutil.ExcerptBySentences(content, quoteOnlyExcerptSentences, quoteOnlyExcerptChars)
	}
	if content == "" {
		return model.CollectedItem{}, false
	}

	publishedAt := readDateFromFeedItem(entry)
	return model.CollectedItem{
		SourceID:               source.ID,
		Title:                  title,
		Content:                content,
		URL:                    link,
		Source:                 sourceLabel(source),
		PublishedAt:            publishedAt,
		PublishedDate:          model.ToDateOnly(publishedAt, scrapedAt),
		PublishedTime:          model.ToTimeOnly(publishedAt, scrapedAt),
		RightsFlag:             source.RightsFlag,
		LicenseText:            source.LicenseText,
		FeedImageCandidates:    feedImageURLs,
		ArticleImageCandidates: articleImageURLs,
	}, true
}

func sourceLabel(source model.Source) string {
	if source.Source != "" {
		return source.Source
	}
	return source.Name
}

// selectBestContent prefers the longer text between feed and page.
func selectBestContent(feedText, pageText string) string {
	if len(pageText) > len(feedText) {
		return pageText
	}
	return feedText
}

func readDateFromFeedItem(entry *gofeed.Item) string {
	candidates := []string{entry.Published, entry.Updated}
	if entry.PublishedParsed != nil {
		candidates = append([]string{entry.PublishedParsed.Format("2006-01-02T15:04:05Z07:00")}, candidates...)
	}
	if entry.UpdatedParsed != nil {
		candidates = append(candidates, entry.UpdatedParsed.Format("2006-01-02T15:04:05Z07:00"))
	}

	for _, candidate := range candidates {
		if iso := model.ToISOOrEmpty(candidate); iso != "" {
			return iso
		}
	}
	return ""
}

func extractEntryText(entry *gofeed.Item) string {
	candidates := []string{entry.Content, entry.Description}
	if encoded := contentEncodedExtension(entry); encoded != "" {
		candidates = append(candidates, encoded)
	}

	for _, candidate := range candidates {
		if text := textutil.NormalizeArticleContent(textutil.HTMLToText(candidate)); text != "" {
			return text
		}
	}
	return ""
}

func contentEncodedExtension(entry *gofeed.Item) string {
	for _, exts := range entry.Extensions["content"] {
		for _, ext := range exts {
			if ext.Value != "" {
				return ext.Value
			}
		}
	}
	return ""
}
