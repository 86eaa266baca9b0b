package storage

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"avtopress/internal/model"
)

var htmlTagRe = regexp.MustCompile(`(?i)</?(p|br|div|span|a|strong|em|b|i|ul|ol|li|h[1-6]|img|blockquote|table)\b`)

var mdConverter = md.NewConverter("", true, nil)

// contentAsMarkdown passes content with leftover HTML markup through the
// markdown converter, otherwise returns it untouched.
func contentAsMarkdown(content string) string {
	if !htmlTagRe.MatchString(content) {
		return content
	}
	converted, err := mdConverter.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(converted)
}

func renderPhotos(item model.NewsItem) string {
	if len(item.Photos) == 0 {
		return "No photos.\n"
	}

	blocks := make([]string, 0, len(item.Photos))
	for i, photo := range item.Photos {
		blocks = append(blocks, strings.Join([]string{
			fmt.Sprintf("### Photo %d", i+1),
			"- provider: " + string(photo.Provider),
			"- source_url: " + photo.SourceURL,
			"- local_path: " + photo.LocalPath,
			"- license: " + photo.License,
			"- credit: " + photo.Credit,
			"- attribution_url: " + photo.AttributionURL,
			"",
		}, "\n"))
	}
	return strings.Join(blocks, "\n")
}

// RenderArticleMarkdown produces the human-readable companion to
// article.json.
func RenderArticleMarkdown(item model.NewsItem) string {
	return strings.Join([]string{
		"# " + item.Title,
		"",
		"- source: " + item.Source,
		"- url: " + item.URL,
		"- published_date: " + item.PublishedDate,
		"- published_time: " + item.PublishedTime,
		"- published_at: " + item.PublishedAt,
		"- scraped_at: " + item.ScrapedAt,
		"- rights_flag: " + string(item.RightsFlag),
		"- license_text: " + item.LicenseText,
		"",
		"## Content",
		"",
		contentAsMarkdown(item.Content),
		"",
		"## Photos",
		"",
		renderPhotos(item),
	}, "\n")
}
