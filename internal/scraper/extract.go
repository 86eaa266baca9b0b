package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"avtopress/internal/textutil"
)

const minParagraphChars = 60

// Selector cascade for article bodies, most specific first. The generic
// "p" fallback is last so navigation chrome does not shadow real content.
var articleSelectors = []string{
	"article p",
	"main p",
	".article p",
	".post p",
	".entry-content p",
	"p",
}

// extractLongArticleContent pulls readable paragraphs out of an article
// page. The cascade stops once ten paragraphs were found; maxParagraphs
// caps the final result.
func extractLongArticleContent(html string, maxParagraphs int) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()

	var paragraphs []string
	for _, selector := range articleSelectors {
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if len(paragraphs) >= maxParagraphs {
				return false
			}
			paragraph := textutil.NormalizeParagraph(s.Text())
			if len([]rune(paragraph)) >= minParagraphChars {
				paragraphs = append(paragraphs, paragraph)
			}
			return true
		})

		if len(paragraphs) >= 10 {
			break
		}
	}

	paragraphs = uniqueStrings(paragraphs)
	if len(paragraphs) > maxParagraphs {
		paragraphs = paragraphs[:maxParagraphs]
	}
	if len(paragraphs) == 0 {
		return ""
	}

	return textutil.NormalizeArticleContent(strings.Join(paragraphs, "\n\n"))
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, value := range values {
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}
