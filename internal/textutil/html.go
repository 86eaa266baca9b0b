package textutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLToText extracts readable text from an HTML fragment. Paragraph tags
// are preferred; when none exist the whole document text is used.
func HTMLToText(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return NormalizeArticleContent(input)
	}

	doc.Find("script, style, noscript").Remove()

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := NormalizeParagraph(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) > 0 {
		return NormalizeArticleContent(strings.Join(paragraphs, "\n\n"))
	}

	return NormalizeArticleContent(doc.Text())
}
