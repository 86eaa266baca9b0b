package photos

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"avtopress/internal/httpx"
)

const maxPageImageURLs = 12

var decorativeURLHints = []string{"logo", "icon", "avatar", "favicon", "sprite", "watermark"}

func looksDecorativeURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, hint := range decorativeURLHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func uniqueHTTPURLs(rawURLs []string, limit int) []string {
	seen := make(map[string]bool, len(rawURLs))
	var urls []string
	for _, rawURL := range rawURLs {
		trimmed := strings.TrimSpace(rawURL)
		if !httpx.IsHTTPURL(trimmed) || looksDecorativeURL(trimmed) {
			continue
		}
		if seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		urls = append(urls, trimmed)
		if len(urls) >= limit {
			break
		}
	}
	return urls
}

// ExtractFeedImageURLs pulls image URLs from feed enclosures, media
// extensions and the entry image.
func ExtractFeedImageURLs(entry *gofeed.Item) []string {
	if entry == nil {
		return nil
	}

	var raw []string
	for _, enclosure := range entry.Enclosures {
		if enclosure == nil {
			continue
		}
		if enclosure.Type == "" || strings.HasPrefix(enclosure.Type, "image/") {
			raw = append(raw, enclosure.URL)
		}
	}

	if media, ok := entry.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, ext := range media[name] {
				if u := ext.Attrs["url"]; u != "" {
					raw = append(raw, u)
				}
			}
		}
	}

	if entry.Image != nil {
		raw = append(raw, entry.Image.URL)
	}

	return uniqueHTTPURLs(raw, maxPageImageURLs)
}

// ExtractHTMLImageURLs pulls image URLs from page metadata and article
// markup of a fetched article page.
func ExtractHTMLImageURLs(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var raw []string
	metaNames := []string{"og:image", "og:image:url", "twitter:image", "twitter:image:src"}
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		key, _ := sel.Attr("property")
		if key == "" {
			key, _ = sel.Attr("name")
		}
		for _, name := range metaNames {
			if key == name {
				if content, ok := sel.Attr("content"); ok {
					raw = append(raw, content)
				}
				return
			}
		}
	})

	doc.Find("article img, main img, img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			raw = append(raw, src)
		}
		if src, ok := sel.Attr("data-src"); ok {
			raw = append(raw, src)
		}
	})

	return uniqueHTTPURLs(raw, maxPageImageURLs)
}
