// Package dedup derives fuzzy identity keys for news items and merges
// duplicates within a batch, across the snapshot and across runs.
package dedup

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"avtopress/internal/model"
	"avtopress/internal/textutil"
)

// Query parameters that vary per campaign but never change the article.
var trackingQueryKeys = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"mc_cid":       true,
	"mc_eid":       true,
	"ref":          true,
	"ref_src":      true,
	"source":       true,
	"igshid":       true,
}

const minTitleKeyLength = 16

var nonWordRe = regexp.MustCompile(`[^\pL\pN\s]`)

// Keyable is the minimal shape keys can be derived from.
type Keyable struct {
	Title         string
	URL           string
	PublishedDate string
}

// KeyableFromCollected adapts a collected item for key derivation.
func KeyableFromCollected(item model.CollectedItem) Keyable {
	return Keyable{Title: item.Title, URL: item.URL, PublishedDate: item.PublishedDate}
}

// KeyableFromNews adapts a persisted item for key derivation.
func KeyableFromNews(item model.NewsItem) Keyable {
	return Keyable{Title: item.Title, URL: item.URL, PublishedDate: item.PublishedDate}
}

func normalizeTitleForKey(title string) string {
	lowered := strings.ToLower(textutil.NormalizeText(title))
	folded := norm.NFKC.String(lowered)
	spaced := nonWordRe.ReplaceAllString(folded, " ")
	return textutil.NormalizeText(spaced)
}

type queryPair struct {
	key   string
	value string
}

func canonicalizeURLForKey(rawURL string) string {
	normalized := textutil.NormalizeText(rawURL)
	if normalized == "" {
		return ""
	}

	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Host == "" {
		return strings.TrimRight(strings.ToLower(normalized), "/")
	}

	host := strings.ToLower(parsed.Hostname())

	path := strings.TrimRight(parsed.EscapedPath(), "/")
	if path == "" {
		path = "/"
	}

	var pairs []queryPair
	for key, values := range parsed.Query() {
		if trackingQueryKeys[strings.ToLower(key)] {
			continue
		}
		for _, value := range values {
			pairs = append(pairs, queryPair{key: key, value: value})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key == pairs[j].key {
			return pairs[i].value < pairs[j].value
		}
		return pairs[i].key < pairs[j].key
	})

	var query strings.Builder
	for i, pair := range pairs {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(pair.key))
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(pair.value))
	}

	if query.Len() == 0 {
		return host + path
	}
	return host + path + "?" + query.String()
}

// Keys derives every identity key an item contributes: the canonical URL
// key, a title-only key when the title is long enough to be distinctive,
// and a title+date composite when a publish date exists.
func Keys(item Keyable) []string {
	var keys []string

	if canonical := canonicalizeURLForKey(item.URL); canonical != "" {
		keys = append(keys, "u:"+canonical)
	}

	titleKey := normalizeTitleForKey(item.Title)
	if len([]rune(titleKey)) >= minTitleKeyLength {
		// The title-only key catches cross-run repeats from sources that do
		// not ship a stable publish timestamp.
		keys = append(keys, "t:"+titleKey)

		if dateKey := textutil.NormalizeText(item.PublishedDate); dateKey != "" {
			keys = append(keys, "td:"+titleKey+"|"+dateKey)
		}
	}

	return uniqueStrings(keys)
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
