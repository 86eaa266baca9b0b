package photos

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"avtopress/internal/httpx"
	"avtopress/internal/model"
	"avtopress/internal/retry"
)

const (
	commonsEndpoint = "https://commons.wikimedia.org/w/api.php"

	searchRetryAttempts  = 3
	searchRetryBaseDelay = 350 * time.Millisecond
)

// Candidate is one image considered for download.
type Candidate struct {
	URL            string
	Provider       model.PhotoProvider
	License        string
	Credit         string
	AttributionURL string
}

type commonsImageInfo struct {
	ThumbURL       string                       `json:"thumburl"`
	URL            string                       `json:"url"`
	DescriptionURL string                       `json:"descriptionurl"`
	ExtMetadata    map[string]commonsMetaField `json:"extmetadata"`
}

type commonsMetaField struct {
	Value string `json:"value"`
}

type commonsPage struct {
	Title     string             `json:"title"`
	ImageInfo []commonsImageInfo `json:"imageinfo"`
	Index     int                `json:"index"`
}

type commonsResponse struct {
	Query struct {
		Pages map[string]commonsPage `json:"pages"`
	} `json:"query"`
}

func (r *Resolver) searchEndpointURL(query string, limit int) string {
	if limit < 1 {
		limit = 1
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("generator", "search")
	params.Set("gsrsearch", query+" filetype:bitmap")
	params.Set("gsrnamespace", "6")
	params.Set("gsrlimit", strconv.Itoa(limit))
	params.Set("prop", "imageinfo")
	params.Set("iiprop", "url|extmetadata")
	params.Set("iiurlwidth", "1280")
	params.Set("format", "json")
	params.Set("origin", "*")
	return r.endpoint + "?" + params.Encode()
}

func (r *Resolver) fetchCommonsPayload(ctx context.Context, endpoint string) *commonsResponse {
	var payload commonsResponse
	policy := retry.Policy{
		MaxAttempts: searchRetryAttempts,
		Delay:       searchRetryBaseDelay,
		Backoff:     true,
		Retriable:   httpx.IsRetriableError,
	}

	err := retry.Do(ctx, policy, func() error {
		body, err := r.client.FetchText(ctx, endpoint)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(body), &payload)
	})
	if err != nil {
		return nil
	}
	return &payload
}

// stripMarkup flattens the HTML fragments Commons ships in license and
// artist fields.
func stripMarkup(input string) string {
	if input == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return strings.TrimSpace(input)
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(doc.Text(), " "))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// searchCommons runs one Commons query and filters the results through the
// non-photo, visual and relevance checks. Identical queries within a run
// come from the cache.
func (r *Resolver) searchCommons(ctx context.Context, query string, limit int, searchTokens []string, mode relevanceMode, requireAutomotiveVisual bool) []Candidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	endpoint := r.searchEndpointURL(query, limit)

	payload, cached := r.cache.get(endpoint)
	if !cached {
		payload = r.fetchCommonsPayload(ctx, endpoint)
		r.cache.put(endpoint, payload)
	}
	if payload == nil {
		return nil
	}

	pages := make([]commonsPage, 0, len(payload.Query.Pages))
	for _, page := range payload.Query.Pages {
		pages = append(pages, page)
	}
	sortPagesByIndex(pages)

	var candidates []Candidate
	for _, page := range pages {
		if len(page.ImageInfo) == 0 {
			continue
		}
		info := page.ImageInfo[0]

		imageURL := firstNonEmpty(info.ThumbURL, info.URL)
		if !httpx.IsHTTPURL(imageURL) {
			continue
		}
		descriptionURL := firstNonEmpty(info.DescriptionURL, imageURL)

		candidateText := strings.ToLower(page.Title + " " + imageURL + " " + descriptionURL)
		if r.vocab.looksNonPhotographic(candidateText) {
			continue
		}
		if requireAutomotiveVisual && !r.vocab.looksAutomotiveVisual(candidateText) {
			continue
		}
		if !r.vocab.candidateLooksRelevant(candidateText, searchTokens, mode) {
			continue
		}

		license := stripMarkup(firstNonEmpty(
			info.ExtMetadata["LicenseShortName"].Value,
			info.ExtMetadata["License"].Value,
		))
		if license == "" {
			license = "Wikimedia Commons (license in attribution URL)"
		}

		credit := stripMarkup(firstNonEmpty(
			info.ExtMetadata["Artist"].Value,
			info.ExtMetadata["Credit"].Value,
		))
		if credit == "" {
			credit = "Wikimedia Commons"
		}

		candidates = append(candidates, Candidate{
			URL:            imageURL,
			Provider:       model.ProviderWikimedia,
			License:        license,
			Credit:         credit,
			AttributionURL: descriptionURL,
		})

		if len(candidates) >= limit {
			break
		}
	}

	return candidates
}

func sortPagesByIndex(pages []commonsPage) {
	for i := 1; i < len(pages); i++ {
		for j := i; j > 0 && pages[j].Index < pages[j-1].Index; j-- {
			pages[j], pages[j-1] = pages[j-1], pages[j]
		}
	}
}
