package photos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"avtopress/internal/httpx"
	"avtopress/internal/logger"
	"avtopress/internal/model"
)

const (
	maxImagesPerItem        = 2
	wikimediaCandidateLimit = 8
	extendedCandidateLimit  = 24

	defaultUnknownLicense = "License unknown. Check original source terms before publication."
	defaultUnknownCredit  = "Source website"
)

// ResolveOptions tunes one candidate resolution pass.
type ResolveOptions struct {
	// OnlyFreeMedia skips feed and article images and keeps Wikimedia only.
	OnlyFreeMedia            bool
	FallbackToGenericIfEmpty bool
	ContextURL               string
	ContextText              string
	ExcludeURLs              []string
}

// searchCache keeps Commons responses for the lifetime of one resolver so
// repeated queries within a run hit the network once.
type searchCache struct {
	mu      sync.RWMutex
	entries map[string]*commonsResponse
}

func newSearchCache() *searchCache {
	return &searchCache{entries: make(map[string]*commonsResponse)}
}

func (c *searchCache) get(key string) (*commonsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *searchCache) put(key string, payload *commonsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = payload
}

// Resolver finds and downloads photos for news items.
type Resolver struct {
	client   *httpx.Client
	vocab    *Vocabulary
	endpoint string
	cache    *searchCache
}

func NewResolver(client *httpx.Client, vocab *Vocabulary) *Resolver {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Resolver{
		client:   client,
		vocab:    vocab,
		endpoint: commonsEndpoint,
		cache:    newSearchCache(),
	}
}

// WithEndpoint overrides the Commons API endpoint.
func (r *Resolver) WithEndpoint(endpoint string) *Resolver {
	if strings.TrimSpace(endpoint) != "" {
		r.endpoint = endpoint
	}
	return r
}

func makeDefaultCandidates(urls []string, provider model.PhotoProvider) []Candidate {
	candidates := make([]Candidate, 0, len(urls))
	for _, u := range urls {
		candidates = append(candidates, Candidate{
			URL:            u,
			Provider:       provider,
			License:        defaultUnknownLicense,
			Credit:         defaultUnknownCredit,
			AttributionURL: u,
		})
	}
	return candidates
}

// ResolveCandidates collects photo candidates for one item: source page
// images first unless restricted to free media, then Wikimedia Commons with
// progressively looser fallbacks. The result is deduped, filtered against
// already-used URLs and sorted by relevance.
func (r *Resolver) ResolveCandidates(ctx context.Context, title string, feedImageURLs, articleImageURLs []string, opts ResolveOptions) []Candidate {
	var candidates []Candidate

	if !opts.OnlyFreeMedia {
		candidates = append(candidates, makeDefaultCandidates(uniqueHTTPURLs(feedImageURLs, maxPageImageURLs), model.ProviderFeed)...)
		candidates = append(candidates, makeDefaultCandidates(uniqueHTTPURLs(articleImageURLs, maxPageImageURLs), model.ProviderArticle)...)
	}

	if len(candidates) >= maxImagesPerItem {
		return candidates
	}

	urlTokens := r.vocab.ExtractSearchTokensFromURL(opts.ContextURL)
	titleTokens := r.vocab.ExtractSearchTokens(title)
	contentTokens := r.vocab.ExtractSearchTokensFromContent(opts.ContextText)

	// URL tokens carry the canonical latin brand/model slug; when present,
	// translated title tokens without latin or digit context only add noise.
	if len(urlTokens) > 0 {
		var filtered []string
		for _, token := range titleTokens {
			if alnumRe.MatchString(token) {
				filtered = append(filtered, token)
			}
		}
		titleTokens = filtered
	}

	raw := uniqueTokens(append(append(append([]string{}, urlTokens...), titleTokens...), contentTokens...))
	if len(raw) > maxRawSearchTokens {
		raw = raw[:maxRawSearchTokens]
	}
	searchTokens := r.vocab.PrioritizeSearchTokens(expandSearchTokens(raw))
	if len(searchTokens) > maxSearchTokens {
		searchTokens = searchTokens[:maxSearchTokens]
	}

	automotiveIntent := r.vocab.hasAutomotiveIntent(title, opts.ContextURL, opts.ContextText, searchTokens)

	for _, query := range r.vocab.buildWikimediaQueries(title, searchTokens) {
		candidates = append(candidates, r.searchCommons(ctx, query, wikimediaCandidateLimit, searchTokens, relevanceStrict, automotiveIntent)...)
		if len(candidates) >= wikimediaCandidateLimit {
			break
		}
	}

	if len(candidates) == 0 && opts.FallbackToGenericIfEmpty {
		for _, query := range r.vocab.buildBrandFallbackQueries(searchTokens) {
			candidates = append(candidates, r.searchCommons(ctx, query, wikimediaCandidateLimit, searchTokens, relevanceBrandFallback, automotiveIntent)...)
			if len(candidates) >= wikimediaCandidateLimit {
				break
			}
		}
	}

	if len(candidates) == 0 && opts.FallbackToGenericIfEmpty {
		for _, query := range r.vocab.buildContextFallbackQueries(searchTokens) {
			candidates = append(candidates, r.searchCommons(ctx, query, wikimediaCandidateLimit, searchTokens, relevanceStrict, automotiveIntent)...)
			if len(candidates) >= wikimediaCandidateLimit {
				break
			}
		}
	}

	if len(candidates) == 0 && opts.FallbackToGenericIfEmpty && automotiveIntent {
		var relevanceTokens []string
		for _, token := range searchTokens {
			if r.vocab.Brands[token] || r.vocab.ContextTokens[token] {
				relevanceTokens = append(relevanceTokens, token)
			}
		}
		if len(relevanceTokens) == 0 {
			relevanceTokens = []string{"car", "automobile", "vehicle", "auto"}
		}
		for _, query := range rotateBySeed(r.vocab.GenericQueries, title) {
			candidates = append(candidates, r.searchCommons(ctx, query, extendedCandidateLimit, relevanceTokens, relevanceVisualOnly, true)...)
			if len(candidates) >= extendedCandidateLimit {
				break
			}
		}
	}

	if len(candidates) == 0 && opts.FallbackToGenericIfEmpty && !automotiveIntent {
		for _, query := range r.vocab.buildTopicFallbackQueries(title, searchTokens) {
			candidates = append(candidates, r.searchCommons(ctx, query, extendedCandidateLimit, searchTokens, relevanceStrict, false)...)
			if len(candidates) >= extendedCandidateLimit {
				break
			}
		}
	}

	excluded := make(map[string]bool, len(opts.ExcludeURLs))
	for _, u := range opts.ExcludeURLs {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			excluded[trimmed] = true
		}
	}

	seen := make(map[string]bool, len(candidates))
	deduped := candidates[:0]
	for _, candidate := range candidates {
		metaText := strings.ToLower(candidate.URL + " " + candidate.AttributionURL)
		if r.vocab.looksNonPhotographic(metaText) {
			continue
		}
		if seen[candidate.URL] {
			continue
		}
		seen[candidate.URL] = true
		deduped = append(deduped, candidate)
	}

	sortByRelevance := func(items []Candidate) []Candidate {
		sorted := make([]Candidate, len(items))
		copy(sorted, items)
		sort.SliceStable(sorted, func(i, j int) bool {
			return r.vocab.scoreCandidate(sorted[i], searchTokens, automotiveIntent) >
				r.vocab.scoreCandidate(sorted[j], searchTokens, automotiveIntent)
		})
		return sorted
	}

	fresh := make([]Candidate, 0, len(deduped))
	for _, candidate := range deduped {
		if !excluded[candidate.URL] {
			fresh = append(fresh, candidate)
		}
	}
	if len(fresh) > 0 || len(excluded) == 0 {
		return sortByRelevance(fresh)
	}

	// Every matching candidate was already used in this run. Reuse beats
	// publishing the item without photos.
	return sortByRelevance(deduped)
}

// DownloadCandidates fetches candidates into articleDir/images until the
// per-item limit is reached. Photos barred by the rights policy are skipped
// before any download happens.
func (r *Resolver) DownloadCandidates(ctx context.Context, candidates []Candidate, workspaceRoot, articleDir string) []model.PhotoAsset {
	if len(candidates) == 0 {
		return nil
	}

	imageDir := filepath.Join(articleDir, "images")
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		logger.Error("create image dir failed", "dir", imageDir, "error", err)
		return nil
	}

	var out []model.PhotoAsset
	seenURLs := make(map[string]bool, len(candidates))

	for _, candidate := range candidates {
		if len(out) >= maxImagesPerItem {
			break
		}
		if seenURLs[candidate.URL] {
			continue
		}
		seenURLs[candidate.URL] = true

		if IsUnknownLicenseText(candidate.License) &&
			HasEditedOrMirroredMarkers(candidate.URL, candidate.AttributionURL, candidate.Credit) {
			continue
		}

		image := r.client.FetchImage(ctx, candidate.URL)
		if image == nil {
			continue
		}

		fileName := fmt.Sprintf("photo-%d%s", len(out)+1, httpx.ExtensionForContentType(image.ContentType))
		absolutePath := filepath.Join(imageDir, fileName)
		if err := os.WriteFile(absolutePath, image.Data, 0o644); err != nil {
			logger.Error("write image failed", "path", absolutePath, "error", err)
			continue
		}

		localPath := absolutePath
		if rel, err := filepath.Rel(workspaceRoot, absolutePath); err == nil {
			localPath = filepath.ToSlash(rel)
		}

		out = append(out, model.PhotoAsset{
			SourceURL:      candidate.URL,
			LocalPath:      localPath,
			Provider:       candidate.Provider,
			License:        candidate.License,
			Credit:         candidate.Credit,
			AttributionURL: candidate.AttributionURL,
		})
	}

	return out
}
