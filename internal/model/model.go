// Package model holds the shared data types that flow through the pipeline.
package model

// RightsFlag controls excerpting and whether third-party images may be reused.
type RightsFlag string

const (
	RightsOfficialPress RightsFlag = "official_press"
	RightsQuoteOnly     RightsFlag = "quote_only"
	RightsUnknown       RightsFlag = "unknown"
)

// ResourceHealthStatus is the per-source outcome of one run.
type ResourceHealthStatus string

const (
	StatusOK     ResourceHealthStatus = "ok"
	StatusEmpty  ResourceHealthStatus = "empty"
	StatusFailed ResourceHealthStatus = "failed"
)

// Source is one configured press source, immutable per run.
type Source struct {
	ID          string
	Name        string
	Source      string
	URL         string
	FeedURL     string
	Enabled     bool
	MaxItems    int
	RightsFlag  RightsFlag
	LicenseText string
}

// CollectedItem is a candidate item produced by collection. It exists only
// during one run before being saved or discarded.
type CollectedItem struct {
	SourceID               string     `json:"source_id"`
	Title                  string     `json:"title"`
	Content                string     `json:"content"`
	URL                    string     `json:"url"`
	Source                 string     `json:"source"`
	PublishedAt            string     `json:"published_at"`
	PublishedDate          string     `json:"published_date"`
	PublishedTime          string     `json:"published_time"`
	RightsFlag             RightsFlag `json:"rights_flag"`
	LicenseText            string     `json:"license_text"`
	FeedImageCandidates    []string   `json:"feed_image_candidates"`
	ArticleImageCandidates []string   `json:"article_image_candidates"`
}

// PhotoProvider tags where a saved photo came from.
type PhotoProvider string

const (
	ProviderFeed      PhotoProvider = "feed"
	ProviderArticle   PhotoProvider = "article"
	ProviderWikimedia PhotoProvider = "wikimedia"
)

// PhotoAsset is one downloaded image attached to a persisted item. Every
// asset must correspond to a file that exists on disk; backfill reconciles
// and drops assets whose file went missing.
type PhotoAsset struct {
	SourceURL      string        `json:"source_url"`
	LocalPath      string        `json:"local_path"`
	Provider       PhotoProvider `json:"provider"`
	License        string        `json:"license"`
	Credit         string        `json:"credit"`
	AttributionURL string        `json:"attribution_url"`
}

// NewsItem is the persisted form of a collected item.
type NewsItem struct {
	ID            string       `json:"id"`
	SourceID      string       `json:"source_id,omitempty"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	URL           string       `json:"url"`
	Source        string       `json:"source"`
	PublishedAt   string       `json:"published_at"`
	PublishedDate string       `json:"published_date"`
	PublishedTime string       `json:"published_time"`
	ScrapedAt     string       `json:"scraped_at"`
	ArticlePath   string       `json:"article_path"`
	RightsFlag    RightsFlag   `json:"rights_flag"`
	LicenseText   string       `json:"license_text"`
	Photos        []PhotoAsset `json:"photos"`
}

// ResourceRunReport records how one source behaved during one run.
type ResourceRunReport struct {
	SourceID       string               `json:"source_id"`
	SourceName     string               `json:"source_name"`
	Source         string               `json:"source"`
	SourceURL      string               `json:"source_url"`
	FeedURL        string               `json:"feed_url"`
	Status         ResourceHealthStatus `json:"status"`
	Error          string               `json:"error"`
	FeedEntries    int                  `json:"feed_entries"`
	CollectedItems int                  `json:"collected_items"`
	FreshItems     int                  `json:"fresh_items"`
}

// ResourceTotals aggregates source statuses across a run or a day.
type ResourceTotals struct {
	TotalResources  int `json:"total_resources"`
	OKResources     int `json:"ok_resources"`
	EmptyResources  int `json:"empty_resources"`
	FailedResources int `json:"failed_resources"`
}

// RunSummary is written once per run.
type RunSummary struct {
	RunID            string              `json:"run_id"`
	RunPath          string              `json:"run_path"`
	GeneratedAt      string              `json:"generated_at"`
	TotalItems       int                 `json:"total_items"`
	CollectedItems   int                 `json:"collected_items"`
	SkippedSeenItems int                 `json:"skipped_seen_items"`
	ResourceTotals   ResourceTotals      `json:"resource_totals"`
	SourceReports    []ResourceRunReport `json:"source_reports"`
}

// RunHistorySnapshot keeps every run summary, newest first.
type RunHistorySnapshot struct {
	UpdatedAt string       `json:"updated_at"`
	Runs      []RunSummary `json:"runs"`
}

// DailySourceHealth counts per-source outcomes within one calendar day.
type DailySourceHealth struct {
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	Source     string `json:"source"`
	OKRuns     int    `json:"ok_runs"`
	EmptyRuns  int    `json:"empty_runs"`
	FailedRuns int    `json:"failed_runs"`
}

// DailyHealthReport classifies every source observed on one day into exactly
// one of the good/failed/flaky buckets.
type DailyHealthReport struct {
	Date            string              `json:"date"`
	RunCount        int                 `json:"run_count"`
	ItemsSaved      int                 `json:"items_saved"`
	ResourceChecks  ResourceTotals      `json:"resource_checks"`
	FailedResources []DailySourceHealth `json:"failed_resources"`
	GoodResources   []DailySourceHealth `json:"good_resources"`
	FlakyResources  []DailySourceHealth `json:"flaky_resources"`
}

// DailyHealthSnapshot is the full per-day health document, newest day first.
type DailyHealthSnapshot struct {
	GeneratedAt string              `json:"generated_at"`
	Days        []DailyHealthReport `json:"days"`
}

// SeenIndex maps identity keys to the timestamp of the run that first saw
// them. It only ever grows.
type SeenIndex struct {
	Version   int               `json:"version"`
	UpdatedAt string            `json:"updated_at"`
	Keys      map[string]string `json:"keys"`
}

// CollectProgress reports per-source progress during collection.
type CollectProgress struct {
	TotalSources      int    `json:"total_sources"`
	CompletedSources  int    `json:"completed_sources"`
	CurrentSourceID   string `json:"current_source_id"`
	CurrentSourceName string `json:"current_source_name"`
}

// TranslateProgress reports per-item progress during translation.
type TranslateProgress struct {
	TotalItems       int    `json:"total_items"`
	CompletedItems   int    `json:"completed_items"`
	CurrentItemTitle string `json:"current_item_title"`
}
