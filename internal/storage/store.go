package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"avtopress/internal/dedup"
	"avtopress/internal/logger"
	"avtopress/internal/model"
	"avtopress/internal/photos"
	"avtopress/internal/report"
	"avtopress/internal/textutil"
)

const articleSlugLength = 56

// Store persists run output under the directory holding the snapshot file.
type Store struct {
	// OutputPath is the merged snapshot file, e.g. data/news.json. Run
	// directories, telemetry and the seen index live next to it.
	OutputPath string
	// Root anchors the relative paths recorded inside saved items.
	Root     string
	Resolver *photos.Resolver
}

func New(outputPath, root string, resolver *photos.Resolver) *Store {
	if root == "" {
		if wd, err := os.Getwd(); err == nil {
			root = wd
		}
	}
	return &Store{OutputPath: outputPath, Root: root, Resolver: resolver}
}

func (s *Store) outputDir() string { return filepath.Dir(s.OutputPath) }
func (s *Store) runsDir() string   { return filepath.Join(s.outputDir(), "runs") }

func (s *Store) seenIndexPath() string {
	return filepath.Join(s.outputDir(), "seen_news_index.json")
}

// LatestRunPath reads latest_run.json and returns the recorded run path, or
// "" when no run was saved yet.
func (s *Store) LatestRunPath() string {
	var summary model.RunSummary
	if !dedup.ReadJSONFileSafe(filepath.Join(s.outputDir(), "latest_run.json"), &summary) {
		return ""
	}
	return summary.RunPath
}

func (s *Store) relPath(absPath string) string {
	if rel, err := filepath.Rel(s.Root, absPath); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(absPath)
}

// AbsPath resolves a stored workspace-relative path back to an absolute one.
func (s *Store) AbsPath(storedPath string) string {
	if filepath.IsAbs(storedPath) {
		return filepath.Clean(storedPath)
	}
	return filepath.Join(s.Root, filepath.FromSlash(storedPath))
}

// ReadSnapshot loads the merged snapshot; a missing or corrupt file reads
// as empty.
func (s *Store) ReadSnapshot() []model.NewsItem {
	var items []model.NewsItem
	dedup.ReadJSONFileSafe(s.OutputPath, &items)
	return items
}

// SaveArticleFileSet writes article.json and article.md for one item.
func SaveArticleFileSet(item model.NewsItem, articleDir string) error {
	if err := WriteJSONFile(filepath.Join(articleDir, "article.json"), item); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(articleDir, "article.md"), []byte(RenderArticleMarkdown(item)), 0o644)
}

// uniqueArticleFolderName derives a stable folder name from title and URL,
// suffixing on collision within the run.
func uniqueArticleFolderName(title, url string, used map[string]bool) string {
	base := textutil.Slugify(title, articleSlugLength) + "-" + textutil.ShortHash(url, 10)
	name := base
	for suffix := 1; used[name]; suffix++ {
		name = fmt.Sprintf("%s-%d", base, suffix)
	}
	used[name] = true
	return name
}

// SaveOutput persists one run: filters already-seen items, resolves and
// downloads photos, writes the per-article file sets, merges the snapshot
// and refreshes summary, history and health telemetry.
func (s *Store) SaveOutput(ctx context.Context, items []model.CollectedItem, scrapedAt string, sourceReports []model.ResourceRunReport) (model.RunSummary, error) {
	runID := model.RunIDFromTimestamp(scrapedAt)
	runDir := filepath.Join(s.runsDir(), runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return model.RunSummary{}, fmt.Errorf("create run dir: %w", err)
	}

	seenIndex := dedup.LoadSeenIndex(s.seenIndexPath(), s.OutputPath, scrapedAt)
	fresh, skipped := dedup.FilterSeen(items, seenIndex, scrapedAt)
	if skipped > 0 {
		logger.Info("skipped already-seen items", "count", skipped)
	}

	savedItems := make([]model.NewsItem, 0, len(fresh))
	usedFolderNames := make(map[string]bool)
	usedWikimediaURLs := make(map[string]bool)

	for _, item := range fresh {
		folderName := uniqueArticleFolderName(item.Title, item.URL, usedFolderNames)
		articleDir := filepath.Join(runDir, folderName)
		if err := os.MkdirAll(articleDir, 0o755); err != nil {
			return model.RunSummary{}, fmt.Errorf("create article dir: %w", err)
		}

		itemPhotos := s.resolveItemPhotos(ctx, item, articleDir, usedWikimediaURLs)
		for _, photo := range itemPhotos {
			if photo.Provider == model.ProviderWikimedia {
				usedWikimediaURLs[photo.SourceURL] = true
			}
		}

		saved := model.NewsItem{
			ID:            textutil.ShortHash(item.URL, 10),
			SourceID:      item.SourceID,
			Title:         item.Title,
			Content:       item.Content,
			URL:           item.URL,
			Source:        item.Source,
			PublishedAt:   item.PublishedAt,
			PublishedDate: item.PublishedDate,
			PublishedTime: item.PublishedTime,
			ScrapedAt:     scrapedAt,
			ArticlePath:   s.relPath(articleDir),
			RightsFlag:    item.RightsFlag,
			LicenseText:   item.LicenseText,
			Photos:        itemPhotos,
		}

		if err := SaveArticleFileSet(saved, articleDir); err != nil {
			return model.RunSummary{}, err
		}
		savedItems = append(savedItems, saved)
	}

	merged := dedup.MergeUniqueNewsItems(s.ReadSnapshot(), savedItems)
	if err := WriteJSONFile(s.OutputPath, merged); err != nil {
		return model.RunSummary{}, err
	}
	if err := WriteJSONFile(filepath.Join(runDir, "news.json"), savedItems); err != nil {
		return model.RunSummary{}, err
	}

	reportsWithFresh := report.ApplyFreshItemCounts(sourceReports, savedItems)
	summary := model.RunSummary{
		RunID:            runID,
		RunPath:          s.relPath(runDir),
		GeneratedAt:      scrapedAt,
		TotalItems:       len(savedItems),
		CollectedItems:   len(items),
		SkippedSeenItems: skipped,
		ResourceTotals:   report.ComputeResourceTotals(reportsWithFresh),
		SourceReports:    reportsWithFresh,
	}

	if err := WriteJSONFile(filepath.Join(runDir, "run_summary.json"), summary); err != nil {
		return model.RunSummary{}, err
	}
	if err := WriteJSONFile(filepath.Join(s.outputDir(), "latest_run.json"), summary); err != nil {
		return model.RunSummary{}, err
	}

	historyPath := filepath.Join(s.outputDir(), "run_history.json")
	historyRaw, _ := os.ReadFile(historyPath)
	history := report.UpsertRunHistory(report.NormalizeRunHistory(historyRaw, scrapedAt), summary, scrapedAt)
	if err := WriteJSONFile(historyPath, history); err != nil {
		return model.RunSummary{}, err
	}

	health := report.BuildDailyHealthSnapshot(history.Runs, scrapedAt)
	if err := WriteJSONFile(filepath.Join(s.outputDir(), "daily_health.json"), health); err != nil {
		return model.RunSummary{}, err
	}

	seenIndex.UpdatedAt = scrapedAt
	if err := WriteJSONFile(s.seenIndexPath(), seenIndex); err != nil {
		return model.RunSummary{}, err
	}

	if summary.ResourceTotals.FailedResources > 0 {
		logger.Warn("sources failed in run", "count", summary.ResourceTotals.FailedResources)
	}
	logger.Info("run saved", "run_path", summary.RunPath, "items", summary.TotalItems)
	return summary, nil
}

// resolveItemPhotos tries item-specific candidates first, then retries with
// the free-media-only generic fallback so no item ships without photos when
// any usable free image exists.
func (s *Store) resolveItemPhotos(ctx context.Context, item model.CollectedItem, articleDir string, usedWikimediaURLs map[string]bool) []model.PhotoAsset {
	if s.Resolver == nil {
		return nil
	}

	exclude := make([]string, 0, len(usedWikimediaURLs))
	for url := range usedWikimediaURLs {
		exclude = append(exclude, url)
	}

	candidates := s.Resolver.ResolveCandidates(ctx, item.Title, item.FeedImageCandidates, item.ArticleImageCandidates, photos.ResolveOptions{
		OnlyFreeMedia: item.RightsFlag == model.RightsQuoteOnly,
		ContextURL:    item.URL,
		ExcludeURLs:   exclude,
	})
	assets := s.Resolver.DownloadCandidates(ctx, candidates, s.Root, articleDir)
	if len(assets) > 0 {
		return assets
	}

	fallback := s.Resolver.ResolveCandidates(ctx, item.Title, nil, nil, photos.ResolveOptions{
		OnlyFreeMedia:            true,
		FallbackToGenericIfEmpty: true,
		ContextURL:               item.URL,
		ExcludeURLs:              exclude,
	})
	assets = s.Resolver.DownloadCandidates(ctx, fallback, s.Root, articleDir)
	if len(assets) > 0 {
		logger.Debug("found fallback free image", "title", textutil.TrimContent(item.Title, 80))
	}
	return assets
}
