// Package backfill repairs persisted runs after the fact: items that ended
// up without photos get a second resolution pass, and items whose text kept
// untranslated fragments get retranslated.
package backfill

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"avtopress/internal/dedup"
	"avtopress/internal/logger"
	"avtopress/internal/model"
	"avtopress/internal/photos"
	"avtopress/internal/storage"
	"avtopress/internal/textutil"
)

const (
	photoAttemptsPerItem = 2
	photoRetryDelayBase  = 450 * time.Millisecond
)

// PhotoOptions selects which run to backfill. An empty RunPath falls back
// to the run recorded in latest_run.json.
type PhotoOptions struct {
	RunPath string
}

// PhotoSummary reports what one photo backfill pass changed.
type PhotoSummary struct {
	RunPath             string `json:"run_path"`
	ScannedItems        int    `json:"scanned_items"`
	CleanedItems        int    `json:"cleaned_items"`
	MissingBefore       int    `json:"missing_before"`
	UpdatedItems        int    `json:"updated_items"`
	UpdatedPhotos       int    `json:"updated_photos"`
	SyncedSnapshotItems int    `json:"synced_snapshot_items"`
	RemainingMissing    int    `json:"remaining_missing"`
}

type snapshotIndex struct {
	byID          map[string]int
	byArticlePath map[string]int
}

func indexSnapshot(items []model.NewsItem) snapshotIndex {
	index := snapshotIndex{
		byID:          make(map[string]int, len(items)),
		byArticlePath: make(map[string]int, len(items)),
	}
	for i, item := range items {
		if item.ID != "" {
			index.byID[item.ID] = i
		}
		if item.ArticlePath != "" {
			index.byArticlePath[item.ArticlePath] = i
		}
	}
	return index
}

func (idx snapshotIndex) find(item model.NewsItem) (int, bool) {
	if item.ID != "" {
		if i, ok := idx.byID[item.ID]; ok {
			return i, true
		}
	}
	if item.ArticlePath != "" {
		if i, ok := idx.byArticlePath[item.ArticlePath]; ok {
			return i, true
		}
	}
	return 0, false
}

func collectUsedWikimediaURLs(items []model.NewsItem) map[string]bool {
	used := make(map[string]bool)
	for _, item := range items {
		for _, photo := range item.Photos {
			if photo.Provider == model.ProviderWikimedia && photo.SourceURL != "" {
				used[photo.SourceURL] = true
			}
		}
	}
	return used
}

func countMissingPhotos(items []model.NewsItem) int {
	missing := 0
	for _, item := range items {
		if len(item.Photos) == 0 {
			missing++
		}
	}
	return missing
}

func setKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	return keys
}

// backfillItemPhotos retries the full resolve-and-download pass with a
// growing delay; the extended generic fallback is always on here because
// the regular save pass already failed once.
func backfillItemPhotos(ctx context.Context, store *storage.Store, item model.NewsItem, used map[string]bool) []model.PhotoAsset {
	articleDir := store.AbsPath(item.ArticlePath)

	for attempt := 0; attempt < photoAttemptsPerItem; attempt++ {
		candidates := store.Resolver.ResolveCandidates(ctx, item.Title, nil, nil, photos.ResolveOptions{
			OnlyFreeMedia:            item.RightsFlag == model.RightsQuoteOnly,
			FallbackToGenericIfEmpty: true,
			ContextURL:               item.URL,
			ContextText:              item.Content,
			ExcludeURLs:              setKeys(used),
		})
		assets := store.Resolver.DownloadCandidates(ctx, candidates, store.Root, articleDir)
		if len(assets) > 0 {
			return assets
		}

		if attempt < photoAttemptsPerItem-1 {
			logger.Debug("retrying photo backfill", "title", textutil.TrimContent(item.Title, 90))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(photoRetryDelayBase * time.Duration(attempt+1)):
			}
		}
	}
	return nil
}

// MissingPhotosForRun finds items of one run that have no photos, resolves
// and downloads replacements, and propagates the new assets into the run
// file and the merged snapshot.
func MissingPhotosForRun(ctx context.Context, store *storage.Store, opts PhotoOptions) (PhotoSummary, error) {
	runPath := opts.RunPath
	if runPath == "" {
		runPath = store.LatestRunPath()
	}
	if runPath == "" {
		return PhotoSummary{}, fmt.Errorf("no run path given and latest_run.json has none")
	}
	runDir := store.AbsPath(runPath)
	runNewsPath := filepath.Join(runDir, "news.json")

	var runItems []model.NewsItem
	if !dedup.ReadJSONFileSafe(runNewsPath, &runItems) {
		return PhotoSummary{}, fmt.Errorf("read run news: %s", runNewsPath)
	}
	snapshotItems := store.ReadSnapshot()
	index := indexSnapshot(snapshotItems)

	summary := PhotoSummary{
		RunPath:      runPath,
		ScannedItems: len(runItems),
	}

	// Reconcile first: drop references whose file went missing so the
	// items become eligible for re-resolution below.
	for i := range runItems {
		kept := photos.FilterPhotosWithExistingFiles(store.Root, runItems[i].Photos)
		if len(kept) == len(runItems[i].Photos) {
			continue
		}
		runItems[i].Photos = kept
		summary.CleanedItems++
		if err := storage.SaveArticleFileSet(runItems[i], store.AbsPath(runItems[i].ArticlePath)); err != nil {
			return summary, err
		}
		if snapIdx, ok := index.find(runItems[i]); ok {
			snapshotItems[snapIdx].Photos = kept
		}
		logger.Info("dropped stale photo references", "title", textutil.TrimContent(runItems[i].Title, 90))
	}

	used := collectUsedWikimediaURLs(runItems)
	missingBefore := countMissingPhotos(runItems)
	summary.MissingBefore = missingBefore

	if store.Resolver == nil {
		if summary.CleanedItems > 0 {
			if err := storage.WriteJSONFile(runNewsPath, runItems); err != nil {
				return summary, err
			}
			if err := storage.WriteJSONFile(store.OutputPath, snapshotItems); err != nil {
				return summary, err
			}
		}
		summary.RemainingMissing = missingBefore
		return summary, nil
	}

	for i := range runItems {
		if len(runItems[i].Photos) > 0 {
			continue
		}

		assets := backfillItemPhotos(ctx, store, runItems[i], used)
		if len(assets) == 0 {
			continue
		}

		runItems[i].Photos = assets
		if err := storage.SaveArticleFileSet(runItems[i], store.AbsPath(runItems[i].ArticlePath)); err != nil {
			return summary, err
		}

		if snapIdx, ok := index.find(runItems[i]); ok {
			snapshotItems[snapIdx].Photos = assets
			summary.SyncedSnapshotItems++
		}

		for _, photo := range assets {
			if photo.Provider == model.ProviderWikimedia && photo.SourceURL != "" {
				used[photo.SourceURL] = true
			}
		}

		summary.UpdatedItems++
		summary.UpdatedPhotos += len(assets)
		logger.Info("backfilled photos", "title", textutil.TrimContent(runItems[i].Title, 90), "photos", len(assets))
	}

	if summary.UpdatedItems > 0 || summary.CleanedItems > 0 {
		if err := storage.WriteJSONFile(runNewsPath, runItems); err != nil {
			return summary, err
		}
		if err := storage.WriteJSONFile(store.OutputPath, snapshotItems); err != nil {
			return summary, err
		}
	}

	summary.RemainingMissing = countMissingPhotos(runItems)
	return summary, nil
}
