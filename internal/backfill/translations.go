package backfill

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"avtopress/internal/dedup"
	"avtopress/internal/logger"
	"avtopress/internal/model"
	"avtopress/internal/storage"
	"avtopress/internal/textutil"
	"avtopress/internal/translate"
)

const (
	titleLatinRatioThreshold   = 0.45
	contentLatinRatioThreshold = 0.2

	minTitleLetters   = 8
	minContentLetters = 25
)

// TranslationOptions configure one snapshot translation pass.
type TranslationOptions struct {
	TargetLanguage string
}

// TranslationSummary reports what one translation backfill pass changed.
type TranslationSummary struct {
	OutputPath          string `json:"output_path"`
	ScannedItems        int    `json:"scanned_items"`
	UpdatedItems        int    `json:"updated_items"`
	UpdatedTitles       int    `json:"updated_titles"`
	UpdatedContents     int    `json:"updated_contents"`
	UpdatedRunFiles     int    `json:"updated_run_files"`
	UpdatedArticleFiles int    `json:"updated_article_files"`
}

func shouldTranslateTitle(title string) bool {
	stats := translate.CollectScriptStats(title)
	if stats.TotalLetters < minTitleLetters {
		return false
	}
	return stats.LatinRatio() >= titleLatinRatioThreshold
}

func shouldRepairContent(content string) bool {
	stats := translate.CollectScriptStats(content)
	if stats.TotalLetters < minContentLetters {
		return false
	}
	return stats.LatinRatio() >= contentLatinRatioThreshold
}

func isUkrainianTarget(targetLanguage string) bool {
	normalized := strings.ToLower(strings.TrimSpace(targetLanguage))
	return normalized == "uk" || strings.HasPrefix(normalized, "uk-")
}

// runNewsCache holds one run's news.json while multiple snapshot items from
// the same run get updated, so the file is rewritten at most once.
type runNewsCache struct {
	entries map[string]*runNewsEntry
}

type runNewsEntry struct {
	filePath      string
	items         []model.NewsItem
	byID          map[string]int
	byArticlePath map[string]int
	changed       bool
}

func newRunNewsCache() *runNewsCache {
	return &runNewsCache{entries: make(map[string]*runNewsEntry)}
}

func (c *runNewsCache) load(runNewsPath string) *runNewsEntry {
	if entry, ok := c.entries[runNewsPath]; ok {
		return entry
	}

	var items []model.NewsItem
	if !dedup.ReadJSONFileSafe(runNewsPath, &items) {
		c.entries[runNewsPath] = nil
		return nil
	}

	entry := &runNewsEntry{
		filePath:      runNewsPath,
		items:         items,
		byID:          make(map[string]int, len(items)),
		byArticlePath: make(map[string]int, len(items)),
	}
	for i, item := range items {
		if item.ID != "" {
			entry.byID[item.ID] = i
		}
		if item.ArticlePath != "" {
			entry.byArticlePath[item.ArticlePath] = i
		}
	}
	c.entries[runNewsPath] = entry
	return entry
}

func (e *runNewsEntry) update(item model.NewsItem) bool {
	if e == nil {
		return false
	}
	if item.ID != "" {
		if i, ok := e.byID[item.ID]; ok {
			e.items[i].Title = item.Title
			e.items[i].Content = item.Content
			e.changed = true
			return true
		}
	}
	if item.ArticlePath != "" {
		if i, ok := e.byArticlePath[item.ArticlePath]; ok {
			e.items[i].Title = item.Title
			e.items[i].Content = item.Content
			e.changed = true
			return true
		}
	}
	return false
}

// SnapshotTranslations walks the merged snapshot, retranslates titles that
// stayed mostly Latin, repairs mixed-script Ukrainian content (or fully
// retranslates for other targets) and propagates changes into article file
// sets and cached run files.
func SnapshotTranslations(ctx context.Context, store *storage.Store, engine *translate.Engine, opts TranslationOptions) (TranslationSummary, error) {
	targetLanguage := opts.TargetLanguage
	if targetLanguage == "" {
		targetLanguage = "uk"
	}

	snapshotItems := store.ReadSnapshot()
	if snapshotItems == nil {
		return TranslationSummary{}, fmt.Errorf("read snapshot: %s", store.OutputPath)
	}

	summary := TranslationSummary{
		OutputPath:   store.OutputPath,
		ScannedItems: len(snapshotItems),
	}
	runCache := newRunNewsCache()

	for i := range snapshotItems {
		item := &snapshotItems[i]
		changed := false
		contentChanged := false
		originalTitle := item.Title
		originalContent := item.Content

		applyContent := func(candidate string) {
			next := strings.TrimSpace(candidate)
			if next == "" || next == item.Content {
				return
			}
			item.Content = next
			changed = true
			if !contentChanged {
				contentChanged = true
				summary.UpdatedContents++
			}
		}

		if shouldTranslateTitle(item.Title) {
			translated := engine.TranslateText(ctx, item.Title, targetLanguage, true)
			if trimmed := strings.TrimSpace(translated); trimmed != "" && trimmed != item.Title {
				item.Title = trimmed
				changed = true
				summary.UpdatedTitles++
			}
		}

		if shouldRepairContent(item.Content) {
			if isUkrainianTarget(targetLanguage) {
				applyContent(engine.RepairMixedUkrainianText(ctx, item.Content))
			} else {
				applyContent(engine.TranslateText(ctx, item.Content, targetLanguage, true))
			}
		}

		if contentChanged {
			applyContent(translate.FormatDenseContent(item.Content))
		}

		if !changed {
			continue
		}

		summary.UpdatedItems++
		logger.Info("backfilled translation", "title", textutil.TrimContent(item.Title, 90))

		articleDir := store.AbsPath(item.ArticlePath)
		if err := storage.SaveArticleFileSet(*item, articleDir); err != nil {
			return summary, err
		}
		summary.UpdatedArticleFiles++

		runNewsPath := filepath.Join(filepath.Dir(articleDir), "news.json")
		runCache.load(runNewsPath).update(*item)

		if strings.TrimSpace(item.Title) == "" {
			item.Title = originalTitle
		}
		if strings.TrimSpace(item.Content) == "" {
			item.Content = originalContent
		}
	}

	if summary.UpdatedItems > 0 {
		if err := storage.WriteJSONFile(store.OutputPath, snapshotItems); err != nil {
			return summary, err
		}
	}

	for _, entry := range runCache.entries {
		if entry == nil || !entry.changed {
			continue
		}
		if err := storage.WriteJSONFile(entry.filePath, entry.items); err != nil {
			return summary, err
		}
		summary.UpdatedRunFiles++
	}

	return summary, nil
}
