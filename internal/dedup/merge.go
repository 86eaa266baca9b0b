package dedup

import (
	"avtopress/internal/model"
)

// QualityScore ranks duplicate copies of the same story. Longer content
// wins, image candidates weigh heavily, a known publish time breaks near
// ties.
func QualityScore(item model.CollectedItem) int {
	contentWeight := len(item.Content)
	imageWeight := (len(item.FeedImageCandidates) + len(item.ArticleImageCandidates)) * 100
	dateWeight := 0
	if item.PublishedAt != "" {
		dateWeight = 10
	}
	return contentWeight + imageWeight + dateWeight
}

// DedupeBatch merges duplicates within one collected batch. When two items
// share any identity key the higher-scoring copy survives; ties keep the
// existing entry. All keys of a duplicate are re-pointed at the winner so
// later items matching either copy still collapse.
func DedupeBatch(items []model.CollectedItem) []model.CollectedItem {
	var deduped []model.CollectedItem
	keyToIndex := make(map[string]int)

	for _, item := range items {
		keys := Keys(KeyableFromCollected(item))

		existingIndex := -1
		for _, key := range keys {
			if index, ok := keyToIndex[key]; ok {
				existingIndex = index
				break
			}
		}

		if existingIndex == -1 {
			deduped = append(deduped, item)
			nextIndex := len(deduped) - 1
			for _, key := range keys {
				keyToIndex[key] = nextIndex
			}
			continue
		}

		if QualityScore(item) > QualityScore(deduped[existingIndex]) {
			deduped[existingIndex] = item
		}
		for _, key := range keys {
			keyToIndex[key] = existingIndex
		}
	}

	return deduped
}

// MergeUniqueNewsItems appends fresh items to the snapshot, keeping the
// first occurrence under key overlap. Fresh items go first so new data
// wins over stale duplicates already in the snapshot.
func MergeUniqueNewsItems(existing, fresh []model.NewsItem) []model.NewsItem {
	var merged []model.NewsItem
	seenKeys := make(map[string]bool)

	combined := make([]model.NewsItem, 0, len(fresh)+len(existing))
	combined = append(combined, fresh...)
	combined = append(combined, existing...)

	for _, item := range combined {
		keys := Keys(KeyableFromNews(item))

		overlap := false
		for _, key := range keys {
			if seenKeys[key] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}

		merged = append(merged, item)
		for _, key := range keys {
			seenKeys[key] = true
		}
	}

	return merged
}
