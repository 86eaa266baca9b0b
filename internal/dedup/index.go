package dedup

import (
	"encoding/json"
	"os"
	"strings"

	"avtopress/internal/logger"
	"avtopress/internal/model"
)

// NewSeenIndex returns an empty versioned index.
func NewSeenIndex(scrapedAt string) *model.SeenIndex {
	return &model.SeenIndex{
		Version:   1,
		UpdatedAt: scrapedAt,
		Keys:      make(map[string]string),
	}
}

// ReadJSONFileSafe reads and unmarshals a JSON document. Any failure
// (missing file, invalid JSON) yields false so callers fall back to a
// well-defined default instead of aborting.
func ReadJSONFileSafe(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	trimmed := strings.TrimPrefix(string(data), "\ufeff")
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return false
	}
	return true
}

// LoadSeenIndex loads the seen index, or seeds it from the current snapshot
// when the index file is missing or invalid. Seeding keeps a first run
// after index loss from resurrecting every historical item as fresh.
func LoadSeenIndex(indexPath, snapshotPath, scrapedAt string) *model.SeenIndex {
	var fromFile model.SeenIndex
	if ReadJSONFileSafe(indexPath, &fromFile) && fromFile.Version == 1 && fromFile.Keys != nil {
		return &fromFile
	}

	seeded := NewSeenIndex(scrapedAt)

	var snapshot []model.NewsItem
	if !ReadJSONFileSafe(snapshotPath, &snapshot) || len(snapshot) == 0 {
		return seeded
	}

	for _, item := range snapshot {
		for _, key := range Keys(KeyableFromNews(item)) {
			seeded.Keys[key] = scrapedAt
		}
	}
	logger.Info("seeded seen index from snapshot", "keys", len(seeded.Keys))

	return seeded
}

// FilterSeen drops items whose keys are already registered and registers
// the keys of every surviving item under the current run timestamp.
func FilterSeen(items []model.CollectedItem, index *model.SeenIndex, scrapedAt string) (fresh []model.CollectedItem, skipped int) {
	for _, item := range items {
		keys := Keys(KeyableFromCollected(item))

		alreadySeen := false
		for _, key := range keys {
			if _, ok := index.Keys[key]; ok {
				alreadySeen = true
				break
			}
		}
		if alreadySeen {
			skipped++
			continue
		}

		fresh = append(fresh, item)
		for _, key := range keys {
			index.Keys[key] = scrapedAt
		}
	}
	return fresh, skipped
}
