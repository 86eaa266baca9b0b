// Package sink pushes persisted news items into the external Postgres
// database the publishing site reads from, and manages the local list of
// item ids excluded from that push.
package sink

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"avtopress/internal/dedup"
	"avtopress/internal/model"
	"avtopress/internal/storage"
)

const maxItemIDLength = 200

var itemIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// excludedIDsFile is the on-disk shape of the exclusion list.
type excludedIDsFile struct {
	Version     int      `json:"version"`
	UpdatedAt   string   `json:"updated_at"`
	ExcludedIDs []string `json:"excluded_ids"`
}

// ValidateItemID rejects ids that could not have been produced by the
// scraper. Returns the trimmed id.
func ValidateItemID(value string) (string, error) {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return "", fmt.Errorf("id must be a non-empty string")
	}
	if len(normalized) > maxItemIDLength {
		return "", fmt.Errorf("id is too long (max %d characters)", maxItemIDLength)
	}
	if !itemIDPattern.MatchString(normalized) {
		return "", fmt.Errorf("id contains unsupported characters")
	}
	return normalized, nil
}

func uniqueSortedIDs(ids []string) []string {
	set := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || set[id] {
			continue
		}
		set[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ListExcludedIDs reads the exclusion file. A missing or malformed file is
// an empty list, never an error.
func ListExcludedIDs(path string) []string {
	var file excludedIDsFile
	if !dedup.ReadJSONFileSafe(path, &file) {
		return []string{}
	}
	if file.Version != 1 {
		return []string{}
	}
	return uniqueSortedIDs(file.ExcludedIDs)
}

// AddExcludedID appends one id to the exclusion file. It reports whether
// the id was new and returns the full sorted list.
func AddExcludedID(path, itemID string) (bool, []string, error) {
	id, err := ValidateItemID(itemID)
	if err != nil {
		return false, nil, err
	}

	existing := ListExcludedIDs(path)
	for _, known := range existing {
		if known == id {
			return false, existing, nil
		}
	}

	updated := uniqueSortedIDs(append(existing, id))
	payload := excludedIDsFile{
		Version:     1,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
		ExcludedIDs: updated,
	}
	if err := storage.WriteJSONFile(path, payload); err != nil {
		return false, nil, err
	}
	return true, updated, nil
}

// FilterExcludedItems drops items whose id is on the exclusion list and
// reports how many were removed.
func FilterExcludedItems(items []model.NewsItem, excludedIDs []string) ([]model.NewsItem, int) {
	if len(excludedIDs) == 0 {
		return items, 0
	}
	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}

	kept := make([]model.NewsItem, 0, len(items))
	for _, item := range items {
		if excluded[item.ID] {
			continue
		}
		kept = append(kept, item)
	}
	return kept, len(items) - len(kept)
}
