package photos

import (
	"os"
	"path/filepath"
	"strings"

	"avtopress/internal/model"
)

// resolvesInsideWorkspace confirms the stored local path stays under the
// workspace root once cleaned and made absolute.
func resolvesInsideWorkspace(workspaceRoot, localPath string) (string, bool) {
	if strings.TrimSpace(localPath) == "" {
		return "", false
	}
	rootAbs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return "", false
	}
	candidate := localPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(rootAbs, candidate)
	}
	candidate = filepath.Clean(candidate)
	rel, err := filepath.Rel(rootAbs, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return candidate, true
}

// PhotoFileExists checks that the asset points to a non-empty file inside
// the workspace.
func PhotoFileExists(workspaceRoot string, photo model.PhotoAsset) bool {
	resolved, ok := resolvesInsideWorkspace(workspaceRoot, photo.LocalPath)
	if !ok {
		return false
	}
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Size() > 0
}

// FilterPhotosWithExistingFiles drops assets whose backing file is missing,
// empty or escapes the workspace.
func FilterPhotosWithExistingFiles(workspaceRoot string, photos []model.PhotoAsset) []model.PhotoAsset {
	if len(photos) == 0 {
		return nil
	}
	kept := make([]model.PhotoAsset, 0, len(photos))
	for _, photo := range photos {
		if PhotoFileExists(workspaceRoot, photo) {
			kept = append(kept, photo)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
