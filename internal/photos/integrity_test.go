package photos

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avtopress/internal/model"
)

func writeTempPhoto(t *testing.T, root, rel string, data []byte) string {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, data, 0o644))
	return rel
}

func TestPhotoFileExists(t *testing.T) {
	root := t.TempDir()
	rel := writeTempPhoto(t, root, "data/run/article/images/photo-1.jpg", []byte{0xff, 0xd8})

	assert.True(t, PhotoFileExists(root, model.PhotoAsset{LocalPath: rel}))
	assert.False(t, PhotoFileExists(root, model.PhotoAsset{LocalPath: "data/run/missing.jpg"}))
}

func TestPhotoFileExistsRejectsEmptyFile(t *testing.T) {
	root := t.TempDir()
	rel := writeTempPhoto(t, root, "images/empty.jpg", nil)
	assert.False(t, PhotoFileExists(root, model.PhotoAsset{LocalPath: rel}))
}

func TestPhotoFileExistsRejectsEscapingPath(t *testing.T) {
	root := t.TempDir()
	assert.False(t, PhotoFileExists(root, model.PhotoAsset{LocalPath: "../outside.jpg"}))
	assert.False(t, PhotoFileExists(root, model.PhotoAsset{LocalPath: ""}))
}

func TestFilterPhotosWithExistingFiles(t *testing.T) {
	root := t.TempDir()
	rel := writeTempPhoto(t, root, "images/photo-1.jpg", []byte{1, 2, 3})

	photos := []model.PhotoAsset{
		{LocalPath: rel},
		{LocalPath: "images/gone.jpg"},
	}
	kept := FilterPhotosWithExistingFiles(root, photos)
	require.Len(t, kept, 1)
	assert.Equal(t, rel, kept[0].LocalPath)

	assert.Nil(t, FilterPhotosWithExistingFiles(root, []model.PhotoAsset{{LocalPath: "nope.jpg"}}))
}
