package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avtopress/internal/model"
)

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSourcesAppliesDefaults(t *testing.T) {
	path := writeSources(t, `
sources:
  - id: bmw
    name: BMW Press
    url: https://www.press.bmwgroup.com
    feed_url: https://www.press.bmwgroup.com/global/rss
`)

	sources, err := LoadSources(path, 0)
	require.NoError(t, err)
	require.Len(t, sources, 1)

	got := sources[0]
	assert.Equal(t, "bmw", got.ID)
	assert.Equal(t, "BMW Press", got.Source)
	assert.Equal(t, 4, got.MaxItems)
	assert.Equal(t, model.RightsOfficialPress, got.RightsFlag)
	assert.NotEmpty(t, got.LicenseText)
}

func TestLoadSourcesSkipsDisabled(t *testing.T) {
	path := writeSources(t, `
sources:
  - id: bmw
    name: BMW Press
    feed_url: https://example.com/bmw.rss
  - id: old
    name: Old Source
    feed_url: https://example.com/old.rss
    enabled: false
`)

	sources, err := LoadSources(path, 0)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "bmw", sources[0].ID)
}

func TestLoadSourcesMaxItemsOverride(t *testing.T) {
	path := writeSources(t, `
sources:
  - id: bmw
    name: BMW Press
    feed_url: https://example.com/bmw.rss
    max_items: 12
`)

	sources, err := LoadSources(path, 2)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, 2, sources[0].MaxItems)
}

func TestLoadSourcesRejectsIncompleteEntry(t *testing.T) {
	path := writeSources(t, `
sources:
  - id: bmw
    name: BMW Press
`)

	_, err := LoadSources(path, 0)
	assert.Error(t, err)
}

func TestLoadSourcesUnknownRightsFlagFallsBack(t *testing.T) {
	path := writeSources(t, `
sources:
  - id: blog
    name: Car Blog
    feed_url: https://example.com/blog.rss
    rights_flag: whatever
`)

	sources, err := LoadSources(path, 0)
	require.NoError(t, err)
	assert.Equal(t, model.RightsOfficialPress, sources[0].RightsFlag)
}
