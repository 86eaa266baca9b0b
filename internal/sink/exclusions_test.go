package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avtopress/internal/model"
)

func TestValidateItemID(t *testing.T) {
	id, err := ValidateItemID(" abc1234567 ")
	require.NoError(t, err)
	assert.Equal(t, "abc1234567", id)

	_, err = ValidateItemID("")
	assert.Error(t, err)

	_, err = ValidateItemID("has spaces")
	assert.Error(t, err)

	_, err = ValidateItemID("has/slash")
	assert.Error(t, err)

	_, err = ValidateItemID(strings.Repeat("a", 201))
	assert.Error(t, err)

	id, err = ValidateItemID(strings.Repeat("a", 200))
	require.NoError(t, err)
	assert.Len(t, id, 200)
}

func TestListExcludedIDsMissingFile(t *testing.T) {
	ids := ListExcludedIDs(filepath.Join(t.TempDir(), "missing.json"))
	assert.Empty(t, ids)
}

func TestListExcludedIDsRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":2,"updated_at":"x","excluded_ids":["a"]}`), 0o644))
	assert.Empty(t, ListExcludedIDs(path))
}

func TestAddExcludedIDPersistsSortedUnique(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")

	added, ids, err := AddExcludedID(path, "zzz9999999")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"zzz9999999"}, ids)

	added, ids, err = AddExcludedID(path, "aaa1111111")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"aaa1111111", "zzz9999999"}, ids)

	// Adding the same id again is a no-op without a rewrite.
	added, ids, err = AddExcludedID(path, "aaa1111111")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, []string{"aaa1111111", "zzz9999999"}, ids)

	assert.Equal(t, []string{"aaa1111111", "zzz9999999"}, ListExcludedIDs(path))
}

func TestAddExcludedIDRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")
	_, _, err := AddExcludedID(path, "bad id")
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFilterExcludedItems(t *testing.T) {
	items := []model.NewsItem{{ID: "keep"}, {ID: "drop"}}

	kept, removed := FilterExcludedItems(items, []string{"drop"})
	require.Len(t, kept, 1)
	assert.Equal(t, "keep", kept[0].ID)
	assert.Equal(t, 1, removed)

	kept, removed = FilterExcludedItems(items, nil)
	assert.Len(t, kept, 2)
	assert.Zero(t, removed)
}
