package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmscraper/pkg/models"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "US1.jpg")

	item := models.Item{
		ID:                "US1",
		ImageURL:          "http://img/1",
		Name:              "ACME",
		Office:            "US",
		ApplicationNumber: "97123456",
		Status:            "Registered",
	}
	meta := FromItem(item, 2048)
	require.NoError(t, meta.Save(imagePath))
	assert.True(t, Exists(imagePath))

	loaded, err := Load(imagePath)
	require.NoError(t, err)
	assert.Equal(t, "US1", loaded.ID)
	assert.Equal(t, "ACME", loaded.Name)
	assert.Equal(t, "97123456", loaded.ApplicationNumber)
	assert.Equal(t, int64(2048), loaded.FileSize)
	assert.False(t, loaded.DownloadedAt.IsZero())
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.jpg"))
	assert.Error(t, err)
}

func TestCleanOrphaned(t *testing.T) {
	dir := t.TempDir()
	files := []string{"A.jpg", "A.jpg.json", "B.jpg.json", "settings.json"}
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}

	removed, err := CleanOrphaned(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.FileExists(t, filepath.Join(dir, "A.jpg.json"))
	assert.FileExists(t, filepath.Join(dir, "settings.json"))
	assert.NoFileExists(t, filepath.Join(dir, "B.jpg.json"))
}
