package manifest

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffmerge/internal/models"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	m, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, m.Files)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()

	m := New()
	m.Set("/some/where/b_pixels.txt", models.Dimensions{Width: 4, Height: 2})
	m.Set("a_pixels.txt", models.Dimensions{Width: 1, Height: 1})
	require.NoError(t, m.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_pixels.txt", "b_pixels.txt"}, loaded.Names())

	d, ok := loaded.Get("/elsewhere/b_pixels.txt")
	require.True(t, ok)
	assert.Equal(t, models.Dimensions{Width: 4, Height: 2}, d)

	_, ok = loaded.Get("c_pixels.txt")
	assert.False(t, ok)
}

func TestGetRejectsInvalidDimensions(t *testing.T) {
	m := New()
	m.Set("zero.txt", models.Dimensions{Width: 0, Height: 3})

	_, ok := m.Get("zero.txt")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	m := New()
	m.Set("a.txt", models.Dimensions{Width: 2, Height: 1})
	m.Delete("/elsewhere/a.txt")
	m.Delete("missing.txt")

	_, ok := m.Get("a.txt")
	assert.False(t, ok)
	assert.Empty(t, m.Names())
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(PathIn(dir), []byte("files: [unclosed"), 0644))

	_, err := Load(dir)
	assert.Error(t, err)
}
