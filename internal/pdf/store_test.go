package pdf

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litscout/scholar-search-service/internal/domain"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())
	store.now = func() time.Time {
		return time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	}
	return store, dir
}

func TestStore_SaveUpload(t *testing.T) {
	store, dir := newTestStore(t)
	content := []byte("%PDF-1.4 uploaded bytes")

	stored, err := store.SaveUpload("attention.pdf", content)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, "20260214_093000_attention.pdf", stored.Filename)
	assert.Equal(t, filepath.Join(dir, "20260214_093000_attention.pdf"), stored.Path)
	assert.Equal(t, int64(len(content)), stored.SizeBytes)

	expectedHash := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(expectedHash[:]), stored.ContentHash)

	written, err := os.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, content, written)
}

func TestStore_SaveUploadStripsDirectories(t *testing.T) {
	store, dir := newTestStore(t)

	stored, err := store.SaveUpload("../../outside/evil.pdf", []byte("x"))
	require.NoError(t, err)

	assert.Equal(t, "20260214_093000_evil.pdf", stored.Filename)
	assert.Equal(t, dir, filepath.Dir(stored.Path))
}

func TestStore_SaveUploadRejectsUnusableNames(t *testing.T) {
	store, _ := newTestStore(t)

	t.Run("empty name", func(t *testing.T) {
		stored, err := store.SaveUpload("", []byte("x"))
		require.Error(t, err)
		assert.Nil(t, stored)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("names that reduce to no file", func(t *testing.T) {
		for _, name := range []string{".", "..", "/", "a/.."} {
			stored, err := store.SaveUpload(name, []byte("x"))
			require.Error(t, err, "name %q", name)
			assert.Nil(t, stored)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		}
	})
}

func TestStore_SaveUploadEmptyContent(t *testing.T) {
	store, _ := newTestStore(t)

	stored, err := store.SaveUpload("empty.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.SizeBytes)
	// Even an empty file has a well-defined digest.
	assert.Len(t, stored.ContentHash, 64)
}

func TestNewStore_DefaultDir(t *testing.T) {
	store := NewStore("", zerolog.Nop())
	assert.Equal(t, "data/papers", store.dir)
}
