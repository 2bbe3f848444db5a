package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
)

func TestDiskStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store := NewDiskStore(dir, logger.NewTestLogger(t))

	image := []byte("fake-jpeg-bytes")
	path, err := store.Save(context.Background(), "TKT-1A2B3C4D", image)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "TKT-1A2B3C4D.jpg"), path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, image, written)
}

func TestDiskStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	store := NewDiskStore(dir, logger.NewTestLogger(t))

	_, err := store.Save(context.Background(), "TKT-00000001", []byte{0xFF, 0xD8})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDiskStore_UnwritableDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	store := NewDiskStore(filepath.Join(file, "uploads"), logger.NewTestLogger(t))
	_, err := store.Save(context.Background(), "TKT-DEADBEEF", []byte("img"))
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeStorageFailure, stderrors.CodeOf(err))
}
