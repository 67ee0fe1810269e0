package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store := &LocalStore{Dir: dir, URLPrefix: "/uploads"}

	url, err := store.Put(context.Background(), "players/p1.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/players/p1.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "players", "p1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestLocalStoreStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	store := &LocalStore{Dir: dir, URLPrefix: "/uploads"}

	url, err := store.Put(context.Background(), "../../escape.txt", "text/plain", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/escape.txt", url)
	assert.FileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestNewLocalStorePrefix(t *testing.T) {
	assert.Equal(t, "/uploads", NewLocalStore("uploads").URLPrefix)
	assert.Equal(t, "/data/photos", NewLocalStore("./data/photos/").URLPrefix)
}
