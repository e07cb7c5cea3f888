package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)
	require.True(t, store.Available())

	_, ok := store.Get(KeyToken)
	assert.False(t, ok)

	require.NoError(t, store.Set(KeyToken, "T1"))
	require.NoError(t, store.Set(KeyUserName, "Ana"))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), stat.Mode().Perm())

	// A second store over the same file sees the values, as the next run would.
	reopened := NewFileStore(path)
	v, ok := reopened.Get(KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "T1", v)

	require.NoError(t, reopened.Delete(KeyToken))
	_, ok = store.Get(KeyToken)
	assert.False(t, ok)

	require.NoError(t, reopened.Delete(sessionKeys...))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewFileStore(path)
	_, ok := store.Get(KeyToken)
	assert.False(t, ok)

	// Writing replaces the broken content.
	require.NoError(t, store.Set(KeyToken, "T1"))
	v, ok := store.Get(KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "T1", v)
}

func TestFileStoreDeleteRemovesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	require.NoError(t, NewFileStore(path).Delete(sessionKeys...))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreWithoutPathIsUnavailable(t *testing.T) {
	assert.False(t, NewFileStore("").Available())

	var store *FileStore
	assert.False(t, store.Available())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	require.True(t, store.Available())

	require.NoError(t, store.Set(KeyToken, "T1"))
	v, ok := store.Get(KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "T1", v)

	require.NoError(t, store.Delete(KeyToken, KeyUserName))
	_, ok = store.Get(KeyToken)
	assert.False(t, ok)
}
