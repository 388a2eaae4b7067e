package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := s.Get(ctx, "userData")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, "userData", []byte(`{"balance":1}`)))
	require.NoError(t, s.Put(ctx, "userData", []byte(`{"balance":2}`)))

	got, found, err := s.Get(ctx, "userData")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"balance":2}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "userData.json", entries[0].Name())
}

func TestFileStoreEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	p := s.Path("../escape")
	assert.Equal(t, dir, filepath.Dir(p))
}
