package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "nested", "data"))
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	_, found, err := s.GetItem(ctx, "@GoMarketplace:products")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetItem(ctx, "@GoMarketplace:products", `[{"id":"a","quantity":1}]`))
	v, found, err := s.GetItem(ctx, "@GoMarketplace:products")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"a","quantity":1}]`, v)

	require.NoError(t, s.SetItem(ctx, "@GoMarketplace:products", `[]`))
	v, _, err = s.GetItem(ctx, "@GoMarketplace:products")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)
}

func TestStoreKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SetItem(ctx, "@a:b", "one"))
	require.NoError(t, s.SetItem(ctx, "_a_b", "two"))

	v, _, err := s.GetItem(ctx, "@a:b")
	require.NoError(t, err)
	assert.Equal(t, "one", v)
	assert.NotEqual(t, s.Path("@a:b"), s.Path("_a_b"))
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.SetItem(context.Background(), "k", "v"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(s.Path("k")), entries[0].Name())
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestStoreLongKeys(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	long := strings.Repeat("k", 1024)
	other := long + "x"
	require.NoError(t, s.SetItem(ctx, long, "one"))
	require.NoError(t, s.SetItem(ctx, other, "two"))

	v, found, err := s.GetItem(ctx, long)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "one", v)
	assert.LessOrEqual(t, len(filepath.Base(s.Path(long))), maxNameLen)
	assert.NotEqual(t, s.Path(long), s.Path(other))
}
