package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetAndGet(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()

	_, ok := mc.Get(ctx, "lines")
	assert.False(t, ok)

	value := []byte(`[{"line_code":"GREEN"}]`)
	require.NoError(t, mc.Set(ctx, "lines", value, time.Minute))
	value[0] = 'X'

	got, ok := mc.Get(ctx, "lines")
	require.True(t, ok)
	assert.Equal(t, `[{"line_code":"GREEN"}]`, string(got))
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, mc.Set(ctx, "forever", []byte("b"), 0))

	now = now.Add(time.Second)
	_, ok := mc.Get(ctx, "short")
	assert.False(t, ok)
	assert.Equal(t, 1, mc.Len())

	_, ok = mc.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, mc.Delete(ctx, "k"))
	_, ok := mc.Get(ctx, "k")
	assert.False(t, ok)
}

func TestFileCachePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fc, err := NewFileCache(dir)
	require.NoError(t, err)
	require.NoError(t, fc.Set(ctx, "stops:GREEN", []byte(`["Pims","Saddar"]`), time.Hour))

	// A fresh instance only has the disk copy.
	reopened, err := NewFileCache(dir)
	require.NoError(t, err)
	got, ok := reopened.Get(ctx, "stops:GREEN")
	require.True(t, ok)
	assert.Equal(t, `["Pims","Saddar"]`, string(got))

	require.NoError(t, reopened.Delete(ctx, "stops:GREEN"))
	_, ok = reopened.Get(ctx, "stops:GREEN")
	assert.False(t, ok)
}

func TestFileCacheExpiredOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fc, err := NewFileCache(dir)
	require.NoError(t, err)
	require.NoError(t, fc.Set(ctx, "k", []byte("v"), time.Minute))

	reopened, err := NewFileCache(dir)
	require.NoError(t, err)
	reopened.memory.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, ok := reopened.Get(ctx, "k")
	assert.False(t, ok)
	_, err = os.Stat(reopened.path("k"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileCacheCorruptFile(t *testing.T) {
	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fc.path("k"), []byte("{not json"), 0644))

	_, ok := fc.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Options{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = New(ctx, Options{Driver: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileCache{}, c)

	_, err = New(ctx, Options{Driver: "memcached"})
	assert.Error(t, err)

	_, err = New(ctx, Options{Driver: "redis"})
	assert.Error(t, err)
}
