package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k := Key("openai", "gpt-4o-mini", "MARX SCREEN")
	assert.True(t, strings.HasPrefix(k, "sepcheck:v1:"))
	assert.Equal(t, k, Key("OpenAI", "gpt-4o-mini", "  MARX SCREEN\n"))
	assert.NotEqual(t, k, Key("openai", "gpt-4o", "MARX SCREEN"))
	assert.NotEqual(t, k, Key("anthropic", "gpt-4o-mini", "MARX SCREEN"))
	assert.NotEqual(t, k, Key("openai", "gpt-4o-mini", "OTHER SCREEN"))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	require.NoError(t, c.Set("k", []byte(`{"a":1}`), 0))
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(v))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)

	require.NoError(t, c.Set("a", []byte(`1`), 0))
	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte(`1`), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewDiskCache(dir, time.Hour)
	key := Key("openai", "m", "text")

	require.NoError(t, c.Set(key, []byte(`{"full_name":"Jane"}`), 0))
	v, ok := c.Get(key)
	require.True(t, ok)
	assert.JSONEq(t, `{"full_name":"Jane"}`, string(v))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.NotContains(t, entries[0].Name(), ":")
}

func TestDiskCache_Expired(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, c.Set("k", []byte(`{}`), time.Hour))

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok := c.Get("k")
	assert.False(t, ok)

	_, err := os.Stat(c.path("k"))
	assert.True(t, os.IsNotExist(err), "expired entry removed")
}

func TestDiskCache_RejectsNonJSON(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	assert.Error(t, c.Set("k", []byte("not json"), 0))
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, os.WriteFile(c.path("k"), []byte("{{"), 0o644))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_DeleteMissing(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	assert.NoError(t, c.Delete("nope"))
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)
	require.NoError(t, c.Set("k", []byte(`{"v":1}`), 0))

	// A fresh layered cache over the same dir only has the disk copy.
	fresh := NewLayeredCache(time.Minute, dir, time.Hour)
	v, ok := fresh.Get("k")
	require.True(t, ok)
	assert.JSONEq(t, `{"v":1}`, string(v))

	mem := fresh.memory.(*MemoryCache)
	assert.Equal(t, 1, mem.Len())

	require.NoError(t, fresh.Delete("k"))
	_, ok = fresh.Get("k")
	assert.False(t, ok)
}
