package sourcecache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_DirtyForUntrackedFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int main(){}"), 0o644))

	c, err := Load(filepath.Join(dir, "cache.json"))
	require.NoError(t, err)
	assert.True(t, c.Dirty(src))
}

func TestCache_IdempotentAfterFlush(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int main(){}"), 0o644))

	cachePath := filepath.Join(dir, "cache.json")
	c, err := Load(cachePath)
	require.NoError(t, err)

	c.Touch(src, "1.0", "x86_64", "")
	require.NoError(t, c.Flush())

	c2, err := Load(cachePath)
	require.NoError(t, err)
	assert.False(t, c2.Dirty(src))
}

func TestCache_DirtyMonotonic_AfterModification(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int main(){}"), 0o644))

	cachePath := filepath.Join(dir, "cache.json")
	c, err := Load(cachePath)
	require.NoError(t, err)
	c.Touch(src, "1.0", "x86_64", "")
	require.NoError(t, c.Flush())

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, os.WriteFile(src, []byte("int main(){return 1;}"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))

	c2, err := Load(cachePath)
	require.NoError(t, err)
	assert.True(t, c2.Dirty(src))
}

func TestCache_CorruptFileDiscardedNotFatal(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.json")
	require.NoError(t, os.WriteFile(cachePath, []byte("{not valid json"), 0o644))

	c, err := Load(cachePath)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCache_DirtyWithDep(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.cpp")
	hdr := filepath.Join(dir, "main.h")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(hdr, []byte("y"), 0o644))

	cachePath := filepath.Join(dir, "cache.json")
	c, err := Load(cachePath)
	require.NoError(t, err)
	c.Touch(src, "1.0", "x86_64", "")
	c.Touch(hdr, "1.0", "x86_64", "")
	require.NoError(t, c.Flush())

	c2, err := Load(cachePath)
	require.NoError(t, err)
	assert.False(t, c2.DirtyWithDep(src, hdr))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(hdr, future, future))
	c3, err := Load(cachePath)
	require.NoError(t, err)
	assert.True(t, c3.DirtyWithDep(src, hdr))
}
