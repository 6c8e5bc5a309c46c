package shaderwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWatcher_ReportsChangedGroups(t *testing.T) {
	dir := t.TempDir()
	vs := filepath.Join(dir, "mesh.vert.wgsl")
	fs := filepath.Join(dir, "mesh.frag.wgsl")
	post := filepath.Join(dir, "post.frag.wgsl")
	for _, p := range []string{vs, fs, post} {
		writeFile(t, p, "// initial")
	}

	w, err := NewWatcher()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Watch("mesh", vs, fs))
	require.NoError(t, w.Watch("post", post))
	// registering twice does not duplicate the group
	require.NoError(t, w.Watch("mesh", vs))
	assert.Nil(t, w.Changed())

	writeFile(t, fs, "// edited")

	var changed []string
	require.Eventually(t, func() bool {
		changed = append(changed, w.Changed()...)
		return len(changed) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"mesh"}, changed)
	assert.Nil(t, w.Changed())
}

func TestWatcher_IgnoresUnwatchedFiles(t *testing.T) {
	dir := t.TempDir()
	vs := filepath.Join(dir, "mesh.wgsl")
	writeFile(t, vs, "// initial")

	w, err := NewWatcher()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, w.Watch("mesh", vs))

	writeFile(t, filepath.Join(dir, "notes.txt"), "unrelated")
	time.Sleep(100 * time.Millisecond)
	assert.Nil(t, w.Changed())
}

func TestWatcher_Errors(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)

	err = w.Watch("missing", filepath.Join(t.TempDir(), "nope", "a.wgsl"))
	assert.ErrorContains(t, err, "shaderwatch: watch")

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
