package shader

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ReferenceStable(t *testing.T) {
	c := NewCache()

	a, err := c.Process(litVertex, litFragment)
	require.NoError(t, err)
	b, err := c.Process(litVertex, litFragment)
	require.NoError(t, err)
	assert.Same(t, a, b)

	other, err := c.Process(litVertex, litFragment+"\n// variant\n")
	require.NoError(t, err)
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, c.Len())
}

func TestCache_KeyIsThePair(t *testing.T) {
	c := NewCache()

	// the same strings swapped between stages must not collide
	vs := "@vertex fn a() {}\n@fragment fn b() {}"
	fs := "@fragment fn b() {}\n@vertex fn a() {}"
	first, err := c.Process(vs, fs)
	require.NoError(t, err)
	second, err := c.Process(fs, vs)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestCache_ErrorsNotCached(t *testing.T) {
	c := NewCache()

	_, err := c.Process("INCLUDE(late)", litFragment)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.RegisterChunk("late", litVertex))
	info, err := c.Process("INCLUDE(late)", litFragment)
	require.NoError(t, err)
	assert.Equal(t, "vs_main", info.VertexEntryPoint)
}

func TestCache_WithChunk(t *testing.T) {
	c := NewCache(WithChunk("body", litVertex))
	info, err := c.Process("INCLUDE(body)", litFragment)
	require.NoError(t, err)
	assert.Len(t, info.Layout.Attributes, 2)
}

func TestCache_WithChunkConflictWarns(t *testing.T) {
	var logs bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { common.SetLogger(nil) })

	builtin, ok := NewPreProcessor().Chunk("fullscreen_vertex")
	require.True(t, ok)

	c := NewCache(WithChunk("fullscreen_vertex", litVertex))
	assert.Contains(t, logs.String(), "shader chunk ignored")
	assert.Contains(t, logs.String(), "chunk=fullscreen_vertex")

	info, err := c.Process("INCLUDE(fullscreen_vertex)", litFragment)
	require.NoError(t, err)
	assert.Empty(t, info.Layout.Attributes, "the built-in chunk is kept")
	assert.Contains(t, info.VertexSource, builtin[:20])

	logs.Reset()
	NewCache(WithChunk("fullscreen_vertex", builtin))
	assert.Empty(t, logs.String(), "re-registering identical source is not a conflict")
}
