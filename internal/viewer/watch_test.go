package viewer

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/skinview/pkg/skin"
)

func TestLocalPath(t *testing.T) {
	abs, ok := LocalPath("skins/steve.png")
	require.True(t, ok)
	assert.True(t, filepath.IsAbs(abs))

	p, ok := LocalPath("file:///tmp/steve.png")
	require.True(t, ok)
	assert.Equal(t, "/tmp/steve.png", p)

	_, ok = LocalPath("https://example.com/steve.png")
	assert.False(t, ok)
	_, ok = LocalPath("")
	assert.False(t, ok)
}

func TestSkinWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "steve.png", solidSkin(64, 64, color.NRGBA{255, 0, 0, 255}))

	v, _, _ := newTestViewer(t, Options{NoLoop: true})
	state := NewSkinState(path, "", skin.VariantDefault)
	require.NoError(t, v.Apply(context.Background(), state))

	w, err := NewSkinWatcher(v, state, nil)
	require.NoError(t, err)
	w.Debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// An unrelated file in the same directory is ignored.
	writePNG(t, dir, "other.png", solidSkin(64, 64, color.NRGBA{0, 0, 255, 255}))
	writePNG(t, dir, "steve.png", solidSkin(64, 64, color.NRGBA{0, 255, 0, 255}))

	require.Eventually(t, func() bool { return w.Reloads() >= 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	tex := v.Model().Texture()
	require.NotNil(t, tex)
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, tex.Image.NRGBAAt(8, 8))
}

func TestSkinWatcherIgnoresRemoteSources(t *testing.T) {
	v, _, _ := newTestViewer(t, Options{NoLoop: true})
	state := NewSkinState("https://example.com/steve.png", "", skin.VariantDefault)

	w, err := NewSkinWatcher(v, state, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx))
	assert.Zero(t, w.Reloads())
}
