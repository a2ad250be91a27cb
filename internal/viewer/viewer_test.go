package viewer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/skinview/internal/drawlist"
	"github.com/Faultbox/skinview/internal/input"
	"github.com/Faultbox/skinview/internal/skinimage"
	"github.com/Faultbox/skinview/pkg/skin"
)

func solidSkin(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func newTestViewer(t *testing.T, opts Options) (*Viewer, *MemorySurface, *ManualScheduler) {
	t.Helper()
	surface := &MemorySurface{}
	sched := NewManualScheduler()
	opts.Scheduler = sched
	if opts.Width == 0 {
		opts.Width, opts.Height = 40, 60
	}
	v, err := New(surface, opts)
	require.NoError(t, err)
	t.Cleanup(v.Dispose)
	return v, surface, sched
}

func TestNewDefaults(t *testing.T) {
	v, err := New(&MemorySurface{}, Options{Scheduler: NewManualScheduler(), NoLoop: true})
	require.NoError(t, err)
	defer v.Dispose()

	w, h := v.Size()
	assert.Equal(t, 400, w)
	assert.Equal(t, 600, h)
	assert.Equal(t, float32(50), v.Camera().FOV)
	assert.InDelta(t, 40, v.Controls().Distance(), 1e-5)
	assert.Equal(t, float32(20), v.Controls().MinDistance)
	assert.Equal(t, float32(100), v.Controls().MaxDistance)
	assert.True(t, v.Controls().EnableDamping)
	assert.False(t, v.Running())
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)

	_, err = New(&MemorySurface{}, Options{Width: -1, Height: 5, NoLoop: true})
	assert.True(t, errors.Is(err, skinimage.ErrNoContext))
}

func TestFrameLoop(t *testing.T) {
	v, surface, sched := newTestViewer(t, Options{})
	require.True(t, v.Running())
	require.Equal(t, 1, sched.Pending())

	// Start draws the first frame before scheduling the next.
	assert.Equal(t, 1, surface.Frames())

	assert.Equal(t, 1, sched.Step())
	assert.Equal(t, 1, sched.Step())
	assert.Equal(t, 3, surface.Frames())
	assert.Equal(t, 1, sched.Pending())

	v.Stop()
	assert.Zero(t, sched.Pending())
	assert.Zero(t, sched.Step())
	assert.Equal(t, 3, surface.Frames())

	require.NoError(t, v.Start())
	require.NoError(t, v.Start())
	assert.Equal(t, 1, sched.Pending())
	assert.Equal(t, 4, surface.Frames())
}

func TestLoadSkinFromImage(t *testing.T) {
	v, surface, _ := newTestViewer(t, Options{NoLoop: true})
	inner, outer := v.Model().Materials()

	src := solidSkin(64, 64, color.NRGBA{R: 90, G: 60, B: 30, A: 255})
	require.NoError(t, v.LoadSkinFromImage(src, skin.VariantSlim))

	require.NotNil(t, inner.Map)
	assert.Same(t, inner.Map, outer.Map)
	assert.Equal(t, src.Pix, inner.Map.Image.Pix)
	assert.Equal(t, skin.VariantSlim, v.Model().Variant())
	assert.Equal(t, 1, surface.Frames())

	frame := surface.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, image.Rect(0, 0, 40, 60), frame.Bounds())

	// The texture is a copy; later edits to the source do not leak in.
	src.Pix[0] = 1
	assert.Equal(t, uint8(90), inner.Map.Image.Pix[0])
}

func TestLoadSkinFromImageKeepsSize(t *testing.T) {
	v, _, _ := newTestViewer(t, Options{NoLoop: true})
	require.NoError(t, v.LoadSkinFromImage(solidSkin(10, 7, color.NRGBA{A: 255}), skin.VariantDefault))
	assert.Equal(t, image.Rect(0, 0, 10, 7), v.Model().Texture().Image.Bounds())
}

func TestLoadSkinResamples(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "legacy.png", solidSkin(64, 32, color.NRGBA{G: 255, A: 255}))

	v, _, _ := newTestViewer(t, Options{NoLoop: true})
	require.NoError(t, v.LoadSkin(context.Background(), path, skin.VariantDefault))

	img := v.Model().Texture().Image
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(5, 60))
}

func TestFailedLoadLeavesModelUntouched(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "skin.png", solidSkin(64, 64, color.NRGBA{R: 255, A: 255}))
	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("\x89PNG\r\n\x1a\nbroken"), 0o644))

	v, surface, _ := newTestViewer(t, Options{NoLoop: true})
	require.NoError(t, v.LoadSkin(context.Background(), good, skin.VariantDefault))

	tex := v.Model().Texture()
	inner, _ := v.Model().Materials()
	version := inner.Version
	uvs := append([]float32(nil), v.Model().Part(skin.RightArm).Inner.Mesh.Geometry.UVs...)
	frames := surface.Frames()

	err := v.LoadSkin(context.Background(), bad, skin.VariantSlim)
	require.Error(t, err)
	assert.True(t, errors.Is(err, skinimage.ErrDecode))

	err = v.LoadSkin(context.Background(), filepath.Join(dir, "missing.png"), skin.VariantSlim)
	assert.True(t, errors.Is(err, skinimage.ErrFetch))

	assert.Same(t, tex, v.Model().Texture())
	assert.Equal(t, version, inner.Version)
	assert.Equal(t, skin.VariantDefault, v.Model().Variant())
	assert.Equal(t, uvs, v.Model().Part(skin.RightArm).Inner.Mesh.Geometry.UVs)
	assert.Equal(t, frames, surface.Frames())
}

func TestSetSize(t *testing.T) {
	v, surface, _ := newTestViewer(t, Options{NoLoop: true})

	require.NoError(t, v.SetSize(300, 150))
	assert.Equal(t, float32(2), v.Camera().Aspect)
	assert.Equal(t, 150, v.Controls().ViewportHeight)
	assert.Equal(t, image.Rect(0, 0, 300, 150), surface.Frame().Bounds())

	err := v.SetSize(0, 10)
	assert.True(t, errors.Is(err, skinimage.ErrNoContext))
	w, h := v.Size()
	assert.Equal(t, [2]int{300, 150}, [2]int{w, h})
}

func TestSnapshotFromSide(t *testing.T) {
	v, surface, _ := newTestViewer(t, Options{NoLoop: true, Width: 32, Height: 64})
	require.NoError(t, v.LoadSkinFromImage(solidSkin(64, 64, color.NRGBA{B: 255, A: 255}), skin.VariantDefault))
	frames := surface.Frames()

	img, err := v.Snapshot(1.5707964, 1.5707964)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.NRGBAAt(16, 32).A)
	assert.Equal(t, frames, surface.Frames())

	// The live camera is left where it was.
	assert.InDelta(t, 0, v.Camera().Position().X(), 1e-3)
	assert.InDelta(t, 40, v.Camera().Position().Z(), 1e-3)
	theta, _ := v.Controls().Angles()
	assert.InDelta(t, 0, theta, 1e-6)
}

func TestControlsFollowInput(t *testing.T) {
	in := input.New()
	v, _, _ := newTestViewer(t, Options{NoLoop: true, Input: in, Camera: CameraOptions{
		FOV: 50, Distance: 40, MinDistance: 20, MaxDistance: 100, RotateSpeed: 1, ZoomSpeed: 1,
	}})
	require.False(t, v.Controls().EnableDamping)
	require.Equal(t, 1, in.Subscribers())

	in.Push(input.Event{Type: input.EventWheel, WheelY: -1})
	in.Update()
	require.NoError(t, v.Render())
	assert.InDelta(t, 38, v.Controls().Distance(), 1e-3)
}

func TestDisposeIsIdempotent(t *testing.T) {
	in := input.New()
	v, surface, sched := newTestViewer(t, Options{Input: in})
	require.Equal(t, 1, sched.Pending())
	require.Equal(t, 1, in.Subscribers())
	require.Equal(t, 1, surface.Frames())

	v.Dispose()
	assert.True(t, v.Disposed())
	assert.Zero(t, sched.Pending())
	assert.Zero(t, in.Subscribers())
	assert.True(t, v.Controls().Disposed())

	assert.NotPanics(t, v.Dispose)
	assert.Zero(t, sched.Step())
	assert.Equal(t, 1, surface.Frames())

	assert.ErrorIs(t, v.Render(), ErrDisposed)
	assert.ErrorIs(t, v.SetSize(10, 10), ErrDisposed)
	assert.ErrorIs(t, v.Start(), ErrDisposed)
	assert.ErrorIs(t, v.LoadSkinFromImage(solidSkin(64, 64, color.NRGBA{}), skin.VariantSlim), ErrDisposed)
	assert.ErrorIs(t, v.LoadSkin(context.Background(), "skin.png", skin.VariantSlim), ErrDisposed)
	_, err := v.Snapshot(0, 1)
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestDisposeStopsPendingFrame(t *testing.T) {
	// A frame that was already queued when Dispose ran must not render.
	sched := NewManualScheduler()
	surface := &MemorySurface{}
	v, err := New(surface, Options{Width: 8, Height: 8, Scheduler: sched})
	require.NoError(t, err)

	frames := surface.Frames()
	fn := v.animate
	v.Dispose()
	fn()
	assert.Equal(t, frames, surface.Frames())
	assert.Zero(t, sched.Pending())
}

func TestTickerScheduler(t *testing.T) {
	s := NewTickerScheduler(1000)
	done := make(chan struct{})
	s.Request(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("frame callback did not run")
	}

	ran := make(chan struct{}, 1)
	id := s.Request(func() { ran <- struct{}{} })
	s.Cancel(id)
	s.Cancel(id)
	assert.Zero(t, s.Pending())

	select {
	case <-ran:
		t.Fatal("cancelled frame ran")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestFileSurface(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.png", "nested/out.webp"} {
		s := NewFileSurface(filepath.Join(dir, name))
		require.NoError(t, s.Present(solidSkin(8, 8, color.NRGBA{R: 255, A: 255})))
		require.NoError(t, s.Present(solidSkin(4, 4, color.NRGBA{G: 255, A: 255})))

		f, err := os.Open(s.Path)
		require.NoError(t, err)
		img, _, err := skinimage.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds(), name)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestApplySkinState(t *testing.T) {
	dir := t.TempDir()
	base := writePNG(t, dir, "base.png", solidSkin(64, 64, color.NRGBA{R: 255, A: 255}))
	overlay := writePNG(t, dir, "overlay.png", solidSkin(64, 64, color.NRGBA{B: 255, A: 255}))

	v, _, _ := newTestViewer(t, Options{NoLoop: true})
	state := NewSkinState("", "", skin.VariantDefault)
	assert.ErrorIs(t, v.Apply(context.Background(), state), ErrNoSkin)

	state.SetSkin(base)
	require.NoError(t, v.Apply(context.Background(), state))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, v.Model().Texture().Image.NRGBAAt(0, 0))

	state.SetOverlay(overlay)
	state.SetVariant(skin.VariantSlim)
	require.NoError(t, v.Apply(context.Background(), state))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, v.Model().Texture().Image.NRGBAAt(0, 0))
	assert.Equal(t, skin.VariantSlim, v.Model().Variant())
	assert.True(t, state.Uses(overlay))
	assert.False(t, state.Uses(""))

	state.SetSkin("")
	require.NoError(t, v.Apply(context.Background(), state))
	s, o := state.Sources()
	assert.Equal(t, "", s)
	assert.Equal(t, overlay, o)
}

func TestPoseAngles(t *testing.T) {
	theta, phi := Pose{}.Angles()
	assert.InDelta(t, 0, theta, 1e-6)
	assert.InDelta(t, math.Pi/2, phi, 1e-6)

	theta, phi = Pose{Yaw: 180, Pitch: 30}.Angles()
	assert.InDelta(t, math.Pi, theta, 1e-5)
	assert.InDelta(t, math.Pi/3, phi, 1e-5)
}

func TestRenderSkin(t *testing.T) {
	img, err := RenderSkin(solidSkin(64, 64, color.NRGBA{R: 255, A: 255}), skin.VariantSlim,
		Pose{Yaw: 30, Pitch: 10}, Options{Width: 50, Height: 80})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 80), img.Bounds())
	assert.Equal(t, uint8(255), img.NRGBAAt(25, 40).A)
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(0, 0))
}

func TestBackendReceivesFrames(t *testing.T) {
	q := drawlist.NewQueue()
	sched := NewManualScheduler()
	v, err := New(nil, Options{Width: 40, Height: 60, Scheduler: sched, Backend: q})
	require.NoError(t, err)

	f := q.Take()
	require.NotNil(t, f)
	assert.Len(t, f.Draws, 12)
	assert.Len(t, f.Geometries, 12)
	assert.Equal(t, [2]int{40, 60}, [2]int{f.Width, f.Height})

	require.NoError(t, v.SetVariant(skin.VariantSlim))
	f = q.Take()
	require.NotNil(t, f)
	assert.Len(t, f.Geometries, 4)
	assert.Empty(t, f.Textures)

	require.NoError(t, v.LoadSkinFromImage(solidSkin(64, 64, color.NRGBA{R: 9, A: 255}), skin.VariantSlim))
	f = q.Take()
	require.Len(t, f.Textures, 2)
	assert.Equal(t, uint8(9), f.Textures[0].Pix[0])

	// Snapshots do not go through the backend.
	_, err = v.Snapshot(0, 1)
	require.NoError(t, err)
	assert.Nil(t, q.Take())

	v.Dispose()
	assert.True(t, q.Closed())
	assert.Zero(t, sched.Pending())
}

func TestStaleLoadIsDropped(t *testing.T) {
	slow := make(chan struct{})
	started := make(chan struct{})
	body := func() []byte {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, solidSkin(64, 64, color.NRGBA{R: 255, A: 255})))
		return buf.Bytes()
	}()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-slow
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	v, _, _ := newTestViewer(t, Options{NoLoop: true})
	done := make(chan error, 1)
	go func() { done <- v.LoadSkin(context.Background(), srv.URL+"/old.png", skin.VariantDefault) }()
	<-started

	fresh := color.NRGBA{B: 255, A: 255}
	require.NoError(t, v.LoadSkinFromImage(solidSkin(64, 64, fresh), skin.VariantSlim))
	close(slow)

	err := <-done
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Equal(t, fresh, v.Model().Texture().Image.NRGBAAt(0, 0))
	assert.Equal(t, skin.VariantSlim, v.Model().Variant())
}
