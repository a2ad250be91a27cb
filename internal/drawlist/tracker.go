package drawlist

import (
	"errors"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/skinview/pkg/skin"
)

// ErrClosed is returned by Render after Dispose.
var ErrClosed = errors.New("drawlist: queue closed")

// Draw is one mesh as captured for a GPU backend. Geometry and Material
// identify the buffers and texture to use; the backend must not read
// through them.
type Draw struct {
	Geometry    *skin.BoxGeometry
	Material    *skin.Material
	World       mgl32.Mat4
	IndexCount  int
	Side        skin.Side
	Transparent bool
	AlphaTest   float32
}

// GeometryUpload carries vertex data for one geometry. Positions, Normals
// and Indices are set only when the buffers must be created.
type GeometryUpload struct {
	Geometry  *skin.BoxGeometry
	Positions []float32
	Normals   []float32
	Indices   []uint16
	UVs       []float32
	UVVersion uint64
}

// Full reports whether the upload creates the buffers rather than
// refreshing the UVs.
func (u GeometryUpload) Full() bool { return u.Positions != nil }

// TextureUpload replaces the texture bound to a material. Pix holds RGBA
// rows top first and is nil when the material has no map.
type TextureUpload struct {
	Material   *skin.Material
	Pix        []uint8
	Width      int
	Height     int
	MagNearest bool
	MinNearest bool
}

// Frame is everything a backend needs to draw one frame.
type Frame struct {
	Width, Height int
	View          mgl32.Mat4
	Projection    mgl32.Mat4
	Eye           mgl32.Vec3

	Draws      []Draw
	Geometries []GeometryUpload
	Textures   []TextureUpload

	// Released lists GPU state no longer referenced by the scene. It is
	// applied before the uploads.
	ReleasedGeometries []*skin.BoxGeometry
	ReleasedMaterials  []*skin.Material
}

// Merge folds the uploads and releases of an older frame that was never
// drawn into f, so drawing only f leaves the GPU state current.
func (f *Frame) Merge(older *Frame) {
	if older == nil {
		return
	}

	releasedG := make(map[*skin.BoxGeometry]bool, len(f.ReleasedGeometries))
	for _, g := range f.ReleasedGeometries {
		releasedG[g] = true
	}
	newerG := make(map[*skin.BoxGeometry]int, len(f.Geometries))
	for i, u := range f.Geometries {
		newerG[u.Geometry] = i
	}
	var geoms []GeometryUpload
	for _, u := range older.Geometries {
		if releasedG[u.Geometry] {
			continue
		}
		if i, ok := newerG[u.Geometry]; ok {
			if n := &f.Geometries[i]; u.Full() && !n.Full() {
				n.Positions, n.Normals, n.Indices = u.Positions, u.Normals, u.Indices
			}
			continue
		}
		geoms = append(geoms, u)
	}
	f.Geometries = append(geoms, f.Geometries...)

	releasedM := make(map[*skin.Material]bool, len(f.ReleasedMaterials))
	for _, m := range f.ReleasedMaterials {
		releasedM[m] = true
	}
	newerM := make(map[*skin.Material]bool, len(f.Textures))
	for _, u := range f.Textures {
		newerM[u.Material] = true
	}
	var texs []TextureUpload
	for _, u := range older.Textures {
		if !releasedM[u.Material] && !newerM[u.Material] {
			texs = append(texs, u)
		}
	}
	f.Textures = append(texs, f.Textures...)

	f.ReleasedGeometries = append(older.ReleasedGeometries, f.ReleasedGeometries...)
	f.ReleasedMaterials = append(older.ReleasedMaterials, f.ReleasedMaterials...)
}

type texState struct {
	material uint64
	tex      *skin.Texture
	version  uint64
}

// Tracker remembers the UV and material versions last handed to a
// backend. It is not safe for concurrent use.
type Tracker struct {
	geoms map[*skin.BoxGeometry]uint64
	mats  map[*skin.Material]texState
}

// NewTracker returns a tracker that has uploaded nothing.
func NewTracker() *Tracker {
	return &Tracker{
		geoms: make(map[*skin.BoxGeometry]uint64),
		mats:  make(map[*skin.Material]texState),
	}
}

// Capture records the meshes under root as seen by cam, with the uploads
// needed since the previous capture. Buffers are created for new
// geometries, UVs are re-sent when UVVersion moved and textures when the
// material or its map changed version.
func (t *Tracker) Capture(root *skin.Node, cam Camera, width, height int) *Frame {
	view := cam.ViewMatrix()
	f := &Frame{
		Width:      width,
		Height:     height,
		View:       view,
		Projection: cam.ProjectionMatrix(),
		Eye:        cam.Position(),
	}

	seenG := make(map[*skin.BoxGeometry]bool)
	seenM := make(map[*skin.Material]bool)
	for _, it := range Collect(root, view) {
		g, m := it.Node.Mesh.Geometry, it.Node.Mesh.Material
		if !seenG[g] {
			seenG[g] = true
			t.syncGeometry(f, g)
		}
		if !seenM[m] {
			seenM[m] = true
			t.syncMaterial(f, m)
		}
		f.Draws = append(f.Draws, Draw{
			Geometry:    g,
			Material:    m,
			World:       it.World,
			IndexCount:  len(g.Indices),
			Side:        m.Side,
			Transparent: m.Transparent,
			AlphaTest:   m.AlphaTest,
		})
	}

	for g := range t.geoms {
		if !seenG[g] {
			delete(t.geoms, g)
			f.ReleasedGeometries = append(f.ReleasedGeometries, g)
		}
	}
	for m := range t.mats {
		if !seenM[m] {
			delete(t.mats, m)
			f.ReleasedMaterials = append(f.ReleasedMaterials, m)
		}
	}
	return f
}

func (t *Tracker) syncGeometry(f *Frame, g *skin.BoxGeometry) {
	version, ok := t.geoms[g]
	switch {
	case !ok:
		f.Geometries = append(f.Geometries, GeometryUpload{
			Geometry:  g,
			Positions: slices.Clone(g.Positions),
			Normals:   slices.Clone(g.Normals),
			Indices:   slices.Clone(g.Indices),
			UVs:       slices.Clone(g.UVs),
			UVVersion: g.UVVersion,
		})
	case version != g.UVVersion:
		f.Geometries = append(f.Geometries, GeometryUpload{
			Geometry:  g,
			UVs:       slices.Clone(g.UVs),
			UVVersion: g.UVVersion,
		})
	default:
		return
	}
	t.geoms[g] = g.UVVersion
}

func (t *Tracker) syncMaterial(f *Frame, m *skin.Material) {
	st := texState{material: m.Version}
	if m.Map != nil {
		st.tex, st.version = m.Map, m.Map.Version
	}
	if old, ok := t.mats[m]; ok && old == st {
		return
	}
	t.mats[m] = st

	u := TextureUpload{Material: m}
	if m.Map != nil && m.Map.Image != nil {
		img := m.Map.Image
		u.Width, u.Height = img.Rect.Dx(), img.Rect.Dy()
		u.Pix = make([]uint8, u.Width*u.Height*4)
		row := u.Width * 4
		for y := 0; y < u.Height; y++ {
			off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
			copy(u.Pix[y*row:(y+1)*row], img.Pix[off:off+row])
		}
		u.MagNearest = m.Map.MagFilter == skin.FilterNearest
		u.MinNearest = m.Map.MinFilter == skin.FilterNearest
	}
	f.Textures = append(f.Textures, u)
}

// Queue hands captured frames from the goroutine that renders to the
// thread that owns the GPU context. A frame replaced before it was taken
// has its uploads merged into the newer one.
type Queue struct {
	mu      sync.Mutex
	tracker *Tracker
	pending *Frame
	closed  bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{tracker: NewTracker()}
}

// Render captures root for the next Take. It may be called from any
// goroutine, but not concurrently with changes to the scene.
func (q *Queue) Render(root *skin.Node, cam Camera, width, height int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	f := q.tracker.Capture(root, cam, width, height)
	f.Merge(q.pending)
	q.pending = f
	return nil
}

// Take returns the latest frame, or nil when nothing was rendered since
// the last call.
func (q *Queue) Take() *Frame {
	q.mu.Lock()
	defer q.mu.Unlock()
	f := q.pending
	q.pending = nil
	return f
}

// Dispose drops any pending frame and rejects later renders.
func (q *Queue) Dispose() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = nil
}

// Closed reports whether Dispose has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
