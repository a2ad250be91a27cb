package raster

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/drawlist"
	"github.com/Faultbox/skinview/pkg/skin"
)

// Camera supplies the view and projection used to render a frame.
type Camera = drawlist.Camera

// Stats describes the last rendered frame.
type Stats struct {
	Meshes    int
	Triangles int
	Culled    int
	Pixels    int
}

// Renderer draws a scene graph into an image. A Renderer reuses its frame
// buffer between frames and must not be used concurrently.
type Renderer struct {
	Lights     LightConfig
	Background color.NRGBA

	// Supersample renders at this multiple of the output size and box
	// filters down. Values below 2 disable it.
	Supersample int

	log      *zap.Logger
	fb       *FrameBuffer
	stats    Stats
	disposed bool
}

// NewRenderer returns a renderer with default lighting and a transparent
// background.
func NewRenderer(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{Lights: DefaultLightConfig(), log: log}
}

// Dispose releases the frame buffer. It reports whether anything was
// released, so a second call returns false.
func (r *Renderer) Dispose() bool {
	if r.disposed {
		return false
	}
	r.disposed = true
	r.fb = nil
	r.log.Debug("renderer disposed")
	return true
}

// Disposed reports whether Dispose has been called.
func (r *Renderer) Disposed() bool { return r.disposed }

// Stats returns counters for the last frame.
func (r *Renderer) Stats() Stats { return r.stats }

// Render draws every mesh under root as seen by cam. A disposed renderer
// returns nil.
func (r *Renderer) Render(root *skin.Node, cam Camera, width, height int) *image.NRGBA {
	if r.disposed {
		return nil
	}
	ss := max(r.Supersample, 1)
	w, h := width*ss, height*ss
	if r.fb == nil || r.fb.Width != w || r.fb.Height != h {
		r.fb = NewFrameBuffer(w, h)
	}
	r.fb.Clear(r.Background)
	r.stats = Stats{}

	view := cam.ViewMatrix()
	viewProj := cam.ProjectionMatrix().Mul4(view)
	eye := cam.Position()

	for _, item := range drawlist.Collect(root, view) {
		r.drawMesh(item, viewProj, eye)
	}

	r.log.Debug("frame rendered",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("meshes", r.stats.Meshes),
		zap.Int("triangles", r.stats.Triangles),
		zap.Int("culled", r.stats.Culled),
		zap.Int("pixels", r.stats.Pixels))

	return r.fb.Downsample(ss)
}

func (r *Renderer) drawMesh(item drawlist.Item, viewProj mgl32.Mat4, eye mgl32.Vec3) {
	g := item.Node.Mesh.Geometry
	mat := item.Node.Mesh.Material
	mvp := viewProj.Mul4(item.World)
	normalMat := item.World.Mat3().Inv().Transpose()

	var tex *image.NRGBA
	if mat.Map != nil {
		tex = mat.Map.Image
	}

	n := g.VertexCount()
	verts := make([]vertex, n)
	ndc := make([]mgl32.Vec3, n)
	valid := make([]bool, n)
	fw, fh := float32(r.fb.Width), float32(r.fb.Height)

	for i := 0; i < n; i++ {
		clip := mvp.Mul4x1(g.Position(i).Vec4(1))
		if clip.W() <= 1e-6 {
			continue
		}
		invW := 1 / clip.W()
		p := clip.Vec3().Mul(invW)
		if p.Z() < -1 || p.Z() > 1 {
			continue
		}
		uv := g.UV(i)
		ndc[i] = p
		valid[i] = true
		verts[i] = vertex{
			x:    (p.X() + 1) * 0.5 * fw,
			y:    (1 - p.Y()) * 0.5 * fh,
			z:    p.Z(),
			invW: invW,
			u:    uv.X() * invW,
			v:    uv.Y() * invW,
		}
	}

	r.stats.Meshes++
	for _, tri := range g.Triangles() {
		if !valid[tri[0]] || !valid[tri[1]] || !valid[tri[2]] {
			continue
		}
		r.stats.Triangles++

		a, b, c := ndc[tri[0]], ndc[tri[1]], ndc[tri[2]]
		front := (b.X()-a.X())*(c.Y()-a.Y())-(c.X()-a.X())*(b.Y()-a.Y()) > 0
		if !front && mat.Side == skin.FrontSide {
			r.stats.Culled++
			continue
		}

		normal := normalMat.Mul3x1(g.Normal(tri[0])).Normalize()
		if !front {
			normal = normal.Mul(-1)
		}
		centroid := g.Position(tri[0]).Add(g.Position(tri[1])).Add(g.Position(tri[2])).Mul(1.0 / 3)
		world := item.World.Mul4x1(centroid.Vec4(1)).Vec3()
		toLight := eye.Sub(world)
		if toLight.Len() > 0 {
			toLight = toLight.Normalize()
		}

		f := fragment{
			tex:       tex,
			alphaTest: mat.AlphaTest,
			shade:     r.Lights.Shade(normal, toLight),
			blend:     mat.Transparent,
		}
		r.stats.Pixels += rasterizeTriangle(r.fb, [3]vertex{verts[tri[0]], verts[tri[1]], verts[tri[2]]}, &f)
	}
}
