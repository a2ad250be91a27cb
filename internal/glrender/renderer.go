// Package glrender draws the player model with OpenGL 4.1 core. Frames are
// captured by Render on any goroutine and drawn by Draw on the thread that
// owns the GL context.
package glrender

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/drawlist"
	"github.com/Faultbox/skinview/internal/raster"
	"github.com/Faultbox/skinview/pkg/skin"
)

// ErrNotInitialized is returned by Draw before Init.
var ErrNotInitialized = errors.New("glrender: not initialized")

// Stats counts GPU work done by the last Draw.
type Stats struct {
	Draws          int
	BufferUploads  int
	UVUploads      int
	TextureUploads int
}

type gpuMesh struct {
	vao       uint32
	positions uint32
	normals   uint32
	uvs       uint32
	ebo       uint32
	uvVersion uint64
}

// Renderer draws captured frames. Render and Dispose come from the
// embedded queue and are safe from any goroutine; Init, Draw and Release
// must run on the GL thread.
type Renderer struct {
	*drawlist.Queue

	Lights     raster.LightConfig
	Background color.NRGBA

	log *zap.Logger

	program      uint32
	locMVP       int32
	locModel     int32
	locTexture   int32
	locHasMap    int32
	locAlphaTest int32
	locEye       int32
	locAmbient   int32
	locPoint     int32

	meshes   map[*skin.BoxGeometry]*gpuMesh
	textures map[*skin.Material]uint32
	last     *drawlist.Frame
	stats    Stats
	released bool
}

// New returns a renderer with the default lighting. It makes no GL calls.
func New(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		Queue:    drawlist.NewQueue(),
		Lights:   raster.DefaultLightConfig(),
		log:      log,
		meshes:   make(map[*skin.BoxGeometry]*gpuMesh),
		textures: make(map[*skin.Material]uint32),
	}
}

// Init loads the GL entry points and compiles the shader program. The
// context must be current.
func (r *Renderer) Init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("glrender: init: %w", err)
	}
	program, err := compileProgram(vertexShader, fragmentShader)
	if err != nil {
		return fmt.Errorf("glrender: skin shader: %w", err)
	}
	r.program = program
	r.locMVP = uniform(program, "uMVP")
	r.locModel = uniform(program, "uModel")
	r.locTexture = uniform(program, "uTexture")
	r.locHasMap = uniform(program, "uHasMap")
	r.locAlphaTest = uniform(program, "uAlphaTest")
	r.locEye = uniform(program, "uEye")
	r.locAmbient = uniform(program, "uAmbient")
	r.locPoint = uniform(program, "uPoint")

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.FrontFace(gl.CCW)
	gl.CullFace(gl.BACK)

	r.log.Info("OpenGL renderer ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))
	return nil
}

// Stats returns counters of the last Draw.
func (r *Renderer) Stats() Stats { return r.stats }

// Draw applies the uploads of the latest captured frame and draws it into
// the current framebuffer. Without a new capture the previous frame is
// drawn again. After Dispose it releases the GPU state instead.
func (r *Renderer) Draw(viewportW, viewportH int) error {
	if r.Closed() {
		r.Release()
		return drawlist.ErrClosed
	}
	if r.program == 0 {
		return ErrNotInitialized
	}

	r.stats = Stats{}
	if f := r.Take(); f != nil {
		r.upload(f)
		r.last = f
	}

	bg := r.Background
	gl.Viewport(0, 0, int32(viewportW), int32(viewportH))
	gl.ClearColor(float32(bg.R)/255, float32(bg.G)/255, float32(bg.B)/255, float32(bg.A)/255)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	f := r.last
	if f == nil {
		return nil
	}

	gl.UseProgram(r.program)
	gl.Uniform3f(r.locEye, f.Eye[0], f.Eye[1], f.Eye[2])
	gl.Uniform1f(r.locAmbient, r.Lights.Ambient)
	gl.Uniform1f(r.locPoint, r.Lights.Point)
	gl.Uniform1i(r.locTexture, 0)
	gl.ActiveTexture(gl.TEXTURE0)

	viewProj := f.Projection.Mul4(f.View)
	for _, d := range f.Draws {
		mesh := r.meshes[d.Geometry]
		if mesh == nil {
			continue
		}
		mvp := viewProj.Mul4(d.World)
		model := d.World
		gl.UniformMatrix4fv(r.locMVP, 1, false, &mvp[0])
		gl.UniformMatrix4fv(r.locModel, 1, false, &model[0])
		gl.Uniform1f(r.locAlphaTest, d.AlphaTest)

		if tex := r.textures[d.Material]; tex != 0 {
			gl.BindTexture(gl.TEXTURE_2D, tex)
			gl.Uniform1i(r.locHasMap, 1)
		} else {
			gl.BindTexture(gl.TEXTURE_2D, 0)
			gl.Uniform1i(r.locHasMap, 0)
		}

		if d.Side == skin.FrontSide {
			gl.Enable(gl.CULL_FACE)
		} else {
			gl.Disable(gl.CULL_FACE)
		}
		if d.Transparent {
			gl.Enable(gl.BLEND)
		} else {
			gl.Disable(gl.BLEND)
		}

		gl.BindVertexArray(mesh.vao)
		gl.DrawElements(gl.TRIANGLES, int32(d.IndexCount), gl.UNSIGNED_SHORT, nil)
		r.stats.Draws++
	}
	gl.BindVertexArray(0)
	return nil
}

func (r *Renderer) upload(f *drawlist.Frame) {
	for _, g := range f.ReleasedGeometries {
		r.deleteMesh(g)
	}
	for _, m := range f.ReleasedMaterials {
		r.deleteTexture(m)
	}

	for _, u := range f.Geometries {
		if u.Full() {
			r.deleteMesh(u.Geometry)
			r.meshes[u.Geometry] = newMesh(u)
			r.stats.BufferUploads++
			continue
		}
		mesh := r.meshes[u.Geometry]
		if mesh == nil || mesh.uvVersion == u.UVVersion {
			continue
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, mesh.uvs)
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(u.UVs)*4, gl.Ptr(u.UVs))
		mesh.uvVersion = u.UVVersion
		r.stats.UVUploads++
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	for _, u := range f.Textures {
		r.deleteTexture(u.Material)
		if u.Pix == nil {
			continue
		}
		r.textures[u.Material] = uploadTexture(u)
		r.stats.TextureUploads++
	}

	if n := r.stats.BufferUploads + r.stats.UVUploads + r.stats.TextureUploads; n > 0 {
		r.log.Debug("gpu state updated",
			zap.Int("buffers", r.stats.BufferUploads),
			zap.Int("uvs", r.stats.UVUploads),
			zap.Int("textures", r.stats.TextureUploads))
	}
}

func newMesh(u drawlist.GeometryUpload) *gpuMesh {
	m := &gpuMesh{uvVersion: u.UVVersion}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	m.positions = arrayBuffer(0, 3, u.Positions, gl.STATIC_DRAW)
	m.normals = arrayBuffer(1, 3, u.Normals, gl.STATIC_DRAW)
	// UVs are rewritten in place on variant changes.
	m.uvs = arrayBuffer(2, 2, u.UVs, gl.DYNAMIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(u.Indices)*2, gl.Ptr(u.Indices), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	return m
}

func arrayBuffer(attrib uint32, size int32, data []float32, usage uint32) uint32 {
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), usage)
	gl.VertexAttribPointerWithOffset(attrib, size, gl.FLOAT, false, size*4, 0)
	gl.EnableVertexAttribArray(attrib)
	return vbo
}

func uploadTexture(u drawlist.TextureUpload) uint32 {
	filter := func(nearest bool) int32 {
		if nearest {
			return gl.NEAREST
		}
		return gl.LINEAR
	}

	var texID uint32
	gl.GenTextures(1, &texID)
	gl.BindTexture(gl.TEXTURE_2D, texID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(u.Width), int32(u.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(u.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter(u.MinNearest))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(u.MagNearest))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return texID
}

func (r *Renderer) deleteMesh(g *skin.BoxGeometry) {
	m, ok := r.meshes[g]
	if !ok {
		return
	}
	gl.DeleteVertexArrays(1, &m.vao)
	buffers := []uint32{m.positions, m.normals, m.uvs, m.ebo}
	gl.DeleteBuffers(int32(len(buffers)), &buffers[0])
	delete(r.meshes, g)
}

func (r *Renderer) deleteTexture(m *skin.Material) {
	if tex, ok := r.textures[m]; ok {
		gl.DeleteTextures(1, &tex)
		delete(r.textures, m)
	}
}

// Release frees every buffer, texture and the shader program. Later calls
// do nothing.
func (r *Renderer) Release() {
	if r.released {
		return
	}
	r.released = true
	r.Dispose()

	for g := range r.meshes {
		r.deleteMesh(g)
	}
	for m := range r.textures {
		r.deleteTexture(m)
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
		r.program = 0
	}
	r.last = nil
	r.log.Debug("OpenGL renderer released")
}
