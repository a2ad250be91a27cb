package skin

import "github.com/go-gl/mathgl/mgl32"

const (
	verticesPerFace = 4
	indicesPerFace  = 6
)

// BoxGeometry is an axis-aligned box centred on the origin with one quad per
// face. Faces are stored in Face order (+x, -x, +y, -y, +z, -z); each face
// holds its vertices as top-left, top-right, bottom-left, bottom-right when
// viewed from outside.
type BoxGeometry struct {
	Width, Height, Depth float32

	Positions []float32 // xyz per vertex
	Normals   []float32 // xyz per vertex
	UVs       []float32 // uv per vertex
	Indices   []uint16

	// UVVersion increases on every UV write so renderers can re-upload.
	UVVersion uint64
}

// plane describes how a face's 2D grid maps onto box axes.
type plane struct {
	u, v, w    int
	udir, vdir float32
	// which box dimension feeds the grid width, height and the face offset
	width, height, depth func(w, h, d float32) float32
}

func dimW(w, _, _ float32) float32 { return w }
func dimH(_, h, _ float32) float32 { return h }
func dimD(_, _, d float32) float32 { return d }
func negW(w, _, _ float32) float32 { return -w }
func negH(_, h, _ float32) float32 { return -h }
func negD(_, _, d float32) float32 { return -d }

var boxPlanes = [FaceCount]plane{
	FaceRight:  {u: 2, v: 1, w: 0, udir: -1, vdir: -1, width: dimD, height: dimH, depth: dimW},
	FaceLeft:   {u: 2, v: 1, w: 0, udir: 1, vdir: -1, width: dimD, height: dimH, depth: negW},
	FaceTop:    {u: 0, v: 2, w: 1, udir: 1, vdir: 1, width: dimW, height: dimD, depth: dimH},
	FaceBottom: {u: 0, v: 2, w: 1, udir: 1, vdir: -1, width: dimW, height: dimD, depth: negH},
	FaceFront:  {u: 0, v: 1, w: 2, udir: 1, vdir: -1, width: dimW, height: dimH, depth: dimD},
	FaceBack:   {u: 0, v: 1, w: 2, udir: -1, vdir: -1, width: dimW, height: dimH, depth: negD},
}

// NewBoxGeometry builds a box of the given size with default per-face UVs
// covering the whole texture.
func NewBoxGeometry(width, height, depth float32) *BoxGeometry {
	g := &BoxGeometry{
		Width:     width,
		Height:    height,
		Depth:     depth,
		Positions: make([]float32, 0, FaceCount*verticesPerFace*3),
		Normals:   make([]float32, 0, FaceCount*verticesPerFace*3),
		UVs:       make([]float32, 0, FaceCount*verticesPerFace*2),
		Indices:   make([]uint16, 0, FaceCount*indicesPerFace),
	}

	for f := 0; f < FaceCount; f++ {
		p := boxPlanes[f]
		pw := p.width(width, height, depth)
		ph := p.height(width, height, depth)
		pd := p.depth(width, height, depth)

		normal := float32(1)
		if pd < 0 {
			normal = -1
		}

		base := uint16(f * verticesPerFace)
		for iy := 0; iy < 2; iy++ {
			y := float32(iy)*ph - ph/2
			for ix := 0; ix < 2; ix++ {
				x := float32(ix)*pw - pw/2

				var pos, n [3]float32
				pos[p.u] = x * p.udir
				pos[p.v] = y * p.vdir
				pos[p.w] = pd / 2
				n[p.w] = normal

				g.Positions = append(g.Positions, pos[0], pos[1], pos[2])
				g.Normals = append(g.Normals, n[0], n[1], n[2])
				g.UVs = append(g.UVs, float32(ix), 1-float32(iy))
			}
		}

		a, b, c, d := base, base+2, base+3, base+1
		g.Indices = append(g.Indices, a, b, d, b, c, d)
	}

	return g
}

// VertexCount returns the number of vertices (always 24).
func (g *BoxGeometry) VertexCount() int {
	return len(g.Positions) / 3
}

// Position returns vertex i.
func (g *BoxGeometry) Position(i int) mgl32.Vec3 {
	return mgl32.Vec3{g.Positions[i*3], g.Positions[i*3+1], g.Positions[i*3+2]}
}

// Normal returns the normal of vertex i.
func (g *BoxGeometry) Normal(i int) mgl32.Vec3 {
	return mgl32.Vec3{g.Normals[i*3], g.Normals[i*3+1], g.Normals[i*3+2]}
}

// UV returns the texture coordinate of vertex i.
func (g *BoxGeometry) UV(i int) mgl32.Vec2 {
	return mgl32.Vec2{g.UVs[i*2], g.UVs[i*2+1]}
}

// FaceUVs returns the current UV quad of face f.
func (g *BoxGeometry) FaceUVs(f Face) FaceQuad {
	var q FaceQuad
	for i := range q {
		q[i] = g.UV(int(f)*verticesPerFace + i)
	}
	return q
}

// SetUVs copies uvs into the UV buffer in place and bumps UVVersion.
// Extra values are ignored; a short slice leaves the tail untouched.
func (g *BoxGeometry) SetUVs(uvs []float32) {
	copy(g.UVs, uvs)
	g.UVVersion++
}

// Triangles returns the index buffer as vertex triples.
func (g *BoxGeometry) Triangles() [][3]int {
	tris := make([][3]int, 0, len(g.Indices)/3)
	for i := 0; i+2 < len(g.Indices); i += 3 {
		tris = append(tris, [3]int{int(g.Indices[i]), int(g.Indices[i+1]), int(g.Indices[i+2])})
	}
	return tris
}
