// Package skin builds the Minecraft player model and maps skin atlas
// regions onto its boxes.
package skin

import "github.com/go-gl/mathgl/mgl32"

// AtlasSize is the edge length in pixels of a skin texture.
// All UV coordinates are normalized by it.
const AtlasSize = 64

// AtlasRegion locates an unfolded box in the skin atlas.
// U, V is the top-left anchor of the unfold; Width, Height and Depth are the
// box dimensions in pixels (one geometry unit per texture pixel).
type AtlasRegion struct {
	U, V                 float32
	Width, Height, Depth float32
}

// WithWidth returns a copy of r with a different box width.
func (r AtlasRegion) WithWidth(w float32) AtlasRegion {
	r.Width = w
	return r
}

// Face identifies one side of a box, in the order box geometry stores them.
type Face int

const (
	FaceRight Face = iota
	FaceLeft
	FaceTop
	FaceBottom
	FaceFront
	FaceBack
)

// FaceCount is the number of faces on a box.
const FaceCount = 6

var faceNames = [FaceCount]string{"right", "left", "top", "bottom", "front", "back"}

func (f Face) String() string {
	if f < 0 || int(f) >= FaceCount {
		return "unknown"
	}
	return faceNames[f]
}

// FaceQuad holds the four UV corners of one face.
type FaceQuad [4]mgl32.Vec2

// BoxUVSet holds one quad per face, indexed by Face.
type BoxUVSet [FaceCount]FaceQuad

// Flatten returns the UVs as interleaved (u, v) pairs in face order,
// matching the layout of BoxGeometry.UVs.
func (s BoxUVSet) Flatten() []float32 {
	out := make([]float32, 0, FaceCount*4*2)
	for _, quad := range s {
		for _, uv := range quad {
			out = append(out, uv[0], uv[1])
		}
	}
	return out
}

// FaceVertices converts an atlas pixel rectangle to UV corners in the order
// bottom-left, bottom-right, top-right, top-left. The atlas is addressed top
// down while UVs grow bottom up, hence the vertical flip.
func FaceVertices(x1, y1, x2, y2 float32) FaceQuad {
	return FaceQuad{
		{x1 / AtlasSize, 1 - y2/AtlasSize},
		{x2 / AtlasSize, 1 - y2/AtlasSize},
		{x2 / AtlasSize, 1 - y1/AtlasSize},
		{x1 / AtlasSize, 1 - y1/AtlasSize},
	}
}

// RawFaces returns the atlas quads of r before they are reordered to the box
// winding.
func RawFaces(r AtlasRegion) [FaceCount]FaceQuad {
	u, v, w, h, d := r.U, r.V, r.Width, r.Height, r.Depth

	var faces [FaceCount]FaceQuad
	faces[FaceTop] = FaceVertices(u+d, v, u+w+d, v+d)
	faces[FaceBottom] = FaceVertices(u+w+d, v, u+w*2+d, v+d)
	faces[FaceLeft] = FaceVertices(u, v+d, u+d, v+d+h)
	faces[FaceFront] = FaceVertices(u+d, v+d, u+w+d, v+d+h)
	faces[FaceRight] = FaceVertices(u+w+d, v+d, u+w+d*2, v+h+d)
	faces[FaceBack] = FaceVertices(u+w+d*2, v+d, u+w*2+d*2, v+h+d)
	return faces
}

// faceOrder maps each box face vertex to a corner of its raw quad.
// Bottom faces are stored upside down relative to the rest.
var faceOrder = [FaceCount][4]int{
	FaceRight:  {3, 2, 0, 1},
	FaceLeft:   {3, 2, 0, 1},
	FaceTop:    {3, 2, 0, 1},
	FaceBottom: {0, 1, 3, 2},
	FaceFront:  {3, 2, 0, 1},
	FaceBack:   {3, 2, 0, 1},
}

// ComputeBoxUVs maps r onto the six faces of a box.
// Regions are not validated; out-of-atlas values produce out-of-range UVs.
func ComputeBoxUVs(r AtlasRegion) BoxUVSet {
	raw := RawFaces(r)

	var set BoxUVSet
	for f := range set {
		for i, src := range faceOrder[f] {
			set[f][i] = raw[f][src]
		}
	}
	return set
}

// SetSkinUVs overwrites the UV buffer of g with the mapping of r and marks it
// for re-upload.
func SetSkinUVs(g *BoxGeometry, r AtlasRegion) {
	g.SetUVs(ComputeBoxUVs(r).Flatten())
}
