package skin

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is a transform in the model hierarchy. A node's world transform is its
// parent's world transform composed with its own translation, XYZ Euler
// rotation and scale.
type Node struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // radians, applied X then Y then Z
	Scale    mgl32.Vec3

	// Mesh is drawn with this node's world transform. Nil for pure groups.
	Mesh *Mesh

	parent   *Node
	children []*Node
}

// NewNode returns a group node with unit scale.
func NewNode(name string) *Node {
	return &Node{Name: name, Scale: mgl32.Vec3{1, 1, 1}}
}

// NewMeshNode returns a node drawing geometry g with material m.
func NewMeshNode(name string, g *BoxGeometry, m *Material) *Node {
	n := NewNode(name)
	n.Mesh = &Mesh{Geometry: g, Material: m}
	return n
}

// Add attaches children to n, detaching them from any previous parent.
func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c.parent != nil {
			c.parent.remove(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
}

func (n *Node) remove(c *Node) {
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

// Parent returns the node n is attached to, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the direct children of n.
func (n *Node) Children() []*Node { return n.children }

// LocalMatrix returns translation * rotation * scale.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	m := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	m = m.Mul4(mgl32.HomogRotate3DX(n.Rotation[0]))
	m = m.Mul4(mgl32.HomogRotate3DY(n.Rotation[1]))
	m = m.Mul4(mgl32.HomogRotate3DZ(n.Rotation[2]))
	return m.Mul4(mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2]))
}

// WorldMatrix composes the local matrices from the root down to n.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	if n.parent == nil {
		return n.LocalMatrix()
	}
	return n.parent.WorldMatrix().Mul4(n.LocalMatrix())
}

// Walk visits n and its descendants depth first with their world matrices.
func (n *Node) Walk(fn func(node *Node, world mgl32.Mat4)) {
	n.walk(mgl32.Ident4(), fn)
}

func (n *Node) walk(parent mgl32.Mat4, fn func(*Node, mgl32.Mat4)) {
	world := parent.Mul4(n.LocalMatrix())
	fn(n, world)
	for _, c := range n.children {
		c.walk(world, fn)
	}
}

// Find returns the first node named name in n's subtree.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Mesh pairs a geometry with the material it is drawn with.
type Mesh struct {
	Geometry *BoxGeometry
	Material *Material
}

// Side selects which faces of a mesh are drawn.
type Side int

const (
	FrontSide Side = iota
	DoubleSide
)

// Filter is a texture sampling filter.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

// Texture is a decoded image ready for sampling.
type Texture struct {
	Image     *image.NRGBA
	MagFilter Filter
	MinFilter Filter

	// Version increases whenever the image content must be re-uploaded.
	Version uint64
}

// NewTexture wraps img with nearest filtering, as pixel-art skins need.
func NewTexture(img *image.NRGBA) *Texture {
	return &Texture{Image: img, MagFilter: FilterNearest, MinFilter: FilterNearest, Version: 1}
}

// Invalidate marks the texture for re-upload.
func (t *Texture) Invalidate() { t.Version++ }

// Material describes how a mesh is shaded. Texels whose alpha is below
// AlphaTest are discarded.
type Material struct {
	Name        string
	Side        Side
	Transparent bool
	AlphaTest   float32
	Map         *Texture

	// Version increases whenever cached GPU state is stale.
	Version uint64
}

// SetMap assigns the texture and invalidates cached state.
func (m *Material) SetMap(t *Texture) {
	m.Map = t
	m.Version++
}
