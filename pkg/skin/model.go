package skin

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnknownVariant is returned by ParseVariant for unrecognized names.
var ErrUnknownVariant = errors.New("skin: unknown model variant")

// Variant is the arm shape of a player model.
type Variant int

const (
	// VariantDefault has 4 pixel wide arms ("Steve").
	VariantDefault Variant = iota
	// VariantSlim has 3 pixel wide arms ("Alex").
	VariantSlim
)

// ParseVariant accepts "default", "classic", "slim" and the empty string.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "classic":
		return VariantDefault, nil
	case "slim":
		return VariantSlim, nil
	}
	return VariantDefault, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

func (v Variant) String() string {
	if v == VariantSlim {
		return "slim"
	}
	return "default"
}

// ArmWidth returns the arm width in pixels.
func (v Variant) ArmWidth() float32 {
	if v == VariantSlim {
		return 3
	}
	return 4
}

// ArmOffset returns how far arm meshes sit from their shoulder pivot so the
// arm stays flush against the body.
func (v Variant) ArmOffset() float32 {
	if v == VariantSlim {
		return 0.5
	}
	return 1
}

// PartID names a body part.
type PartID int

const (
	Head PartID = iota
	Body
	RightArm
	LeftArm
	RightLeg
	LeftLeg
)

// PartCount is the number of body parts.
const PartCount = 6

var partNames = [PartCount]string{"head", "body", "rightArm", "leftArm", "rightLeg", "leftLeg"}

func (p PartID) String() string {
	if p < 0 || int(p) >= PartCount {
		return "unknown"
	}
	return partNames[p]
}

// IsArm reports whether p changes with the model variant.
func (p PartID) IsArm() bool { return p == RightArm || p == LeftArm }

// Layer selects the base skin layer or the overlay layer of a part.
type Layer int

const (
	Inner Layer = iota
	Outer
)

func (l Layer) String() string {
	if l == Outer {
		return "outer"
	}
	return "inner"
}

// Regions is the skin atlas layout, indexed by part then layer. Arm widths
// are those of the default variant; see RegionFor.
var Regions = [PartCount][2]AtlasRegion{
	Head:     {{0, 0, 8, 8, 8}, {32, 0, 8, 8, 8}},
	Body:     {{16, 16, 8, 12, 4}, {16, 32, 8, 12, 4}},
	RightArm: {{40, 16, 4, 12, 4}, {40, 32, 4, 12, 4}},
	LeftArm:  {{32, 48, 4, 12, 4}, {48, 48, 4, 12, 4}},
	RightLeg: {{0, 16, 4, 12, 4}, {0, 32, 4, 12, 4}},
	LeftLeg:  {{16, 48, 4, 12, 4}, {0, 48, 4, 12, 4}},
}

// RegionFor returns the atlas region of a part layer for variant v.
func RegionFor(p PartID, l Layer, v Variant) AtlasRegion {
	r := Regions[p][l]
	if p.IsArm() {
		r = r.WithWidth(v.ArmWidth())
	}
	return r
}

// overlayInflate is how much larger the overlay box is than the base box.
const overlayInflate = 0.5

// BodyPart is one limb of the model. Group is positioned relative to the
// model root; Pivot is the node rotations would be applied to. For the head
// and body Pivot and Group are the same node.
type BodyPart struct {
	ID    PartID
	Group *Node
	Pivot *Node
	Inner *Node
	Outer *Node
}

// PlayerModel is a six part humanoid with a base and an overlay layer per
// part. It owns every geometry and both materials; SetVariant and SetTexture
// update them in place.
type PlayerModel struct {
	root    *Node
	parts   [PartCount]*BodyPart
	inner   *Material
	outer   *Material
	texture *Texture
	variant Variant
}

// NewPlayerModel builds the model with the default variant and no texture.
func NewPlayerModel() *PlayerModel {
	m := &PlayerModel{
		root: NewNode("player"),
		inner: &Material{
			Name:        "skin",
			Side:        FrontSide,
			Transparent: true,
			AlphaTest:   0.1,
		},
		outer: &Material{
			Name:        "overlay",
			Side:        DoubleSide,
			Transparent: true,
			AlphaTest:   0.1,
		},
	}

	// Head pivots at the neck; its boxes sit above it.
	head := m.newPart(Head, mgl32.Vec3{}, false)
	m.sizeBox(head, 8, 8, 8, 1)
	head.Inner.Position[1] = 4
	head.Outer.Position[1] = 4

	body := m.newPart(Body, mgl32.Vec3{0, -6, 0}, false)
	m.sizeBox(body, 8, 12, 4, overlayInflate)

	// Arm boxes are unit cubes scaled by SetVariant.
	m.newPart(RightArm, mgl32.Vec3{-5, -2, 0}, true)
	m.newPart(LeftArm, mgl32.Vec3{5, -2, 0}, true)

	rightLeg := m.newPart(RightLeg, mgl32.Vec3{-1.9, -12, 0}, true)
	m.sizeBox(rightLeg, 4, 12, 4, overlayInflate)
	leftLeg := m.newPart(LeftLeg, mgl32.Vec3{1.9, -12, 0}, true)
	m.sizeBox(leftLeg, 4, 12, 4, overlayInflate)

	m.SetVariant(VariantDefault)

	m.root.Position[1] = 8
	return m
}

// newPart creates the node hierarchy of a part. Limbs get a swing pivot
// between the group and the meshes, placed at the centre of the limb.
func (m *PlayerModel) newPart(id PartID, offset mgl32.Vec3, limb bool) *BodyPart {
	name := id.String()
	p := &BodyPart{
		ID:    id,
		Group: NewNode(name),
		Inner: NewMeshNode(name+".inner", NewBoxGeometry(1, 1, 1), m.inner),
		Outer: NewMeshNode(name+".outer", NewBoxGeometry(1, 1, 1), m.outer),
	}
	p.Group.Position = offset
	p.Pivot = p.Group
	if limb {
		p.Pivot = NewNode(name + ".pivot")
		p.Pivot.Position[1] = -6
		p.Group.Add(p.Pivot)
	}
	p.Pivot.Add(p.Inner, p.Outer)
	m.root.Add(p.Group)
	m.parts[id] = p
	return p
}

// sizeBox replaces the geometries of a fixed-size part and maps their UVs.
func (m *PlayerModel) sizeBox(p *BodyPart, w, h, d, inflate float32) {
	p.Inner.Mesh.Geometry = NewBoxGeometry(w, h, d)
	SetSkinUVs(p.Inner.Mesh.Geometry, Regions[p.ID][Inner])

	p.Outer.Mesh.Geometry = NewBoxGeometry(w+inflate, h+inflate, d+inflate)
	SetSkinUVs(p.Outer.Mesh.Geometry, Regions[p.ID][Outer])
}

// SetVariant switches the arm shape: arm box scale, arm UVs and the arm
// offset from the shoulder are all rewritten in place.
func (m *PlayerModel) SetVariant(v Variant) {
	if v != VariantSlim {
		v = VariantDefault
	}
	m.variant = v

	width := v.ArmWidth()
	offset := v.ArmOffset()

	for _, id := range [...]PartID{RightArm, LeftArm} {
		p := m.parts[id]

		p.Inner.Scale = mgl32.Vec3{width, 12, 4}
		SetSkinUVs(p.Inner.Mesh.Geometry, RegionFor(id, Inner, v))

		p.Outer.Scale = mgl32.Vec3{width + overlayInflate, 12 + overlayInflate, 4 + overlayInflate}
		SetSkinUVs(p.Outer.Mesh.Geometry, RegionFor(id, Outer, v))

		x := offset
		if id == RightArm {
			x = -offset
		}
		p.Inner.Position[0] = x
		p.Outer.Position[0] = x
	}
}

// Variant returns the current arm shape.
func (m *PlayerModel) Variant() Variant { return m.variant }

// SetTexture assigns t to both materials. Geometry is untouched and the
// image size is not checked.
func (m *PlayerModel) SetTexture(t *Texture) {
	m.texture = t
	m.inner.SetMap(t)
	m.outer.SetMap(t)
}

// Texture returns the current texture, or nil.
func (m *PlayerModel) Texture() *Texture { return m.texture }

// Root returns the top node of the model.
func (m *PlayerModel) Root() *Node { return m.root }

// Part returns the body part id.
func (m *PlayerModel) Part(id PartID) *BodyPart { return m.parts[id] }

// Parts returns all body parts in PartID order.
func (m *PlayerModel) Parts() []*BodyPart {
	return append([]*BodyPart(nil), m.parts[:]...)
}

// Materials returns the base layer and overlay layer materials.
func (m *PlayerModel) Materials() (inner, outer *Material) { return m.inner, m.outer }

// Meshes returns every mesh node, inner layers first then overlays, in
// PartID order.
func (m *PlayerModel) Meshes() []*Node {
	nodes := make([]*Node, 0, PartCount*2)
	for _, p := range m.parts {
		nodes = append(nodes, p.Inner)
	}
	for _, p := range m.parts {
		nodes = append(nodes, p.Outer)
	}
	return nodes
}

// SetPartRotation sets the Euler rotation of a part around its pivot.
func (m *PlayerModel) SetPartRotation(id PartID, euler mgl32.Vec3) {
	m.parts[id].Pivot.Rotation = euler
}

// Bounds returns the world-space axis-aligned bounds of all meshes.
func (m *PlayerModel) Bounds() (lo, hi mgl32.Vec3) {
	inf := float32(math.Inf(1))
	lo = mgl32.Vec3{inf, inf, inf}
	hi = mgl32.Vec3{-inf, -inf, -inf}

	m.root.Walk(func(n *Node, world mgl32.Mat4) {
		if n.Mesh == nil {
			return
		}
		g := n.Mesh.Geometry
		for i := 0; i < g.VertexCount(); i++ {
			p := mgl32.TransformCoordinate(g.Position(i), world)
			for k := 0; k < 3; k++ {
				if p[k] < lo[k] {
					lo[k] = p[k]
				}
				if p[k] > hi[k] {
					hi[k] = p[k]
				}
			}
		}
	})
	return lo, hi
}
