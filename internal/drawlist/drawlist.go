// Package drawlist orders a scene's meshes for drawing and tracks which
// geometry and texture data a GPU backend still has to upload.
package drawlist

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/skinview/pkg/skin"
)

// Camera supplies the view and projection used to draw a frame.
type Camera interface {
	ViewMatrix() mgl32.Mat4
	ProjectionMatrix() mgl32.Mat4
	Position() mgl32.Vec3
}

// Item is a mesh node with its world transform.
type Item struct {
	Node  *skin.Node
	World mgl32.Mat4
	ViewZ float32 // depth of the node origin in view space
}

// Collect returns the drawable meshes under root in forward renderer
// order: opaque meshes first, then transparent ones with single sided
// materials before double sided ones, each transparent group back to
// front.
func Collect(root *skin.Node, view mgl32.Mat4) []Item {
	var items []Item
	root.Walk(func(n *skin.Node, world mgl32.Mat4) {
		if n.Mesh == nil || n.Mesh.Geometry == nil || n.Mesh.Material == nil {
			return
		}
		origin := view.Mul4(world).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
		items = append(items, Item{Node: n, World: world, ViewZ: origin.Z()})
	})

	sort.SliceStable(items, func(i, j int) bool {
		mi, mj := items[i].Node.Mesh.Material, items[j].Node.Mesh.Material
		if ri, rj := rank(mi), rank(mj); ri != rj {
			return ri < rj
		}
		if !mi.Transparent {
			return false
		}
		return items[i].ViewZ < items[j].ViewZ
	})
	return items
}

func rank(m *skin.Material) int {
	switch {
	case !m.Transparent:
		return 0
	case m.Side == skin.FrontSide:
		return 1
	}
	return 2
}
