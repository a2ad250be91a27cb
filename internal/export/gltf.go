// Package export writes player models as glTF 2.0 binaries.
package export

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/skinview/pkg/skin"
)

// alphaCutoff matches the alpha test of both skin materials.
const alphaCutoff = 0.1

// Document builds a glTF document for m. Every scene-graph node becomes a
// glTF node with the same local transform; mesh nodes reference one mesh
// per box.
func Document(m *skin.PlayerModel) (*gltf.Document, error) {
	doc := gltf.NewDocument()

	inner, outer := m.Materials()
	materials := map[*skin.Material]uint32{}

	var texInfo *gltf.TextureInfo
	if tex := m.Texture(); tex != nil && tex.Image != nil {
		idx, err := writeTexture(doc, tex)
		if err != nil {
			return nil, err
		}
		texInfo = &gltf.TextureInfo{Index: idx}
	}
	for _, mat := range []*skin.Material{inner, outer} {
		materials[mat] = uint32(len(doc.Materials))
		doc.Materials = append(doc.Materials, material(mat, texInfo))
	}

	root := writeNode(doc, m.Root(), materials)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, root)
	return doc, nil
}

// WriteGLB encodes m as a binary glTF file.
func WriteGLB(w io.Writer, m *skin.PlayerModel) error {
	doc, err := Document(m)
	if err != nil {
		return err
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("export: encode glb: %w", err)
	}
	return nil
}

func material(mat *skin.Material, tex *gltf.TextureInfo) *gltf.Material {
	cutoff := float32(alphaCutoff)
	metallic := float32(0)
	out := &gltf.Material{
		Name:        mat.Name,
		DoubleSided: mat.Side == skin.DoubleSide,
		AlphaMode:   gltf.AlphaMask,
		AlphaCutoff: &cutoff,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			MetallicFactor: &metallic,
		},
	}
	if tex != nil {
		out.PBRMetallicRoughness.BaseColorTexture = tex
	}
	return out
}

func writeTexture(doc *gltf.Document, tex *skin.Texture) (uint32, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, tex.Image); err != nil {
		return 0, fmt.Errorf("export: encode texture: %w", err)
	}

	sampler := &gltf.Sampler{
		Name:  "skin_sampler",
		WrapS: gltf.WrapClampToEdge,
		WrapT: gltf.WrapClampToEdge,
	}
	if tex.MagFilter == skin.FilterNearest {
		sampler.MagFilter = gltf.MagNearest
	} else {
		sampler.MagFilter = gltf.MagLinear
	}
	if tex.MinFilter == skin.FilterNearest {
		sampler.MinFilter = gltf.MinNearest
	} else {
		sampler.MinFilter = gltf.MinLinear
	}
	samplerIndex := uint32(len(doc.Samplers))
	doc.Samplers = append(doc.Samplers, sampler)

	imageIndex, err := modeler.WriteImage(doc, "skin_image", "image/png", &buf)
	if err != nil {
		return 0, fmt.Errorf("export: write image: %w", err)
	}

	textureIndex := uint32(len(doc.Textures))
	doc.Textures = append(doc.Textures, &gltf.Texture{
		Name:    "skin",
		Sampler: gltf.Index(samplerIndex),
		Source:  gltf.Index(imageIndex),
	})
	return textureIndex, nil
}

// writeNode appends n and its subtree, returning n's index.
func writeNode(doc *gltf.Document, n *skin.Node, materials map[*skin.Material]uint32) uint32 {
	rot := mgl32.HomogRotate3DX(n.Rotation[0]).
		Mul4(mgl32.HomogRotate3DY(n.Rotation[1])).
		Mul4(mgl32.HomogRotate3DZ(n.Rotation[2]))
	q := mgl32.Mat4ToQuat(rot).Normalize()

	node := &gltf.Node{
		Name:        n.Name,
		Translation: n.Position,
		Rotation:    q.V.Vec4(q.W),
		Scale:       n.Scale,
	}
	index := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, node)

	if n.Mesh != nil {
		node.Mesh = gltf.Index(writeMesh(doc, n.Name, n.Mesh, materials))
	}
	for _, c := range n.Children() {
		node.Children = append(node.Children, writeNode(doc, c, materials))
	}
	return index
}

func writeMesh(doc *gltf.Document, name string, mesh *skin.Mesh, materials map[*skin.Material]uint32) uint32 {
	g := mesh.Geometry
	n := g.VertexCount()

	positions := make([][3]float32, n)
	normals := make([][3]float32, n)
	uvs := make([][2]float32, n)
	for i := 0; i < n; i++ {
		positions[i] = g.Position(i)
		normals[i] = g.Normal(i)
		uv := g.UV(i)
		// glTF puts the texture origin at the top left.
		uvs[i] = [2]float32{uv[0], 1 - uv[1]}
	}
	indices := make([]uint16, len(g.Indices))
	copy(indices, g.Indices)

	positionAccessor := modeler.WritePosition(doc, positions)
	normalAccessor := modeler.WriteNormal(doc, normals)
	uvAccessor := modeler.WriteTextureCoord(doc, uvs)
	indicesAccessor := modeler.WriteIndices(doc, indices)

	prim := &gltf.Primitive{
		Indices: gltf.Index(indicesAccessor),
		Attributes: map[string]uint32{
			"POSITION":   positionAccessor,
			"NORMAL":     normalAccessor,
			"TEXCOORD_0": uvAccessor,
		},
	}
	if idx, ok := materials[mesh.Material]; ok {
		prim.Material = gltf.Index(idx)
	}

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       name,
		Primitives: []*gltf.Primitive{prim},
	})
	return uint32(len(doc.Meshes) - 1)
}
