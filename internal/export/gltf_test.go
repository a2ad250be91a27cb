package export

import (
	"bytes"
	"image"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/skinview/pkg/skin"
)

func decodeGLB(t *testing.T, m *skin.PlayerModel) *gltf.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteGLB(&buf, m))
	require.Equal(t, "glTF", buf.String()[:4])

	doc := new(gltf.Document)
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(doc))
	return doc
}

func findNode(doc *gltf.Document, name string) *gltf.Node {
	for _, n := range doc.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func TestWriteGLBHierarchy(t *testing.T) {
	m := skin.NewPlayerModel()
	m.SetVariant(skin.VariantSlim)
	doc := decodeGLB(t, m)

	// root, six groups, four limb pivots, twelve meshes
	assert.Len(t, doc.Nodes, 1+6+4+12)
	assert.Len(t, doc.Meshes, 12)
	require.Len(t, doc.Scenes, 1)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)

	root := doc.Nodes[0]
	assert.Equal(t, "player", root.Name)
	assert.Equal(t, [3]float32{0, 8, 0}, root.Translation)
	assert.Len(t, root.Children, skin.PartCount)

	arm := findNode(doc, "rightArm.inner")
	require.NotNil(t, arm)
	assert.Equal(t, [3]float32{3, 12, 4}, arm.Scale)
	assert.Equal(t, [3]float32{-0.5, 0, 0}, arm.Translation)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, arm.Rotation)
	require.NotNil(t, arm.Mesh)

	pivot := findNode(doc, "rightArm.pivot")
	require.NotNil(t, pivot)
	assert.Equal(t, [3]float32{0, -6, 0}, pivot.Translation)
	assert.Len(t, pivot.Children, 2)
}

func TestWriteGLBMaterials(t *testing.T) {
	doc := decodeGLB(t, skin.NewPlayerModel())

	require.Len(t, doc.Materials, 2)
	assert.False(t, doc.Materials[0].DoubleSided)
	assert.True(t, doc.Materials[1].DoubleSided)
	for _, mat := range doc.Materials {
		assert.Equal(t, gltf.AlphaMask, mat.AlphaMode)
		require.NotNil(t, mat.AlphaCutoff)
		assert.InDelta(t, 0.1, *mat.AlphaCutoff, 1e-6)
		require.NotNil(t, mat.PBRMetallicRoughness)
		assert.Nil(t, mat.PBRMetallicRoughness.BaseColorTexture)
	}
	assert.Empty(t, doc.Images)
	assert.Empty(t, doc.Textures)

	for _, mesh := range doc.Meshes {
		require.Len(t, mesh.Primitives, 1)
		p := mesh.Primitives[0]
		assert.Contains(t, p.Attributes, "POSITION")
		assert.Contains(t, p.Attributes, "NORMAL")
		assert.Contains(t, p.Attributes, "TEXCOORD_0")
		require.NotNil(t, p.Indices)
		assert.Equal(t, uint32(36), doc.Accessors[*p.Indices].Count)
		assert.Equal(t, uint32(24), doc.Accessors[p.Attributes["POSITION"]].Count)
		require.NotNil(t, p.Material)
	}
}

func TestWriteGLBEmbedsTexture(t *testing.T) {
	m := skin.NewPlayerModel()
	m.SetTexture(skin.NewTexture(image.NewNRGBA(image.Rect(0, 0, 64, 64))))
	doc := decodeGLB(t, m)

	require.Len(t, doc.Images, 1)
	assert.Equal(t, "image/png", doc.Images[0].MimeType)
	require.Len(t, doc.Textures, 1)
	require.Len(t, doc.Samplers, 1)
	assert.Equal(t, gltf.MagNearest, doc.Samplers[0].MagFilter)
	assert.Equal(t, gltf.MinNearest, doc.Samplers[0].MinFilter)

	for _, mat := range doc.Materials {
		require.NotNil(t, mat.PBRMetallicRoughness.BaseColorTexture)
		assert.Equal(t, uint32(0), mat.PBRMetallicRoughness.BaseColorTexture.Index)
	}
}

func TestDocumentMeshOrder(t *testing.T) {
	m := skin.NewPlayerModel()
	doc, err := Document(m)
	require.NoError(t, err)

	// Meshes are written depth first; the head inner box comes first.
	require.NotEmpty(t, doc.Meshes)
	assert.Equal(t, "head.inner", doc.Meshes[0].Name)
}
