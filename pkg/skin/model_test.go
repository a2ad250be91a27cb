package skin

import (
	"errors"
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in   string
		want Variant
		err  bool
	}{
		{"", VariantDefault, false},
		{"default", VariantDefault, false},
		{"Classic", VariantDefault, false},
		{" slim ", VariantSlim, false},
		{"wide", VariantDefault, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVariant(tt.in)
			if tt.err {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownVariant))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPlayerModelHierarchy(t *testing.T) {
	m := NewPlayerModel()

	assert.Equal(t, mgl32.Vec3{0, 8, 0}, m.Root().Position)
	require.Len(t, m.Root().Children(), PartCount)

	offsets := map[PartID]mgl32.Vec3{
		Head:     {0, 0, 0},
		Body:     {0, -6, 0},
		RightArm: {-5, -2, 0},
		LeftArm:  {5, -2, 0},
		RightLeg: {-1.9, -12, 0},
		LeftLeg:  {1.9, -12, 0},
	}
	for id, want := range offsets {
		p := m.Part(id)
		assert.Equal(t, want, p.Group.Position, id.String())
		assert.Same(t, m.Root(), p.Group.Parent())
		assert.Same(t, p.Pivot, p.Inner.Parent())
		assert.Same(t, p.Pivot, p.Outer.Parent())

		limb := id != Head && id != Body
		if limb {
			assert.NotSame(t, p.Group, p.Pivot, id.String())
			assert.Same(t, p.Group, p.Pivot.Parent())
			assert.Equal(t, float32(-6), p.Pivot.Position[1])
		} else {
			assert.Same(t, p.Group, p.Pivot, id.String())
		}
	}

	assert.Equal(t, float32(4), m.Part(Head).Inner.Position[1])
	assert.Len(t, m.Meshes(), PartCount*2)
}

func TestNewPlayerModelMaterials(t *testing.T) {
	m := NewPlayerModel()
	inner, outer := m.Materials()

	assert.Equal(t, FrontSide, inner.Side)
	assert.Equal(t, DoubleSide, outer.Side)
	assert.Equal(t, float32(0.1), inner.AlphaTest)
	assert.Equal(t, float32(0.1), outer.AlphaTest)

	for _, p := range m.Parts() {
		assert.Same(t, inner, p.Inner.Mesh.Material)
		assert.Same(t, outer, p.Outer.Mesh.Material)
	}
}

func TestOverlayBoxesEnclosePartBoxes(t *testing.T) {
	m := NewPlayerModel()

	body := m.Part(Body)
	assert.Equal(t, [3]float32{8, 12, 4}, dims(body.Inner.Mesh.Geometry))
	assert.Equal(t, [3]float32{8.5, 12.5, 4.5}, dims(body.Outer.Mesh.Geometry))

	leg := m.Part(LeftLeg)
	assert.Equal(t, [3]float32{4.5, 12.5, 4.5}, dims(leg.Outer.Mesh.Geometry))

	head := m.Part(Head)
	assert.Equal(t, [3]float32{8, 8, 8}, dims(head.Inner.Mesh.Geometry))
	assert.Equal(t, [3]float32{9, 9, 9}, dims(head.Outer.Mesh.Geometry))
}

func TestPartUVsMatchRegions(t *testing.T) {
	m := NewPlayerModel()

	for _, p := range m.Parts() {
		for _, l := range []Layer{Inner, Outer} {
			node := p.Inner
			if l == Outer {
				node = p.Outer
			}
			want := ComputeBoxUVs(RegionFor(p.ID, l, VariantDefault)).Flatten()
			assert.Equal(t, want, node.Mesh.Geometry.UVs, "%s %s", p.ID, l)
		}
	}
}

func TestArmScaleByVariant(t *testing.T) {
	m := NewPlayerModel()
	require.Equal(t, VariantDefault, m.Variant())
	assert.Equal(t, mgl32.Vec3{4, 12, 4}, m.Part(RightArm).Inner.Scale)
	assert.Equal(t, mgl32.Vec3{4.5, 12.5, 4.5}, m.Part(RightArm).Outer.Scale)

	m.SetVariant(VariantSlim)
	assert.Equal(t, VariantSlim, m.Variant())
	assert.Equal(t, mgl32.Vec3{3, 12, 4}, m.Part(RightArm).Inner.Scale)
	assert.Equal(t, mgl32.Vec3{3.5, 12.5, 4.5}, m.Part(LeftArm).Outer.Scale)
	assert.Equal(t, float32(-0.5), m.Part(RightArm).Inner.Position[0])
	assert.Equal(t, float32(-0.5), m.Part(RightArm).Outer.Position[0])
	assert.Equal(t, float32(0.5), m.Part(LeftArm).Inner.Position[0])
	assert.Equal(t, float32(0.5), m.Part(LeftArm).Outer.Position[0])

	slimUVs := ComputeBoxUVs(AtlasRegion{40, 16, 3, 12, 4}).Flatten()
	assert.Equal(t, slimUVs, m.Part(RightArm).Inner.Mesh.Geometry.UVs)
	slimOuter := ComputeBoxUVs(AtlasRegion{48, 48, 3, 12, 4}).Flatten()
	assert.Equal(t, slimOuter, m.Part(LeftArm).Outer.Mesh.Geometry.UVs)
}

func TestVariantRoundTrip(t *testing.T) {
	m := NewPlayerModel()
	arm := m.Part(LeftArm)
	geom := arm.Inner.Mesh.Geometry
	uvs := append([]float32(nil), geom.UVs...)
	version := geom.UVVersion

	m.SetVariant(VariantSlim)
	m.SetVariant(VariantDefault)

	assert.Same(t, geom, arm.Inner.Mesh.Geometry, "geometry must be updated in place")
	assert.Equal(t, uvs, geom.UVs)
	assert.Equal(t, version+2, geom.UVVersion)
	assert.Equal(t, mgl32.Vec3{4, 12, 4}, arm.Inner.Scale)
	assert.Equal(t, float32(1), arm.Inner.Position[0])
	assert.Equal(t, float32(-1), m.Part(RightArm).Outer.Position[0])
}

func TestArmFlushWithBody(t *testing.T) {
	for _, v := range []Variant{VariantDefault, VariantSlim} {
		m := NewPlayerModel()
		m.SetVariant(v)

		// The inner edge of each arm touches the side of the torso (x = ±4).
		right := m.Part(RightArm).Inner
		edge := mgl32.TransformCoordinate(mgl32.Vec3{0.5, 0, 0}, right.WorldMatrix())
		assert.InDelta(t, -4, edge[0], 1e-5, v.String())

		left := m.Part(LeftArm).Inner
		edge = mgl32.TransformCoordinate(mgl32.Vec3{-0.5, 0, 0}, left.WorldMatrix())
		assert.InDelta(t, 4, edge[0], 1e-5, v.String())
	}
}

func TestSetTextureSharesBothMaterials(t *testing.T) {
	m := NewPlayerModel()
	inner, outer := m.Materials()
	iv, ov := inner.Version, outer.Version
	uvs := append([]float32(nil), m.Part(Head).Inner.Mesh.Geometry.UVs...)

	tex := NewTexture(image.NewNRGBA(image.Rect(0, 0, 64, 64)))
	m.SetTexture(tex)

	assert.Same(t, tex, inner.Map)
	assert.Same(t, tex, outer.Map)
	assert.Same(t, tex, m.Texture())
	assert.Greater(t, inner.Version, iv)
	assert.Greater(t, outer.Version, ov)
	assert.Equal(t, uvs, m.Part(Head).Inner.Mesh.Geometry.UVs)

	// A wrongly sized image is accepted as is.
	m.SetTexture(NewTexture(image.NewNRGBA(image.Rect(0, 0, 17, 3))))
	assert.Equal(t, 17, inner.Map.Image.Bounds().Dx())
}

func TestBoundsStandOnGround(t *testing.T) {
	m := NewPlayerModel()
	lo, hi := m.Bounds()

	// Feet reach the legs' overlay bottom, the hat reaches above the head.
	assert.InDelta(t, -16.25, lo[1], 1e-4)
	assert.InDelta(t, 16.5, hi[1], 1e-4)
	assert.InDelta(t, -8.25, lo[0], 1e-4)
	assert.InDelta(t, 8.25, hi[0], 1e-4)
}

func TestSetPartRotationUsesPivot(t *testing.T) {
	m := NewPlayerModel()
	m.SetPartRotation(RightArm, mgl32.Vec3{0.5, 0, 0})

	assert.Equal(t, mgl32.Vec3{0.5, 0, 0}, m.Part(RightArm).Pivot.Rotation)
	assert.Equal(t, mgl32.Vec3{}, m.Part(RightArm).Group.Rotation)
}

func dims(g *BoxGeometry) [3]float32 {
	return [3]float32{g.Width, g.Height, g.Depth}
}
