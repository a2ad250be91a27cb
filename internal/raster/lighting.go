package raster

import "github.com/go-gl/mathgl/mgl32"

// LightConfig is an ambient light plus a point light that follows the
// camera.
type LightConfig struct {
	Ambient float32
	Point   float32
}

// DefaultLightConfig returns the viewer's standard lighting.
func DefaultLightConfig() LightConfig {
	return LightConfig{Ambient: 1.5, Point: 1.0}
}

// Shade returns the brightness factor of a surface with the given normal
// lit from direction toLight, both unit length. A surface facing the light
// gets exactly 1 so texture colours are reproduced unchanged.
func (lc LightConfig) Shade(normal, toLight mgl32.Vec3) float32 {
	total := lc.Ambient + lc.Point
	if total <= 0 {
		return 1
	}
	ndl := normal.Dot(toLight)
	if ndl < 0 {
		ndl = 0
	}
	return (lc.Ambient + lc.Point*ndl) / total
}
