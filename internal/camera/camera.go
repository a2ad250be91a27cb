// Package camera provides the perspective camera and orbit controls used by
// the viewer.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Viewer camera defaults.
const (
	DefaultFOV  = 50
	DefaultNear = 0.1
	DefaultFar  = 1000
)

// PerspectiveCamera looks from a position towards a target.
type PerspectiveCamera struct {
	FOV    float32 // vertical, degrees
	Aspect float32
	Near   float32
	Far    float32

	eye    mgl32.Vec3
	target mgl32.Vec3
	up     mgl32.Vec3
}

// NewPerspectiveCamera creates a camera at the origin looking down -Z.
func NewPerspectiveCamera(fov, aspect, near, far float32) *PerspectiveCamera {
	return &PerspectiveCamera{
		FOV:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		target: mgl32.Vec3{0, 0, -1},
		up:     mgl32.Vec3{0, 1, 0},
	}
}

// NewDefault creates the viewer camera: 50° FOV placed at (0, 0, 40).
func NewDefault(aspect float32) *PerspectiveCamera {
	c := NewPerspectiveCamera(DefaultFOV, aspect, DefaultNear, DefaultFar)
	c.SetPosition(mgl32.Vec3{0, 0, 40})
	c.LookAt(mgl32.Vec3{})
	return c
}

// Position returns the camera position in world space.
func (c *PerspectiveCamera) Position() mgl32.Vec3 { return c.eye }

// SetPosition moves the camera without changing its target.
func (c *PerspectiveCamera) SetPosition(p mgl32.Vec3) { c.eye = p }

// Target returns the point the camera looks at.
func (c *PerspectiveCamera) Target() mgl32.Vec3 { return c.target }

// LookAt points the camera at target.
func (c *PerspectiveCamera) LookAt(target mgl32.Vec3) { c.target = target }

// SetAspect updates the aspect ratio after a resize.
func (c *PerspectiveCamera) SetAspect(aspect float32) {
	if aspect > 0 {
		c.Aspect = aspect
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *PerspectiveCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.eye, c.target, c.up)
}

// ProjectionMatrix returns the perspective projection.
func (c *PerspectiveCamera) ProjectionMatrix() mgl32.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}
