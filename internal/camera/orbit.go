package camera

import (
	gomath "math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/skinview/internal/input"
)

const (
	// DefaultDampingFactor is the share of pending rotation applied per
	// update.
	DefaultDampingFactor = 0.05
	DefaultMinDistance   = 20
	DefaultMaxDistance   = 100

	polarEpsilon = 1e-6
	changeEps    = 1e-6
)

// OrbitControls rotate a camera around a target on drag and dolly it on
// wheel. Panning is not supported.
type OrbitControls struct {
	Target mgl32.Vec3

	MinDistance float32
	MaxDistance float32
	MinPolar    float32 // radians from +Y
	MaxPolar    float32

	EnableDamping bool
	DampingFactor float32

	// Sensitivity
	RotateSpeed float32
	ZoomSpeed   float32

	// ViewportHeight converts drag distance to angle; a drag across the
	// full height turns the camera by 2π.
	ViewportHeight int

	cam *PerspectiveCamera

	// Spherical coordinates of the camera around Target
	radius float32
	theta  float32 // azimuth around +Y, 0 on +Z
	phi    float32 // polar angle from +Y

	deltaTheta float32
	deltaPhi   float32
	scale      float32

	dragging bool

	// mu guards the motion state; events arrive on the input goroutine
	// while Update runs on the frame goroutine.
	mu       sync.Mutex
	cancel   func()
	disposed bool
}

// NewOrbitControls creates controls for cam orbiting the origin, reading
// the initial angles from the camera's current position.
func NewOrbitControls(cam *PerspectiveCamera) *OrbitControls {
	c := &OrbitControls{
		MinDistance:    DefaultMinDistance,
		MaxDistance:    DefaultMaxDistance,
		MinPolar:       0,
		MaxPolar:       gomath.Pi,
		EnableDamping:  true,
		DampingFactor:  DefaultDampingFactor,
		RotateSpeed:    1,
		ZoomSpeed:      1,
		ViewportHeight: 600,
		cam:            cam,
		scale:          1,
	}
	c.sync()
	return c
}

// Camera returns the controlled camera.
func (c *OrbitControls) Camera() *PerspectiveCamera { return c.cam }

// Distance returns the current distance from the target.
func (c *OrbitControls) Distance() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

// Angles returns the azimuth and polar angle in radians.
func (c *OrbitControls) Angles() (theta, phi float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theta, c.phi
}

// sync derives spherical coordinates from the camera position.
func (c *OrbitControls) sync() {
	off := c.cam.Position().Sub(c.Target)
	c.radius = off.Len()
	if c.radius == 0 {
		c.theta, c.phi = 0, gomath.Pi/2
		return
	}
	c.theta = float32(gomath.Atan2(float64(off.X()), float64(off.Z())))
	c.phi = float32(gomath.Acos(float64(mgl32.Clamp(off.Y()/c.radius, -1, 1))))
}

// HandleDrag queues a rotation for a pointer drag of dx, dy pixels.
func (c *OrbitControls) HandleDrag(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drag(dx, dy)
}

func (c *OrbitControls) drag(dx, dy float32) {
	h := float32(c.ViewportHeight)
	if h <= 0 {
		h = 1
	}
	c.deltaTheta -= 2 * gomath.Pi * dx / h * c.RotateSpeed
	c.deltaPhi -= 2 * gomath.Pi * dy / h * c.RotateSpeed
}

// HandleZoom dollies for a wheel delta. Positive deltas move away from the
// target.
func (c *OrbitControls) HandleZoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom(delta)
}

func (c *OrbitControls) zoom(delta float32) {
	step := float32(gomath.Pow(0.95, float64(c.ZoomSpeed)))
	switch {
	case delta < 0:
		c.scale *= step
	case delta > 0:
		c.scale /= step
	}
}

// SetAngles jumps to the given azimuth and polar angle, discarding pending
// motion.
func (c *OrbitControls) SetAngles(theta, phi float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.theta, c.phi = theta, phi
	c.deltaTheta, c.deltaPhi = 0, 0
	c.apply()
}

// WithAngles places the camera at the given azimuth and polar angle, runs
// fn and puts the camera back. Pending motion is kept.
func (c *OrbitControls) WithAngles(theta, phi float32, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	savedTheta, savedPhi := c.theta, c.phi
	c.theta, c.phi = theta, phi
	c.apply()
	defer func() {
		c.theta, c.phi = savedTheta, savedPhi
		c.apply()
	}()
	fn()
}

// Update applies pending motion to the camera. With damping enabled only a
// DampingFactor share of the pending rotation is applied and the rest
// decays, so Update must run every frame. Returns true if the camera
// moved.
func (c *OrbitControls) Update() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.cam.Position()

	if c.EnableDamping {
		c.theta += c.deltaTheta * c.DampingFactor
		c.phi += c.deltaPhi * c.DampingFactor
		c.deltaTheta *= 1 - c.DampingFactor
		c.deltaPhi *= 1 - c.DampingFactor
	} else {
		c.theta += c.deltaTheta
		c.phi += c.deltaPhi
		c.deltaTheta, c.deltaPhi = 0, 0
	}
	c.radius *= c.scale
	c.scale = 1

	c.apply()
	return c.cam.Position().Sub(before).Len() > changeEps
}

// apply clamps the spherical state and moves the camera.
func (c *OrbitControls) apply() {
	minPolar := max(c.MinPolar, polarEpsilon)
	maxPolar := min(c.MaxPolar, gomath.Pi-polarEpsilon)
	c.phi = mgl32.Clamp(c.phi, minPolar, maxPolar)
	c.radius = mgl32.Clamp(c.radius, c.MinDistance, c.MaxDistance)

	sinPhi := float32(gomath.Sin(float64(c.phi)))
	off := mgl32.Vec3{
		c.radius * sinPhi * float32(gomath.Sin(float64(c.theta))),
		c.radius * float32(gomath.Cos(float64(c.phi))),
		c.radius * sinPhi * float32(gomath.Cos(float64(c.theta))),
	}
	c.cam.SetPosition(c.Target.Add(off))
	c.cam.LookAt(c.Target)
}

// HandleEvent reacts to a single input event.
func (c *OrbitControls) HandleEvent(e input.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case input.EventMouseDown:
		if e.Button == input.ButtonLeft {
			c.dragging = true
		}
	case input.EventMouseUp:
		if e.Button == input.ButtonLeft {
			c.dragging = false
		}
	case input.EventMouseMove:
		if c.dragging {
			c.drag(e.DeltaX, e.DeltaY)
		}
	case input.EventWheel:
		c.zoom(e.WheelY)
	case input.EventWindowResize:
		if e.Height > 0 {
			c.ViewportHeight = e.Height
		}
	}
}

// Attach subscribes the controls to src. Attaching again replaces the
// previous subscription.
func (c *OrbitControls) Attach(src input.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = src.Subscribe(c.HandleEvent)
}

// Dispose detaches the controls from their input source. Calling it more
// than once has no further effect.
func (c *OrbitControls) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.dragging = false
}

// Disposed reports whether Dispose has been called.
func (c *OrbitControls) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}
