// Package viewer renders a player model interactively: it owns the scene,
// camera, orbit controls, renderer and frame loop.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/camera"
	"github.com/Faultbox/skinview/internal/drawlist"
	"github.com/Faultbox/skinview/internal/input"
	"github.com/Faultbox/skinview/internal/raster"
	"github.com/Faultbox/skinview/internal/skinimage"
	"github.com/Faultbox/skinview/pkg/skin"
)

var (
	// ErrDisposed is returned by calls made after Dispose.
	ErrDisposed = errors.New("viewer: disposed")

	// ErrSuperseded is returned by a load that finished after a newer
	// load was applied. The newer skin stays.
	ErrSuperseded = errors.New("viewer: load superseded")
)

// Backend draws frames on a target other than a Surface, such as a GL
// window. Render runs with the viewer locked and must not wait for the
// thread that draws.
type Backend interface {
	Render(root *skin.Node, cam drawlist.Camera, width, height int) error
	Dispose()
}

// CameraOptions tune the camera and orbit controls.
type CameraOptions struct {
	FOV         float32
	Distance    float32
	MinDistance float32
	MaxDistance float32
	Damping     float32 // 0 disables damping
	RotateSpeed float32
	ZoomSpeed   float32
}

// DefaultCameraOptions returns the standard viewer camera.
func DefaultCameraOptions() CameraOptions {
	return CameraOptions{
		FOV:         camera.DefaultFOV,
		Distance:    40,
		MinDistance: camera.DefaultMinDistance,
		MaxDistance: camera.DefaultMaxDistance,
		Damping:     camera.DefaultDampingFactor,
		RotateSpeed: 1,
		ZoomSpeed:   1,
	}
}

// Options configure a Viewer. Zero values select defaults.
type Options struct {
	Width      int
	Height     int
	Background color.NRGBA
	Camera     CameraOptions

	// Supersample renders at a multiple of the output size.
	Supersample int

	// FPS of the default scheduler.
	FPS int

	// Scheduler drives the frame loop. Defaults to a TickerScheduler.
	Scheduler Scheduler

	// Backend, if set, receives every frame instead of the surface, which
	// may then be nil. Snapshots still use the software rasterizer.
	Backend Backend

	// Input, if set, is bound to the orbit controls.
	Input input.Source

	// Loader fetches skins for LoadSkin.
	Loader *skinimage.Loader

	// NoLoop leaves the frame loop stopped until Start is called.
	NoLoop bool

	Logger *zap.Logger
}

// Viewer draws a player model to a Surface.
type Viewer struct {
	mu sync.Mutex

	surface  Surface
	model    *skin.PlayerModel
	camera   *camera.PerspectiveCamera
	controls *camera.OrbitControls
	renderer *raster.Renderer
	backend  Backend
	sched    Scheduler
	loader   *skinimage.Loader
	log      *zap.Logger

	width, height int

	frame    FrameID
	running  bool
	disposed bool

	loads   atomic.Uint64 // last load ticket handed out
	applied uint64        // ticket of the skin on screen
}

// New builds the scene and, unless opts.NoLoop is set, starts the frame
// loop.
func New(surface Surface, opts Options) (*Viewer, error) {
	if surface == nil && opts.Backend == nil {
		return nil, errors.New("viewer: nil surface")
	}
	if opts.Width == 0 {
		opts.Width = 400
	}
	if opts.Height == 0 {
		opts.Height = 600
	}
	if opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("viewer: invalid size %dx%d: %w", opts.Width, opts.Height, skinimage.ErrNoContext)
	}
	if opts.Camera == (CameraOptions{}) {
		opts.Camera = DefaultCameraOptions()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = NewTickerScheduler(opts.FPS)
	}
	loader := opts.Loader
	if loader == nil {
		loader = skinimage.NewLoader(10 * time.Second)
	}

	cam := camera.NewPerspectiveCamera(opts.Camera.FOV, float32(opts.Width)/float32(opts.Height),
		camera.DefaultNear, camera.DefaultFar)
	cam.SetPosition(mgl32.Vec3{0, 0, opts.Camera.Distance})
	cam.LookAt(mgl32.Vec3{})

	controls := camera.NewOrbitControls(cam)
	controls.MinDistance = opts.Camera.MinDistance
	controls.MaxDistance = opts.Camera.MaxDistance
	controls.EnableDamping = opts.Camera.Damping > 0
	controls.DampingFactor = opts.Camera.Damping
	controls.RotateSpeed = opts.Camera.RotateSpeed
	controls.ZoomSpeed = opts.Camera.ZoomSpeed
	controls.ViewportHeight = opts.Height
	if opts.Input != nil {
		controls.Attach(opts.Input)
	}

	r := raster.NewRenderer(log.Named("raster"))
	r.Background = opts.Background
	r.Supersample = opts.Supersample

	v := &Viewer{
		surface:  surface,
		model:    skin.NewPlayerModel(),
		camera:   cam,
		controls: controls,
		renderer: r,
		backend:  opts.Backend,
		sched:    sched,
		loader:   loader,
		log:      log,
		width:    opts.Width,
		height:   opts.Height,
	}

	log.Debug("viewer created", zap.Int("width", opts.Width), zap.Int("height", opts.Height))

	if !opts.NoLoop {
		if err := v.Start(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Start renders a frame and keeps rendering every frame until Stop or
// Dispose.
func (v *Viewer) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrDisposed
	}
	if v.running {
		return nil
	}
	v.running = true
	if err := v.renderLocked(); err != nil {
		v.log.Warn("frame failed", zap.Error(err))
	}
	v.frame = v.sched.Request(v.animate)
	return nil
}

// Stop halts the frame loop.
func (v *Viewer) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()
}

func (v *Viewer) stopLocked() {
	if !v.running {
		return
	}
	v.running = false
	v.sched.Cancel(v.frame)
	v.frame = 0
}

// Running reports whether the frame loop is active.
func (v *Viewer) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}

func (v *Viewer) animate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.running || v.disposed {
		return
	}
	if err := v.renderLocked(); err != nil {
		v.log.Warn("frame failed", zap.Error(err))
	}
	v.frame = v.sched.Request(v.animate)
}

// LoadSkin fetches src, resamples it to 64×64 and applies it with variant.
// It blocks until the image is decoded; on failure the model is unchanged.
// If a later load is applied first, the result is dropped with
// ErrSuperseded.
func (v *Viewer) LoadSkin(ctx context.Context, src string, variant skin.Variant) error {
	return v.load(ctx, src, variant, v.loads.Add(1))
}

func (v *Viewer) load(ctx context.Context, src string, variant skin.Variant, ticket uint64) error {
	if v.Disposed() {
		return ErrDisposed
	}
	img, err := v.loader.LoadSkin(ctx, src)
	if err != nil {
		return fmt.Errorf("viewer: load skin: %w", err)
	}
	v.log.Info("skin loaded", zap.String("source", src), zap.Stringer("variant", variant))
	return v.apply(img, variant, ticket)
}

// LoadSkinFromImage applies img as the texture as is, then switches to
// variant and renders once. The image size is not checked.
func (v *Viewer) LoadSkinFromImage(img image.Image, variant skin.Variant) error {
	if img == nil {
		return fmt.Errorf("viewer: nil image: %w", skinimage.ErrDecode)
	}
	return v.apply(skinimage.Clone(img), variant, v.loads.Add(1))
}

// apply shows img unless a load with a later ticket is already on screen.
func (v *Viewer) apply(img *image.NRGBA, variant skin.Variant, ticket uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrDisposed
	}
	if ticket < v.applied {
		v.log.Debug("stale skin dropped", zap.Uint64("ticket", ticket), zap.Uint64("applied", v.applied))
		return ErrSuperseded
	}
	v.applied = ticket

	v.model.SetTexture(skin.NewTexture(img))
	if v.model.Variant() != variant {
		v.log.Debug("variant changed", zap.Stringer("from", v.model.Variant()), zap.Stringer("to", variant))
	}
	v.model.SetVariant(variant)
	return v.renderLocked()
}

// SetVariant switches the arm shape and renders once.
func (v *Viewer) SetVariant(variant skin.Variant) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrDisposed
	}
	v.model.SetVariant(variant)
	return v.renderLocked()
}

// SetSize resizes the output and renders once.
func (v *Viewer) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("viewer: invalid size %dx%d: %w", width, height, skinimage.ErrNoContext)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrDisposed
	}
	v.width, v.height = width, height
	v.camera.SetAspect(float32(width) / float32(height))
	v.controls.ViewportHeight = height
	v.log.Debug("viewer resized", zap.Int("width", width), zap.Int("height", height))
	return v.renderLocked()
}

// Size returns the output size.
func (v *Viewer) Size() (width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

// Render advances the controls and presents one frame.
func (v *Viewer) Render() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrDisposed
	}
	return v.renderLocked()
}

func (v *Viewer) renderLocked() error {
	v.controls.Update()
	if v.backend != nil {
		if err := v.backend.Render(v.model.Root(), v.camera, v.width, v.height); err != nil {
			return fmt.Errorf("viewer: render: %w", err)
		}
		return nil
	}
	frame := v.renderer.Render(v.model.Root(), v.camera, v.width, v.height)
	if frame == nil {
		return ErrDisposed
	}
	if err := v.surface.Present(frame); err != nil {
		return fmt.Errorf("viewer: present: %w", err)
	}
	return nil
}

// Snapshot renders one frame from the given orbit angles with the
// software rasterizer, without presenting it. The camera returns to its
// previous place afterwards.
func (v *Viewer) Snapshot(theta, phi float32) (*image.NRGBA, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return nil, ErrDisposed
	}
	var frame *image.NRGBA
	v.controls.WithAngles(theta, phi, func() {
		frame = v.renderer.Render(v.model.Root(), v.camera, v.width, v.height)
	})
	if frame == nil {
		return nil, ErrDisposed
	}
	return frame, nil
}

// Controls returns the orbit controls.
func (v *Viewer) Controls() *camera.OrbitControls { return v.controls }

// Camera returns the viewer camera.
func (v *Viewer) Camera() *camera.PerspectiveCamera { return v.camera }

// Model returns the player model. Mutate it only through the viewer while
// the frame loop runs.
func (v *Viewer) Model() *skin.PlayerModel { return v.model }

// Stats returns renderer counters of the last frame.
func (v *Viewer) Stats() raster.Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renderer.Stats()
}

// Dispose stops the frame loop, detaches the orbit controls from their
// input and releases the renderers. Each is released once; later calls are
// no-ops.
func (v *Viewer) Dispose() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return
	}
	v.disposed = true

	v.stopLocked()
	v.controls.Dispose()
	v.renderer.Dispose()
	if v.backend != nil {
		v.backend.Dispose()
	}
	v.log.Debug("viewer disposed")
}

// Disposed reports whether Dispose has been called.
func (v *Viewer) Disposed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disposed
}
