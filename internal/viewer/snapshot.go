package viewer

import (
	"image"
	"math"

	"github.com/Faultbox/skinview/pkg/skin"
)

// Pose is a camera direction in degrees. Yaw turns around the vertical
// axis starting from the front; pitch raises the camera above the horizon.
type Pose struct {
	Yaw   float32
	Pitch float32
}

// Angles converts p to orbit azimuth and polar angle in radians.
func (p Pose) Angles() (theta, phi float32) {
	const rad = math.Pi / 180
	return p.Yaw * rad, (90 - p.Pitch) * rad
}

// RenderSkin renders a single frame of img on a throwaway viewer without
// starting a frame loop.
func RenderSkin(img image.Image, variant skin.Variant, pose Pose, opts Options) (*image.NRGBA, error) {
	opts.NoLoop = true
	opts.Scheduler = NewManualScheduler()
	opts.Input = nil

	v, err := New(&MemorySurface{}, opts)
	if err != nil {
		return nil, err
	}
	defer v.Dispose()

	if err := v.LoadSkinFromImage(img, variant); err != nil {
		return nil, err
	}
	theta, phi := pose.Angles()
	return v.Snapshot(theta, phi)
}
