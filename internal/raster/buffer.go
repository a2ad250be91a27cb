// Package raster is a small software rasterizer for textured box models.
package raster

import (
	"image"
	"image/color"
	"math"
)

// FrameBuffer holds the rendering target as flat slices for cache locality.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // NRGBA interleaved, len = W*H*4
	Depth  []float32 // NDC depth per pixel, +inf when empty
}

// NewFrameBuffer allocates a transparent colour buffer and an empty depth
// buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	fb := &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, w*h*4),
		Depth:  make([]float32, w*h),
	}
	fb.Clear(color.NRGBA{})
	return fb
}

// Clear fills the colour buffer with bg and resets depth.
func (fb *FrameBuffer) Clear(bg color.NRGBA) {
	for i := 0; i < len(fb.Color); i += 4 {
		fb.Color[i] = bg.R
		fb.Color[i+1] = bg.G
		fb.Color[i+2] = bg.B
		fb.Color[i+3] = bg.A
	}
	inf := float32(math.Inf(1))
	for i := range fb.Depth {
		fb.Depth[i] = inf
	}
}

// Image copies the colour buffer into a new image.
func (fb *FrameBuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	copy(img.Pix, fb.Color)
	return img
}

// Downsample box-filters the buffer by an integer factor, weighting colour
// by alpha so transparent pixels do not darken edges.
func (fb *FrameBuffer) Downsample(factor int) *image.NRGBA {
	if factor <= 1 {
		return fb.Image()
	}
	w, h := fb.Width/factor, fb.Height/factor
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := float64(factor * factor)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b, a float64
			for sy := 0; sy < factor; sy++ {
				row := (y*factor + sy) * fb.Width
				for sx := 0; sx < factor; sx++ {
					i := (row + x*factor + sx) * 4
					pa := float64(fb.Color[i+3])
					r += float64(fb.Color[i]) * pa
					g += float64(fb.Color[i+1]) * pa
					b += float64(fb.Color[i+2]) * pa
					a += pa
				}
			}
			o := img.PixOffset(x, y)
			if a > 0 {
				img.Pix[o] = clamp255(r / a)
				img.Pix[o+1] = clamp255(g / a)
				img.Pix[o+2] = clamp255(b / a)
			}
			img.Pix[o+3] = clamp255(a / n)
		}
	}
	return img
}

// blend composites a non-premultiplied colour over the pixel at i.
func (fb *FrameBuffer) blend(i int, r, g, b, a uint8) {
	if a == 0xff {
		fb.Color[i], fb.Color[i+1], fb.Color[i+2], fb.Color[i+3] = r, g, b, a
		return
	}
	sa := float64(a) / 255
	da := float64(fb.Color[i+3]) / 255
	outA := sa + da*(1-sa)
	if outA <= 0 {
		return
	}
	mix := func(s, d uint8) uint8 {
		return clamp255((float64(s)*sa + float64(d)*da*(1-sa)) / outA)
	}
	fb.Color[i] = mix(r, fb.Color[i])
	fb.Color[i+1] = mix(g, fb.Color[i+1])
	fb.Color[i+2] = mix(b, fb.Color[i+2])
	fb.Color[i+3] = clamp255(outA * 255)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
