package raster

import (
	"image"
	"math"
)

// vertex is a projected vertex. u and v are pre-divided by w so they can
// be interpolated linearly in screen space.
type vertex struct {
	x, y, z float32 // pixels, pixels, NDC depth
	invW    float32
	u, v    float32
}

// fragment holds the per-triangle state shared by all its pixels.
type fragment struct {
	tex       *image.NRGBA
	alphaTest float32
	shade     float32
	blend     bool
}

// rasterizeTriangle fills a triangle with perspective-correct nearest
// texturing, depth testing and flat shading. It returns the number of
// pixels written.
//
// Zero allocations in the pixel loop.
func rasterizeTriangle(fb *FrameBuffer, t [3]vertex, f *fragment) int {
	area := edge(t[0].x, t[0].y, t[1].x, t[1].y, t[2].x, t[2].y)
	if area > -1e-8 && area < 1e-8 {
		return 0
	}
	invArea := 1 / area

	minX := int(math.Floor(float64(min(t[0].x, t[1].x, t[2].x))))
	maxX := int(math.Ceil(float64(max(t[0].x, t[1].x, t[2].x))))
	minY := int(math.Floor(float64(min(t[0].y, t[1].y, t[2].y))))
	maxY := int(math.Ceil(float64(max(t[0].y, t[1].y, t[2].y))))
	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, fb.Width-1)
	maxY = min(maxY, fb.Height-1)
	if minX > maxX || minY > maxY {
		return 0
	}

	written := 0
	for sy := minY; sy <= maxY; sy++ {
		py := float32(sy) + 0.5
		row := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			px := float32(sx) + 0.5

			w0 := edge(t[1].x, t[1].y, t[2].x, t[2].y, px, py) * invArea
			w1 := edge(t[2].x, t[2].y, t[0].x, t[0].y, px, py) * invArea
			w2 := 1 - w0 - w1
			if w0 < -1e-5 || w1 < -1e-5 || w2 < -1e-5 {
				continue
			}

			z := w0*t[0].z + w1*t[1].z + w2*t[2].z
			zi := row + sx
			if z > fb.Depth[zi] {
				continue
			}

			r, g, b, a := uint8(255), uint8(255), uint8(255), uint8(255)
			if f.tex != nil {
				invW := w0*t[0].invW + w1*t[1].invW + w2*t[2].invW
				u := (w0*t[0].u + w1*t[1].u + w2*t[2].u) / invW
				v := (w0*t[0].v + w1*t[1].v + w2*t[2].v) / invW
				r, g, b, a = SampleNearest(f.tex, u, v)
			}
			if float32(a)/255 < f.alphaTest || a == 0 {
				continue
			}
			fb.Depth[zi] = z

			r = clamp255(float64(float32(r) * f.shade))
			g = clamp255(float64(float32(g) * f.shade))
			b = clamp255(float64(float32(b) * f.shade))

			ci := zi * 4
			if f.blend {
				fb.blend(ci, r, g, b, a)
			} else {
				fb.Color[ci], fb.Color[ci+1], fb.Color[ci+2], fb.Color[ci+3] = r, g, b, 255
			}
			written++
		}
	}
	return written
}

// edge is twice the signed area of (a, b, c).
func edge(ax, ay, bx, by, cx, cy float32) float32 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}
