package raster

import "image"

// SampleNearest returns the texel under (u, v) with v = 1 at the top row.
// Coordinates outside [0, 1] are clamped to the edge.
func SampleNearest(tex *image.NRGBA, u, v float32) (r, g, b, a uint8) {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()
	if w == 0 || h == 0 {
		return 0, 0, 0, 0
	}

	x := clampIndex(int(u*float32(w)), w)
	y := clampIndex(int((1-v)*float32(h)), h)

	i := tex.PixOffset(tex.Rect.Min.X+x, tex.Rect.Min.Y+y)
	return tex.Pix[i], tex.Pix[i+1], tex.Pix[i+2], tex.Pix[i+3]
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
