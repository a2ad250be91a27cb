package skinimage

import (
	"image"
)

// BlendMode selects how the overlay is combined with the base.
type BlendMode int

const (
	// BlendOverwrite replaces every base pixel with the overlay pixel,
	// alpha included.
	BlendOverwrite BlendMode = iota
	// BlendOver composites the overlay over the base using its alpha.
	BlendOver
)

// ParseBlendMode maps "over" to BlendOver and anything else to
// BlendOverwrite.
func ParseBlendMode(s string) BlendMode {
	if s == "over" {
		return BlendOver
	}
	return BlendOverwrite
}

// Blend draws base and then overlay, both stretched to 64×64, onto a new
// atlas.
func Blend(base, overlay image.Image, mode BlendMode) (*image.NRGBA, error) {
	dst, err := Normalize(base)
	if err != nil {
		return nil, err
	}
	top, err := Normalize(overlay)
	if err != nil {
		return nil, err
	}

	if mode == BlendOverwrite {
		copy(dst.Pix, top.Pix)
		return dst, nil
	}

	for i := 0; i+3 < len(dst.Pix); i += 4 {
		compositeOver(dst.Pix[i:i+4], top.Pix[i:i+4])
	}
	return dst, nil
}

// compositeOver blends non-premultiplied src over dst in place.
func compositeOver(dst, src []uint8) {
	sa := uint32(src[3])
	if sa == 0xff {
		copy(dst, src)
		return
	}
	if sa == 0 {
		return
	}
	da := uint32(dst[3])

	// out alpha scaled by 255
	outA := sa*255 + da*(255-sa)
	if outA == 0 {
		dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 0
		return
	}
	for c := 0; c < 3; c++ {
		num := uint32(src[c])*sa*255 + uint32(dst[c])*da*(255-sa)
		dst[c] = uint8((num + outA/2) / outA)
	}
	dst[3] = uint8((outA + 127) / 255)
}
