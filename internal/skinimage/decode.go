// Package skinimage decodes, resamples, blends and encodes skin textures.
package skinimage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/Faultbox/skinview/pkg/skin"
)

var (
	// ErrDecode is returned when image data cannot be decoded.
	ErrDecode = errors.New("skinimage: decode failed")

	// ErrNoContext is returned when a drawing target cannot be allocated.
	ErrNoContext = errors.New("skinimage: no drawing context")
)

// MaxDimension bounds the declared width and height of a decoded image.
// Skins are 64×64; high resolution packs stop well below this.
const MaxDimension = 1024

type decoder struct {
	name   string
	magic  func([]byte) bool
	config func(io.Reader) (image.Config, error)
	decode func(io.Reader) (image.Image, error)
}

func prefix(p string) func([]byte) bool {
	return func(b []byte) bool { return bytes.HasPrefix(b, []byte(p)) }
}

// TGA has no signature, so it is tried last rather than sniffed; the
// registry in package image cannot express that.
var decoders = []decoder{
	{"png", prefix("\x89PNG\r\n\x1a\n"), png.DecodeConfig, png.Decode},
	{"jpeg", prefix("\xff\xd8"), jpeg.DecodeConfig, jpeg.Decode},
	{"gif", prefix("GIF8"), gif.DecodeConfig, gif.Decode},
	{"bmp", prefix("BM"), bmp.DecodeConfig, bmp.Decode},
	{"webp", func(b []byte) bool {
		return len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP"
	}, webp.DecodeConfig, webp.Decode},
	{"tga", func([]byte) bool { return true }, tga.DecodeConfig, tga.Decode},
}

// Decode reads a PNG, JPEG, GIF, BMP, WebP or TGA image and reports which
// format it was. Images declaring more than MaxDimension pixels on either
// side are rejected before any pixels are decoded.
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	for _, d := range decoders {
		if !d.magic(data) {
			continue
		}
		cfg, err := d.config(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrDecode, d.name, err)
		}
		if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
			return nil, "", fmt.Errorf("%w: %s: %dx%d exceeds %dx%d",
				ErrDecode, d.name, cfg.Width, cfg.Height, MaxDimension, MaxDimension)
		}
		img, err := d.decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrDecode, d.name, err)
		}
		return img, d.name, nil
	}
	return nil, "", fmt.Errorf("%w: unknown format", ErrDecode)
}

// NewCanvas allocates a transparent drawing target.
func NewCanvas(width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoContext, width, height)
	}
	return image.NewNRGBA(image.Rect(0, 0, width, height)), nil
}

// Normalize resamples src to a 64×64 atlas. Sources of another size are
// scaled, never cropped; nearest neighbour keeps skin pixels crisp.
func Normalize(src image.Image) (*image.NRGBA, error) {
	dst, err := NewCanvas(skin.AtlasSize, skin.AtlasSize)
	if err != nil {
		return nil, err
	}
	drawScaled(dst, src)
	return dst, nil
}

// drawScaled overwrites all of dst with src stretched to fit.
func drawScaled(dst *image.NRGBA, src image.Image) {
	sb := src.Bounds()
	if sb.Dx() == dst.Rect.Dx() && sb.Dy() == dst.Rect.Dy() {
		copyExact(dst, src)
		return
	}
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
}

// copyExact copies same-sized images without a premultiplied round trip,
// so partially transparent texels keep their exact colour.
func copyExact(dst *image.NRGBA, src image.Image) {
	sb := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok {
		for y := 0; y < sb.Dy(); y++ {
			so := n.PixOffset(sb.Min.X, sb.Min.Y+y)
			do := dst.PixOffset(0, y)
			copy(dst.Pix[do:do+sb.Dx()*4], n.Pix[so:so+sb.Dx()*4])
		}
		return
	}
	for y := 0; y < sb.Dy(); y++ {
		for x := 0; x < sb.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(sb.Min.X+x, sb.Min.Y+y)).(color.NRGBA)
			i := dst.PixOffset(x, y)
			dst.Pix[i] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = c.A
		}
	}
}

// Clone copies src into a new NRGBA image of the same size, origin at 0,0.
func Clone(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	copyExact(dst, src)
	return dst
}
