package skinimage

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 30, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 5, G: 90, B: 250, A: 128})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	img, format, err := Decode(bytes.NewReader(encodePNG(t, checker(4, 4))))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
}

func TestDecodeTGA(t *testing.T) {
	// Uncompressed true colour, 2×1, 24 bpp, top-left origin.
	data := []byte{
		0, 0, 2,
		0, 0, 0, 0, 0,
		0, 0, 0, 0,
		2, 0, 1, 0,
		24, 0x20,
		0x30, 0x20, 0x10, // BGR
		0x00, 0x00, 0xff,
	}
	img, format, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "tga", format)
	require.Equal(t, image.Rect(0, 0, 2, 1), img.Bounds())

	c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, c)
	c = color.NRGBAModel.Convert(img.At(1, 0)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, c)
}

func TestDecodeGarbage(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("not an image")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))

	_, _, err = Decode(bytes.NewReader([]byte("\x89PNG\r\n\x1a\ntruncated")))
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestDecodeRejectsHugeDimensions(t *testing.T) {
	for _, size := range [][2]int{{MaxDimension + 1, 1}, {1, 8000}} {
		data := encodePNG(t, image.NewGray(image.Rect(0, 0, size[0], size[1])))
		_, _, err := Decode(bytes.NewReader(data))
		require.Error(t, err, "%v", size)
		assert.True(t, errors.Is(err, ErrDecode), "%v", size)
		assert.Contains(t, err.Error(), "exceeds")
	}

	img, _, err := Decode(bytes.NewReader(encodePNG(t, image.NewGray(image.Rect(0, 0, MaxDimension, 1)))))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, img.Bounds().Dx())
}

func TestNewCanvas(t *testing.T) {
	c, err := NewCanvas(3, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), c.Bounds())

	for _, size := range [][2]int{{0, 64}, {64, 0}, {-1, 5}} {
		_, err := NewCanvas(size[0], size[1])
		assert.True(t, errors.Is(err, ErrNoContext), "%v", size)
	}
}

func TestNormalizeExactCopy(t *testing.T) {
	src := checker(64, 64)
	dst, err := Normalize(src)
	require.NoError(t, err)

	assert.Equal(t, src.Pix, dst.Pix)
	assert.NotSame(t, &src.Pix[0], &dst.Pix[0])
}

func TestNormalizeOffsetBounds(t *testing.T) {
	big := checker(80, 80)
	sub := big.SubImage(image.Rect(8, 8, 72, 72))

	dst, err := Normalize(sub)
	require.NoError(t, err)
	assert.Equal(t, big.NRGBAAt(8, 8), dst.NRGBAAt(0, 0))
	assert.Equal(t, big.NRGBAAt(71, 71), dst.NRGBAAt(63, 63))
}

func TestNormalizeScalesLegacySkin(t *testing.T) {
	// A 64×32 legacy skin is stretched vertically, never cropped.
	src := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	red := color.NRGBA{R: 255, A: 255}
	for x := 0; x < 64; x++ {
		src.SetNRGBA(x, 31, red)
	}

	dst, err := Normalize(src)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 64, 64), dst.Bounds())
	assert.Equal(t, red, dst.NRGBAAt(10, 63))
	assert.Equal(t, red, dst.NRGBAAt(10, 62))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(10, 0))
}

func TestNormalizeUpscale(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	green := color.NRGBA{G: 255, A: 255}
	src.SetNRGBA(1, 1, green)

	dst, err := Normalize(src)
	require.NoError(t, err)
	assert.Equal(t, green, dst.NRGBAAt(32, 32))
	assert.Equal(t, green, dst.NRGBAAt(63, 63))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(31, 31))
}
