package skinimage

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Format is an output image encoding.
type Format string

const (
	FormatWebP Format = "webp"
	FormatPNG  Format = "png"
)

// ParseFormat accepts "webp" and "png" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatWebP, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("skinimage: unsupported output format %q", s)
}

// FormatFromPath picks the format from a file extension, defaulting to WebP.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return FormatWebP
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/webp"
}

// Encode writes img to w in format f. WebP output is lossless.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatPNG:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("skinimage: png encode: %w", err)
		}
	default:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("skinimage: webp encode: %w", err)
		}
	}
	return nil
}
