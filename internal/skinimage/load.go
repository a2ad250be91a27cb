package skinimage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrFetch is returned when image bytes cannot be read from their source.
var ErrFetch = errors.New("skinimage: fetch failed")

// DefaultMaxBytes bounds how much of a source is read.
const DefaultMaxBytes = 8 << 20

// Loader reads images from file paths, file:// URLs and http(s) URLs.
type Loader struct {
	Client   *http.Client
	MaxBytes int64
}

// NewLoader returns a loader whose HTTP requests time out after timeout.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: DefaultMaxBytes,
	}
}

var defaultLoader = NewLoader(10 * time.Second)

// Load reads and decodes src with the default loader.
func Load(ctx context.Context, src string) (image.Image, error) {
	return defaultLoader.Load(ctx, src)
}

// LoadSkin reads src and resamples it to a 64×64 atlas.
func LoadSkin(ctx context.Context, src string) (*image.NRGBA, error) {
	return defaultLoader.LoadSkin(ctx, src)
}

// Load reads and decodes src. It blocks until the image is fully decoded.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	rc, err := l.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	img, _, err := Decode(io.LimitReader(rc, limit))
	if err != nil {
		return nil, fmt.Errorf("skinimage: load %s: %w", src, err)
	}
	return img, nil
}

// LoadSkin reads src and resamples it to a 64×64 atlas.
func (l *Loader) LoadSkin(ctx context.Context, src string) (*image.NRGBA, error) {
	img, err := l.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return Normalize(img)
}

// LoadPair reads two sources concurrently. Both must succeed.
func (l *Loader) LoadPair(ctx context.Context, a, b string) (image.Image, image.Image, error) {
	var (
		wg         sync.WaitGroup
		imgA, imgB image.Image
		errA, errB error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		imgA, errA = l.Load(ctx, a)
	}()
	go func() {
		defer wg.Done()
		imgB, errB = l.Load(ctx, b)
	}()
	wg.Wait()

	if errA != nil {
		return nil, nil, errA
	}
	if errB != nil {
		return nil, nil, errB
	}
	return imgA, imgB, nil
}

// LoadBlend reads base and overlay concurrently and blends them.
func (l *Loader) LoadBlend(ctx context.Context, base, overlay string, mode BlendMode) (*image.NRGBA, error) {
	a, b, err := l.LoadPair(ctx, base, overlay)
	if err != nil {
		return nil, err
	}
	return Blend(a, b, mode)
}

func (l *Loader) open(ctx context.Context, src string) (io.ReadCloser, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: empty source", ErrFetch)
	}

	u, err := url.Parse(src)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l.fetch(ctx, src)
		case "file":
			src = u.Path
		}
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return f, nil
}

func (l *Loader) fetch(ctx context.Context, src string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: %s", ErrFetch, src, resp.Status)
	}
	return resp.Body, nil
}
