package viewer

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/Faultbox/skinview/internal/skinimage"
)

// Surface receives rendered frames.
type Surface interface {
	Present(frame *image.NRGBA) error
}

// MemorySurface keeps the latest frame in memory.
type MemorySurface struct {
	mu     sync.Mutex
	frame  *image.NRGBA
	frames int
}

// Present stores frame.
func (s *MemorySurface) Present(frame *image.NRGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
	s.frames++
	return nil
}

// Frame returns the latest frame, or nil before the first render.
func (s *MemorySurface) Frame() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Frames returns how many frames were presented.
func (s *MemorySurface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// FileSurface writes every presented frame to Path, replacing the previous
// one.
type FileSurface struct {
	Path   string
	Format skinimage.Format
}

// NewFileSurface picks the encoding from the file extension.
func NewFileSurface(path string) *FileSurface {
	return &FileSurface{Path: path, Format: skinimage.FormatFromPath(path)}
}

// Present encodes frame to a temporary file and renames it over Path.
func (s *FileSurface) Present(frame *image.NRGBA) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("viewer: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".frame-*")
	if err != nil {
		return fmt.Errorf("viewer: create frame: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := skinimage.Encode(tmp, frame, s.Format); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("viewer: write frame: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("viewer: write frame: %w", err)
	}
	return nil
}
