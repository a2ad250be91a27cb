// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/Faultbox/skinview/internal/viewer"
)

// Config holds all settings.
type Config struct {
	Viewer  ViewerConfig  `yaml:"viewer"`
	Camera  CameraConfig  `yaml:"camera"`
	Skin    SkinConfig    `yaml:"skin"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// ViewerConfig holds the drawing surface settings.
type ViewerConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	FPS         int    `yaml:"fps"`
	Background  string `yaml:"background"` // "transparent" or #rrggbb[aa]
	Supersample int    `yaml:"supersample"`
	Renderer    string `yaml:"renderer"` // "opengl" or "software"
}

// CameraConfig holds the orbit camera settings.
type CameraConfig struct {
	FOV         float32 `yaml:"fov"`
	Distance    float32 `yaml:"distance"`
	MinDistance float32 `yaml:"min_distance"`
	MaxDistance float32 `yaml:"max_distance"`
	Damping     float32 `yaml:"damping"`
	RotateSpeed float32 `yaml:"rotate_speed"`
	ZoomSpeed   float32 `yaml:"zoom_speed"`
}

// SkinConfig holds the skin sources.
type SkinConfig struct {
	Path    string `yaml:"path"`    // file path or URL
	Overlay string `yaml:"overlay"` // optional, blended over Path
	Variant string `yaml:"variant"` // default or slim
	Blend   string `yaml:"blend"`   // overwrite or over
	Watch   bool   `yaml:"watch"`   // reload local files on change
}

// OutputConfig holds headless render output settings.
type OutputConfig struct {
	Path   string  `yaml:"path"`
	Format string  `yaml:"format"` // webp or png; empty picks from Path
	Yaw    float32 `yaml:"yaw"`
	Pitch  float32 `yaml:"pitch"`
	GLB    string  `yaml:"glb"` // empty disables glTF export
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxSize      int           `yaml:"max_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			Width:       400,
			Height:      600,
			FPS:         60,
			Background:  "transparent",
			Supersample: 1,
			Renderer:    "opengl",
		},
		Camera: CameraConfig{
			FOV:         50,
			Distance:    40,
			MinDistance: 20,
			MaxDistance: 100,
			Damping:     0.05,
			RotateSpeed: 1,
			ZoomSpeed:   1,
		},
		Skin: SkinConfig{
			Variant: "default",
			Blend:   "overwrite",
		},
		Output: OutputConfig{
			Path: "skin.webp",
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			FetchTimeout: 10 * time.Second,
			MaxSize:      1024,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ViewerOptions converts the viewer and camera sections.
func (c *Config) ViewerOptions() (viewer.Options, error) {
	bg, err := ParseColor(c.Viewer.Background)
	if err != nil {
		return viewer.Options{}, err
	}
	return viewer.Options{
		Width:       c.Viewer.Width,
		Height:      c.Viewer.Height,
		FPS:         c.Viewer.FPS,
		Background:  bg,
		Supersample: c.Viewer.Supersample,
		Camera: viewer.CameraOptions{
			FOV:         c.Camera.FOV,
			Distance:    c.Camera.Distance,
			MinDistance: c.Camera.MinDistance,
			MaxDistance: c.Camera.MaxDistance,
			Damping:     c.Camera.Damping,
			RotateSpeed: c.Camera.RotateSpeed,
			ZoomSpeed:   c.Camera.ZoomSpeed,
		},
	}, nil
}

// ParseColor accepts "transparent", "" and #rgb, #rrggbb or #rrggbbaa hex.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "transparent" {
		return color.NRGBA{}, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("config: invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("config: invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
