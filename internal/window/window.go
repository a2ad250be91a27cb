// Package window opens the SDL2 window the viewer draws into, either
// through an OpenGL context or by streaming software frames, and feeds its
// events to an input queue.
package window

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"
)

func init() {
	// SDL video calls must be made from the main thread
	runtime.LockOSThread()
}

// Config holds window configuration.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool

	// OpenGL creates a 4.1 core context instead of an SDL renderer.
	OpenGL bool
}

// Window wraps an SDL2 window. In software mode it shows a streaming
// texture the size of the latest frame; in OpenGL mode the caller draws and
// calls SwapBuffers. Present may be called from any goroutine; Draw and
// every other method must run on the main thread.
type Window struct {
	config    Config
	sdlWindow *sdl.Window
	glContext sdl.GLContext
	renderer  *sdl.Renderer
	texture   *sdl.Texture
	texW      int
	texH      int
	log       *zap.Logger

	mu    sync.Mutex
	frame *image.NRGBA
	dirty bool
}

// New creates a new window with an OpenGL context or an SDL renderer.
func New(cfg Config, log *zap.Logger) (*Window, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Window{
		config: cfg,
		log:    log,
	}

	log.Info("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	// Pixel art skins need nearest scaling when the window is stretched.
	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "0")

	if cfg.OpenGL {
		sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
		sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
		sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
		sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)
		sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 24)
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_RESIZABLE)
	if cfg.OpenGL {
		flags |= sdl.WINDOW_OPENGL | sdl.WINDOW_ALLOW_HIGHDPI
	}
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}

	var err error
	w.sdlWindow, err = sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	if cfg.OpenGL {
		if err := w.createContext(); err != nil {
			return nil, err
		}
	} else if err := w.createRenderer(); err != nil {
		return nil, err
	}

	log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
		zap.Bool("opengl", cfg.OpenGL),
	)

	return w, nil
}

func (w *Window) createContext() error {
	var err error
	w.glContext, err = w.sdlWindow.GLCreateContext()
	if err != nil {
		_ = w.sdlWindow.Destroy()
		sdl.Quit()
		return fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	if w.config.VSync {
		if err := sdl.GLSetSwapInterval(1); err != nil {
			w.log.Warn("failed to enable VSync", zap.Error(err))
		}
	} else {
		_ = sdl.GLSetSwapInterval(0)
	}
	return nil
}

func (w *Window) createRenderer() error {
	cfg, log := w.config, w.log
	var err error
	rflags := uint32(sdl.RENDERER_ACCELERATED)
	if cfg.VSync {
		rflags |= sdl.RENDERER_PRESENTVSYNC
	}
	w.renderer, err = sdl.CreateRenderer(w.sdlWindow, -1, rflags)
	if err != nil {
		log.Warn("accelerated renderer unavailable, using software", zap.Error(err))
		w.renderer, err = sdl.CreateRenderer(w.sdlWindow, -1, sdl.RENDERER_SOFTWARE)
	}
	if err != nil {
		_ = w.sdlWindow.Destroy()
		sdl.Quit()
		return fmt.Errorf("SDL_CreateRenderer failed: %w", err)
	}
	return nil
}

// OpenGL reports whether the window has a GL context.
func (w *Window) OpenGL() bool { return w.glContext != nil }

// SwapBuffers swaps the OpenGL buffers.
func (w *Window) SwapBuffers() {
	w.sdlWindow.GLSwap()
}

// DrawableSize returns the framebuffer size in pixels, which exceeds the
// window size on high DPI displays.
func (w *Window) DrawableSize() (int, int) {
	if w.OpenGL() {
		width, height := w.sdlWindow.GLGetDrawableSize()
		return int(width), int(height)
	}
	return w.GetSize()
}

// Present queues frame for the next Draw.
func (w *Window) Present(frame *image.NRGBA) error {
	w.mu.Lock()
	w.frame = frame
	w.dirty = true
	w.mu.Unlock()
	return nil
}

// Draw uploads the latest frame if it changed and shows it scaled to the
// window. Transparent pixels show the clear color.
func (w *Window) Draw(bgR, bgG, bgB uint8) error {
	if w.renderer == nil {
		return errors.New("window: no software renderer")
	}
	w.mu.Lock()
	frame, dirty := w.frame, w.dirty
	w.dirty = false
	w.mu.Unlock()

	if frame != nil && dirty {
		if err := w.upload(frame); err != nil {
			return err
		}
	}

	if err := w.renderer.SetDrawColor(bgR, bgG, bgB, 255); err != nil {
		return fmt.Errorf("window: set draw color: %w", err)
	}
	if err := w.renderer.Clear(); err != nil {
		return fmt.Errorf("window: clear: %w", err)
	}
	if w.texture != nil {
		if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
			return fmt.Errorf("window: copy: %w", err)
		}
	}
	w.renderer.Present()
	return nil
}

func (w *Window) upload(frame *image.NRGBA) error {
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	if w.texture == nil || fw != w.texW || fh != w.texH {
		if w.texture != nil {
			_ = w.texture.Destroy()
			w.texture = nil
		}
		tex, err := w.renderer.CreateTexture(sdl.PIXELFORMAT_RGBA32, sdl.TEXTUREACCESS_STREAMING, int32(fw), int32(fh))
		if err != nil {
			return fmt.Errorf("window: create texture: %w", err)
		}
		if err := tex.SetBlendMode(sdl.BLENDMODE_BLEND); err != nil {
			w.log.Warn("texture blending unavailable", zap.Error(err))
		}
		w.texture, w.texW, w.texH = tex, fw, fh
		w.log.Debug("texture resized", zap.Int("width", fw), zap.Int("height", fh))
	}

	pixels, pitch, err := w.texture.Lock(nil)
	if err != nil {
		return fmt.Errorf("window: lock texture: %w", err)
	}
	row := fw * 4
	for y := 0; y < fh; y++ {
		src := frame.Pix[frame.PixOffset(frame.Rect.Min.X, frame.Rect.Min.Y+y):]
		copy(pixels[y*pitch:y*pitch+row], src[:row])
	}
	w.texture.Unlock()
	return nil
}

// Close destroys the window and cleans up SDL2.
func (w *Window) Close() {
	w.log.Info("closing window")

	if w.texture != nil {
		_ = w.texture.Destroy()
	}
	if w.renderer != nil {
		_ = w.renderer.Destroy()
	}
	if w.glContext != nil {
		sdl.GLDeleteContext(w.glContext)
	}
	if w.sdlWindow != nil {
		_ = w.sdlWindow.Destroy()
	}

	sdl.Quit()
}

// GetSize returns the current window size.
func (w *Window) GetSize() (int, int) {
	width, height := w.sdlWindow.GetSize()
	return int(width), int(height)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.sdlWindow.SetTitle(title)
}
