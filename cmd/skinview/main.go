// Package main is the interactive skin viewer: drag to orbit, scroll to
// zoom.
//
// Keys: S toggles the slim model, R reloads the skin, F12 saves a
// screenshot, D toggles debug logging, Escape quits.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/config"
	"github.com/Faultbox/skinview/internal/glrender"
	"github.com/Faultbox/skinview/internal/input"
	"github.com/Faultbox/skinview/internal/logger"
	"github.com/Faultbox/skinview/internal/skinimage"
	"github.com/Faultbox/skinview/internal/viewer"
	"github.com/Faultbox/skinview/internal/window"
	"github.com/Faultbox/skinview/pkg/skin"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== skinview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

// source makes local paths absolute so watcher events match them.
func source(src string) string {
	if p, ok := viewer.LocalPath(src); ok {
		return p
	}
	return src
}

func run(cfg *config.Config) error {
	if cfg.Skin.Path == "" && cfg.Skin.Overlay == "" {
		return errors.New("no skin given: use --skin or skin.path")
	}
	variant, err := skin.ParseVariant(cfg.Skin.Variant)
	if err != nil {
		return err
	}
	opts, err := cfg.ViewerOptions()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	winCfg := window.Config{
		Title:  "skinview",
		Width:  cfg.Viewer.Width,
		Height: cfg.Viewer.Height,
		VSync:  true,
		OpenGL: cfg.Viewer.Renderer != "software",
	}
	win, err := window.New(winCfg, logger.Named("window"))
	if err != nil && winCfg.OpenGL {
		logger.Warn("OpenGL window unavailable, using software renderer", zap.Error(err))
		winCfg.OpenGL = false
		win, err = window.New(winCfg, logger.Named("window"))
	}
	if err != nil {
		return err
	}
	defer win.Close()

	// Transparent pixels are shown over a dark gray.
	bg := color.NRGBA{R: 48, G: 48, B: 48, A: 255}
	if opts.Background.A > 0 {
		bg = color.NRGBA{R: opts.Background.R, G: opts.Background.G, B: opts.Background.B, A: 255}
	}

	var surface viewer.Surface = win
	var gpu *glrender.Renderer
	if win.OpenGL() {
		gpu = glrender.New(logger.Named("gl"))
		if err := gpu.Init(); err != nil {
			return err
		}
		defer gpu.Release()
		gpu.Background = bg
		opts.Backend = gpu
		surface = nil
	}

	in := input.New()
	opts.Input = in
	opts.Loader = skinimage.NewLoader(cfg.Server.FetchTimeout)
	opts.Logger = logger.Named("viewer")

	v, err := viewer.New(surface, opts)
	if err != nil {
		return err
	}
	defer v.Dispose()

	state := viewer.NewSkinState(source(cfg.Skin.Path), source(cfg.Skin.Overlay), variant)
	state.SetBlendMode(skinimage.ParseBlendMode(cfg.Skin.Blend))
	if err := v.Apply(ctx, state); err != nil {
		return err
	}

	if cfg.Skin.Watch {
		w, err := viewer.NewSkinWatcher(v, state, logger.Named("watch"))
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Warn("watcher stopped", zap.Error(err))
			}
		}()
	}

	fps := cfg.Viewer.FPS
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		window.PollEvents(in)
		if in.Update() || in.IsKeyPressed("Escape") {
			return nil
		}
		handleKeys(ctx, v, win, in, state)

		if gpu != nil {
			if err := gpu.Draw(win.DrawableSize()); err != nil {
				return err
			}
			win.SwapBuffers()
		} else if err := win.Draw(bg.R, bg.G, bg.B); err != nil {
			return err
		}
	}
}

func handleKeys(ctx context.Context, v *viewer.Viewer, win *window.Window, in *input.Input, state *viewer.SkinState) {
	for _, e := range in.Events() {
		if e.Type == input.EventWindowResize {
			if err := v.SetSize(e.Width, e.Height); err != nil {
				logger.Warn("resize failed", zap.Error(err))
			}
		}
	}

	switch {
	case in.IsKeyPressed("S"):
		next := skin.VariantSlim
		if state.Variant() == skin.VariantSlim {
			next = skin.VariantDefault
		}
		state.SetVariant(next)
		if err := v.SetVariant(next); err != nil {
			logger.Warn("variant change failed", zap.Error(err))
		}
		win.SetTitle("skinview (" + next.String() + ")")

	case in.IsKeyPressed("R"):
		go func() {
			if err := v.Apply(ctx, state); err != nil && !errors.Is(err, viewer.ErrSuperseded) {
				logger.Warn("reload failed", zap.Error(err))
			}
		}()

	case in.IsKeyPressed("F12"):
		if path, err := screenshot(v.Snapshot(v.Controls().Angles())); err != nil {
			logger.Warn("screenshot failed", zap.Error(err))
		} else {
			logger.Info("screenshot saved", zap.String("path", path))
		}

	case in.IsKeyPressed("D"):
		if logger.Level() == zap.DebugLevel {
			logger.SetLevel("info")
		} else {
			logger.SetLevel("debug")
		}
		logger.Info("log level changed", zap.Stringer("level", logger.Level()))
	}
}

// screenshot writes frame to a timestamped PNG in the working directory.
func screenshot(frame *image.NRGBA, err error) (string, error) {
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("skinview_%s.png", time.Now().Format("2006-01-02_15-04-05"))
	if err := viewer.NewFileSurface(path).Present(frame); err != nil {
		return "", err
	}
	return path, nil
}
