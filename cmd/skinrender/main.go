// Package main renders a skin to a still image and optionally exports the
// player model as binary glTF.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/config"
	"github.com/Faultbox/skinview/internal/export"
	"github.com/Faultbox/skinview/internal/logger"
	"github.com/Faultbox/skinview/internal/skinimage"
	"github.com/Faultbox/skinview/internal/viewer"
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Error("render failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Skin.Path == "" {
		return errors.New("no skin given: use --skin or skin.path")
	}
	variant, err := skin.ParseVariant(cfg.Skin.Variant)
	if err != nil {
		return err
	}

	loader := skinimage.NewLoader(cfg.Server.FetchTimeout)
	img, err := loadSkin(ctx, loader, cfg.Skin)
	if err != nil {
		return err
	}

	if cfg.Output.Path != "" {
		if err := renderImage(cfg, img, variant); err != nil {
			return err
		}
	}
	if cfg.Output.GLB != "" {
		if err := exportModel(cfg.Output.GLB, img, variant); err != nil {
			return err
		}
	}
	return nil
}

func loadSkin(ctx context.Context, loader *skinimage.Loader, sc config.SkinConfig) (*image.NRGBA, error) {
	if sc.Overlay == "" {
		return loader.LoadSkin(ctx, sc.Path)
	}
	return loader.LoadBlend(ctx, sc.Path, sc.Overlay, skinimage.ParseBlendMode(sc.Blend))
}

func renderImage(cfg *config.Config, img *image.NRGBA, variant skin.Variant) error {
	opts, err := cfg.ViewerOptions()
	if err != nil {
		return err
	}
	opts.Logger = logger.Named("viewer")

	frame, err := viewer.RenderSkin(img, variant, viewer.Pose{Yaw: cfg.Output.Yaw, Pitch: cfg.Output.Pitch}, opts)
	if err != nil {
		return err
	}

	out := viewer.NewFileSurface(cfg.Output.Path)
	if cfg.Output.Format != "" {
		if out.Format, err = skinimage.ParseFormat(cfg.Output.Format); err != nil {
			return err
		}
	}
	if err := out.Present(frame); err != nil {
		return err
	}
	logger.Info("image written",
		zap.String("path", cfg.Output.Path),
		zap.String("format", string(out.Format)),
		zap.Stringer("variant", variant))
	return nil
}

func exportModel(path string, img *image.NRGBA, variant skin.Variant) error {
	m := skin.NewPlayerModel()
	m.SetVariant(variant)
	m.SetTexture(skin.NewTexture(img))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteGLB(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("model written", zap.String("path", path))
	return nil
}
