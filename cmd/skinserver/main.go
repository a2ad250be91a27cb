// Package main serves skin renders, blends, glTF models and map markers
// over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/config"
	"github.com/Faultbox/skinview/internal/logger"
	"github.com/Faultbox/skinview/internal/server"
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

	opts, err := cfg.ViewerOptions()
	if err != nil {
		logger.Error("invalid viewer settings", zap.Error(err))
		os.Exit(1)
	}

	srv := server.New(server.Options{
		Addr:         cfg.Server.Addr,
		FetchTimeout: cfg.Server.FetchTimeout,
		MaxSize:      cfg.Server.MaxSize,
		Width:        opts.Width,
		Height:       opts.Height,
		Camera:       opts.Camera,
		Supersample:  opts.Supersample,
		Logger:       logger.Named("server"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("server stopped")
}
