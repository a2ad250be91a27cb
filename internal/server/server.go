// Package server exposes skin rendering, blending, glTF export and the map
// markers over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/markers"
	"github.com/Faultbox/skinview/internal/skinimage"
	"github.com/Faultbox/skinview/internal/viewer"
)

// Options configure a Server.
type Options struct {
	Addr string

	// FetchTimeout bounds downloads of remote skins.
	FetchTimeout time.Duration

	// MaxSize is the largest accepted output width or height.
	MaxSize int

	// Width and Height are the default output size.
	Width  int
	Height int

	// Camera and Supersample are passed to every render.
	Camera      viewer.CameraOptions
	Supersample int

	Logger *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts    Options
	loader  *skinimage.Loader
	markers *markers.Store
	hub     *hub
	router  *mux.Router
	log     *zap.Logger
}

// New creates a server with an empty marker store.
func New(opts Options) *Server {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1024
	}
	if opts.Width <= 0 {
		opts.Width = 400
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		opts:    opts,
		loader:  skinimage.NewLoader(opts.FetchTimeout),
		markers: markers.NewStore(),
		hub:     newHub(opts.Logger.Named("events")),
		log:     opts.Logger,
	}
	s.markers.OnChange(s.hub.broadcast)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/render", s.handleRenderURL).Methods(http.MethodGet)
	r.HandleFunc("/render", s.handleRenderUpload).Methods(http.MethodPost)
	r.HandleFunc("/blend", s.handleBlend).Methods(http.MethodPost)
	r.HandleFunc("/model.glb", s.handleModel).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/points", s.handleListPoints).Methods(http.MethodGet)
	api.HandleFunc("/points", s.handleAddPoint).Methods(http.MethodPost)
	api.HandleFunc("/points", s.handleClearPoints).Methods(http.MethodDelete)
	api.HandleFunc("/points/{id}", s.handleGetPoint).Methods(http.MethodGet)
	api.HandleFunc("/points/{id}", s.handleUpdatePoint).Methods(http.MethodPut)
	api.HandleFunc("/points/{id}", s.handleDeletePoint).Methods(http.MethodDelete)

	s.router = r
}

// Markers returns the marker store.
func (s *Server) Markers() *markers.Store { return s.markers }

// Handler returns the routed handler wrapped with panic recovery and
// access logging.
func (s *Server) Handler() http.Handler {
	accessLog := zap.NewStdLog(s.log.Named("http")).Writer()
	h := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.log.Named("recovery"))),
		handlers.PrintRecoveryStack(true),
	)(s.router)
	return handlers.LoggingHandler(accessLog, h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", s.opts.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.hub.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen %s: %w", s.opts.Addr, err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	s.hub.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
