package viewer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the bursts of events editors emit on save.
const DefaultDebounce = 150 * time.Millisecond

// LocalPath returns the absolute file path of src, or false if src is an
// http(s) URL.
func LocalPath(src string) (string, bool) {
	if src == "" {
		return "", false
	}
	if u, err := url.Parse(src); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return "", false
		case "file":
			src = u.Path
		}
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", false
	}
	return abs, true
}

// SkinWatcher reapplies a SkinState to a viewer whenever one of its local
// source files is written or replaced. Sources must be absolute paths for
// events to match; see LocalPath.
type SkinWatcher struct {
	Debounce time.Duration

	fs      *fsnotify.Watcher
	v       *Viewer
	state   *SkinState
	log     *zap.Logger
	reloads atomic.Int64
}

// NewSkinWatcher watches the directories holding the state's local
// sources. Remote sources are ignored.
func NewSkinWatcher(v *Viewer, state *SkinState, log *zap.Logger) (*SkinWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("viewer: watch: %w", err)
	}

	// Watch directories, not files, so atomic saves that replace the file
	// keep being seen.
	base, overlay := state.Sources()
	dirs := make(map[string]bool)
	for _, src := range []string{base, overlay} {
		if p, ok := LocalPath(src); ok {
			dirs[filepath.Dir(p)] = true
		}
	}
	for dir := range dirs {
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return nil, fmt.Errorf("viewer: watch %s: %w", dir, err)
		}
		log.Debug("watching", zap.String("dir", dir))
	}

	return &SkinWatcher{
		Debounce: DefaultDebounce,
		fs:       fs,
		v:        v,
		state:    state,
		log:      log,
	}, nil
}

// Reloads returns how many times the skin was reapplied successfully.
func (w *SkinWatcher) Reloads() int {
	return int(w.reloads.Load())
}

// Run handles events until ctx is cancelled, then closes the watcher.
func (w *SkinWatcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 || !w.state.Uses(e.Name) {
				continue
			}
			w.log.Debug("skin changed", zap.String("file", e.Name), zap.Stringer("op", e.Op))
			if timer == nil {
				timer = time.AfterFunc(w.Debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.Debounce)
			}

		case <-fire:
			if err := w.v.Apply(ctx, w.state); err != nil {
				if errors.Is(err, ErrSuperseded) {
					w.log.Debug("reload superseded", zap.Error(err))
				} else {
					w.log.Warn("reload failed", zap.Error(err))
				}
				continue
			}
			w.reloads.Add(1)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}
