package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/skinimage"
	"github.com/Faultbox/skinview/pkg/skin"
)

// SkinState holds the skin and overlay sources chosen by the user. When
// both are set the viewer shows their blend.
type SkinState struct {
	mu      sync.Mutex
	skin    string
	overlay string
	variant skin.Variant
	blend   skinimage.BlendMode
}

// NewSkinState returns a state with the given sources.
func NewSkinState(skinSrc, overlaySrc string, variant skin.Variant) *SkinState {
	return &SkinState{skin: skinSrc, overlay: overlaySrc, variant: variant}
}

// SetSkin replaces the skin source.
func (s *SkinState) SetSkin(src string) {
	s.mu.Lock()
	s.skin = src
	s.mu.Unlock()
}

// SetOverlay replaces the overlay source. An empty source clears it.
func (s *SkinState) SetOverlay(src string) {
	s.mu.Lock()
	s.overlay = src
	s.mu.Unlock()
}

// SetVariant replaces the arm shape.
func (s *SkinState) SetVariant(v skin.Variant) {
	s.mu.Lock()
	s.variant = v
	s.mu.Unlock()
}

// SetBlendMode selects how the overlay is combined with the skin.
func (s *SkinState) SetBlendMode(m skinimage.BlendMode) {
	s.mu.Lock()
	s.blend = m
	s.mu.Unlock()
}

// Sources returns the current skin and overlay sources.
func (s *SkinState) Sources() (skinSrc, overlaySrc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skin, s.overlay
}

// Variant returns the selected arm shape.
func (s *SkinState) Variant() skin.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variant
}

// Uses reports whether path is one of the current sources.
func (s *SkinState) Uses(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return path != "" && (path == s.skin || path == s.overlay)
}

// ErrNoSkin is returned by Apply when no skin source is set.
var ErrNoSkin = errors.New("viewer: no skin selected")

// Apply loads the state's sources into v. With only an overlay set the
// overlay is shown as the skin. When several loads overlap, only the most
// recently started one is applied; older ones return ErrSuperseded.
func (v *Viewer) Apply(ctx context.Context, s *SkinState) error {
	s.mu.Lock()
	base, overlay, variant, mode := s.skin, s.overlay, s.variant, s.blend
	s.mu.Unlock()

	ticket := v.loads.Add(1)
	switch {
	case base != "" && overlay != "":
		if v.Disposed() {
			return ErrDisposed
		}
		img, err := v.loader.LoadBlend(ctx, base, overlay, mode)
		if err != nil {
			return fmt.Errorf("viewer: blend skins: %w", err)
		}
		v.log.Info("blended skin loaded",
			zap.String("skin", base),
			zap.String("overlay", overlay),
			zap.Stringer("variant", variant))
		return v.apply(img, variant, ticket)
	case base != "":
		return v.load(ctx, base, variant, ticket)
	case overlay != "":
		return v.load(ctx, overlay, variant, ticket)
	}
	return ErrNoSkin
}
