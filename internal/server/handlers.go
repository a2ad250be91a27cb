package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/export"
	"github.com/Faultbox/skinview/internal/markers"
	"github.com/Faultbox/skinview/internal/skinimage"
	"github.com/Faultbox/skinview/internal/viewer"
	"github.com/Faultbox/skinview/pkg/skin"
)

// maxUpload bounds multipart request bodies.
const maxUpload = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// renderParams are the query or form parameters of a render request.
type renderParams struct {
	variant skin.Variant
	pose    viewer.Pose
	width   int
	height  int
	format  skinimage.Format
	blend   skinimage.BlendMode
}

func (s *Server) parseRenderParams(get func(string) string) (renderParams, error) {
	p := renderParams{
		width:  s.opts.Width,
		height: s.opts.Height,
		format: skinimage.FormatWebP,
		blend:  skinimage.ParseBlendMode(get("mode")),
	}

	var err error
	if p.variant, err = skin.ParseVariant(get("variant")); err != nil {
		return p, err
	}
	if v := get("format"); v != "" {
		if p.format, err = skinimage.ParseFormat(v); err != nil {
			return p, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if p.width, err = intParam(get, "width", p.width); err != nil {
		return p, err
	}
	if p.height, err = intParam(get, "height", p.height); err != nil {
		return p, err
	}
	if p.width <= 0 || p.height <= 0 || p.width > s.opts.MaxSize || p.height > s.opts.MaxSize {
		return p, fmt.Errorf("%w: size %dx%d outside 1..%d", errBadRequest, p.width, p.height, s.opts.MaxSize)
	}
	if p.pose.Yaw, err = floatParam(get, "yaw"); err != nil {
		return p, err
	}
	if p.pose.Pitch, err = floatParam(get, "pitch"); err != nil {
		return p, err
	}
	return p, nil
}

func intParam(get func(string) string, name string, def int) (int, error) {
	v := get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return n, nil
}

func floatParam(get func(string) string, name string) (float32, error) {
	v := get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return float32(f), nil
}

// remoteURL accepts only absolute http(s) URLs so clients cannot read
// server-local files.
func remoteURL(name, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %s must be an http(s) URL", errBadRequest, name)
	}
	return u.String(), nil
}

func (s *Server) handleRenderURL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := s.parseRenderParams(q.Get)
	if err != nil {
		s.writeError(w, err)
		return
	}

	img, err := s.fetchSkin(r.Context(), q.Get("skin"), q.Get("overlay"), p.blend)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.render(w, img, p)
}

func (s *Server) fetchSkin(ctx context.Context, skinURL, overlayURL string, mode skinimage.BlendMode) (image.Image, error) {
	if skinURL == "" {
		return nil, fmt.Errorf("%w: missing skin", errBadRequest)
	}
	base, err := remoteURL("skin", skinURL)
	if err != nil {
		return nil, err
	}
	if overlayURL == "" {
		return s.loader.LoadSkin(ctx, base)
	}
	overlay, err := remoteURL("overlay", overlayURL)
	if err != nil {
		return nil, err
	}
	return s.loader.LoadBlend(ctx, base, overlay, mode)
}

func (s *Server) handleRenderUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	p, err := s.parseRenderParams(r.FormValue)
	if err != nil {
		s.writeError(w, err)
		return
	}

	base, err := formImage(r.MultipartForm, "skin")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var img image.Image
	if len(r.MultipartForm.File["overlay"]) > 0 {
		overlay, err := formImage(r.MultipartForm, "overlay")
		if err != nil {
			s.writeError(w, err)
			return
		}
		if img, err = skinimage.Blend(base, overlay, p.blend); err != nil {
			s.writeError(w, err)
			return
		}
	} else if img, err = skinimage.Normalize(base); err != nil {
		s.writeError(w, err)
		return
	}
	s.render(w, img, p)
}

func (s *Server) render(w http.ResponseWriter, img image.Image, p renderParams) {
	frame, err := viewer.RenderSkin(img, p.variant, p.pose, viewer.Options{
		Width:       p.width,
		Height:      p.height,
		Camera:      s.opts.Camera,
		Supersample: s.opts.Supersample,
		Logger:      s.log.Named("viewer"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeImage(w, frame, p.format)
}

func (s *Server) writeImage(w http.ResponseWriter, img image.Image, f skinimage.Format) {
	var buf bytes.Buffer
	if err := skinimage.Encode(&buf, img, f); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warn("write image", zap.Error(err))
	}
}

// formImage decodes the uploaded file field name.
func formImage(form *multipart.Form, name string) (image.Image, error) {
	files := form.File[name]
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: missing file %q", errBadRequest, name)
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", errBadRequest, name, err)
	}
	defer f.Close()

	img, _, err := skinimage.Decode(io.LimitReader(f, maxUpload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return img, nil
}

func (s *Server) handleBlend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	base, err := formImage(r.MultipartForm, "base")
	if err != nil {
		s.writeError(w, err)
		return
	}
	overlay, err := formImage(r.MultipartForm, "overlay")
	if err != nil {
		s.writeError(w, err)
		return
	}

	out, err := skinimage.Blend(base, overlay, skinimage.ParseBlendMode(r.FormValue("mode")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeImage(w, out, skinimage.FormatPNG)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	variant, err := skin.ParseVariant(q.Get("variant"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	m := skin.NewPlayerModel()
	m.SetVariant(variant)
	if src := q.Get("skin"); src != "" {
		img, err := s.fetchSkin(r.Context(), src, q.Get("overlay"), skinimage.ParseBlendMode(q.Get("mode")))
		if err != nil {
			s.writeError(w, err)
			return
		}
		m.SetTexture(skin.NewTexture(skinimage.Clone(img)))
	}

	var buf bytes.Buffer
	if err := export.WriteGLB(&buf, m); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "model/gltf-binary")
	w.Header().Set("Content-Disposition", `attachment; filename="player.glb"`)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warn("write model", zap.Error(err))
	}
}

func (s *Server) handleListPoints(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.markers.Points())
}

func decodePosition(r *http.Request) (markers.LatLng, error) {
	var pos markers.LatLng
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pos); err != nil {
		return pos, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := pos.Validate(); err != nil {
		return pos, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return pos, nil
}

func (s *Server) handleAddPoint(w http.ResponseWriter, r *http.Request) {
	pos, err := decodePosition(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	p := s.markers.AddPoint(pos)
	s.log.Debug("marker added", zap.String("id", p.ID))
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPoint(w http.ResponseWriter, r *http.Request) {
	p, err := s.markers.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePoint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	pos, err := decodePosition(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.markers.UpdatePoint(id, pos) {
		s.writeError(w, fmt.Errorf("%w: %s", markers.ErrNotFound, id))
		return
	}
	s.writeJSON(w, http.StatusOK, markers.MapPoint{ID: id, Position: pos})
}

func (s *Server) handleDeletePoint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.markers.DeletePoint(id) {
		s.writeError(w, fmt.Errorf("%w: %s", markers.ErrNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearPoints(w http.ResponseWriter, r *http.Request) {
	s.markers.Clear()
	w.WriteHeader(http.StatusNoContent)
}
