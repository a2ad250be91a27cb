package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/markers"
	"github.com/Faultbox/skinview/internal/skinimage"
	"github.com/Faultbox/skinview/pkg/skin"
)

// errBadRequest marks client errors that have no sentinel of their own.
var errBadRequest = errors.New("bad request")

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		s.log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}

	data, _ := json.Marshal(&jError{Error: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, markers.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, skinimage.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, skinimage.ErrDecode),
		errors.Is(err, skinimage.ErrNoContext),
		errors.Is(err, skin.ErrUnknownVariant),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
