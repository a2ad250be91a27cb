// Package markers keeps the marker points shown on the map widget.
package markers

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no point has the requested id.
var ErrNotFound = errors.New("markers: point not found")

// LatLng is a geographic position in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the latitude is within ±90° and both values are
// finite. Longitudes are not wrapped.
func (p LatLng) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("markers: non-finite position %v", p)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("markers: latitude %v out of range", p.Lat)
	}
	return nil
}

// MapPoint is a marker with a random id.
type MapPoint struct {
	ID       string `json:"id"`
	Position LatLng `json:"position"`
}

// Store is an ordered list of points, safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	points   []MapPoint
	onChange func([]MapPoint)
}

// OnChange registers fn to receive a copy of the points after every
// change. fn runs with the store locked, so calls arrive in mutation order
// and must not block or call back into the store.
func (s *Store) OnChange(fn func(points []MapPoint)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// View runs fn with a copy of the points while no change can happen.
func (s *Store) View(fn func(points []MapPoint)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(append([]MapPoint{}, s.points...))
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange(append([]MapPoint{}, s.points...))
	}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// AddPoint appends a point at pos with a fresh UUID.
func (s *Store) AddPoint(pos LatLng) MapPoint {
	p := MapPoint{ID: uuid.NewString(), Position: pos}
	s.mu.Lock()
	s.points = append(s.points, p)
	s.changed()
	s.mu.Unlock()
	return p
}

// UpdatePoint moves the point id. Unknown ids are ignored; the result
// reports whether the point existed.
func (s *Store) UpdatePoint(id string, pos LatLng) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.points[i].Position = pos
		s.changed()
		return true
	}
	return false
}

// DeletePoint removes the point id. Unknown ids are ignored; the result
// reports whether the point existed.
func (s *Store) DeletePoint(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.points = append(s.points[:i], s.points[i+1:]...)
	s.changed()
	return true
}

// Get returns the point id.
func (s *Store) Get(id string) (MapPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.points[i], nil
	}
	return MapPoint{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Clear removes every point.
func (s *Store) Clear() {
	s.mu.Lock()
	s.points = nil
	s.changed()
	s.mu.Unlock()
}

// Points returns a copy of the points in insertion order.
func (s *Store) Points() []MapPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]MapPoint{}, s.points...)
}

// Len returns the number of points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func (s *Store) index(id string) int {
	for i := range s.points {
		if s.points[i].ID == id {
			return i
		}
	}
	return -1
}
