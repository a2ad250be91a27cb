package viewer

import (
	"sync"
	"time"
)

// FrameID identifies a pending frame callback.
type FrameID uint64

// Scheduler runs a callback once at the next frame, like an animation-frame
// request.
type Scheduler interface {
	Request(fn func()) FrameID
	Cancel(id FrameID)
}

// TickerScheduler fires callbacks after a fixed frame interval on timer
// goroutines.
type TickerScheduler struct {
	interval time.Duration

	mu     sync.Mutex
	next   FrameID
	timers map[FrameID]*time.Timer
}

// NewTickerScheduler returns a scheduler running at fps frames per second.
func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = 60
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(fps),
		timers:   make(map[FrameID]*time.Timer),
	}
}

// Request schedules fn for the next frame.
func (s *TickerScheduler) Request(fn func()) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	id := s.next
	s.timers[id] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		_, ok := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if ok {
			fn()
		}
	})
	return id
}

// Cancel drops a pending callback. Unknown ids are ignored.
func (s *TickerScheduler) Cancel(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of scheduled callbacks.
func (s *TickerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler runs callbacks only when Step is called. Headless
// rendering and tests drive frames with it.
type ManualScheduler struct {
	mu      sync.Mutex
	next    FrameID
	pending map[FrameID]func()
	order   []FrameID
}

// NewManualScheduler returns an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[FrameID]func())}
}

// Request queues fn.
func (s *ManualScheduler) Request(fn func()) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = fn
	s.order = append(s.order, s.next)
	return s.next
}

// Cancel drops a queued callback.
func (s *ManualScheduler) Cancel(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Pending returns the number of queued callbacks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Step runs the callbacks queued before the call and returns how many ran.
// Callbacks requested while stepping wait for the next Step.
func (s *ManualScheduler) Step() int {
	s.mu.Lock()
	order := s.order
	s.order = nil
	fns := make([]func(), 0, len(order))
	for _, id := range order {
		if fn, ok := s.pending[id]; ok {
			fns = append(fns, fn)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
