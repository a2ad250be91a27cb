// Package input queues pointer and window events and fans them out to
// subscribers such as orbit controls.
package input

import "sync"

// EventType identifies an input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventWheel
)

// Mouse buttons.
const (
	ButtonLeft   uint8 = 1
	ButtonMiddle uint8 = 2
	ButtonRight  uint8 = 3
)

// Event is a backend independent input event.
type Event struct {
	Type   EventType
	Key    string
	Width  int
	Height int
	MouseX int
	MouseY int
	DeltaX float32 // relative motion for EventMouseMove
	DeltaY float32
	WheelY float32 // positive scrolls toward the user and zooms out
	Button uint8
}

// Handler receives dispatched events.
type Handler func(Event)

// Source is anything controls can subscribe to.
type Source interface {
	Subscribe(h Handler) (cancel func())
}

// Input buffers events pushed by a window backend and dispatches them on
// Update.
type Input struct {
	mu       sync.Mutex
	pending  []Event
	events   []Event
	handlers map[int]Handler
	nextID   int
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		pending:  make([]Event, 0, 16),
		events:   make([]Event, 0, 16),
		handlers: make(map[int]Handler),
	}
}

// Push queues an event. Safe to call from any goroutine.
func (i *Input) Push(e Event) {
	i.mu.Lock()
	i.pending = append(i.pending, e)
	i.mu.Unlock()
}

// Subscribe registers h. The returned cancel func may be called more than
// once.
func (i *Input) Subscribe(h Handler) (cancel func()) {
	i.mu.Lock()
	id := i.nextID
	i.nextID++
	i.handlers[id] = h
	i.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			i.mu.Lock()
			delete(i.handlers, id)
			i.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered handlers.
func (i *Input) Subscribers() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.handlers)
}

// Update dispatches queued events in order.
// Returns true if a quit event was seen.
func (i *Input) Update() bool {
	i.mu.Lock()
	i.events, i.pending = i.pending, i.events[:0]
	handlers := make([]Handler, 0, len(i.handlers))
	for id := 0; id < i.nextID; id++ {
		if h, ok := i.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	i.mu.Unlock()

	quit := false
	for _, e := range i.events {
		if e.Type == EventQuit {
			quit = true
		}
		for _, h := range handlers {
			h(e)
		}
	}
	return quit
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed during the last Update.
func (i *Input) IsKeyPressed(key string) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == key {
			return true
		}
	}
	return false
}
