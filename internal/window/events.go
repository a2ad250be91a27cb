package window

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/skinview/internal/input"
)

// Queue receives translated events.
type Queue interface {
	Push(e input.Event)
}

// PollEvents drains the SDL event queue into q. Returns true if a quit
// event was seen.
func PollEvents(q Queue) bool {
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		e, ok := Translate(event)
		if !ok {
			continue
		}
		q.Push(e)
		if e.Type == input.EventQuit {
			quit = true
		}
	}
	return quit
}

// Translate converts one SDL event. Events the viewer does not use
// report false.
func Translate(event sdl.Event) (input.Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return input.Event{Type: input.EventQuit}, true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			return input.Event{
				Type:   input.EventWindowResize,
				Width:  int(e.Data1),
				Height: int(e.Data2),
			}, true
		}

	case *sdl.KeyboardEvent:
		if e.Repeat != 0 {
			return input.Event{}, false
		}
		t := input.EventKeyDown
		if e.Type == sdl.KEYUP {
			t = input.EventKeyUp
		}
		return input.Event{Type: t, Key: sdl.GetKeyName(e.Keysym.Sym)}, true

	case *sdl.MouseMotionEvent:
		return input.Event{
			Type:   input.EventMouseMove,
			MouseX: int(e.X),
			MouseY: int(e.Y),
			DeltaX: float32(e.XRel),
			DeltaY: float32(e.YRel),
		}, true

	case *sdl.MouseButtonEvent:
		t := input.EventMouseDown
		if e.Type == sdl.MOUSEBUTTONUP {
			t = input.EventMouseUp
		}
		return input.Event{
			Type:   t,
			MouseX: int(e.X),
			MouseY: int(e.Y),
			Button: e.Button,
		}, true

	case *sdl.MouseWheelEvent:
		// SDL reports scrolling away from the user as positive.
		dy := -float32(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			dy = -dy
		}
		if dy == 0 {
			return input.Event{}, false
		}
		return input.Event{Type: input.EventWheel, WheelY: dy}, true
	}
	return input.Event{}, false
}
