package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/skinview/internal/input"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name  string
		event sdl.Event
		want  input.Event
		ok    bool
	}{
		{
			name:  "quit",
			event: &sdl.QuitEvent{Type: sdl.QUIT},
			want:  input.Event{Type: input.EventQuit},
			ok:    true,
		},
		{
			name:  "resize",
			event: &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_RESIZED, Data1: 800, Data2: 600},
			want:  input.Event{Type: input.EventWindowResize, Width: 800, Height: 600},
			ok:    true,
		},
		{
			name:  "window focus ignored",
			event: &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_FOCUS_GAINED},
			ok:    false,
		},
		{
			name:  "motion",
			event: &sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, X: 10, Y: 20, XRel: 3, YRel: -4},
			want:  input.Event{Type: input.EventMouseMove, MouseX: 10, MouseY: 20, DeltaX: 3, DeltaY: -4},
			ok:    true,
		},
		{
			name:  "button down",
			event: &sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, Button: sdl.BUTTON_LEFT, X: 5, Y: 6},
			want:  input.Event{Type: input.EventMouseDown, MouseX: 5, MouseY: 6, Button: input.ButtonLeft},
			ok:    true,
		},
		{
			name:  "button up",
			event: &sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONUP, Button: sdl.BUTTON_RIGHT},
			want:  input.Event{Type: input.EventMouseUp, Button: input.ButtonRight},
			ok:    true,
		},
		{
			name:  "wheel up zooms in",
			event: &sdl.MouseWheelEvent{Type: sdl.MOUSEWHEEL, Y: 1},
			want:  input.Event{Type: input.EventWheel, WheelY: -1},
			ok:    true,
		},
		{
			name:  "flipped wheel",
			event: &sdl.MouseWheelEvent{Type: sdl.MOUSEWHEEL, Y: 1, Direction: sdl.MOUSEWHEEL_FLIPPED},
			want:  input.Event{Type: input.EventWheel, WheelY: 1},
			ok:    true,
		},
		{
			name:  "horizontal wheel ignored",
			event: &sdl.MouseWheelEvent{Type: sdl.MOUSEWHEEL, X: 2},
			ok:    false,
		},
		{
			name:  "key repeat ignored",
			event: &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Repeat: 1},
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Translate(tt.event)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTranslatedEventsDispatch(t *testing.T) {
	in := input.New()
	var got []input.Event
	in.Subscribe(func(e input.Event) { got = append(got, e) })

	for _, ev := range []sdl.Event{
		&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, Button: sdl.BUTTON_LEFT},
		&sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, XRel: 10},
		&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONUP, Button: sdl.BUTTON_LEFT},
	} {
		e, ok := Translate(ev)
		assert.True(t, ok)
		in.Push(e)
	}
	assert.False(t, in.Update())
	assert.Len(t, got, 3)
}
