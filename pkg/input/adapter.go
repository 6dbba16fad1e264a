// Package input turns raw pointer, wheel, keyboard and external UI events
// into selection and display operations.
package input

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/display"
	"github.com/teslashibe/go-shade/pkg/geometry"
	"github.com/teslashibe/go-shade/pkg/selection"
)

// ErrNoDisplay is returned when an event arrives before a display is mounted.
var ErrNoDisplay = errors.New("input: no display mounted")

// ErrViewport is returned for a zero-sized viewport.
var ErrViewport = errors.New("input: invalid viewport")

// Gesture is what a pointer sequence was interpreted as.
type Gesture uint8

const (
	GestureNone Gesture = iota
	GestureClick
	GestureSwipeLeft
	GestureSwipeRight
	GestureDrag
)

// String returns the gesture name.
func (g Gesture) String() string {
	switch g {
	case GestureClick:
		return "click"
	case GestureSwipeLeft:
		return "swipe_left"
	case GestureSwipeRight:
		return "swipe_right"
	case GestureDrag:
		return "drag"
	default:
		return "none"
	}
}

// Key names understood by Key.
const (
	KeyLeft  = "ArrowLeft"
	KeyRight = "ArrowRight"
)

// Config holds input tuning.
type Config struct {
	// SwipeThreshold is the minimum horizontal travel, in pixels, for a
	// press/release pair to count as a swipe.
	SwipeThreshold float64

	// ScrollSensitivity converts wheel deltaY pixels to radians.
	ScrollSensitivity float64

	// Camera is the scene camera; its aspect is replaced per event by the
	// viewport's.
	Camera geometry.Camera
}

// DefaultConfig returns the standard input configuration.
func DefaultConfig() Config {
	return Config{
		SwipeThreshold:    30,
		ScrollSensitivity: 0.002,
		Camera:            geometry.DefaultCamera(),
	}
}

// Viewport is the pixel size of the view the event came from.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (v Viewport) valid() bool {
	return v.Width > 0 && v.Height > 0
}

// Adapter routes input to the machine and the mounted display. It is not
// safe for concurrent use; it belongs to the render loop.
type Adapter struct {
	cfg     Config
	machine *selection.Machine
	display display.Display
	logger  *slog.Logger

	pressed  bool
	pressX   float64
	dragging bool
}

// New creates an adapter.
func New(cfg Config, m *selection.Machine) *Adapter {
	return &Adapter{
		cfg:     cfg,
		machine: m,
		logger:  log.Component("input.adapter"),
	}
}

// SetDisplay switches the display events are routed to.
func (a *Adapter) SetDisplay(d display.Display) {
	a.display = d
	a.pressed, a.dragging = false, false
}

// Ray returns the scene ray under pixel (x, y).
func (a *Adapter) Ray(x, y float64, vp Viewport) (geometry.Ray, error) {
	if !vp.valid() {
		return geometry.Ray{}, ErrViewport
	}
	cam := a.cfg.Camera
	cam.Aspect = float64(vp.Width) / float64(vp.Height)
	ndc := geometry.PixelToNDC(x, y, vp.Width, vp.Height)
	return cam.Ray(ndc.X, ndc.Y), nil
}

// Click casts a ray under the pointer and lets the display resolve it.
// A miss is not an error.
func (a *Adapter) Click(x, y float64, vp Viewport) (bool, error) {
	if a.display == nil {
		return false, ErrNoDisplay
	}
	ray, err := a.Ray(x, y, vp)
	if err != nil {
		return false, err
	}
	hit, err := a.display.OnClick(ray)
	if err != nil {
		return hit, fmt.Errorf("input: click: %w", err)
	}
	return hit, nil
}

// Swipe interprets horizontal travel from startX to endX. Travel beyond the
// threshold to the right selects the next tone, to the left the previous.
func (a *Adapter) Swipe(startX, endX float64) (Gesture, error) {
	if a.display == nil {
		return GestureNone, ErrNoDisplay
	}
	dx := endX - startX
	if math.Abs(dx) <= a.cfg.SwipeThreshold {
		return GestureNone, nil
	}
	if dx > 0 {
		return GestureSwipeRight, a.display.SwipeRight()
	}
	return GestureSwipeLeft, a.display.SwipeLeft()
}

// Press starts a pointer sequence. On displays with draggable markers a
// press on a marker starts a drag.
func (a *Adapter) Press(x, y float64, vp Viewport) error {
	if a.display == nil {
		return ErrNoDisplay
	}
	a.pressed, a.pressX, a.dragging = true, x, false
	if dr, ok := display.AsDragger(a.display); ok {
		ray, err := a.Ray(x, y, vp)
		if err != nil {
			return err
		}
		a.dragging = dr.DragStart(ray)
	}
	return nil
}

// Move continues a drag.
func (a *Adapter) Move(x, y float64, vp Viewport) error {
	if !a.dragging {
		return nil
	}
	dr, ok := display.AsDragger(a.display)
	if !ok {
		return nil
	}
	ray, err := a.Ray(x, y, vp)
	if err != nil {
		return err
	}
	dr.DragMove(ray)
	return nil
}

// Release ends a pointer sequence: a drag is dropped, otherwise the travel
// since Press is interpreted as a swipe.
func (a *Adapter) Release(x float64) (Gesture, error) {
	if !a.pressed {
		return GestureNone, nil
	}
	a.pressed = false
	if a.dragging {
		a.dragging = false
		if dr, ok := display.AsDragger(a.display); ok {
			dr.DragEnd()
		}
		return GestureDrag, nil
	}
	return a.Swipe(a.pressX, x)
}

// Scroll rotates the display by deltaY times the sensitivity. It never
// changes the selection; displays that cannot rotate ignore it.
func (a *Adapter) Scroll(deltaY float64) bool {
	r, ok := display.AsRotator(a.display)
	if !ok {
		return false
	}
	r.Rotate(deltaY * a.cfg.ScrollSensitivity)
	return true
}

// Key handles keyboard navigation. Unknown keys are ignored.
func (a *Adapter) Key(name string) (Gesture, error) {
	if a.display == nil {
		return GestureNone, ErrNoDisplay
	}
	switch name {
	case KeyLeft:
		return GestureSwipeLeft, a.display.SwipeLeft()
	case KeyRight:
		return GestureSwipeRight, a.display.SwipeRight()
	default:
		a.logger.Debug("ignoring key", "key", name)
		return GestureNone, nil
	}
}

// External applies a selection made outside the scene, such as a tone
// swatch in the page UI.
func (a *Adapter) External(index int) error {
	return a.machine.SelectTone(index)
}
