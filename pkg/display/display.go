// Package display implements the face-anchored tone visualizations.
//
// Exactly one Display is mounted at a time. Every display implements the
// common capability interface; optional behavior (appear/disappear
// transitions, rotation, drag) is advertised through Capabilities and
// reached with the As* helpers rather than by checking concrete types.
package display

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-shade/pkg/anim"
	"github.com/teslashibe/go-shade/pkg/geometry"
	"github.com/teslashibe/go-shade/pkg/selection"
	"github.com/teslashibe/go-shade/pkg/tracking"
)

// ErrDisposed is returned when a disposed display is asked to act.
var ErrDisposed = errors.New("display: disposed")

// ErrUnknownMode is returned for an unrecognized mode name.
var ErrUnknownMode = errors.New("display: unknown mode")

// Mode tags a display variant.
type Mode string

const (
	ModeWedge Mode = "WEDGE"
	ModeDots  Mode = "DOTS"
)

// DefaultMode is mounted at startup.
const DefaultMode = ModeWedge

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeWedge, ModeDots:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Capabilities lists optional behavior a display supports.
type Capabilities struct {
	// WedgeAnimations means the display implements Animator.
	WedgeAnimations bool `json:"wedge_animations"`

	// Rotation means the display implements Rotator.
	Rotation bool `json:"rotation"`

	// Drag means the display implements Dragger.
	Drag bool `json:"drag"`
}

// Display is the capability interface shared by every visualization.
type Display interface {
	// Mode returns the display's tag.
	Mode() Mode

	// Capabilities reports optional behavior.
	Capabilities() Capabilities

	// Update advances animation to now and follows the tracked face.
	// face is nil when no face is tracked.
	Update(now time.Time, face *tracking.Frame)

	// SwipeLeft selects the previous tone.
	SwipeLeft() error

	// SwipeRight selects the next tone.
	SwipeRight() error

	// OnClick handles a pointer click along ray. hit reports whether the
	// ray struck something selectable.
	OnClick(ray geometry.Ray) (hit bool, err error)

	// Primitives appends the display's drawable outlines in scene space.
	Primitives(dst []Primitive) []Primitive

	// Dispose cancels animation, releases geometry and detaches from the
	// selection machine. It is idempotent.
	Dispose()
}

// Animator is implemented by displays with appear/disappear transitions.
type Animator interface {
	Appear(now time.Time) error
	Disappear(now time.Time) error
	Visibility() Visibility
}

// Rotator is implemented by displays that scroll-rotate.
type Rotator interface {
	Rotate(delta float64)
	Rotation() float64
}

// Dragger is implemented by displays with draggable markers.
type Dragger interface {
	DragStart(ray geometry.Ray) bool
	DragMove(ray geometry.Ray) bool
	DragEnd()
}

// AsAnimator returns d's Animator when it advertises the capability.
func AsAnimator(d Display) (Animator, bool) {
	if d == nil || !d.Capabilities().WedgeAnimations {
		return nil, false
	}
	a, ok := d.(Animator)
	return a, ok
}

// AsRotator returns d's Rotator when it advertises the capability.
func AsRotator(d Display) (Rotator, bool) {
	if d == nil || !d.Capabilities().Rotation {
		return nil, false
	}
	r, ok := d.(Rotator)
	return r, ok
}

// AsDragger returns d's Dragger when it advertises the capability.
func AsDragger(d Display) (Dragger, bool) {
	if d == nil || !d.Capabilities().Drag {
		return nil, false
	}
	r, ok := d.(Dragger)
	return r, ok
}

// Visibility is the appear/disappear state.
type Visibility uint8

const (
	HiddenOut Visibility = iota
	AnimatingIn
	AnimatingOut
	Shown
)

// String returns the state name.
func (v Visibility) String() string {
	switch v {
	case HiddenOut:
		return "hidden"
	case AnimatingIn:
		return "animating_in"
	case AnimatingOut:
		return "animating_out"
	case Shown:
		return "shown"
	default:
		return "unknown"
	}
}

// Primitive is a filled outline in scene space.
type Primitive struct {
	Outline   []r3.Vector
	Color     color.Color
	Opacity   float64
	Highlight bool
}

// Mount creates the display for mode and re-asserts the default selection
// so the new display starts from a known state.
func Mount(mode Mode, m *selection.Machine, cfg Config, clock anim.Clock) (Display, error) {
	var (
		d   Display
		err error
	)
	switch mode {
	case ModeWedge:
		d, err = NewWedge(m, cfg, clock)
	case ModeDots:
		d, err = NewDotCloud(m, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if err != nil {
		return nil, err
	}
	if err := m.SelectTone(selection.DefaultIndex); err != nil {
		d.Dispose()
		return nil, err
	}
	return d, nil
}
