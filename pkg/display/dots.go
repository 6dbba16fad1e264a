package display

import (
	"log/slog"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/geometry"
	"github.com/teslashibe/go-shade/pkg/selection"
	"github.com/teslashibe/go-shade/pkg/tracking"
)

const dotSides = 16

// Marker is one dot.
type Marker struct {
	// Landmark is the index of the landmark the marker sits on.
	Landmark int `json:"landmark"`

	// Position is the marker center in scene space.
	Position r3.Vector `json:"position"`

	Dragging bool `json:"dragging"`
}

// DotCloud draws one marker per tracked landmark, all in the selected
// tone's color. Markers can be dragged and snap to the nearest landmark.
type DotCloud struct {
	cfg     Config
	machine *selection.Machine
	logger  *slog.Logger

	color     colorful.Color
	markers   []Marker
	landmarks []r3.Vector
	tracked   bool
	dragging  int

	unsubscribe func()
	disposed    bool
}

// NewDotCloud creates a dot display colored by the current selection.
func NewDotCloud(m *selection.Machine, cfg Config) (*DotCloud, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	_, t := m.Selected()
	d := &DotCloud{
		cfg:      cfg,
		machine:  m,
		logger:   log.Component("display.dots"),
		color:    t.Color,
		dragging: -1,
	}
	d.unsubscribe = m.Subscribe(d.onEvent)
	return d, nil
}

// Mode implements Display.
func (d *DotCloud) Mode() Mode { return ModeDots }

// Capabilities implements Display.
func (d *DotCloud) Capabilities() Capabilities {
	return Capabilities{Drag: true}
}

func (d *DotCloud) onEvent(ev selection.Event) {
	if d.disposed || ev.Kind != selection.Selected {
		return
	}
	d.color = ev.Tone.Color
}

// Color returns the marker color.
func (d *DotCloud) Color() colorful.Color {
	return d.color
}

// Update implements Display. Markers follow their landmarks except the
// one being dragged.
func (d *DotCloud) Update(_ time.Time, face *tracking.Frame) {
	if d.disposed {
		return
	}
	d.tracked = face != nil
	if face == nil {
		return
	}

	d.landmarks = face.WorldLandmarks(d.landmarks[:0])
	if len(d.markers) != len(d.landmarks) {
		d.markers = make([]Marker, len(d.landmarks))
		for i := range d.markers {
			d.markers[i].Landmark = i
		}
		d.dragging = -1
	}
	for i := range d.markers {
		m := &d.markers[i]
		if m.Dragging {
			continue
		}
		m.Position = d.landmarks[m.Landmark]
	}
}

// Markers returns a copy of the markers.
func (d *DotCloud) Markers() []Marker {
	return append([]Marker(nil), d.markers...)
}

// SwipeLeft implements Display.
func (d *DotCloud) SwipeLeft() error {
	if d.disposed {
		return ErrDisposed
	}
	return d.machine.SelectPrevious()
}

// SwipeRight implements Display.
func (d *DotCloud) SwipeRight() error {
	if d.disposed {
		return ErrDisposed
	}
	return d.machine.SelectNext()
}

// OnClick implements Display. Dots are not selectable; a click only
// reports whether it landed on a marker.
func (d *DotCloud) OnClick(ray geometry.Ray) (bool, error) {
	if d.disposed {
		return false, ErrDisposed
	}
	return d.pick(ray) >= 0, nil
}

// pick returns the nearest marker whose disc the ray passes through.
func (d *DotCloud) pick(ray geometry.Ray) int {
	if !d.tracked {
		return -1
	}
	dir := ray.Dir.Normalize()
	best, bestT := -1, math.Inf(1)
	for i, m := range d.markers {
		rel := m.Position.Sub(ray.Origin)
		t := rel.Dot(dir)
		if t < 0 {
			continue
		}
		if rel.Cross(dir).Norm() <= d.cfg.DotRadius && t < bestT {
			best, bestT = i, t
		}
	}
	return best
}

// DragStart grabs the marker under ray.
func (d *DotCloud) DragStart(ray geometry.Ray) bool {
	if d.disposed {
		return false
	}
	i := d.pick(ray)
	if i < 0 {
		return false
	}
	d.dragging = i
	d.markers[i].Dragging = true
	return true
}

// DragMove moves the dragged marker to where ray crosses the marker's
// depth plane, then snaps it to the nearest landmark.
func (d *DotCloud) DragMove(ray geometry.Ray) bool {
	if d.disposed || d.dragging < 0 {
		return false
	}
	m := &d.markers[d.dragging]
	shifted := geometry.Ray{
		Origin: ray.Origin.Sub(r3.Vector{Z: m.Position.Z}),
		Dir:    ray.Dir,
	}
	p, _, ok := shifted.IntersectXY()
	if !ok {
		return false
	}
	m.Position = r3.Vector{X: p.X, Y: p.Y, Z: m.Position.Z}
	d.snap(m)
	return true
}

// DragEnd releases the dragged marker.
func (d *DotCloud) DragEnd() {
	if d.dragging >= 0 && d.dragging < len(d.markers) {
		d.markers[d.dragging].Dragging = false
	}
	d.dragging = -1
}

// snap rebinds m to the closest landmark with a linear scan.
func (d *DotCloud) snap(m *Marker) {
	if len(d.landmarks) == 0 {
		return
	}
	nearest, minDist := 0, math.Inf(1)
	for i, lm := range d.landmarks {
		if dist := m.Position.Sub(lm).Norm2(); dist < minDist {
			nearest, minDist = i, dist
		}
	}
	m.Landmark = nearest
	m.Position = d.landmarks[nearest]
}

// Primitives implements Display.
func (d *DotCloud) Primitives(dst []Primitive) []Primitive {
	if d.disposed || !d.tracked {
		return dst
	}
	for _, m := range d.markers {
		pts := make([]r3.Vector, dotSides)
		for k := range pts {
			a := 2 * math.Pi * float64(k) / dotSides
			pts[k] = m.Position.Add(r3.Vector{
				X: d.cfg.DotRadius * math.Cos(a),
				Y: d.cfg.DotRadius * math.Sin(a),
			})
		}
		dst = append(dst, Primitive{Outline: pts, Color: d.color, Opacity: 1})
	}
	return dst
}

// Dispose implements Display.
func (d *DotCloud) Dispose() {
	if d.disposed {
		return
	}
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	d.markers, d.landmarks = nil, nil
	d.dragging = -1
	d.disposed = true
	d.logger.Debug("dot cloud disposed")
}

var (
	_ Display = (*DotCloud)(nil)
	_ Dragger = (*DotCloud)(nil)
)
