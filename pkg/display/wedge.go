package display

import (
	"log/slog"
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/anim"
	"github.com/teslashibe/go-shade/pkg/debug"
	"github.com/teslashibe/go-shade/pkg/geometry"
	"github.com/teslashibe/go-shade/pkg/selection"
	"github.com/teslashibe/go-shade/pkg/tone"
	"github.com/teslashibe/go-shade/pkg/tracking"
)

// Segment is the visible state of one ring segment.
type Segment struct {
	Index      int       `json:"index"`
	Tone       tone.Tone `json:"-"`
	Weight     float64   `json:"weight"`
	Height     float64   `json:"height"`
	StartAngle float64   `json:"start_angle"`
	EndAngle   float64   `json:"end_angle"`
	Selected   bool      `json:"selected"`
	Suggested  bool      `json:"suggested"`
}

type segment struct {
	Segment
	shape   *geometry.Shape
	outline []r2.Point
}

// Wedge draws one ring segment per tone, sized by weight and height, and
// animates between layouts when the selection changes.
type Wedge struct {
	cfg     Config
	machine *selection.Machine
	clock   anim.Clock
	logger  *slog.Logger

	segments []*segment
	opacity  float64

	driver     anim.Driver
	throttle   *anim.Throttle
	visibility Visibility
	goal       Visibility

	anchor  geometry.Transform
	tracked bool

	rotationTarget float64
	rotation       float64
	rotationVel    float64
	spring         harmonica.Spring

	unsubscribe func()
	disposed    bool
}

// NewWedge creates a wedge for the machine's registry and subscribes to
// selection changes. Segments start at equal weights and minimum height,
// fully visible.
func NewWedge(m *selection.Machine, cfg Config, clock anim.Clock) (*Wedge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = anim.SystemClock{}
	}

	w := &Wedge{
		cfg:        cfg,
		machine:    m,
		clock:      clock,
		logger:     log.Component("display.wedge"),
		opacity:    1,
		throttle:   anim.NewThrottle(cfg.RebuildHz),
		visibility: Shown,
		goal:       Shown,
		anchor:     geometry.Identity(),
		spring:     harmonica.NewSpring(harmonica.FPS(cfg.SpringFPS), cfg.SpringFrequency, cfg.SpringDamping),
	}

	n := m.Len()
	sel := m.Index()
	sug, _ := m.Suggested()
	for i := 0; i < n; i++ {
		w.segments = append(w.segments, &segment{
			Segment: Segment{
				Index:     i,
				Tone:      m.Registry().At(i),
				Weight:    100 / float64(n),
				Height:    cfg.MinOuterRadius,
				Selected:  i == sel,
				Suggested: i == sug,
			},
			shape: &geometry.Shape{},
		})
	}
	w.rebuild()

	w.unsubscribe = m.Subscribe(w.onEvent)
	return w, nil
}

// Mode implements Display.
func (w *Wedge) Mode() Mode { return ModeWedge }

// Capabilities implements Display.
func (w *Wedge) Capabilities() Capabilities {
	return Capabilities{WedgeAnimations: true, Rotation: true}
}

func (w *Wedge) onEvent(ev selection.Event) {
	if w.disposed {
		return
	}
	switch ev.Kind {
	case selection.Selected:
		for _, s := range w.segments {
			s.Selected = s.Index == ev.Index
		}
		w.startSelect(w.clock.Now())
	case selection.Suggested:
		for _, s := range w.segments {
			s.Suggested = s.Index == ev.Index
		}
	}
}

func (w *Wedge) startSelect(now time.Time) {
	to := w.target()
	switch w.visibility {
	case Shown, AnimatingIn:
		w.goal = Shown
		to.Opacity = 1
	default:
		// selection while hidden or fading out keeps the wedge hidden
		w.goal = HiddenOut
		to.Opacity = 0
	}
	w.driver.Start(anim.Tween{
		Kind:     anim.KindSelect,
		From:     w.snapshot(),
		To:       to,
		Duration: w.cfg.SelectDuration,
		Ease:     anim.QuadOut,
	}, now)
}

// Appear grows the segments from the baseline to the current selection's
// layout and fades them in.
func (w *Wedge) Appear(now time.Time) error {
	if w.disposed {
		return ErrDisposed
	}
	from := w.snapshot()
	if w.visibility == HiddenOut {
		for i := range from.Heights {
			from.Heights[i] = w.cfg.MinOuterRadius
		}
	}
	to := w.target()
	to.Opacity = 1

	w.visibility, w.goal = AnimatingIn, Shown
	w.driver.Start(anim.Tween{
		Kind:     anim.KindAppear,
		From:     from,
		To:       to,
		Duration: w.cfg.AppearDuration,
		Ease:     anim.ElasticOut,
	}, now)
	return nil
}

// Disappear shrinks every segment to the baseline and fades out.
func (w *Wedge) Disappear(now time.Time) error {
	if w.disposed {
		return ErrDisposed
	}
	to := w.target()
	for i := range to.Heights {
		to.Heights[i] = w.cfg.MinOuterRadius
	}
	to.Opacity = 0

	w.visibility, w.goal = AnimatingOut, HiddenOut
	w.driver.Start(anim.Tween{
		Kind:     anim.KindDisappear,
		From:     w.snapshot(),
		To:       to,
		Duration: w.cfg.DisappearDuration,
		Ease:     anim.QuadIn,
	}, now)
	return nil
}

// Visibility returns the appear/disappear state.
func (w *Wedge) Visibility() Visibility {
	return w.visibility
}

// Animating reports whether a transition is running.
func (w *Wedge) Animating() bool {
	return w.driver.Current() != nil
}

// Update implements Display.
func (w *Wedge) Update(now time.Time, face *tracking.Frame) {
	if w.disposed {
		return
	}

	w.tracked = face != nil
	if face != nil {
		w.anchor = face.AnchorOrFace(w.cfg.Anchor)
	}
	w.stepRotation()

	snap, status := w.driver.Step(now)
	switch status {
	case anim.Running:
		w.apply(snap)
		if w.throttle.Allow(now) {
			w.rebuild()
		}
	case anim.Finished:
		w.apply(snap)
		w.rebuild()
		w.throttle.Mark(now)
		w.visibility = w.goal
		debug.TrackLog("wedge transition finished", "visibility", w.visibility.String())
	}
}

func (w *Wedge) snapshot() anim.Snapshot {
	s := anim.Snapshot{
		Weights: make([]float64, len(w.segments)),
		Heights: make([]float64, len(w.segments)),
		Opacity: w.opacity,
	}
	for i, seg := range w.segments {
		s.Weights[i] = seg.Weight
		s.Heights[i] = seg.Height
	}
	return s
}

func (w *Wedge) target() anim.Snapshot {
	n, sel := len(w.segments), w.machine.Index()
	return anim.Snapshot{
		Weights: selection.TargetWeights(n, sel),
		Heights: selection.TargetHeights(n, sel, w.cfg.MinOuterRadius, w.cfg.MaxOuterRadius),
		Opacity: w.opacity,
	}
}

// apply copies a snapshot into the segments, holding heights inside the
// configured radius bounds and opacity inside [0,1].
func (w *Wedge) apply(s anim.Snapshot) {
	for i, seg := range w.segments {
		seg.Weight = s.Weights[i]
		seg.Height = math.Max(w.cfg.MinOuterRadius, math.Min(w.cfg.MaxOuterRadius, s.Heights[i]))
	}
	w.opacity = math.Max(0, math.Min(1, s.Opacity))
}

// rebuild recomputes angles from the weights and regenerates each
// segment's outline in place.
func (w *Wedge) rebuild() {
	total := 0.0
	for _, s := range w.segments {
		total += s.Weight
	}
	if total <= 0 {
		return
	}

	start := 0.0
	for _, s := range w.segments {
		span := s.Weight / total * w.cfg.Sweep
		s.StartAngle, s.EndAngle = start, start+span
		s.shape.RingSegment(s.StartAngle, s.EndAngle, w.cfg.InnerRadius, s.Height, w.cfg.CornerFactor)
		s.outline = s.shape.Flatten(s.outline[:0], 0)
		start += span
	}
}

// Rotate adds delta radians to the target rotation, wrapped to [0, 2pi).
func (w *Wedge) Rotate(delta float64) {
	if w.disposed {
		return
	}
	w.rotationTarget = wrapAngle(w.rotationTarget + delta)
}

// Rotation returns the target rotation in [0, 2pi).
func (w *Wedge) Rotation() float64 {
	return w.rotationTarget
}

// DisplayedRotation returns the spring-smoothed rotation being drawn.
func (w *Wedge) DisplayedRotation() float64 {
	return w.rotation
}

func (w *Wedge) stepRotation() {
	diff := wrapSigned(w.rotationTarget - w.rotation)
	if math.Abs(diff) < 1e-6 && math.Abs(w.rotationVel) < 1e-6 {
		w.rotation, w.rotationVel = w.rotationTarget, 0
		return
	}
	pos, vel := w.spring.Update(w.rotation, w.rotationVel, w.rotation+diff)
	w.rotation, w.rotationVel = wrapAngle(pos), vel
}

func (w *Wedge) groupTransform() geometry.Transform {
	return w.anchor.Mul(geometry.RotationZ(w.rotation))
}

// Pick returns the segment hit by ray. A wedge that is hidden or fading
// out takes no hits.
func (w *Wedge) Pick(ray geometry.Ray) (int, bool) {
	if w.disposed || !w.tracked || w.visibility == HiddenOut || w.visibility == AnimatingOut {
		return -1, false
	}
	inv, ok := w.groupTransform().Inverse()
	if !ok {
		return -1, false
	}
	p, _, ok := ray.Transform(inv).IntersectXY()
	if !ok {
		return -1, false
	}
	for _, s := range w.segments {
		q := p.Sub(geometry.GapOffset(s.StartAngle, s.EndAngle, w.cfg.Gap))
		if geometry.PolygonContains(s.outline, q) {
			return s.Index, true
		}
	}
	return -1, false
}

// OnClick implements Display. A hit selects the segment's tone; a miss
// is a silent no-op.
func (w *Wedge) OnClick(ray geometry.Ray) (bool, error) {
	if w.disposed {
		return false, ErrDisposed
	}
	i, ok := w.Pick(ray)
	if !ok {
		return false, nil
	}
	return true, w.machine.SelectTone(i)
}

// SwipeLeft implements Display.
func (w *Wedge) SwipeLeft() error {
	if w.disposed {
		return ErrDisposed
	}
	return w.machine.SelectPrevious()
}

// SwipeRight implements Display.
func (w *Wedge) SwipeRight() error {
	if w.disposed {
		return ErrDisposed
	}
	return w.machine.SelectNext()
}

// Segments returns a copy of the segment state.
func (w *Wedge) Segments() []Segment {
	out := make([]Segment, len(w.segments))
	for i, s := range w.segments {
		out[i] = s.Segment
	}
	return out
}

// Opacity returns the current opacity.
func (w *Wedge) Opacity() float64 {
	return w.opacity
}

// SegmentCenter returns the scene-space centroid of segment i's drawn
// area. Useful for aiming pointer input at a segment.
func (w *Wedge) SegmentCenter(i int) r3.Vector {
	s := w.segments[i]
	mid := geometry.MidAngle(s.StartAngle, s.EndAngle)
	r := (w.cfg.InnerRadius + s.Height) / 2
	off := geometry.GapOffset(s.StartAngle, s.EndAngle, w.cfg.Gap)
	local := r3.Vector{X: r*math.Cos(mid) + off.X, Y: r*math.Sin(mid) + off.Y}
	return w.groupTransform().Apply(local)
}

// Primitives implements Display.
func (w *Wedge) Primitives(dst []Primitive) []Primitive {
	if w.disposed || !w.tracked || w.opacity <= 0 {
		return dst
	}
	group := w.groupTransform()
	for _, s := range w.segments {
		if len(s.outline) == 0 {
			continue
		}
		off := geometry.GapOffset(s.StartAngle, s.EndAngle, w.cfg.Gap)
		pts := make([]r3.Vector, len(s.outline))
		for i, p := range s.outline {
			pts[i] = group.Apply(r3.Vector{X: p.X + off.X, Y: p.Y + off.Y})
		}
		dst = append(dst, Primitive{
			Outline:   pts,
			Color:     s.Tone.Color,
			Opacity:   w.opacity,
			Highlight: s.Suggested,
		})
	}
	return dst
}

// Dispose implements Display.
func (w *Wedge) Dispose() {
	if w.disposed {
		return
	}
	w.driver.Stop()
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	for _, s := range w.segments {
		s.shape = nil
		s.outline = nil
	}
	w.disposed = true
	w.logger.Debug("wedge disposed")
}

// Disposed reports whether Dispose has been called.
func (w *Wedge) Disposed() bool {
	return w.disposed
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func wrapSigned(a float64) float64 {
	a = wrapAngle(a)
	if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

var (
	_ Display  = (*Wedge)(nil)
	_ Animator = (*Wedge)(nil)
	_ Rotator  = (*Wedge)(nil)
)
