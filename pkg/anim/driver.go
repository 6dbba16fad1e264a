package anim

import (
	"time"
)

// Kind identifies what a tween is animating.
type Kind uint8

const (
	// KindSelect redistributes weights and heights after a selection.
	KindSelect Kind = iota

	// KindAppear grows segments from the baseline and fades them in.
	KindAppear

	// KindDisappear shrinks segments to the baseline and fades them out.
	KindDisappear
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindAppear:
		return "appear"
	case KindDisappear:
		return "disappear"
	default:
		return "unknown"
	}
}

// Default durations per kind.
const (
	SelectDuration    = 1000 * time.Millisecond
	AppearDuration    = 1200 * time.Millisecond
	DisappearDuration = 400 * time.Millisecond
)

// Snapshot is one frame of animated state.
type Snapshot struct {
	Weights []float64
	Heights []float64
	Opacity float64
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Weights: append([]float64(nil), s.Weights...),
		Heights: append([]float64(nil), s.Heights...),
		Opacity: s.Opacity,
	}
}

// Status reports the driver state after a Step.
type Status uint8

const (
	// Idle means no tween is running; the snapshot is not meaningful.
	Idle Status = iota

	// Running means the snapshot is an intermediate frame.
	Running

	// Finished means the snapshot is the exact target and the tween ended
	// on this step.
	Finished
)

// Tween describes an interpolation from From to To.
type Tween struct {
	Kind     Kind
	From     Snapshot
	To       Snapshot
	Duration time.Duration
	Ease     Easing
}

// Handle controls a started tween.
type Handle struct {
	tween   Tween
	start   time.Time
	stopped bool
}

// Stop cancels the tween. A stopped tween never yields another frame.
func (h *Handle) Stop() {
	if h != nil {
		h.stopped = true
	}
}

// Active reports whether the tween is still running.
func (h *Handle) Active() bool {
	return h != nil && !h.stopped
}

// Kind returns the tween kind.
func (h *Handle) Kind() Kind {
	return h.tween.Kind
}

// Driver runs at most one tween at a time. It is not safe for concurrent
// use; it belongs to the render loop.
type Driver struct {
	current *Handle
}

// Start begins tw at now, stopping any running tween first.
func (d *Driver) Start(tw Tween, now time.Time) *Handle {
	d.Stop()
	if tw.Ease == nil {
		tw.Ease = Linear
	}
	tw.From = tw.From.Clone()
	tw.To = tw.To.Clone()
	d.current = &Handle{tween: tw, start: now}
	return d.current
}

// Stop cancels the running tween, if any.
func (d *Driver) Stop() {
	if d.current != nil {
		d.current.Stop()
		d.current = nil
	}
}

// Current returns the running tween's handle, or nil.
func (d *Driver) Current() *Handle {
	if d.current != nil && d.current.stopped {
		d.current = nil
	}
	return d.current
}

// Step samples the running tween at now.
func (d *Driver) Step(now time.Time) (Snapshot, Status) {
	h := d.Current()
	if h == nil {
		return Snapshot{}, Idle
	}

	tw := h.tween
	t := 1.0
	if tw.Duration > 0 {
		t = clamp01(float64(now.Sub(h.start)) / float64(tw.Duration))
	}

	if t >= 1 {
		d.current = nil
		h.stopped = true
		return tw.To.Clone(), Finished
	}

	return sample(tw, tw.Ease(t)), Running
}

// sample interpolates at eased progress e. Weights use e clamped to [0,1]:
// both endpoints sum to the same total and clamping keeps every weight
// between its endpoints, so an overshooting easing cannot drive one
// negative. Heights and opacity follow e unclamped and are bounded by the
// caller.
func sample(tw Tween, e float64) Snapshot {
	we := clamp01(e)
	out := Snapshot{
		Weights: make([]float64, len(tw.To.Weights)),
		Heights: make([]float64, len(tw.To.Heights)),
		Opacity: lerp(tw.From.Opacity, tw.To.Opacity, e),
	}
	for i := range out.Weights {
		out.Weights[i] = lerp(at(tw.From.Weights, i, tw.To.Weights[i]), tw.To.Weights[i], we)
	}
	for i := range out.Heights {
		out.Heights[i] = lerp(at(tw.From.Heights, i, tw.To.Heights[i]), tw.To.Heights[i], e)
	}
	return out
}

func at(s []float64, i int, fallback float64) float64 {
	if i < len(s) {
		return s[i]
	}
	return fallback
}

// Throttle limits how often an expensive action runs.
type Throttle struct {
	Interval time.Duration
	last     time.Time
	primed   bool
}

// RebuildRate is the default rebuild frequency for derived geometry.
const RebuildRate = 30

// NewThrottle returns a throttle allowing hz actions per second.
func NewThrottle(hz int) *Throttle {
	return &Throttle{Interval: time.Second / time.Duration(hz)}
}

// Allow reports whether the action may run at now and, if so, records it.
func (t *Throttle) Allow(now time.Time) bool {
	if t.primed && now.Sub(t.last) < t.Interval {
		return false
	}
	t.last = now
	t.primed = true
	return true
}

// Mark records an action at now regardless of the interval.
func (t *Throttle) Mark(now time.Time) {
	t.last = now
	t.primed = true
}
