package display

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-shade/pkg/anim"
	"github.com/teslashibe/go-shade/pkg/geometry"
	"github.com/teslashibe/go-shade/pkg/selection"
	"github.com/teslashibe/go-shade/pkg/tone"
	"github.com/teslashibe/go-shade/pkg/tracking"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	machine *selection.Machine
	clock   *anim.ManualClock
	wedge   *Wedge
	face    *tracking.Frame
	camera  geometry.Camera
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := selection.New(tone.Default())
	clock := anim.NewManualClock(t0)
	d, err := Mount(ModeWedge, m, DefaultConfig(), clock)
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	f := &fixture{
		machine: m,
		clock:   clock,
		wedge:   d.(*Wedge),
		face:    &tracking.Frame{Face: geometry.Identity()},
		camera:  geometry.DefaultCamera(),
	}
	f.settle()
	return f
}

// settle runs frames until every transition has finished.
func (f *fixture) settle() {
	for i := 0; i < 200; i++ {
		f.wedge.Update(f.clock.Advance(16*time.Millisecond), f.face)
	}
}

func (f *fixture) rayThrough(i int) geometry.Ray {
	ndc, _ := f.camera.Project(f.wedge.SegmentCenter(i))
	return f.camera.Ray(ndc.X, ndc.Y)
}

func weights(w *Wedge) []float64 {
	var out []float64
	for _, s := range w.Segments() {
		out = append(out, math.Round(s.Weight*100)/100)
	}
	return out
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func checkInvariants(t *testing.T, w *Wedge, cfg Config) {
	t.Helper()
	sum, selected := 0.0, 0
	for _, s := range w.Segments() {
		sum += s.Weight
		if s.Selected {
			selected++
		}
		if s.Height < cfg.MinOuterRadius || s.Height > cfg.MaxOuterRadius {
			t.Fatalf("segment %d height %v outside bounds", s.Index, s.Height)
		}
	}
	if math.Abs(sum-100) > 1e-6 {
		t.Fatalf("weights sum to %v", sum)
	}
	if selected != 1 {
		t.Fatalf("%d segments selected", selected)
	}
	if o := w.Opacity(); o < 0 || o > 1 {
		t.Fatalf("opacity %v", o)
	}
}

func TestMountSettlesOnDefault(t *testing.T) {
	f := newFixture(t)

	if f.machine.Index() != selection.DefaultIndex {
		t.Fatalf("index = %d", f.machine.Index())
	}
	want := []float64{50, 16.67, 16.67, 16.67}
	if got := weights(f.wedge); !equalFloats(got, want) {
		t.Errorf("weights = %v, want %v", got, want)
	}
	if f.wedge.Visibility() != Shown {
		t.Errorf("visibility = %v", f.wedge.Visibility())
	}
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)

	if err := f.machine.SelectTone(2); err != nil {
		t.Fatal(err)
	}
	f.settle()
	if got, want := weights(f.wedge), []float64{16.67, 16.67, 50, 16.67}; !equalFloats(got, want) {
		t.Errorf("after SelectTone(2) weights = %v, want %v", got, want)
	}

	if err := f.machine.SelectPrevious(); err != nil {
		t.Fatal(err)
	}
	f.settle()
	if f.machine.Index() != 1 {
		t.Errorf("index = %d, want 1", f.machine.Index())
	}
	if got, want := weights(f.wedge), []float64{16.67, 50, 16.67, 16.67}; !equalFloats(got, want) {
		t.Errorf("after SelectPrevious weights = %v, want %v", got, want)
	}

	cfg := DefaultConfig()
	for _, s := range f.wedge.Segments() {
		if s.Index == 1 && s.Height != cfg.MaxOuterRadius {
			t.Errorf("selected height = %v, want %v", s.Height, cfg.MaxOuterRadius)
		}
	}
}

func TestSelectedFlagIsSynchronous(t *testing.T) {
	f := newFixture(t)
	_ = f.machine.SelectTone(3)

	for _, s := range f.wedge.Segments() {
		if s.Selected != (s.Index == 3) {
			t.Errorf("segment %d selected = %v before any frame ran", s.Index, s.Selected)
		}
	}
	if !f.wedge.Animating() {
		t.Error("selection did not start a transition")
	}
}

func TestInvariantsDuringTransitions(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()

	steps := []func(){
		func() { _ = f.machine.SelectTone(2) },
		func() { _ = f.wedge.Disappear(f.clock.Now()) },
		func() { _ = f.wedge.Appear(f.clock.Now()) },
		func() { _ = f.machine.SelectNext() },
	}
	for _, step := range steps {
		step()
		for i := 0; i < 90; i++ {
			f.wedge.Update(f.clock.Advance(16*time.Millisecond), f.face)
			checkInvariants(t, f.wedge, cfg)
		}
	}
}

func TestCancellationLastCallWins(t *testing.T) {
	f := newFixture(t)

	_ = f.machine.SelectTone(1)
	for i := 0; i < 10; i++ {
		f.wedge.Update(f.clock.Advance(16*time.Millisecond), f.face)
	}
	_ = f.machine.SelectTone(3)
	f.settle()

	if got, want := weights(f.wedge), []float64{16.67, 16.67, 16.67, 50}; !equalFloats(got, want) {
		t.Errorf("weights = %v, want %v", got, want)
	}
	segs := f.wedge.Segments()
	if segs[1].Height == DefaultConfig().MaxOuterRadius {
		t.Error("cancelled selection left its height target")
	}
}

func TestReselectIsIdempotent(t *testing.T) {
	once := newFixture(t)
	_ = once.machine.SelectTone(2)
	once.settle()

	twice := newFixture(t)
	_ = twice.machine.SelectTone(2)
	_ = twice.machine.SelectTone(2)
	twice.settle()

	a, b := once.wedge.Segments(), twice.wedge.Segments()
	for i := range a {
		if a[i].Weight != b[i].Weight || a[i].Height != b[i].Height || a[i].Selected != b[i].Selected {
			t.Errorf("segment %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestClickSymmetry(t *testing.T) {
	for i := 0; i < 4; i++ {
		clicked := newFixture(t)
		hit, err := clicked.wedge.OnClick(clicked.rayThrough(i))
		if err != nil || !hit {
			t.Fatalf("click on segment %d: hit=%v err=%v", i, hit, err)
		}
		clicked.settle()

		direct := newFixture(t)
		_ = direct.machine.SelectTone(i)
		direct.settle()

		if clicked.machine.Index() != i {
			t.Errorf("click selected %d, want %d", clicked.machine.Index(), i)
		}
		if !equalFloats(weights(clicked.wedge), weights(direct.wedge)) {
			t.Errorf("segment %d: click %v vs select %v", i, weights(clicked.wedge), weights(direct.wedge))
		}
	}
}

func TestClickMissIsNoop(t *testing.T) {
	f := newFixture(t)
	_ = f.machine.SelectTone(2)
	f.settle()

	events := 0
	f.machine.Subscribe(func(selection.Event) { events++ })

	hit, err := f.wedge.OnClick(f.camera.Ray(0.99, -0.99))
	if hit || err != nil {
		t.Errorf("OnClick(miss) = %v, %v", hit, err)
	}
	if events != 0 || f.machine.Index() != 2 {
		t.Errorf("miss changed state: events=%d index=%d", events, f.machine.Index())
	}
}

func TestClickWithoutFaceMisses(t *testing.T) {
	f := newFixture(t)
	ray := f.rayThrough(1)
	f.wedge.Update(f.clock.Now(), nil)

	if hit, _ := f.wedge.OnClick(ray); hit {
		t.Error("click hit while no face is tracked")
	}
	if prims := f.wedge.Primitives(nil); len(prims) != 0 {
		t.Errorf("drew %d primitives without a face", len(prims))
	}
}

func TestRotationWrapsAndKeepsSelection(t *testing.T) {
	f := newFixture(t)
	_ = f.machine.SelectTone(1)
	f.settle()

	f.wedge.Rotate(3 * math.Pi)
	if got := f.wedge.Rotation(); math.Abs(got-math.Pi) > 1e-9 {
		t.Errorf("Rotation() = %v, want pi", got)
	}
	f.wedge.Rotate(-2 * math.Pi)
	if got := f.wedge.Rotation(); math.Abs(got-math.Pi) > 1e-9 {
		t.Errorf("Rotation() after full turn = %v, want pi", got)
	}
	f.wedge.Rotate(-1.5 * math.Pi)
	if got := f.wedge.Rotation(); math.Abs(got-1.5*math.Pi) > 1e-9 {
		t.Errorf("Rotation() after negative delta = %v, want 1.5pi", got)
	}

	f.settle()
	if d := math.Abs(wrapSigned(f.wedge.DisplayedRotation() - f.wedge.Rotation())); d > 1e-3 {
		t.Errorf("displayed rotation %v did not converge to %v", f.wedge.DisplayedRotation(), f.wedge.Rotation())
	}
	if f.machine.Index() != 1 {
		t.Errorf("rotation changed selection to %d", f.machine.Index())
	}

	// picking follows the rotated layout
	hit, _ := f.wedge.OnClick(f.rayThrough(3))
	if !hit || f.machine.Index() != 3 {
		t.Errorf("rotated click: hit=%v index=%d", hit, f.machine.Index())
	}
}

func TestDisappearAppear(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	ray := f.rayThrough(2)

	if err := f.wedge.Disappear(f.clock.Now()); err != nil {
		t.Fatal(err)
	}
	if f.wedge.Visibility() != AnimatingOut {
		t.Errorf("visibility = %v, want animating_out", f.wedge.Visibility())
	}
	if hit, _ := f.wedge.OnClick(ray); hit || f.machine.Index() != 0 {
		t.Errorf("fading wedge accepted a click: index %d", f.machine.Index())
	}
	f.settle()
	if f.wedge.Visibility() != HiddenOut || f.wedge.Opacity() != 0 {
		t.Errorf("after disappear: %v opacity %v", f.wedge.Visibility(), f.wedge.Opacity())
	}
	for _, s := range f.wedge.Segments() {
		if s.Height != cfg.MinOuterRadius {
			t.Errorf("segment %d height %v, want baseline", s.Index, s.Height)
		}
	}
	if hit, _ := f.wedge.OnClick(ray); hit {
		t.Error("hidden wedge accepted a click")
	}

	if err := f.wedge.Appear(f.clock.Now()); err != nil {
		t.Fatal(err)
	}
	if f.wedge.Visibility() != AnimatingIn {
		t.Errorf("visibility = %v, want animating_in", f.wedge.Visibility())
	}
	f.settle()
	if f.wedge.Visibility() != Shown || f.wedge.Opacity() != 1 {
		t.Errorf("after appear: %v opacity %v", f.wedge.Visibility(), f.wedge.Opacity())
	}
	want := selection.TargetHeights(4, 0, cfg.MinOuterRadius, cfg.MaxOuterRadius)
	for i, s := range f.wedge.Segments() {
		if s.Height != want[i] {
			t.Errorf("segment %d height %v, want %v", i, s.Height, want[i])
		}
	}
}

func TestSelectCancelsAppear(t *testing.T) {
	f := newFixture(t)
	_ = f.wedge.Disappear(f.clock.Now())
	f.settle()

	_ = f.wedge.Appear(f.clock.Now())
	f.wedge.Update(f.clock.Advance(100*time.Millisecond), f.face)
	_ = f.machine.SelectTone(3)
	f.settle()

	if f.wedge.Visibility() != Shown || f.wedge.Opacity() != 1 {
		t.Errorf("visibility %v opacity %v", f.wedge.Visibility(), f.wedge.Opacity())
	}
	if got, want := weights(f.wedge), []float64{16.67, 16.67, 16.67, 50}; !equalFloats(got, want) {
		t.Errorf("weights = %v", got)
	}
}

func TestGeometryRebuildIsThrottled(t *testing.T) {
	f := newFixture(t)
	_ = f.machine.SelectTone(2)

	f.wedge.Update(f.clock.Advance(40*time.Millisecond), f.face)
	before := f.wedge.Segments()

	f.wedge.Update(f.clock.Advance(10*time.Millisecond), f.face)
	after := f.wedge.Segments()

	if after[2].Weight == before[2].Weight {
		t.Error("weights should be sampled every frame")
	}
	if after[0].EndAngle != before[0].EndAngle {
		t.Error("geometry rebuilt faster than the throttle allows")
	}
}

func TestSuggestionHighlight(t *testing.T) {
	f := newFixture(t)
	_ = f.machine.Suggest(2)

	prims := f.wedge.Primitives(nil)
	if len(prims) != 4 {
		t.Fatalf("primitives = %d", len(prims))
	}
	for i, p := range prims {
		if p.Highlight != (i == 2) {
			t.Errorf("primitive %d highlight = %v", i, p.Highlight)
		}
	}
	if f.machine.Index() != 0 {
		t.Errorf("suggestion changed selection to %d", f.machine.Index())
	}

	f.machine.ClearSuggestion()
	for _, s := range f.wedge.Segments() {
		if s.Suggested {
			t.Errorf("segment %d still suggested", s.Index)
		}
	}
}

func TestDisposeAndRemount(t *testing.T) {
	f := newFixture(t)
	_ = f.machine.SelectTone(2)
	f.wedge.Dispose()
	f.wedge.Dispose() // idempotent

	before := f.wedge.Segments()
	_ = f.machine.SelectTone(3)
	f.wedge.Update(f.clock.Advance(time.Second), f.face)
	after := f.wedge.Segments()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("disposed wedge mutated segment %d", i)
		}
	}

	if _, err := f.wedge.OnClick(f.camera.Ray(0, 0)); !errors.Is(err, ErrDisposed) {
		t.Errorf("OnClick after dispose error = %v", err)
	}
	if err := f.wedge.Appear(f.clock.Now()); !errors.Is(err, ErrDisposed) {
		t.Errorf("Appear after dispose error = %v", err)
	}
	if err := f.wedge.SwipeRight(); !errors.Is(err, ErrDisposed) {
		t.Errorf("SwipeRight after dispose error = %v", err)
	}

	d, err := Mount(ModeWedge, f.machine, DefaultConfig(), f.clock)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Dispose()
	if f.machine.Index() != selection.DefaultIndex {
		t.Errorf("remount index = %d, want default", f.machine.Index())
	}
}

func TestSwipes(t *testing.T) {
	f := newFixture(t)

	_ = f.wedge.SwipeLeft()
	if f.machine.Index() != 3 {
		t.Errorf("SwipeLeft from 0 = %d, want 3", f.machine.Index())
	}
	_ = f.wedge.SwipeRight()
	_ = f.wedge.SwipeRight()
	if f.machine.Index() != 1 {
		t.Errorf("two SwipeRight = %d, want 1", f.machine.Index())
	}
}
