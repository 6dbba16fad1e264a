package input

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-shade/pkg/anim"
	"github.com/teslashibe/go-shade/pkg/display"
	"github.com/teslashibe/go-shade/pkg/geometry"
	"github.com/teslashibe/go-shade/pkg/selection"
	"github.com/teslashibe/go-shade/pkg/tone"
	"github.com/teslashibe/go-shade/pkg/tracking"
)

var (
	t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	vp = Viewport{Width: 640, Height: 480}
)

type harness struct {
	machine *selection.Machine
	clock   *anim.ManualClock
	display display.Display
	adapter *Adapter
	face    *tracking.Frame
}

func newHarness(t *testing.T, mode display.Mode, face *tracking.Frame) *harness {
	t.Helper()
	m := selection.New(tone.Default())
	clock := anim.NewManualClock(t0)
	d, err := display.Mount(mode, m, display.DefaultConfig(), clock)
	if err != nil {
		t.Fatal(err)
	}
	a := New(DefaultConfig(), m)
	a.SetDisplay(d)
	h := &harness{machine: m, clock: clock, display: d, adapter: a, face: face}
	h.settle()
	return h
}

func (h *harness) settle() {
	for i := 0; i < 200; i++ {
		h.display.Update(h.clock.Advance(16*time.Millisecond), h.face)
	}
}

// pixel returns the viewport pixel showing scene point p.
func pixel(p r3.Vector) (float64, float64) {
	cam := geometry.DefaultCamera()
	cam.Aspect = float64(vp.Width) / float64(vp.Height)
	ndc, _ := cam.Project(p)
	px := geometry.NDCToPixel(ndc, vp.Width, vp.Height)
	return px.X, px.Y
}

func identityFace() *tracking.Frame {
	return &tracking.Frame{Face: geometry.Identity()}
}

func TestSwipeThreshold(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		want       Gesture
		wantIndex  int
	}{
		{"short right", 100, 130, GestureNone, 0},
		{"short left", 100, 75, GestureNone, 0},
		{"right", 100, 131, GestureSwipeRight, 1},
		{"left wraps", 200, 100, GestureSwipeLeft, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, display.ModeWedge, identityFace())
			g, err := h.adapter.Swipe(tt.start, tt.end)
			if err != nil {
				t.Fatal(err)
			}
			if g != tt.want || h.machine.Index() != tt.wantIndex {
				t.Errorf("Swipe() = %v index %d, want %v index %d", g, h.machine.Index(), tt.want, tt.wantIndex)
			}
		})
	}
}

func TestPressReleaseSwipe(t *testing.T) {
	h := newHarness(t, display.ModeWedge, identityFace())

	if err := h.adapter.Press(300, 200, vp); err != nil {
		t.Fatal(err)
	}
	g, err := h.adapter.Release(400)
	if err != nil || g != GestureSwipeRight {
		t.Fatalf("Release() = %v, %v", g, err)
	}
	if h.machine.Index() != 1 {
		t.Errorf("index = %d, want 1", h.machine.Index())
	}

	if g, _ := h.adapter.Release(0); g != GestureNone {
		t.Errorf("Release without Press = %v", g)
	}
}

func TestClickSelectsSegment(t *testing.T) {
	h := newHarness(t, display.ModeWedge, identityFace())
	w := h.display.(*display.Wedge)

	x, y := pixel(w.SegmentCenter(2))
	hit, err := h.adapter.Click(x, y, vp)
	if err != nil || !hit {
		t.Fatalf("Click() = %v, %v", hit, err)
	}
	if h.machine.Index() != 2 {
		t.Errorf("index = %d, want 2", h.machine.Index())
	}

	hit, err = h.adapter.Click(2, 2, vp)
	if err != nil || hit {
		t.Errorf("corner Click() = %v, %v; want silent miss", hit, err)
	}
	if h.machine.Index() != 2 {
		t.Errorf("miss changed selection to %d", h.machine.Index())
	}

	if _, err := h.adapter.Click(1, 1, Viewport{}); !errors.Is(err, ErrViewport) {
		t.Errorf("zero viewport error = %v", err)
	}
}

func TestExternalMatchesClick(t *testing.T) {
	clicked := newHarness(t, display.ModeWedge, identityFace())
	x, y := pixel(clicked.display.(*display.Wedge).SegmentCenter(3))
	_, _ = clicked.adapter.Click(x, y, vp)
	clicked.settle()

	external := newHarness(t, display.ModeWedge, identityFace())
	if err := external.adapter.External(3); err != nil {
		t.Fatal(err)
	}
	external.settle()

	a := clicked.display.(*display.Wedge).Segments()
	b := external.display.(*display.Wedge).Segments()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("segment %d: click %+v vs external %+v", i, a[i], b[i])
		}
	}

	var re *selection.RangeError
	if err := external.adapter.External(9); !errors.As(err, &re) {
		t.Errorf("External(9) error = %v", err)
	}
}

func TestScrollRotatesWithoutSelecting(t *testing.T) {
	h := newHarness(t, display.ModeWedge, identityFace())
	w := h.display.(*display.Wedge)

	if !h.adapter.Scroll(500) {
		t.Fatal("wedge should accept scroll")
	}
	if got := w.Rotation(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Rotation() = %v, want 1.0", got)
	}
	h.adapter.Scroll(-1000)
	if got, want := w.Rotation(), 2*math.Pi-1.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("Rotation() = %v, want %v", got, want)
	}
	if h.machine.Index() != 0 {
		t.Errorf("scroll changed selection to %d", h.machine.Index())
	}

	dots := newHarness(t, display.ModeDots, identityFace())
	if dots.adapter.Scroll(100) {
		t.Error("dot cloud should ignore scroll")
	}
}

func TestKeys(t *testing.T) {
	h := newHarness(t, display.ModeWedge, identityFace())

	if g, _ := h.adapter.Key(KeyLeft); g != GestureSwipeLeft || h.machine.Index() != 3 {
		t.Errorf("ArrowLeft = %v index %d", g, h.machine.Index())
	}
	if g, _ := h.adapter.Key(KeyRight); g != GestureSwipeRight || h.machine.Index() != 0 {
		t.Errorf("ArrowRight = %v index %d", g, h.machine.Index())
	}
	if g, err := h.adapter.Key("Space"); g != GestureNone || err != nil {
		t.Errorf("Space = %v, %v", g, err)
	}
}

func TestDragOnDots(t *testing.T) {
	face := &tracking.Frame{
		Face:      geometry.Identity(),
		Landmarks: []r3.Vector{{}, {X: 1}, {Y: 1}},
	}
	h := newHarness(t, display.ModeDots, face)
	d := h.display.(*display.DotCloud)

	x, y := pixel(r3.Vector{})
	if err := h.adapter.Press(x, y, vp); err != nil {
		t.Fatal(err)
	}
	x, y = pixel(r3.Vector{X: 0.1, Y: 0.8})
	if err := h.adapter.Move(x, y, vp); err != nil {
		t.Fatal(err)
	}
	g, err := h.adapter.Release(x)
	if err != nil || g != GestureDrag {
		t.Fatalf("Release() = %v, %v", g, err)
	}

	if mk := d.Markers()[0]; mk.Landmark != 2 || mk.Dragging {
		t.Errorf("marker 0 = %+v, want snapped to landmark 2 and released", mk)
	}
	if h.machine.Index() != 0 {
		t.Errorf("drag changed selection to %d", h.machine.Index())
	}
}

func TestNoDisplay(t *testing.T) {
	a := New(DefaultConfig(), selection.New(tone.Default()))

	if _, err := a.Click(1, 1, vp); !errors.Is(err, ErrNoDisplay) {
		t.Errorf("Click error = %v", err)
	}
	if _, err := a.Swipe(0, 100); !errors.Is(err, ErrNoDisplay) {
		t.Errorf("Swipe error = %v", err)
	}
	if a.Scroll(10) {
		t.Error("Scroll without display reported success")
	}
}
