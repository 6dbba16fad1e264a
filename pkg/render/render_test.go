package render

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/teslashibe/go-shade/pkg/display"
	"github.com/teslashibe/go-shade/pkg/geometry"
)

func square(z, half float64) []r3.Vector {
	return []r3.Vector{
		{X: -half, Y: -half, Z: z},
		{X: half, Y: -half, Z: z},
		{X: half, Y: half, Z: z},
		{X: -half, Y: half, Z: z},
	}
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(geometry.DefaultCamera(), 400, 300)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestDrawFillsPrimitive(t *testing.T) {
	r := newRenderer(t)
	raven, _ := colorful.Hex("#967759")

	img := r.Draw([]display.Primitive{{Outline: square(0, 0.5), Color: raven, Opacity: 1}})

	// a unit square at the origin spans about 72 px in this viewport
	got := img.RGBAAt(200, 150)
	if got.A != 0xff || got.R != 0x96 || got.G != 0x77 || got.B != 0x59 {
		t.Errorf("center = %v, want RAVEN", got)
	}
	if got := img.RGBAAt(10, 10); got.A != 0 {
		t.Errorf("corner = %v, want transparent", got)
	}
	if got := img.RGBAAt(200+38, 150); got.A != 0 {
		t.Errorf("outside edge = %v, want transparent without highlight", got)
	}
}

func TestDrawHighlight(t *testing.T) {
	r := newRenderer(t)
	img := r.Draw([]display.Primitive{{Outline: square(0, 0.5), Color: color.Black, Opacity: 1, Highlight: true}})

	if got := img.RGBAAt(200+38, 150); got != HighlightColor {
		t.Errorf("halo = %v, want %v", got, HighlightColor)
	}
	if got := img.RGBAAt(200, 150); got.R != 0 || got.A != 0xff {
		t.Errorf("center = %v, want opaque black", got)
	}
}

func TestDrawOpacity(t *testing.T) {
	r := newRenderer(t)
	img := r.Draw([]display.Primitive{
		{Outline: square(0, 0.5), Color: color.White, Opacity: 0.5},
		{Outline: square(0, 0.5), Color: color.White, Opacity: 0},
	})
	got := img.RGBAAt(200, 150)
	if got.A < 0x7e || got.A > 0x80 {
		t.Errorf("alpha = %d, want about half", got.A)
	}
}

func TestDrawSkipsBehindCamera(t *testing.T) {
	r := newRenderer(t)
	img := r.Draw([]display.Primitive{{Outline: square(10, 0.5), Color: color.White, Opacity: 1}})
	for _, p := range []image.Point{{200, 150}, {0, 0}} {
		if img.RGBAAt(p.X, p.Y).A != 0 {
			t.Errorf("pixel %v drawn for an outline behind the camera", p)
		}
	}
}

func TestPoints(t *testing.T) {
	r := newRenderer(t)
	pts := r.Points([]r3.Vector{{}, {Z: 6}})
	if pts[0] != image.Pt(200, 150) {
		t.Errorf("origin = %v, want center", pts[0])
	}
	if pts[1] != image.Pt(-1, -1) {
		t.Errorf("behind camera = %v", pts[1])
	}
}

func TestNewRejectsViewport(t *testing.T) {
	if _, err := New(geometry.DefaultCamera(), 0, 100); !errors.Is(err, ErrViewport) {
		t.Errorf("New(0, 100) error = %v", err)
	}
}
