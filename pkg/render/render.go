// Package render rasterizes display primitives into an overlay image the
// size of the camera viewport.
package render

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"golang.org/x/image/vector"

	"github.com/teslashibe/go-shade/pkg/display"
	"github.com/teslashibe/go-shade/pkg/geometry"
)

// ErrViewport is returned for a zero or negative viewport.
var ErrViewport = errors.New("render: invalid viewport")

// HighlightScale grows the suggested segment's halo relative to the
// segment itself.
const HighlightScale = 1.08

// HighlightColor is drawn behind the suggested segment.
var HighlightColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Renderer projects scene-space outlines through a camera and fills them.
type Renderer struct {
	cam    geometry.Camera
	width  int
	height int
	raster *vector.Rasterizer
	pts    []r3.Vector
}

// New creates a renderer for a width x height viewport. The camera's
// aspect is replaced by the viewport's.
func New(cam geometry.Camera, width, height int) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrViewport
	}
	cam.Aspect = float64(width) / float64(height)
	return &Renderer{
		cam:    cam,
		width:  width,
		height: height,
		raster: vector.NewRasterizer(width, height),
	}, nil
}

// Size returns the viewport size.
func (r *Renderer) Size() (width, height int) {
	return r.width, r.height
}

// Camera returns the camera with the viewport aspect applied.
func (r *Renderer) Camera() geometry.Camera {
	return r.cam
}

// Draw renders prims onto a new transparent image.
func (r *Renderer) Draw(prims []display.Primitive) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	r.DrawOnto(dst, prims)
	return dst
}

// DrawOnto renders prims over dst, which must match the viewport size.
// Suggested primitives get a halo drawn beneath them.
func (r *Renderer) DrawOnto(dst draw.Image, prims []display.Primitive) {
	for _, p := range prims {
		if p.Opacity <= 0 || len(p.Outline) < 3 {
			continue
		}
		if p.Highlight {
			r.pts = scaleAbout(r.pts[:0], p.Outline, HighlightScale)
			r.fill(dst, r.pts, HighlightColor, p.Opacity)
		}
		r.fill(dst, p.Outline, p.Color, p.Opacity)
	}
}

// fill rasterizes one closed outline. Outlines with any point behind the
// camera are skipped.
func (r *Renderer) fill(dst draw.Image, outline []r3.Vector, c color.Color, opacity float64) {
	r.raster.Reset(r.width, r.height)
	for i, v := range outline {
		px, ok := r.Pixel(v)
		if !ok {
			return
		}
		if i == 0 {
			r.raster.MoveTo(float32(px.X), float32(px.Y))
		} else {
			r.raster.LineTo(float32(px.X), float32(px.Y))
		}
	}
	r.raster.ClosePath()
	r.raster.Draw(dst, dst.Bounds(), image.NewUniform(withOpacity(c, opacity)), image.Point{})
}

// Pixel projects a scene-space point to viewport pixels.
func (r *Renderer) Pixel(v r3.Vector) (r2.Point, bool) {
	ndc, ok := r.cam.Project(v)
	if !ok {
		return r2.Point{}, false
	}
	return geometry.NDCToPixel(ndc, r.width, r.height), true
}

// Points projects scene-space points to integer pixel positions. Points
// behind the camera map to (-1, -1), which lies outside every frame.
func (r *Renderer) Points(world []r3.Vector) []image.Point {
	out := make([]image.Point, len(world))
	for i, v := range world {
		px, ok := r.Pixel(v)
		if !ok {
			out[i] = image.Pt(-1, -1)
			continue
		}
		out[i] = image.Pt(int(px.X), int(px.Y))
	}
	return out
}

func scaleAbout(dst, pts []r3.Vector, k float64) []r3.Vector {
	var c r3.Vector
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.Mul(1 / float64(len(pts)))
	for _, p := range pts {
		dst = append(dst, c.Add(p.Sub(c).Mul(k)))
	}
	return dst
}

// withOpacity returns c premultiplied by opacity clamped to [0, 1].
func withOpacity(c color.Color, opacity float64) color.Color {
	if opacity > 1 {
		opacity = 1
	}
	r, g, b, a := c.RGBA()
	k := func(v uint32) uint16 { return uint16(float64(v) * opacity) }
	return color.RGBA64{R: k(r), G: k(g), B: k(b), A: k(a)}
}
