package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Ray is a half-line from Origin along Dir.
type Ray struct {
	Origin r3.Vector
	Dir    r3.Vector
}

// At returns the point at parameter t.
func (r Ray) At(t float64) r3.Vector {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Transform maps the ray through m.
func (r Ray) Transform(m Transform) Ray {
	return Ray{Origin: m.Apply(r.Origin), Dir: m.ApplyDir(r.Dir)}
}

// IntersectXY intersects the ray with the z=0 plane. ok is false when the
// ray is parallel to the plane or the plane is behind the origin.
func (r Ray) IntersectXY() (p r2.Point, t float64, ok bool) {
	if math.Abs(r.Dir.Z) < 1e-12 {
		return r2.Point{}, 0, false
	}
	t = -r.Origin.Z / r.Dir.Z
	if t < 0 {
		return r2.Point{}, 0, false
	}
	hit := r.At(t)
	return r2.Point{X: hit.X, Y: hit.Y}, t, true
}

// Camera is a perspective camera on the +Z axis looking down -Z.
type Camera struct {
	// Z is the camera's distance from the origin.
	Z float64

	// FOV is the vertical field of view in degrees.
	FOV float64

	// Aspect is viewport width over height.
	Aspect float64
}

// DefaultCamera matches the AR scene: camera 5 units out, 45 degree FOV.
func DefaultCamera() Camera {
	return Camera{Z: 5, FOV: 45, Aspect: 4.0 / 3.0}
}

func (c Camera) tanHalf() float64 {
	return math.Tan(c.FOV * math.Pi / 360)
}

// VisibleHeight returns the height of the view frustum at plane z.
func (c Camera) VisibleHeight(z float64) float64 {
	return 2 * (c.Z - z) * c.tanHalf()
}

// Position returns the camera position in world space.
func (c Camera) Position() r3.Vector {
	return r3.Vector{Z: c.Z}
}

// Ray returns the world-space ray through normalized device coordinates
// (x right, y up, both in [-1, 1]).
func (c Camera) Ray(ndcX, ndcY float64) Ray {
	th := c.tanHalf()
	dir := r3.Vector{X: ndcX * th * c.Aspect, Y: ndcY * th, Z: -1}
	return Ray{Origin: c.Position(), Dir: dir.Normalize()}
}

// Project maps a world-space point to normalized device coordinates.
// ok is false for points at or behind the camera.
func (c Camera) Project(p r3.Vector) (ndc r2.Point, ok bool) {
	depth := c.Z - p.Z
	if depth <= 1e-9 {
		return r2.Point{}, false
	}
	th := c.tanHalf()
	return r2.Point{
		X: p.X / (depth * th * c.Aspect),
		Y: p.Y / (depth * th),
	}, true
}

// PixelToNDC converts a pixel position in a w x h viewport (origin top-left)
// to normalized device coordinates.
func PixelToNDC(x, y float64, w, h int) r2.Point {
	return r2.Point{
		X: (x/float64(w))*2 - 1,
		Y: -(y/float64(h))*2 + 1,
	}
}

// NDCToPixel is the inverse of PixelToNDC.
func NDCToPixel(ndc r2.Point, w, h int) r2.Point {
	return r2.Point{
		X: (ndc.X + 1) / 2 * float64(w),
		Y: (1 - ndc.Y) / 2 * float64(h),
	}
}
