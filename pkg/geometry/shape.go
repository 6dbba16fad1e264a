// Package geometry builds and queries the 2D outlines drawn for each tone
// segment, and the 3D ray and transform math used to pick them.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Op is a path command.
type Op uint8

const (
	OpMoveTo Op = iota
	OpLineTo
	OpQuadTo
	OpArc
)

// Command is a single path element. Only the fields used by Op are set.
type Command struct {
	Op Op

	// P is the end point for MoveTo, LineTo and QuadTo.
	P r2.Point

	// C is the control point for QuadTo.
	C r2.Point

	// Arc parameters: circle centered at Center with Radius, swept from
	// Start to End radians. Clockwise sweeps go from Start down to End.
	Center     r2.Point
	Radius     float64
	Start, End float64
	Clockwise  bool
}

// Shape is a closed 2D path. A Shape is owned by the segment that draws it
// and is rebuilt in place; its command storage is reused across rebuilds.
type Shape struct {
	cmds []Command
	pen  r2.Point
}

// Reset clears the path, keeping storage.
func (s *Shape) Reset() {
	s.cmds = s.cmds[:0]
	s.pen = r2.Point{}
}

// Commands returns the path commands. The slice is only valid until the
// next rebuild.
func (s *Shape) Commands() []Command {
	return s.cmds
}

// Empty reports whether the path has no drawing commands.
func (s *Shape) Empty() bool {
	return len(s.cmds) == 0
}

// MoveTo starts a new subpath at p.
func (s *Shape) MoveTo(p r2.Point) {
	s.cmds = append(s.cmds, Command{Op: OpMoveTo, P: p})
	s.pen = p
}

// LineTo adds a straight edge to p.
func (s *Shape) LineTo(p r2.Point) {
	s.cmds = append(s.cmds, Command{Op: OpLineTo, P: p})
	s.pen = p
}

// QuadTo adds a quadratic bezier with control c ending at p.
func (s *Shape) QuadTo(c, p r2.Point) {
	s.cmds = append(s.cmds, Command{Op: OpQuadTo, C: c, P: p})
	s.pen = p
}

// Arc adds a circular arc. If the pen is not at the arc's start point a
// connecting line is implied.
func (s *Shape) Arc(center r2.Point, radius, start, end float64, clockwise bool) {
	s.cmds = append(s.cmds, Command{
		Op: OpArc, Center: center, Radius: radius,
		Start: start, End: end, Clockwise: clockwise,
	})
	s.pen = polar(center, radius, end)
}

// Flatten converts the path to a closed polyline. tolerance is the largest
// allowed distance between a curve and its chords; zero picks a default.
// The result is appended to dst.
func (s *Shape) Flatten(dst []r2.Point, tolerance float64) []r2.Point {
	if tolerance <= 0 {
		tolerance = 0.002
	}
	var pen r2.Point
	for _, c := range s.cmds {
		switch c.Op {
		case OpMoveTo, OpLineTo:
			dst = append(dst, c.P)
			pen = c.P
		case OpQuadTo:
			n := quadSteps(pen, c.C, c.P, tolerance)
			for i := 1; i <= n; i++ {
				t := float64(i) / float64(n)
				dst = append(dst, quadAt(pen, c.C, c.P, t))
			}
			pen = c.P
		case OpArc:
			sweep := c.End - c.Start
			n := arcSteps(c.Radius, math.Abs(sweep), tolerance)
			for i := 0; i <= n; i++ {
				a := c.Start + sweep*float64(i)/float64(n)
				dst = append(dst, polar(c.Center, c.Radius, a))
			}
			pen = polar(c.Center, c.Radius, c.End)
		}
	}
	return dst
}

// Contains reports whether p lies inside the path (even-odd rule).
func (s *Shape) Contains(p r2.Point) bool {
	return PolygonContains(s.Flatten(nil, 0), p)
}

// Area returns the absolute enclosed area of the flattened path.
func (s *Shape) Area() float64 {
	return math.Abs(PolygonArea(s.Flatten(nil, 0)))
}

// Bounds returns the axis-aligned bounding rectangle of the flattened path.
func (s *Shape) Bounds() r2.Rect {
	pts := s.Flatten(nil, 0)
	if len(pts) == 0 {
		return r2.EmptyRect()
	}
	return r2.RectFromPoints(pts...)
}

// PolygonContains is an even-odd point-in-polygon test.
func PolygonContains(poly []r2.Point, p r2.Point) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				in = !in
			}
		}
	}
	return in
}

// PolygonArea returns the signed shoelace area.
func PolygonArea(poly []r2.Point) float64 {
	var sum float64
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		sum += poly[j].Cross(poly[i])
	}
	return sum / 2
}

func polar(center r2.Point, r, a float64) r2.Point {
	return r2.Point{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)}
}

func quadAt(p0, c, p1 r2.Point, t float64) r2.Point {
	u := 1 - t
	return p0.Mul(u * u).Add(c.Mul(2 * u * t)).Add(p1.Mul(t * t))
}

func quadSteps(p0, c, p1 r2.Point, tol float64) int {
	// deviation of a quadratic from its chord is bounded by |p0-2c+p1|/4
	dd := p0.Sub(c.Mul(2)).Add(p1).Norm()
	n := int(math.Ceil(math.Sqrt(dd / (4 * tol))))
	return max(1, min(n, 32))
}

func arcSteps(r, sweep, tol float64) int {
	if r <= tol || sweep == 0 {
		return 1
	}
	step := 2 * math.Acos(1-tol/r)
	n := int(math.Ceil(sweep / step))
	return max(1, min(n, 256))
}
