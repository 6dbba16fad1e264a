package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// CornerRadius returns the rounding radius for a ring segment spanning
// span radians: the smallest of half the outer arc length, half the inner
// arc length and factor times the smaller radius.
func CornerRadius(span, inner, outer, factor float64) float64 {
	r := math.Min(span*outer/2, math.Min(outer, inner)*factor)
	r = math.Min(r, span*inner/2)
	return math.Max(r, 0)
}

// RingSegment rebuilds s as an annular sector between start and end
// radians, bounded by inner and outer radii, with rounded corners.
//
// The boundary runs: radial edge at the start angle, a quadratic corner into
// the outer arc, the outer arc, a corner out, the radial edge at the end
// angle, a corner into the inner arc, the inner arc in reverse, and a corner
// closing back at the start. A zero span yields a degenerate zero-area path.
func (s *Shape) RingSegment(start, end, inner, outer, cornerFactor float64) {
	s.Reset()

	span := end - start
	cr := CornerRadius(span, inner, outer, cornerFactor)

	outerStart := start + cr/outer
	outerEnd := end - cr/outer
	innerStart := start + cr/inner
	innerEnd := end - cr/inner

	origin := r2.Point{}
	s1 := polar(origin, inner+cr, start)
	s2 := polar(origin, outer-cr, start)
	e1 := polar(origin, outer-cr, end)
	e2 := polar(origin, inner+cr, end)

	s.MoveTo(s1)
	s.LineTo(s2)
	s.QuadTo(polar(origin, outer, start), polar(origin, outer, outerStart))
	s.Arc(origin, outer, outerStart, outerEnd, false)
	s.QuadTo(polar(origin, outer, end), e1)
	s.LineTo(e2)
	s.QuadTo(polar(origin, inner, end), polar(origin, inner, innerEnd))
	s.Arc(origin, inner, innerEnd, innerStart, true)
	s.QuadTo(polar(origin, inner, start), s1)
}

// BuildRingSegment returns a new Shape built by RingSegment.
func BuildRingSegment(start, end, inner, outer, cornerFactor float64) *Shape {
	s := &Shape{}
	s.RingSegment(start, end, inner, outer, cornerFactor)
	return s
}

// MidAngle returns the bisector of [start, end].
func MidAngle(start, end float64) float64 {
	return start + (end-start)/2
}

// GapOffset is the translation that pushes a segment outward along its
// bisector so neighbouring segments are visibly separated.
func GapOffset(start, end, gap float64) r2.Point {
	return polar(r2.Point{}, gap, MidAngle(start, end))
}
