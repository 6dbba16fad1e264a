package geometry

import (
	"math"

	"github.com/golang/geo/r3"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// Transform is a row-major 4x4 affine matrix:
// [r00 r01 r02 tx; r10 r11 r12 ty; r20 r21 r22 tz; 0 0 0 1].
type Transform f64.Mat4

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a pure translation.
func Translation(v r3.Vector) Transform {
	t := Identity()
	t[3], t[7], t[11] = v.X, v.Y, v.Z
	return t
}

// RotationZ returns a rotation of a radians about the Z axis.
func RotationZ(a float64) Transform {
	c, s := math.Cos(a), math.Sin(a)
	return Transform{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Scaling returns a uniform scale.
func Scaling(k float64) Transform {
	return Transform{
		k, 0, 0, 0,
		0, k, 0, 0,
		0, 0, k, 0,
		0, 0, 0, 1,
	}
}

// Mul returns t * o (o is applied first).
func (t Transform) Mul(o Transform) Transform {
	var out Transform
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += t[r*4+k] * o[k*4+c]
			}
			out[r*4+c] = sum
		}
	}
	return out
}

// Apply transforms a point.
func (t Transform) Apply(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: t[0]*p.X + t[1]*p.Y + t[2]*p.Z + t[3],
		Y: t[4]*p.X + t[5]*p.Y + t[6]*p.Z + t[7],
		Z: t[8]*p.X + t[9]*p.Y + t[10]*p.Z + t[11],
	}
}

// ApplyDir transforms a direction (translation ignored).
func (t Transform) ApplyDir(d r3.Vector) r3.Vector {
	return r3.Vector{
		X: t[0]*d.X + t[1]*d.Y + t[2]*d.Z,
		Y: t[4]*d.X + t[5]*d.Y + t[6]*d.Z,
		Z: t[8]*d.X + t[9]*d.Y + t[10]*d.Z,
	}
}

// Position returns the translation component.
func (t Transform) Position() r3.Vector {
	return r3.Vector{X: t[3], Y: t[7], Z: t[11]}
}

// Inverse returns the inverse transform. ok is false when t is singular.
func (t Transform) Inverse() (inv Transform, ok bool) {
	m := mat.NewDense(4, 4, t[:])
	var out mat.Dense
	if err := out.Inverse(m); err != nil {
		return Transform{}, false
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			inv[r*4+c] = out.At(r, c)
		}
	}
	return inv, true
}
