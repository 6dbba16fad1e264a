// Package anim drives time-based interpolation of segment weights, heights
// and opacity.
//
// A Driver runs at most one tween at a time. Starting a new tween stops the
// previous one before anything is applied, so the last call always wins.
// Each frame the caller steps the driver and receives an immutable Snapshot
// to apply; when a tween completes the snapshot equals its target exactly.
package anim

import "math"

// Easing maps normalized time t in [0,1] to progress. Easings return 0 at
// t=0 and 1 at t=1 but may overshoot in between.
type Easing func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// QuadOut decelerates to the target.
func QuadOut(t float64) float64 { return t * (2 - t) }

// QuadIn accelerates away from the start.
func QuadIn(t float64) float64 { return t * t }

// ElasticOut overshoots and settles with a damped oscillation.
func ElasticOut(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}
	const p = 0.3
	return math.Pow(2, -10*t)*math.Sin((t-p/4)*(2*math.Pi)/p) + 1
}

func clamp01(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
