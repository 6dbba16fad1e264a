// Package tracking supplies face poses and landmark positions to the
// visualization.
//
// A Frame carries the face transform (face space to scene space) and the
// landmarks in face space. Anchors are face-space landmark positions carried
// into the scene by the face transform, which is what the displays parent
// themselves to. Trackers are polled once per render frame and never block.
package tracking

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-shade/pkg/geometry"
)

// Anchor indices used by the displays.
const (
	// WedgeAnchor is the landmark the wedge is parented to.
	WedgeAnchor = 200

	// MeshLandmarks is the landmark count of a full face mesh.
	MeshLandmarks = 468
)

// DotAnchors are the landmarks the dot display samples color from.
var DotAnchors = []int{0, 100, 200, 300}

// Frame is one tracking result.
type Frame struct {
	// Time is when the frame was observed.
	Time time.Time

	// Face maps face space into scene space.
	Face geometry.Transform

	// Landmarks are positions in face space.
	Landmarks []r3.Vector
}

// Anchor returns the transform of landmark i: the face transform translated
// to the landmark. ok is false when the frame has no such landmark.
func (f Frame) Anchor(i int) (geometry.Transform, bool) {
	if i < 0 || i >= len(f.Landmarks) {
		return geometry.Transform{}, false
	}
	return f.Face.Mul(geometry.Translation(f.Landmarks[i])), true
}

// AnchorOrFace returns Anchor(i), falling back to the face origin when the
// tracker does not report that many landmarks.
func (f Frame) AnchorOrFace(i int) geometry.Transform {
	if a, ok := f.Anchor(i); ok {
		return a
	}
	return f.Face
}

// World returns landmark i in scene space.
func (f Frame) World(i int) r3.Vector {
	return f.Face.Apply(f.Landmarks[i])
}

// WorldLandmarks appends every landmark in scene space to dst.
func (f Frame) WorldLandmarks(dst []r3.Vector) []r3.Vector {
	for _, p := range f.Landmarks {
		dst = append(dst, f.Face.Apply(p))
	}
	return dst
}

// Clone returns a deep copy.
func (f Frame) Clone() Frame {
	f.Landmarks = append([]r3.Vector(nil), f.Landmarks...)
	return f
}
