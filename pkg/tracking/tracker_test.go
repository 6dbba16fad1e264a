package tracking

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-shade/pkg/geometry"
	"github.com/teslashibe/go-shade/pkg/tracking/detection"
)

type fakeVideo struct {
	err error
}

func (v *fakeVideo) CaptureJPEG() ([]byte, error) {
	if v.err != nil {
		return nil, v.err
	}
	return []byte{0xff, 0xd8}, nil
}

type fakeDetector struct {
	dets   []detection.Detection
	err    error
	closed bool
}

func (d *fakeDetector) Detect([]byte) ([]detection.Detection, error) { return d.dets, d.err }
func (d *fakeDetector) Close() error                                 { d.closed = true; return nil }

func centeredDetection() detection.Detection {
	det := detection.Detection{X: 0.4, Y: 0.3, W: 0.2, H: 0.4, Confidence: 0.9}
	det.Landmarks[detection.NoseTip] = detection.Point{X: 0.5, Y: 0.5}
	det.Landmarks[detection.RightEye] = detection.Point{X: 0.45, Y: 0.4}
	return det
}

func TestFrameAnchor(t *testing.T) {
	f := Frame{
		Face:      geometry.Translation(r3.Vector{X: 1}),
		Landmarks: []r3.Vector{{}, {X: 0.5, Y: 0.25}},
	}

	a, ok := f.Anchor(1)
	if !ok {
		t.Fatal("Anchor(1) not ok")
	}
	if p := a.Position(); p != (r3.Vector{X: 1.5, Y: 0.25}) {
		t.Errorf("Anchor(1) position = %v", p)
	}
	if _, ok := f.Anchor(WedgeAnchor); ok {
		t.Error("Anchor beyond landmarks should fail")
	}
	if got := f.AnchorOrFace(WedgeAnchor); got != f.Face {
		t.Error("AnchorOrFace should fall back to the face transform")
	}
	if w := f.World(1); w != (r3.Vector{X: 1.5, Y: 0.25}) {
		t.Errorf("World(1) = %v", w)
	}
}

func TestRemoteTracker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRemote(time.Second)
	r.now = func() time.Time { return now }

	if _, ok := r.Latest(); ok {
		t.Fatal("empty tracker reported a face")
	}

	lm := []r3.Vector{{X: 1}}
	if err := r.Push(Frame{Face: geometry.Identity(), Landmarks: lm}); err != nil {
		t.Fatal(err)
	}
	lm[0].X = 99 // caller mutation must not leak in

	f, ok := r.Latest()
	if !ok || f.Landmarks[0].X != 1 {
		t.Fatalf("Latest() = %+v, %v", f, ok)
	}

	now = now.Add(2 * time.Second)
	if _, ok := r.Latest(); ok {
		t.Error("stale frame reported")
	}

	r.Close()
	if err := r.Push(Frame{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Push after Close error = %v", err)
	}
}

func TestSyntheticFace(t *testing.T) {
	f := SyntheticFace(MeshLandmarks)
	if len(f.Landmarks) != MeshLandmarks {
		t.Fatalf("landmarks = %d", len(f.Landmarks))
	}
	if f.Landmarks[0] != (r3.Vector{}) {
		t.Errorf("landmark 0 = %v, want origin", f.Landmarks[0])
	}
	seen := map[r3.Vector]bool{}
	for _, p := range f.Landmarks {
		if seen[p] {
			t.Fatalf("duplicate landmark %v", p)
		}
		seen[p] = true
	}
}

func TestFrameFromDetectionCentered(t *testing.T) {
	cfg := DefaultConfig()
	f := FrameFromDetection(centeredDetection(), cfg)

	if p := f.Face.Position(); p.Norm() > 1e-9 {
		t.Errorf("centered face at %v, want origin", p)
	}

	wantK := 0.4 * cfg.Camera.VisibleHeight(0) / cfg.FaceHeight
	if math.Abs(f.Face[0]-wantK) > 1e-9 {
		t.Errorf("scale = %v, want %v", f.Face[0], wantK)
	}

	nose := f.World(detection.NoseTip)
	if nose.Norm() > 1e-9 {
		t.Errorf("nose at %v, want origin", nose)
	}

	// mirrored: the right eye (left of image center) lands right of center
	if eye := f.World(detection.RightEye); eye.X <= 0 || eye.Y <= 0 {
		t.Errorf("right eye at %v, want upper right", eye)
	}
}

func TestFaceTrackerDetectOnce(t *testing.T) {
	det := &fakeDetector{dets: []detection.Detection{centeredDetection()}}
	ft, err := NewFaceTracker(DefaultConfig(), det, &fakeVideo{})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ft.now = func() time.Time { return now }

	if err := ft.DetectOnce(); err != nil {
		t.Fatal(err)
	}
	f, ok := ft.Latest()
	if !ok {
		t.Fatal("no face after detection")
	}
	if len(f.Landmarks) != detection.NumLandmarks {
		t.Errorf("landmarks = %d", len(f.Landmarks))
	}

	// second detection moves right; smoothing lags behind the raw position
	moved := centeredDetection()
	moved.X += 0.2
	det.dets = []detection.Detection{moved}
	if err := ft.DetectOnce(); err != nil {
		t.Fatal(err)
	}
	f, _ = ft.Latest()
	raw := FrameFromDetection(moved, DefaultConfig()).Face.Position()
	got := f.Face.Position()
	if !(got.X < 0 && got.X > raw.X) {
		t.Errorf("smoothed x = %v, raw %v", got.X, raw.X)
	}

	det.dets = nil
	_ = ft.DetectOnce()
	if ft.Misses() != 1 {
		t.Errorf("Misses() = %d, want 1", ft.Misses())
	}

	ft.Close()
	if !det.closed {
		t.Error("Close did not close the detector")
	}
}

func TestFaceTrackerErrors(t *testing.T) {
	if _, err := NewFaceTracker(DefaultConfig(), nil, &fakeVideo{}); err == nil {
		t.Error("expected error without detector")
	}

	bad := DefaultConfig()
	bad.PositionSmoothing = 0
	if _, err := NewFaceTracker(bad, &fakeDetector{}, &fakeVideo{}); err == nil {
		t.Error("expected validation error")
	}

	ft, _ := NewFaceTracker(DefaultConfig(), &fakeDetector{}, &fakeVideo{err: errors.New("no camera")})
	if err := ft.DetectOnce(); err == nil {
		t.Error("expected capture error")
	}
}
