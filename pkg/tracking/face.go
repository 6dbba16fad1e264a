package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/debug"
	"github.com/teslashibe/go-shade/pkg/geometry"
	"github.com/teslashibe/go-shade/pkg/tracking/detection"
)

// VideoSource captures frames for detection.
type VideoSource interface {
	CaptureJPEG() ([]byte, error)
}

// FaceTracker runs a face detector over a video source and turns the best
// detection into a Frame. The five YuNet key points become the landmarks.
type FaceTracker struct {
	config   Config
	detector detection.Detector
	video    VideoSource
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.RWMutex
	latest      Frame
	have        bool
	smoothedPos r3.Vector
	smoothedK   float64
	misses      int
}

// NewFaceTracker creates a detector-backed tracker.
func NewFaceTracker(cfg Config, det detection.Detector, video VideoSource) (*FaceTracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if det == nil || video == nil {
		return nil, fmt.Errorf("tracking: detector and video source are required")
	}
	return &FaceTracker{
		config:   cfg,
		detector: det,
		video:    video,
		logger:   log.Component("tracking.face"),
		now:      time.Now,
	}, nil
}

// Run detects faces until ctx is cancelled.
func (t *FaceTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.config.DetectionInterval)
	defer ticker.Stop()

	t.logger.Info("face tracker started", "interval", t.config.DetectionInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.DetectOnce(); err != nil {
				t.logger.Debug("detection failed", "error", err)
			}
		}
	}
}

// DetectOnce captures one frame and updates the tracked face.
func (t *FaceTracker) DetectOnce() error {
	jpeg, err := t.video.CaptureJPEG()
	if err != nil {
		return fmt.Errorf("tracking: capture: %w", err)
	}

	dets, err := t.detector.Detect(jpeg)
	if err != nil {
		t.miss()
		return fmt.Errorf("tracking: detect: %w", err)
	}

	best, ok := detection.Best(dets, 0)
	if !ok {
		t.miss()
		return nil
	}

	f := FrameFromDetection(best, t.config)
	f.Time = t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	pos := f.Face.Position()
	k := f.Face[0]
	if t.have {
		a := t.config.PositionSmoothing
		pos = pos.Mul(a).Add(t.smoothedPos.Mul(1 - a))
		k = a*k + (1-a)*t.smoothedK
	}
	t.smoothedPos, t.smoothedK = pos, k
	f.Face = geometry.Translation(pos).Mul(geometry.Scaling(k))

	t.latest = f
	t.have = true
	t.misses = 0

	debug.TrackLog("face tracked", "x", pos.X, "y", pos.Y, "scale", k, "confidence", best.Confidence)
	return nil
}

func (t *FaceTracker) miss() {
	t.mu.Lock()
	t.misses++
	t.mu.Unlock()
}

// Misses returns how many consecutive detections found no face.
func (t *FaceTracker) Misses() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.misses
}

// Latest implements Tracker.
func (t *FaceTracker) Latest() (Frame, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.have {
		return Frame{}, false
	}
	if t.config.StaleAfter > 0 && t.now().Sub(t.latest.Time) > t.config.StaleAfter {
		return Frame{}, false
	}
	return t.latest, true
}

// Close implements Tracker.
func (t *FaceTracker) Close() error {
	return t.detector.Close()
}

// FrameFromDetection lifts a detection onto the scene's z=0 plane. The face
// transform is placed at the box center and scaled so the box height maps
// to cfg.FaceHeight face-space units; key points become face-space
// landmarks.
func FrameFromDetection(det detection.Detection, cfg Config) Frame {
	cx, cy := det.Center()
	center := liftPoint(detection.Point{X: cx, Y: cy}, cfg)

	k := det.H * cfg.Camera.VisibleHeight(0) / cfg.FaceHeight
	if k <= 0 {
		k = 1
	}

	lm := make([]r3.Vector, detection.NumLandmarks)
	for i, p := range det.Landmarks {
		lm[i] = liftPoint(p, cfg).Sub(center).Mul(1 / k)
	}

	return Frame{
		Face:      geometry.Translation(center).Mul(geometry.Scaling(k)),
		Landmarks: lm,
	}
}

func liftPoint(p detection.Point, cfg Config) r3.Vector {
	x := p.X
	if cfg.Mirror {
		x = 1 - x
	}
	ndc := geometry.PixelToNDC(x, p.Y, 1, 1)
	hit, _, ok := cfg.Camera.Ray(ndc.X, ndc.Y).IntersectXY()
	if !ok {
		return r3.Vector{}
	}
	return r3.Vector{X: hit.X, Y: hit.Y}
}

var _ Tracker = (*FaceTracker)(nil)
