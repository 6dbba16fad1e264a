package tracking

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-shade/pkg/geometry"
)

// ErrClosed is returned when pushing into a closed tracker.
var ErrClosed = errors.New("tracking: tracker closed")

// Tracker reports the most recent face.
type Tracker interface {
	// Latest returns the newest frame. ok is false when no face is
	// currently tracked.
	Latest() (Frame, bool)

	// Close releases resources.
	Close() error
}

// Remote is fed frames from outside the process, typically a browser
// running its own face-mesh model and streaming results over a websocket.
type Remote struct {
	mu         sync.RWMutex
	frame      Frame
	have       bool
	closed     bool
	staleAfter time.Duration
	now        func() time.Time
}

// NewRemote creates a remote tracker. Frames older than staleAfter are
// treated as lost; zero disables the check.
func NewRemote(staleAfter time.Duration) *Remote {
	return &Remote{staleAfter: staleAfter, now: time.Now}
}

// Push stores a new frame. A zero Time is stamped with the current time.
func (r *Remote) Push(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if f.Time.IsZero() {
		f.Time = r.now()
	}
	r.frame = f.Clone()
	r.have = true
	return nil
}

// Lost marks the face as gone.
func (r *Remote) Lost() {
	r.mu.Lock()
	r.have = false
	r.mu.Unlock()
}

// Latest implements Tracker.
func (r *Remote) Latest() (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.have {
		return Frame{}, false
	}
	if r.staleAfter > 0 && r.now().Sub(r.frame.Time) > r.staleAfter {
		return Frame{}, false
	}
	return r.frame, true
}

// Close implements Tracker.
func (r *Remote) Close() error {
	r.mu.Lock()
	r.closed = true
	r.have = false
	r.mu.Unlock()
	return nil
}

// Static always reports the same frame. Used for tests and demos without
// a camera.
type Static struct {
	Frame Frame
}

// NewStatic returns a tracker that holds f forever.
func NewStatic(f Frame) *Static {
	return &Static{Frame: f}
}

// SyntheticFace lays n landmarks out on an oval disc (golden-angle spiral)
// around the scene origin. Landmark 0 sits at the center.
func SyntheticFace(n int) Frame {
	const golden = 2.399963229728653 // pi * (3 - sqrt(5))
	lm := make([]r3.Vector, n)
	for i := range lm {
		r := 0.9 * math.Sqrt(float64(i)/float64(max(n, 1)))
		a := float64(i) * golden
		lm[i] = r3.Vector{X: r * math.Cos(a), Y: 1.25 * r * math.Sin(a)}
	}
	return Frame{Face: geometry.Identity(), Landmarks: lm}
}

// Latest implements Tracker.
func (s *Static) Latest() (Frame, bool) {
	return s.Frame, true
}

// Close implements Tracker.
func (s *Static) Close() error { return nil }

var (
	_ Tracker = (*Remote)(nil)
	_ Tracker = (*Static)(nil)
)
