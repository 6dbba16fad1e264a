// Package video captures camera frames, composes face snapshots and samples
// skin color at tracked landmarks.
package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // pushed frames may be PNG
	"sync"
	"time"
)

// Errors returned by sources.
var (
	ErrNoFrame = errors.New("video: no frame available")
	ErrClosed  = errors.New("video: source closed")
	ErrBlank   = errors.New("video: blank frame")
)

// Source produces camera frames.
type Source interface {
	// Read returns the most recent frame.
	Read() (image.Image, error)

	// Close releases the device.
	Close() error
}

// JPEG adapts a Source to produce encoded frames, which is what the face
// detector consumes.
type JPEG struct {
	Source  Source
	Quality int
}

// CaptureJPEG reads a frame and encodes it.
func (j JPEG) CaptureJPEG() ([]byte, error) {
	img, err := j.Source.Read()
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img, j.Quality)
}

// EncodeJPEG encodes img at quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("video: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Pushed is a Source fed with encoded frames from outside the process,
// typically the browser's camera over the relay websocket.
//
// Decoding is rate limited: frames arriving faster than MinInterval are
// dropped. Blank frames (all dark or uniform gray, as a camera produces
// while warming up) are rejected and the previous frame is kept.
type Pushed struct {
	minInterval time.Duration
	now         func() time.Time

	mu         sync.RWMutex
	latest     image.Image
	lastDecode time.Time
	closed     bool
}

// NewPushed creates a pushed source.
func NewPushed(minInterval time.Duration) *Pushed {
	return &Pushed{minInterval: minInterval, now: time.Now}
}

// Push decodes and stores a frame. It reports whether the frame was kept.
func (p *Pushed) Push(data []byte) (bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, ErrClosed
	}
	now := p.now()
	if !p.lastDecode.IsZero() && now.Sub(p.lastDecode) < p.minInterval {
		p.mu.Unlock()
		return false, nil
	}
	p.lastDecode = now
	p.mu.Unlock()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("video: decode frame: %w", err)
	}
	if Blank(img) {
		return false, ErrBlank
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, ErrClosed
	}
	p.latest = img
	return true, nil
}

// Set stores an already decoded frame without rate limiting.
func (p *Pushed) Set(img image.Image) {
	p.mu.Lock()
	p.latest = img
	p.mu.Unlock()
}

// Read implements Source.
func (p *Pushed) Read() (image.Image, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.latest == nil {
		return nil, ErrNoFrame
	}
	return p.latest, nil
}

// Close implements Source.
func (p *Pushed) Close() error {
	p.mu.Lock()
	p.closed = true
	p.latest = nil
	p.mu.Unlock()
	return nil
}

// Blank reports whether img is likely a dark or uniform gray frame.
func Blank(img image.Image) bool {
	b := img.Bounds()
	if b.Dx() < 10 || b.Dy() < 10 {
		return true
	}

	var rSum, gSum, bSum, samples int
	for y := b.Min.Y; y < b.Max.Y; y += b.Dy() / 10 {
		for x := b.Min.X; x < b.Max.X; x += b.Dx() / 10 {
			r, g, bl, _ := img.At(x, y).RGBA()
			rSum += int(r >> 8)
			gSum += int(g >> 8)
			bSum += int(bl >> 8)
			samples++
		}
	}
	if samples == 0 {
		return true
	}

	avgR, avgG, avgB := rSum/samples, gSum/samples, bSum/samples
	if avgR < 30 && avgG < 30 && avgB < 30 {
		return true
	}
	diff := abs(avgR-avgG) + abs(avgG-avgB) + abs(avgR-avgB)
	return diff < 15 && avgR > 100 && avgR < 150
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

var _ Source = (*Pushed)(nil)
