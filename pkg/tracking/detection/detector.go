// Package detection finds faces and their key points in camera frames.
package detection

import "errors"

// Point is a normalized image position (0-1, origin top-left).
type Point struct {
	X, Y float64
}

// Key point order as produced by YuNet.
const (
	RightEye = iota
	LeftEye
	NoseTip
	RightMouth
	LeftMouth
	NumLandmarks
)

// Detection is one face. Box and key points are normalized to the frame.
type Detection struct {
	X, Y       float64 // top-left corner
	W, H       float64
	Confidence float64

	Landmarks [NumLandmarks]Point
}

// Center returns the middle of the box.
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the normalized box area.
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Detector finds faces in encoded frames.
type Detector interface {
	Detect(jpeg []byte) ([]Detection, error)
	Close() error
}

// Config holds detector settings.
type Config struct {
	ModelPath string // YuNet ONNX model

	// ConfidenceThresh drops weaker detections.
	ConfidenceThresh float64

	// NMSThresh is the box overlap above which duplicates are suppressed.
	NMSThresh float64

	// TopK bounds candidates kept before suppression.
	TopK int

	InputWidth  int
	InputHeight int
}

// DefaultConfig returns settings for the stock YuNet model.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.3,
		TopK:             5000,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// Validate checks the thresholds and sizes.
func (c Config) Validate() error {
	switch {
	case c.ModelPath == "":
		return errors.New("detection: model path required")
	case c.ConfidenceThresh <= 0 || c.ConfidenceThresh > 1:
		return errors.New("detection: confidence threshold must be in (0,1]")
	case c.NMSThresh <= 0 || c.NMSThresh > 1:
		return errors.New("detection: NMS threshold must be in (0,1]")
	case c.TopK <= 0:
		return errors.New("detection: top K must be positive")
	case c.InputWidth <= 0 || c.InputHeight <= 0:
		return errors.New("detection: input size must be positive")
	}
	return nil
}

// Best picks the face to track among detections at or above minConfidence.
// Confidence weighs 0.7 and box area relative to the largest face 0.3, so a
// clear face close to the camera wins over a faint one in the background.
func Best(dets []Detection, minConfidence float64) (Detection, bool) {
	var maxArea float64
	for _, d := range dets {
		maxArea = max(maxArea, d.Area())
	}

	var (
		best  Detection
		score = -1.0
	)
	for _, d := range dets {
		if d.Confidence < minConfidence {
			continue
		}
		s := 0.7 * d.Confidence
		if maxArea > 0 {
			s += 0.3 * d.Area() / maxArea
		}
		if s > score {
			best, score = d, s
		}
	}
	return best, score >= 0
}
