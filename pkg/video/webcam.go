package video

import (
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-shade/internal/log"
)

// Webcam reads frames from a local capture device through OpenCV.
type Webcam struct {
	config Config
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// OpenWebcam opens the device named by cfg.Device.
func OpenWebcam(cfg Config) (*Webcam, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("video: invalid config: %s", strings.Join(errs, "; "))
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("video: open device %d: %w", cfg.Device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	w := &Webcam{
		config: cfg,
		cap:    vc,
		mat:    gocv.NewMat(),
		logger: log.Component("video.webcam"),
	}
	w.logger.Info("webcam opened",
		"device", cfg.Device,
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)),
	)
	return w, nil
}

// Read implements Source. Frames are returned unmirrored; Compose and the
// sampler mirror as configured.
func (w *Webcam) Read() (image.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, ErrNoFrame
	}
	img, err := w.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("video: convert frame: %w", err)
	}
	return img, nil
}

// CaptureJPEG reads a frame and encodes it with OpenCV, skipping the
// round trip through image.Image.
func (w *Webcam) CaptureJPEG() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, ErrNoFrame
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.mat, []int{int(gocv.IMWriteJpegQuality), w.config.Quality})
	if err != nil {
		return nil, fmt.Errorf("video: encode frame: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Close implements Source.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.mat.Close()
	return w.cap.Close()
}

var _ Source = (*Webcam)(nil)
