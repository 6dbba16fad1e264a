package choices

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/inference"
)

// Recorder saves choices in the background. Failures are logged and
// counted, never retried, and never reach the caller.
type Recorder struct {
	store   Store
	images  ImageStore
	timeout time.Duration
	logger  *slog.Logger

	wg     sync.WaitGroup
	saved  atomic.Int64
	failed atomic.Int64

	// OnSaved, if set, is called from the background goroutine after each
	// successful save.
	OnSaved func(*Choice)
}

// NewRecorder creates a recorder. images may be nil.
func NewRecorder(store Store, images ImageStore) *Recorder {
	return &Recorder{
		store:   store,
		images:  images,
		timeout: 30 * time.Second,
		logger:  log.Component("choices.recorder"),
	}
}

// Record stores c asynchronously, uploading photo first when an image
// store is configured and photo is non-nil.
func (r *Recorder) Record(c Choice, photo *inference.Image) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := prepare(&c, time.Now()); err != nil {
			r.fail(&c, "invalid choice", err)
			return
		}

		if r.images != nil && photo != nil && len(photo.Data) > 0 {
			ref, err := r.images.Put(ctx, c.ID, *photo)
			if err != nil {
				// keep the choice even when the upload fails
				r.logger.Warn("snapshot upload failed", "id", c.ID, "error", err)
			} else {
				c.ImageRef = ref
			}
		}

		if err := r.store.Save(ctx, &c); err != nil {
			r.fail(&c, "save failed", err)
			return
		}
		r.saved.Add(1)
		r.logger.Info("choice recorded",
			"id", c.ID,
			"user", c.UserTone,
			"ai", c.AITone,
			"agreed", c.Agreed(),
		)
		if r.OnSaved != nil {
			r.OnSaved(&c)
		}
	}()
}

func (r *Recorder) fail(c *Choice, msg string, err error) {
	r.failed.Add(1)
	r.logger.Warn(msg, "id", c.ID, "user", c.UserTone, "error", err)
}

// Wait blocks until every pending Record has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// Stats returns the number of saved and failed records.
func (r *Recorder) Stats() (saved, failed int64) {
	return r.saved.Load(), r.failed.Load()
}

// Store returns the underlying store.
func (r *Recorder) Store() Store {
	return r.store
}
