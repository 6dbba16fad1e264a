package choices

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/storage/v1"

	"github.com/teslashibe/go-shade/pkg/inference"
)

// ImageStore keeps the snapshot that was sent to the classifier.
type ImageStore interface {
	// Put stores img under name and returns a reference to it.
	Put(ctx context.Context, name string, img inference.Image) (string, error)
}

// extension returns the file extension for a media type.
func extension(mime string) string {
	if mime == inference.MIMEJPEG {
		return ".jpg"
	}
	return ".png"
}

// DirImages writes snapshots into a local directory.
type DirImages struct {
	Dir string
}

// Put implements ImageStore. The reference is the file path.
func (d DirImages) Put(_ context.Context, name string, img inference.Image) (string, error) {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return "", fmt.Errorf("choices: create image dir: %w", err)
	}
	p := filepath.Join(d.Dir, name+extension(img.MIME))
	if err := os.WriteFile(p, img.Data, 0644); err != nil {
		return "", fmt.Errorf("choices: write image: %w", err)
	}
	return p, nil
}

// CloudStorage uploads snapshots to a Cloud Storage bucket.
type CloudStorage struct {
	svc    *storage.Service
	bucket string
	prefix string
}

// NewCloudStorage connects to Cloud Storage. Objects are written under
// prefix in bucket.
func NewCloudStorage(ctx context.Context, cfg GoogleConfig, bucket, prefix string) (*CloudStorage, error) {
	if bucket == "" {
		return nil, errors.New("choices: bucket required")
	}
	opts, _, err := clientOptions(ctx, cfg, storage.DevstorageReadWriteScope)
	if err != nil {
		return nil, err
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("choices: storage client: %w", err)
	}
	return &CloudStorage{svc: svc, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Put implements ImageStore. The reference is a gs:// URL.
func (s *CloudStorage) Put(ctx context.Context, name string, img inference.Image) (string, error) {
	object := name + extension(img.MIME)
	if s.prefix != "" {
		object = s.prefix + "/" + object
	}

	obj, err := s.svc.Objects.
		Insert(s.bucket, &storage.Object{Name: object, ContentType: img.MIME}).
		Media(bytes.NewReader(img.Data), googleapi.ContentType(img.MIME)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("choices: upload %s: %w", object, err)
	}
	return "gs://" + obj.Bucket + "/" + obj.Name, nil
}

var (
	_ ImageStore = DirImages{}
	_ ImageStore = (*CloudStorage)(nil)
)
