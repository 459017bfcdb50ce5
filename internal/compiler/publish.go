package compiler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
)

// Publisher uploads finished artifacts somewhere beyond the output directory.
type Publisher interface {
	Publish(ctx context.Context, paths []string) error
}

// GCSPublisher uploads artifacts to a Cloud Storage bucket under an optional prefix.
type GCSPublisher struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSPublisher creates a publisher using application default credentials.
func NewGCSPublisher(ctx context.Context, bucket, prefix string) (*GCSPublisher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSPublisher{client: client, bucket: bucket, prefix: prefix}, nil
}

// Publish implements Publisher. Existing objects are overwritten.
func (p *GCSPublisher) Publish(ctx context.Context, paths []string) error {
	for _, local := range paths {
		object := path.Join(p.prefix, filepath.Base(local))
		if err := p.upload(ctx, local, object); err != nil {
			return fmt.Errorf("upload %s to gs://%s/%s: %w", local, p.bucket, object, err)
		}
	}
	return nil
}

func (p *GCSPublisher) upload(ctx context.Context, local, object string) error {
	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	writeCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := p.client.Bucket(p.bucket).Object(object).NewWriter(writeCtx)
	if ct := mime.TypeByExtension(filepath.Ext(local)); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Close releases the storage client.
func (p *GCSPublisher) Close() error {
	return p.client.Close()
}
