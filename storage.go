package blockloader

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BlobStore stores named objects such as staged files.
type BlobStore interface {
	// Put creates or overwrites bucket/key. A nil error confirms the write.
	Put(ctx context.Context, bucket, key string, r io.Reader) error
	List(ctx context.Context, bucket string) ([]string, error)
}

// GCSBlobStore is a BlobStore backed by Cloud Storage.
type GCSBlobStore struct {
	client *storage.Client
}

// NewGCSBlobStore builds a GCSBlobStore. opts are passed to the storage client,
// e.g. option.WithCredentialsFile.
func NewGCSBlobStore(ctx context.Context, opts ...option.ClientOption) (*GCSBlobStore, error) {
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build storage client: %w", err)
	}

	return &GCSBlobStore{client: c}, nil
}

// Put uploads r to gs://bucket/key.
func (s *GCSBlobStore) Put(ctx context.Context, bucket, key string, r io.Reader) error {
	l := log.Ctx(ctx)

	// Canceling wctx discards the upload. Only Close commits it.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(bucket).Object(key).NewWriter(wctx)
	w.ContentType = "text/csv"

	n, err := io.Copy(w, r)
	if err != nil {
		cancel()
		_ = w.Close()
		return xerrors.Errorf("failed to write gs://%s/%s: %w", bucket, key, err)
	}

	// The object is committed only when Close succeeds.
	if err := w.Close(); err != nil {
		return xerrors.Errorf("failed to commit gs://%s/%s: %w", bucket, key, err)
	}

	l.Debug().Msg(fmt.Sprintf("wrote %d bytes to gs://%s/%s (generation %d)", n, bucket, key, w.Attrs().Generation))

	return nil
}

// List returns the object names in bucket.
func (s *GCSBlobStore) List(ctx context.Context, bucket string) ([]string, error) {
	it := s.client.Bucket(bucket).Objects(ctx, nil)

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("failed to list gs://%s: %w", bucket, err)
		}
		names = append(names, attrs.Name)
	}

	return names, nil
}

// Close closes the underlying client.
func (s *GCSBlobStore) Close() error {
	return s.client.Close()
}
