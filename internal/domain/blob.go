package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes an object in cold storage.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads archive objects.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves and manages archive objects.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// Archiver moves trade history older than a cutoff out of the database into
// cold storage, returning the number of rows archived.
type Archiver interface {
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
}
