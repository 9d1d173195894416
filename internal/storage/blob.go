package storage

import (
	"context"
	"io"
	"time"
)

// BlobMeta describes a stored object. Etag doubles as the content
// fingerprint recorded in the course's attachment list.
type BlobMeta struct {
	Size         int64
	LastModified time.Time
	Etag         string
}

// BlobStore is the narrow object-storage surface this core consumes. The
// production implementation is S3 (see s3.go); tests substitute an in-memory
// fake.
type BlobStore interface {
	// Put stores the object under key, overwriting any previous content.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// GetMeta returns the object's metadata, or (nil, nil) if it is absent.
	GetMeta(ctx context.Context, key string) (*BlobMeta, error)
	// Del removes the given objects. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
	// SignDownloadLink returns a short-lived URL for downloading the object,
	// served under the given display filename. inline controls the content
	// disposition.
	SignDownloadLink(ctx context.Context, key, filename string, inline bool) (string, error)
}
