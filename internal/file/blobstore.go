package file

import (
	"context"
	"io"
	"time"
)

// BlobStore persists upload bytes. Stage writes under a temporary key and
// Commit makes the bytes visible under the stored name.
//
// Committed blobs are addressed by stored name only. The store derives the
// physical location from its current configuration, so a record stays valid
// when the storage root is spelled differently.
type BlobStore interface {
	Stage(ctx context.Context, name string, src io.Reader, contentType string) (StagedBlob, error)
	Commit(ctx context.Context, blob StagedBlob) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]BlobInfo, error)
	Ping(ctx context.Context) error
}

// StagedBlob is a written but not yet committed blob.
type StagedBlob struct {
	Name     string
	TempKey  string
	Location string
	Size     int64
}

// BlobInfo describes one blob found in the store. Key is store-relative and
// accepted by Remove; Name is the stored name the blob belongs to.
type BlobInfo struct {
	Key     string
	Name    string
	Size    int64
	ModTime time.Time
	Staged  bool
}

// contextReader stops a copy once the request context is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
