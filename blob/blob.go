// Package blob provides durable object storage for uploaded source
// documents, converted content's source bytes, and archived copies. The
// only implementation is S3-backed, reached through aws-sdk-go-v2.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Stat and Get when key does not exist.
var ErrNotFound = errors.New("blob: not found")

// Info is the metadata returned by Stat.
type Info struct {
	Size         int64
	LastModified time.Time
	ETag         string
	MimeType     string
}

// PresignMethod distinguishes the HTTP method a presigned URL is valid for.
type PresignMethod int

const (
	PresignGet PresignMethod = iota
	PresignPut
)

// PresignOptions configures Presign.
type PresignOptions struct {
	Method   PresignMethod
	Expires  time.Duration
	MimeType string
}

// PutOptions configures Put.
type PutOptions struct {
	MimeType string
}

// Store is the durable object storage contract consumed by Worker for
// convert and archive jobs.
type Store interface {
	// Stat returns metadata for key, or ErrNotFound if it does not exist.
	Stat(ctx context.Context, key string) (Info, error)

	// Get fetches the full object into memory.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetStream streams the object to a local file at path, for objects
	// too large to hold in memory at once.
	GetStream(ctx context.Context, key string, path string) error

	// Put uploads data under key.
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error

	// PutStream uploads the contents of r under key.
	PutStream(ctx context.Context, key string, r io.Reader, opts PutOptions) error

	// Copy duplicates the object at src to dst.
	Copy(ctx context.Context, src, dst string) error

	// Delete removes the object at key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Presign returns a time-limited URL for key valid for the method and
	// duration in opts.
	Presign(ctx context.Context, key string, opts PresignOptions) (string, error)
}
