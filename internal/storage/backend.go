package storage

import (
	"context"
	"io"
	"time"
)

// Object is one entry in a bucket listing. Folders are synthetic: they are
// materialized from the listing's common prefixes and only exist as stored
// entities when an explicit zero-byte marker was created.
//
// Path is the sole identity for storage operations. ID is a display-only
// derived key for list rendering and must never be sent back to the API.
type Object struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	Type         string     `json:"type"`
	Size         int64      `json:"size"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	IsFolder     bool       `json:"isFolder"`
}

// Page is one page of a delimiter-based listing. The continuation token and
// truncation flag are passed through from the provider verbatim.
type Page struct {
	Objects               []Object `json:"objects"`
	NextContinuationToken string   `json:"nextContinuationToken,omitempty"`
	IsTruncated           bool     `json:"isTruncated"`
	TotalCount            int32    `json:"totalCount"`
}

// ListOptions scope a single listing call.
type ListOptions struct {
	Prefix            string
	ContinuationToken string
	MaxKeys           int32
}

// ObjectReader carries an object body stream plus the response metadata
// needed to serve it over HTTP. The caller must close Body.
type ObjectReader struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	LastModified  *time.Time
}

// Backend is the uniform operation surface over one configured bucket.
// Every operation propagates provider errors to the caller unchanged in
// substance; nothing is retried.
type Backend interface {
	// List performs a delimiter="/" listing scoped to opts.Prefix.
	List(ctx context.Context, opts ListOptions) (*Page, error)

	// Get opens a stream over the object body.
	Get(ctx context.Context, key string) (*ObjectReader, error)

	// PresignGet returns a time-limited URL for direct client download.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)

	// Put streams data into the object at key.
	Put(ctx context.Context, key string, data io.Reader, contentType string) error

	// Delete removes a single object.
	Delete(ctx context.Context, key string) error

	// DeleteBatch removes the given keys, chunked to the provider's
	// per-call limit, and returns the number of keys deleted.
	DeleteBatch(ctx context.Context, keys []string) (int, error)

	// CreateFolder uploads a zero-byte marker at path (normalized to end
	// with "/") and returns the normalized marker key.
	CreateFolder(ctx context.Context, path string) (string, error)

	// DeleteFolder drains every key under the normalized prefix and
	// deletes them in batches, returning the number of keys deleted.
	DeleteFolder(ctx context.Context, path string) (int, error)
}

// DefaultPresignExpiry is used when the caller does not specify one.
const DefaultPresignExpiry = time.Hour
