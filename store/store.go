// Package store provides object storage backends for the repository.
//
// An ObjectStore is a flat key/value blob store with list-by-prefix, cheap
// existence probes, and opaque revision tokens (etags). The S3 implementation
// is the production backend; MemStore backs tests.
package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Get when no object exists at the key.
// Head reports absence through its boolean result instead.
var ErrNotFound = errors.New("object not found")

// Object describes a stored object without its content.
type Object struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// Listing is one complete (already depaginated) List result.
type Listing struct {
	Objects []Object
	// Prefixes holds the common prefixes rolled up by the delimiter,
	// each including the trailing delimiter.
	Prefixes []string
}

// ObjectStore is the storage interface the synchronizer writes through.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// List returns every object under prefix. A non-empty delimiter rolls
	// nested keys up into Listing.Prefixes, directory-style.
	List(ctx context.Context, prefix, delimiter string) (*Listing, error)

	// Head probes a key without fetching content. Absence is reported as
	// (nil, false, nil), not as an error.
	Head(ctx context.Context, key string) (*Object, bool, error)

	// Get returns the object content. The caller closes the reader.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put writes the object and returns its new revision token.
	Put(ctx context.Context, key, contentType string, body io.Reader) (etag string, err error)
}
