package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Endpoint is a flat key/value blob store. Keys are slash-separated paths
// without a leading slash; drivers reject traversal segments. All
// implementations are safe for concurrent use.
type Endpoint interface {
	// Read opens the object at key. The caller closes the reader.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Write stores the reader's content under key, replacing any existing
	// object, and returns the stored object's metadata.
	Write(ctx context.Context, key string, r io.Reader) (*ObjectInfo, error)

	// Info returns metadata without reading the object.
	Info(ctx context.Context, key string) (*ObjectInfo, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Copy duplicates src to dst within the endpoint.
	Copy(ctx context.Context, src, dst string) error

	// Move renames src to dst. Equivalent to Copy then Delete.
	Move(ctx context.Context, src, dst string) error

	// Delete removes the object at key. Deleting a missing key returns
	// ErrNotFound.
	Delete(ctx context.Context, key string) error

	// List returns metadata for all objects whose key starts with prefix,
	// sorted by key. An empty prefix lists everything.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ObjectInfo is metadata for one stored object.
type ObjectInfo struct {
	// Key is the object's storage key.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ContentType is the MIME type, derived from the key extension when
	// the driver cannot know better.
	ContentType string

	// ModTime is the last modification time, zero when unknown.
	ModTime time.Time
}

// NewKey generates a unique storage key: {prefix}/{uuid}{ext}. prefix may
// be empty; ext includes the dot ("" for none).
func NewKey(prefix, ext string) string {
	name := uuid.NewString() + ext
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

// validateKey rejects keys that could escape the endpoint's namespace.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// contentTypeForKey derives a MIME type from the key's extension.
func contentTypeForKey(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
