package storage

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// isNotFound reports whether err wraps ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// InfoOrNil returns the object's metadata, or nil when it does not exist.
// Other errors are still reported.
func InfoOrNil(ctx context.Context, ep Endpoint, key string) (*ObjectInfo, error) {
	info, err := ep.Info(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return info, nil
}

// DeleteAll removes the given keys concurrently. Missing keys are skipped;
// the first real error cancels the remaining deletions.
func DeleteAll(ctx context.Context, ep Endpoint, keys ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, key := range keys {
		g.Go(func() error {
			if err := ep.Delete(ctx, key); err != nil && !isNotFound(err) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// CopyBetween copies an object from one endpoint to another, streaming
// through the reader.
func CopyBetween(ctx context.Context, src, dst Endpoint, key string) (*ObjectInfo, error) {
	r, err := src.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return dst.Write(ctx, key, r)
}
