// Package storage abstracts blob storage behind a flat key/value Endpoint
// interface with in-memory, filesystem, and S3-compatible drivers.
//
// Keys are slash-separated paths without a leading slash. All drivers
// reject traversal segments and are safe for concurrent use:
//
//	ep, err := storage.NewFilesystem("/var/data")
//	info, err := ep.Write(ctx, storage.NewKey("uploads", ".png"), file)
//	r, err := ep.Read(ctx, info.Key)
package storage
