package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Filesystem is an Endpoint rooted at a directory. Keys map to file paths
// under the root; intermediate directories are created on write and
// removed when emptied by delete.
type Filesystem struct {
	root string
}

// NewFilesystem creates a filesystem endpoint, creating the root directory
// if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: root directory required", ErrInvalidConfig)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

func (f *Filesystem) Read(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if err != nil {
		return nil, wrapFSError(err, key)
	}
	return file, nil
}

func (f *Filesystem) Write(_ context.Context, key string, r io.Reader) (*ObjectInfo, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, wrapFSError(err, key)
	}

	// Write to a temp file and rename, so readers never observe partial
	// content.
	tmp, err := os.CreateTemp(filepath.Dir(p), ".write-*")
	if err != nil {
		return nil, wrapFSError(err, key)
	}
	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), p)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, wrapFSError(err, key)
	}

	st, err := os.Stat(p)
	if err != nil {
		return nil, wrapFSError(err, key)
	}
	return &ObjectInfo{
		Key:         key,
		Size:        size,
		ContentType: contentTypeForKey(key),
		ModTime:     st.ModTime(),
	}, nil
}

func (f *Filesystem) Info(_ context.Context, key string) (*ObjectInfo, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(p)
	if err != nil {
		return nil, wrapFSError(err, key)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return &ObjectInfo{
		Key:         key,
		Size:        st.Size(),
		ContentType: contentTypeForKey(key),
		ModTime:     st.ModTime(),
	}, nil
}

func (f *Filesystem) Exists(ctx context.Context, key string) (bool, error) {
	_, err := f.Info(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *Filesystem) Copy(ctx context.Context, src, dst string) error {
	r, err := f.Read(ctx, src)
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = f.Write(ctx, dst, r)
	return err
}

func (f *Filesystem) Move(ctx context.Context, src, dst string) error {
	sp, err := f.path(src)
	if err != nil {
		return err
	}
	dp, err := f.path(dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dp), 0o755); err != nil {
		return wrapFSError(err, dst)
	}
	if err := os.Rename(sp, dp); err != nil {
		return wrapFSError(err, src)
	}
	f.pruneDirs(filepath.Dir(sp))
	return nil
}

func (f *Filesystem) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return wrapFSError(err, key)
	}
	f.pruneDirs(filepath.Dir(p))
	return nil
}

func (f *Filesystem) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, ObjectInfo{
			Key:         key,
			Size:        st.Size(),
			ContentType: contentTypeForKey(key),
			ModTime:     st.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// pruneDirs removes empty parent directories up to the root.
func (f *Filesystem) pruneDirs(dir string) {
	for dir != f.root && strings.HasPrefix(dir, f.root) {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func wrapFSError(err error, key string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %v", ErrPermission, key, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrUnknown, key, err)
	}
}

var _ Endpoint = (*Filesystem)(nil)
