package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Endpoint for tests and ephemeral data.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]*memObject
}

type memObject struct {
	data    []byte
	modTime time.Time
}

// NewMemory creates an empty in-memory endpoint.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]*memObject)}
}

func (m *Memory) Read(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *Memory) Write(_ context.Context, key string, r io.Reader) (*ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	obj := &memObject{data: data, modTime: time.Now()}
	m.mu.Lock()
	m.objects[key] = obj
	m.mu.Unlock()

	return m.info(key, obj), nil
}

func (m *Memory) Info(_ context.Context, key string) (*ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return m.info(key, obj), nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Info(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Memory) Copy(_ context.Context, src, dst string) error {
	if err := validateKey(src); err != nil {
		return err
	}
	if err := validateKey(dst); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[src]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	m.objects[dst] = &memObject{data: data, modTime: time.Now()}
	return nil
}

func (m *Memory) Move(_ context.Context, src, dst string) error {
	if err := validateKey(src); err != nil {
		return err
	}
	if err := validateKey(dst); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[src]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	delete(m.objects, src)
	m.objects[dst] = &memObject{data: obj.data, modTime: time.Now()}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, *m.info(key, obj))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) info(key string, obj *memObject) *ObjectInfo {
	return &ObjectInfo{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: contentTypeForKey(key),
		ModTime:     obj.modTime,
	}
}

var _ Endpoint = (*Memory)(nil)
