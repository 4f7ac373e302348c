package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/anvil/pkg/storage"
)

// endpointSuite exercises the Endpoint contract against any driver.
func endpointSuite(t *testing.T, newEndpoint func(t *testing.T) storage.Endpoint) {
	t.Helper()
	ctx := context.Background()

	t.Run("write then read", func(t *testing.T) {
		ep := newEndpoint(t)
		info, err := ep.Write(ctx, "docs/hello.txt", strings.NewReader("hello"))
		require.NoError(t, err)
		assert.Equal(t, "docs/hello.txt", info.Key)
		assert.EqualValues(t, 5, info.Size)
		assert.Contains(t, info.ContentType, "text/plain")

		r, err := ep.Read(ctx, "docs/hello.txt")
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("write replaces", func(t *testing.T) {
		ep := newEndpoint(t)
		_, err := ep.Write(ctx, "k", strings.NewReader("one"))
		require.NoError(t, err)
		_, err = ep.Write(ctx, "k", strings.NewReader("two"))
		require.NoError(t, err)

		r, err := ep.Read(ctx, "k")
		require.NoError(t, err)
		defer r.Close()
		data, _ := io.ReadAll(r)
		assert.Equal(t, "two", string(data))
	})

	t.Run("read missing", func(t *testing.T) {
		ep := newEndpoint(t)
		_, err := ep.Read(ctx, "absent")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("info and exists", func(t *testing.T) {
		ep := newEndpoint(t)
		_, err := ep.Write(ctx, "a/b.bin", strings.NewReader("xyz"))
		require.NoError(t, err)

		info, err := ep.Info(ctx, "a/b.bin")
		require.NoError(t, err)
		assert.EqualValues(t, 3, info.Size)

		ok, err := ep.Exists(ctx, "a/b.bin")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = ep.Exists(ctx, "a/missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("copy keeps source", func(t *testing.T) {
		ep := newEndpoint(t)
		_, err := ep.Write(ctx, "src", strings.NewReader("data"))
		require.NoError(t, err)
		require.NoError(t, ep.Copy(ctx, "src", "dst"))

		for _, key := range []string{"src", "dst"} {
			ok, err := ep.Exists(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok, key)
		}
	})

	t.Run("move removes source", func(t *testing.T) {
		ep := newEndpoint(t)
		_, err := ep.Write(ctx, "old/name", strings.NewReader("data"))
		require.NoError(t, err)
		require.NoError(t, ep.Move(ctx, "old/name", "new/name"))

		ok, err := ep.Exists(ctx, "old/name")
		require.NoError(t, err)
		assert.False(t, ok)

		r, err := ep.Read(ctx, "new/name")
		require.NoError(t, err)
		defer r.Close()
		data, _ := io.ReadAll(r)
		assert.Equal(t, "data", string(data))
	})

	t.Run("delete", func(t *testing.T) {
		ep := newEndpoint(t)
		_, err := ep.Write(ctx, "victim", strings.NewReader("x"))
		require.NoError(t, err)
		require.NoError(t, ep.Delete(ctx, "victim"))
		require.ErrorIs(t, ep.Delete(ctx, "victim"), storage.ErrNotFound)
	})

	t.Run("list by prefix sorted", func(t *testing.T) {
		ep := newEndpoint(t)
		for _, key := range []string{"logs/b", "logs/a", "data/c"} {
			_, err := ep.Write(ctx, key, strings.NewReader("x"))
			require.NoError(t, err)
		}

		infos, err := ep.List(ctx, "logs/")
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, "logs/a", infos[0].Key)
		assert.Equal(t, "logs/b", infos[1].Key)

		all, err := ep.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("rejects traversal keys", func(t *testing.T) {
		ep := newEndpoint(t)
		for _, key := range []string{"", "/abs", "a/../b", "a//b", "a\\b", ".."} {
			_, err := ep.Write(ctx, key, strings.NewReader("x"))
			assert.ErrorIs(t, err, storage.ErrInvalidKey, "key %q", key)
		}
	})
}

func TestMemory(t *testing.T) {
	t.Parallel()
	endpointSuite(t, func(t *testing.T) storage.Endpoint {
		return storage.NewMemory()
	})
}

func TestFilesystem(t *testing.T) {
	t.Parallel()
	endpointSuite(t, func(t *testing.T) storage.Endpoint {
		ep, err := storage.NewFilesystem(t.TempDir())
		require.NoError(t, err)
		return ep
	})
}

func TestNewFilesystemRequiresRoot(t *testing.T) {
	t.Parallel()
	_, err := storage.NewFilesystem("")
	require.ErrorIs(t, err, storage.ErrInvalidConfig)
}

func TestNewS3RequiresConfig(t *testing.T) {
	t.Parallel()
	_, err := storage.NewS3(storage.S3Config{Bucket: "b"})
	require.ErrorIs(t, err, storage.ErrInvalidConfig)
}

func TestNewKey(t *testing.T) {
	t.Parallel()

	key := storage.NewKey("uploads", ".png")
	assert.True(t, strings.HasPrefix(key, "uploads/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, storage.NewKey("uploads", ".png"))

	bare := storage.NewKey("", "")
	assert.NotContains(t, bare, "/")
}

func TestInfoOrNil(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ep := storage.NewMemory()

	info, err := storage.InfoOrNil(ctx, ep, "missing")
	require.NoError(t, err)
	assert.Nil(t, info)

	_, err = ep.Write(ctx, "present", strings.NewReader("x"))
	require.NoError(t, err)
	info, err = storage.InfoOrNil(ctx, ep, "present")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "present", info.Key)
}

func TestDeleteAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ep := storage.NewMemory()

	keys := []string{"a", "b", "c"}
	for _, key := range keys {
		_, err := ep.Write(ctx, key, strings.NewReader("x"))
		require.NoError(t, err)
	}

	// Missing keys are tolerated.
	require.NoError(t, storage.DeleteAll(ctx, ep, "a", "b", "c", "ghost"))
	for _, key := range keys {
		ok, err := ep.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestCopyBetween(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := storage.NewMemory()
	dst := storage.NewMemory()
	_, err := src.Write(ctx, "file", strings.NewReader("payload"))
	require.NoError(t, err)

	info, err := storage.CopyBetween(ctx, src, dst, "file")
	require.NoError(t, err)
	assert.EqualValues(t, 7, info.Size)

	r, err := dst.Read(ctx, "file")
	require.NoError(t, err)
	defer r.Close()
	data, _ := io.ReadAll(r)
	assert.Equal(t, "payload", string(data))
}
