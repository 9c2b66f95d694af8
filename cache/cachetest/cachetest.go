// Package cachetest holds behaviour checks shared by every cache.Storage
// backend.
package cachetest

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cache"
)

// NewRequest is a GET request for url, failing the test on a bad URL.
func NewRequest(t *testing.T, url string) *cache.Request {
	t.Helper()
	req, err := cache.NewRequest(url)
	require.NoError(t, err)
	return req
}

func Response(status int, body string) *cache.Response {
	return &cache.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte(body),
	}
}

// RunStorage exercises the Storage contract against a fresh backend.
func RunStorage(t *testing.T, newStorage func(t *testing.T) cache.Storage) {
	t.Run("open_rejects_empty_name", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.Open(context.Background(), " ")
		assert.ErrorIs(t, err, cache.ErrInvalidName)
	})

	t.Run("put_then_match", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)
		assert.Equal(t, "v1", c.Name())

		req := NewRequest(t, "http://origin.test/index.html#top")
		require.NoError(t, c.Put(ctx, req, Response(http.StatusOK, "<h1>home</h1>")))

		got, ok, err := c.Match(ctx, NewRequest(t, "http://origin.test/index.html"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, http.StatusOK, got.StatusCode)
		assert.Equal(t, "<h1>home</h1>", string(got.Body))
		assert.Equal(t, "text/html; charset=utf-8", got.Header.Get("Content-Type"))
		assert.True(t, got.FromCache)

		keys, err := c.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"GET http://origin.test/index.html"}, keys)
	})

	t.Run("match_miss", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)

		got, ok, err := c.Match(ctx, NewRequest(t, "http://origin.test/missing"))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("method_is_part_of_identity", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)

		req := NewRequest(t, "http://origin.test/app.js")
		require.NoError(t, c.Put(ctx, req, Response(http.StatusOK, "js")))

		head := &cache.Request{Method: http.MethodHead, URL: req.URL}
		_, ok, err := c.Match(ctx, head)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("caches_are_isolated", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		v1, err := s.Open(ctx, "v1")
		require.NoError(t, err)
		v2, err := s.Open(ctx, "v2")
		require.NoError(t, err)

		req := NewRequest(t, "http://origin.test/styles.css")
		require.NoError(t, v1.Put(ctx, req, Response(http.StatusOK, "body{}")))

		_, ok, err := v2.Match(ctx, req)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys_and_delete", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		for _, name := range []string{"jwca-v1", "jwca-v2", "other"} {
			c, err := s.Open(ctx, name)
			require.NoError(t, err)
			require.NoError(t, c.Put(ctx, NewRequest(t, "http://origin.test/"), Response(http.StatusOK, name)))
		}

		names, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"jwca-v1", "jwca-v2", "other"}, names)

		deleted, err := s.Delete(ctx, "jwca-v1")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Delete(ctx, "jwca-v1")
		require.NoError(t, err)
		assert.False(t, deleted)

		names, err = s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"jwca-v2", "other"}, names)

		reopened, err := s.Open(ctx, "jwca-v1")
		require.NoError(t, err)
		keys, err := reopened.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("put_overwrites", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)

		req := NewRequest(t, "http://origin.test/")
		require.NoError(t, c.Put(ctx, req, Response(http.StatusOK, "old")))
		require.NoError(t, c.Put(ctx, req, Response(http.StatusOK, "new")))

		got, ok, err := c.Match(ctx, req)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "new", string(got.Body))
	})
}
