package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/internal/downloader"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/storage"
)

type coverServer struct {
	*httptest.Server
	requests int32
}

// newCoverServer serves /ok/* as images, /missing/* as 404 and /truncated/*
// as a response that promises more bytes than it sends
func newCoverServer(t *testing.T) *coverServer {
	t.Helper()
	cs := &coverServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&cs.requests, 1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/ok/"):
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpeg:" + r.URL.Path))
		case strings.HasPrefix(r.URL.Path, "/truncated/"):
			w.Header().Set("Content-Length", "1000")
			_, _ = w.Write([]byte("only a few bytes"))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			// Drop the connection mid-body
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, err := hj.Hijack()
				if err == nil {
					conn.Close()
				}
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *coverServer) Requests() int {
	return int(atomic.LoadInt32(&cs.requests))
}

func newCache(t *testing.T, dir string) *Cache {
	t.Helper()
	store, err := storage.NewManager(dir)
	require.NoError(t, err)
	fetcher := downloader.NewHTTPFetcher("test-agent", "https://www.douyin.com/")
	return New(store, fetcher, Options{Timeout: 5 * time.Second, PublicPrefix: "data/covers"}, logger.NewNopLogger())
}

func TestFetchAllIsIdempotent(t *testing.T) {
	srv := newCoverServer(t)
	dir := t.TempDir()
	items := []models.Item{
		{ID: "1", CoverURL: srv.URL + "/ok/1"},
		{ID: "2", CoverURL: srv.URL + "/ok/2"},
		{ID: "3", CoverURL: srv.URL + "/ok/3"},
	}

	updated, n := newCache(t, dir).FetchAll(context.Background(), items, 2)
	require.Equal(t, 3, n)
	require.Equal(t, 3, srv.Requests())
	for _, it := range updated {
		assert.Equal(t, "data/covers/"+it.ID+".jpg", it.LocalCover)
		data, err := os.ReadFile(filepath.Join(dir, it.ID+".jpg"))
		require.NoError(t, err)
		assert.Equal(t, "jpeg:/ok/"+it.ID, string(data))
	}

	// Second run with a fresh cache over the same directory: zero network
	again, n := newCache(t, dir).FetchAll(context.Background(), items, 2)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, srv.Requests(), "second run must not touch the network")
	assert.Equal(t, updated, again)
}

func TestFetchAllSkipsItemsWithoutCover(t *testing.T) {
	srv := newCoverServer(t)
	items := []models.Item{{ID: "1"}, {ID: "2", CoverURL: srv.URL + "/ok/2"}}

	updated, n := newCache(t, t.TempDir()).FetchAll(context.Background(), items, 4)

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, srv.Requests())
	assert.Empty(t, updated[0].LocalCover)
	assert.Equal(t, "data/covers/2.jpg", updated[1].LocalCover)
}

func TestFetchAllFailuresAreLeftUnmarked(t *testing.T) {
	srv := newCoverServer(t)
	dir := t.TempDir()
	items := []models.Item{
		{ID: "good", CoverURL: srv.URL + "/ok/good"},
		{ID: "gone", CoverURL: srv.URL + "/missing/gone"},
		{ID: "cut", CoverURL: srv.URL + "/truncated/cut"},
	}

	updated, n := newCache(t, dir).FetchAll(context.Background(), items, 3)

	assert.Equal(t, 1, n)
	assert.Equal(t, "data/covers/good.jpg", updated[0].LocalCover)
	assert.Empty(t, updated[1].LocalCover)
	assert.Empty(t, updated[2].LocalCover)

	for _, id := range []string{"gone", "cut"} {
		_, err := os.Stat(filepath.Join(dir, id+".jpg"))
		assert.True(t, os.IsNotExist(err), "no file may exist for failed item %s", id)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}

func TestFetchAllKeepsLookalikeIDsApart(t *testing.T) {
	srv := newCoverServer(t)
	dir := t.TempDir()

	first, n := newCache(t, dir).FetchAll(context.Background(),
		[]models.Item{{ID: "a/b", CoverURL: srv.URL + "/ok/slash"}}, 1)
	require.Equal(t, 1, n)

	second, n := newCache(t, dir).FetchAll(context.Background(),
		[]models.Item{{ID: "a_b", CoverURL: srv.URL + "/ok/underscore"}}, 1)
	require.Equal(t, 1, n)

	assert.Equal(t, 2, srv.Requests(), "a_b must not reuse the cover of a/b")
	assert.NotEqual(t, first[0].LocalCover, second[0].LocalCover)

	data, err := os.ReadFile(filepath.Join(dir, storage.FileName("a/b")))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:/ok/slash", string(data))
	data, err = os.ReadFile(filepath.Join(dir, storage.FileName("a_b")))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:/ok/underscore", string(data))
}

func TestFetchAllDoesNotMutateInput(t *testing.T) {
	srv := newCoverServer(t)
	items := []models.Item{{ID: "1", CoverURL: srv.URL + "/ok/1"}}

	_, _ = newCache(t, t.TempDir()).FetchAll(context.Background(), items, 1)

	assert.Empty(t, items[0].LocalCover)
}

func TestPublicPath(t *testing.T) {
	c := newCache(t, t.TempDir())
	assert.Equal(t, "data/covers/42.jpg", c.PublicPath("42"))

	c.publicPrefix = ""
	assert.Equal(t, "42.jpg", c.PublicPath("42"))
}
