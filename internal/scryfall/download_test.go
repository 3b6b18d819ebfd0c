package scryfall

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardvault/pkg/models"
)

func TestStreamDownloadToWritesFileAndETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`[{"id":"p1"}]`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "default_cards.json")
	res, err := newTestClient(srv.URL).StreamDownloadTo(context.Background(), path, srv.URL+"/bulk", DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.DownloadStatusDownloaded, res.Status)
	assert.Equal(t, int64(len(`[{"id":"p1"}]`)), res.Bytes)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"p1"}]`, string(got))
	assert.Equal(t, `"v1"`, readETag(path))

	// no leftover temp file
	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestStreamDownloadToConditionalRequest(t *testing.T) {
	var gotIfNoneMatch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIfNoneMatch = r.Header.Get("If-None-Match")
		if gotIfNoneMatch == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	c := newTestClient(srv.URL)

	path := filepath.Join(t.TempDir(), "bulk.json")
	res, err := c.StreamDownloadTo(context.Background(), path, srv.URL, DownloadOptions{})
	require.NoError(t, err)
	require.Equal(t, models.DownloadStatusDownloaded, res.Status)

	res, err = c.StreamDownloadTo(context.Background(), path, srv.URL, DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.DownloadStatusNotModified, res.Status)
	assert.Equal(t, `"v1"`, res.ETag)

	// force bypasses the stored tag
	res, err = c.StreamDownloadTo(context.Background(), path, srv.URL, DownloadOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, models.DownloadStatusDownloaded, res.Status)
	assert.Empty(t, gotIfNoneMatch)
}

func TestStreamDownloadToNoConditionalWithoutLocalFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// sidecar exists but the data file is gone: must re-download
		assert.Empty(t, r.Header.Get("If-None-Match"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "bulk.json")
	require.NoError(t, os.WriteFile(etagPath(path), []byte(`"stale"`), 0o644))

	res, err := newTestClient(srv.URL).StreamDownloadTo(context.Background(), path, srv.URL, DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.DownloadStatusDownloaded, res.Status)
}

func TestStreamDownloadToKeepsPreviousFileOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("partial"))
		// hijack and drop the connection mid-body
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "bulk.json")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	_, err := newTestClient(srv.URL).StreamDownloadTo(context.Background(), path, srv.URL, DownloadOptions{Force: true})
	require.Error(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))
	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestStreamDownloadToCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000000")
		w.Write(make([]byte, 1<<16))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		cancel()
		<-r.Context().Done()
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "bulk.json")
	_, err := newTestClient(srv.URL).StreamDownloadTo(ctx, path, srv.URL, DownloadOptions{})
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(statErr))
}

func TestProgressCallbacksThrottledAndFinal(t *testing.T) {
	body := make([]byte, 12<<20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	var reports [][2]int64
	path := filepath.Join(t.TempDir(), "bulk.json")
	_, err := newTestClient(srv.URL).StreamDownloadTo(context.Background(), path, srv.URL, DownloadOptions{
		Progress: func(written, total int64) {
			reports = append(reports, [2]int64{written, total})
		},
	})
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, int64(len(body)), last[0])
	// known length: percent steps keep the report count bounded
	assert.LessOrEqual(t, len(reports), 110)
}
