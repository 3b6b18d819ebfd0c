package scryfall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cardvault/pkg/models"
)

const (
	// progress callbacks fire at most every progressByteStep bytes or
	// every progressPercentStep of a known total, whichever comes first
	progressByteStep    = 5 << 20
	progressPercentStep = 1.0
)

// DownloadOptions tunes one StreamDownloadTo call.
type DownloadOptions struct {
	// Force skips the conditional request and always downloads.
	Force bool
	// Progress, when set, receives throttled (written, total) updates.
	// total is -1 when the server does not announce a length.
	Progress func(written, total int64)
}

func etagPath(path string) string { return path + ".etag" }

func readETag(path string) string {
	b, err := os.ReadFile(etagPath(path))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// StreamDownloadTo fetches url into path without buffering the body in
// memory. A stored ETag turns the request conditional; 304 reports
// not_modified and leaves the file alone. The body streams into
// path+".part" and only a complete download is renamed into place, so a
// failed or cancelled transfer never clobbers the previous file.
func (c *Client) StreamDownloadTo(ctx context.Context, path, url string, opts DownloadOptions) (*models.DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	etag := ""
	if !opts.Force {
		etag = readETag(path)
	}
	if etag != "" {
		if _, err := os.Stat(path); err == nil {
			req.Header.Set("If-None-Match", etag)
		}
	}

	resp, err := c.bulkClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &models.DownloadResult{
			Status: models.DownloadStatusNotModified,
			ETag:   etag,
			Path:   path,
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	pw := &progressWriter{
		dst:      f,
		total:    resp.ContentLength,
		callback: opts.Progress,
	}
	_, copyErr := io.Copy(pw, resp.Body)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(tmp)
		if errors.Is(copyErr, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("stream body: %w", copyErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("publish download: %w", err)
	}

	newTag := strings.TrimSpace(resp.Header.Get("ETag"))
	if newTag != "" {
		// sidecar write is best effort; a miss just means one extra
		// full download next time
		_ = os.WriteFile(etagPath(path), []byte(newTag), 0o644)
	} else {
		_ = os.Remove(etagPath(path))
	}

	pw.finish()
	return &models.DownloadResult{
		Status: models.DownloadStatusDownloaded,
		Bytes:  pw.written,
		Total:  resp.ContentLength,
		ETag:   newTag,
		Path:   path,
	}, nil
}

// progressWriter forwards writes and emits throttled progress callbacks.
type progressWriter struct {
	dst      io.Writer
	total    int64
	written  int64
	lastByte int64
	lastPct  float64
	callback func(written, total int64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	w.written += int64(n)
	if err == nil && w.callback != nil && w.due() {
		w.mark()
		w.callback(w.written, w.total)
	}
	return n, err
}

func (w *progressWriter) due() bool {
	if w.written-w.lastByte >= progressByteStep {
		return true
	}
	if w.total > 0 {
		pct := float64(w.written) * 100 / float64(w.total)
		if pct-w.lastPct >= progressPercentStep {
			return true
		}
	}
	return false
}

func (w *progressWriter) mark() {
	w.lastByte = w.written
	if w.total > 0 {
		w.lastPct = float64(w.written) * 100 / float64(w.total)
	}
}

// finish emits the completion callback exactly once per download.
func (w *progressWriter) finish() {
	if w.callback != nil {
		w.callback(w.written, w.total)
	}
}
