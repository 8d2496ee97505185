// Package transfer downloads remote resources to local staging files.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrTransfer indicates the remote fetch or the local write failed.
	ErrTransfer = errors.New("transfer failed")
	// ErrTooLarge indicates the remote payload exceeds the configured limit.
	ErrTooLarge = errors.New("payload too large")
)

// Downloader streams remote files to disk.
type Downloader struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewDownloader creates a Downloader with the given timeout and payload limit.
func NewDownloader(log *slog.Logger, timeout time.Duration, maxBytes int64) *Downloader {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Downloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		logger:   log.With(slog.String("component", "transfer")),
	}
}

// Download fetches rawURL and writes the full body to dest, creating parent
// directories as needed. It returns once the bytes are flushed to storage.
// On failure a partial file may remain at dest; callers are expected to
// clean the destination up on every exit path.
func (d *Downloader) Download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransfer, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetch: %v", ErrTransfer, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d", ErrTransfer, resp.StatusCode)
	}
	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: max %d bytes", ErrTooLarge, d.maxBytes)
	}

	if dir := filepath.Dir(dest); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create staging dir: %v", ErrTransfer, err)
		}
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: create file: %v", ErrTransfer, err)
	}

	var body io.Reader = resp.Body
	if d.maxBytes > 0 {
		body = &io.LimitedReader{R: resp.Body, N: d.maxBytes + 1}
	}
	written, copyErr := io.Copy(out, body)
	closeErr := out.Close()

	if copyErr != nil {
		return fmt.Errorf("%w: write: %v", ErrTransfer, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: flush: %v", ErrTransfer, closeErr)
	}
	if d.maxBytes > 0 && written > d.maxBytes {
		return fmt.Errorf("%w: max %d bytes", ErrTooLarge, d.maxBytes)
	}

	d.logger.Debug("download complete",
		slog.String("url", rawURL),
		slog.String("dest", dest),
		slog.Int64("bytes", written),
	)
	return nil
}
