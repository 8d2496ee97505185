// Package gyazo is a minimal client for the Gyazo upload API.
package gyazo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UploadResult is the hosting service's answer to a successful upload.
// URL is the reference URL of the original upload; only ImageID and the
// extension derived from URL matter downstream.
type UploadResult struct {
	ImageID string `json:"image_id"`
	URL     string `json:"url"`
}

// UploadError carries the upstream error payload (or transport error message)
// of a failed upload. A failed attempt is terminal; no retry is performed.
type UploadError struct {
	StatusCode int
	Payload    string
}

func (e *UploadError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gyazo upload status %d: %s", e.StatusCode, e.Payload)
	}
	return fmt.Sprintf("gyazo upload: %s", e.Payload)
}

// Client uploads staged files to Gyazo.
type Client struct {
	httpClient  *http.Client
	uploadURL   string
	accessToken string
	logger      *slog.Logger
}

// NewClient creates a Gyazo client. uploadURL is injectable for tests; pass
// the config default otherwise.
func NewClient(log *slog.Logger, uploadURL, accessToken string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		uploadURL:   uploadURL,
		accessToken: accessToken,
		logger:      log.With(slog.String("component", "gyazo")),
	}
}

// Upload submits the file at path as a multipart form with the access token
// and raw image bytes, and decodes the JSON response.
func (c *Client) Upload(ctx context.Context, path string) (UploadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return UploadResult{}, &UploadError{Payload: fmt.Sprintf("open staged file: %v", err)}
	}
	defer func() {
		_ = file.Close()
	}()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("access_token", c.accessToken); err != nil {
		return UploadResult{}, &UploadError{Payload: fmt.Sprintf("write form field: %v", err)}
	}
	part, err := writer.CreateFormFile("imagedata", filepath.Base(path))
	if err != nil {
		return UploadResult{}, &UploadError{Payload: fmt.Sprintf("create form file: %v", err)}
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{}, &UploadError{Payload: fmt.Sprintf("read staged file: %v", err)}
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, &UploadError{Payload: fmt.Sprintf("finalize form: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return UploadResult{}, &UploadError{Payload: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, &UploadError{Payload: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResult{}, &UploadError{StatusCode: resp.StatusCode, Payload: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("upload rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("payload", strings.TrimSpace(string(respBody))),
		)
		return UploadResult{}, &UploadError{StatusCode: resp.StatusCode, Payload: strings.TrimSpace(string(respBody))}
	}

	var result UploadResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return UploadResult{}, &UploadError{StatusCode: resp.StatusCode, Payload: fmt.Sprintf("decode response: %v", err)}
	}

	c.logger.Debug("upload complete", slog.String("image_id", result.ImageID))
	return result, nil
}
