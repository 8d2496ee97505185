package gyazo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stageFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("stage file: %v", err)
	}
	return path
}

func TestUploadSubmitsMultipartForm(t *testing.T) {
	t.Parallel()

	content := []byte("raw image bytes")
	var gotToken string
	var gotFilename string
	var gotData []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		gotToken = r.FormValue("access_token")
		file, header, err := r.FormFile("imagedata")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer func() {
			_ = file.Close()
		}()
		gotFilename = header.Filename
		gotData, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"image_id":"xyz","url":"https://gyazo.com/xyz.png"}`))
	}))
	defer srv.Close()

	client := NewClient(testLogger(), srv.URL, "secret-token", 5*time.Second)
	result, err := client.Upload(context.Background(), stageFile(t, "cat.png", content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ImageID != "xyz" {
		t.Fatalf("unexpected image id: %q", result.ImageID)
	}
	if result.URL != "https://gyazo.com/xyz.png" {
		t.Fatalf("unexpected url: %q", result.URL)
	}
	if gotToken != "secret-token" {
		t.Fatalf("unexpected token: %q", gotToken)
	}
	if gotFilename != "cat.png" {
		t.Fatalf("unexpected filename: %q", gotFilename)
	}
	if string(gotData) != string(content) {
		t.Fatalf("unexpected file data: %q", string(gotData))
	}
}

func TestUploadNonSuccessKeepsUpstreamPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid access token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(testLogger(), srv.URL, "bad-token", 5*time.Second)
	_, err := client.Upload(context.Background(), stageFile(t, "cat.png", []byte("x")))

	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if uploadErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", uploadErr.StatusCode)
	}
	if uploadErr.Payload != `{"message":"invalid access token"}` {
		t.Fatalf("unexpected payload: %q", uploadErr.Payload)
	}
}

func TestUploadTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(testLogger(), srv.URL, "token", time.Second)
	_, err := client.Upload(context.Background(), stageFile(t, "cat.png", []byte("x")))

	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if uploadErr.StatusCode != 0 {
		t.Fatalf("transport errors carry no status, got %d", uploadErr.StatusCode)
	}
}

func TestUploadMissingFile(t *testing.T) {
	t.Parallel()

	client := NewClient(testLogger(), "http://unused.invalid", "token", time.Second)
	_, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "absent.png"))

	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
}
