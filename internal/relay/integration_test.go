package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/snaprelay/snaprelay/internal/channel"
	"github.com/snaprelay/snaprelay/internal/gyazo"
	"github.com/snaprelay/snaprelay/internal/transfer"
)

// Runs the pipeline against real transfer and gyazo components backed by
// httptest servers; only the chat platform is faked.
func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	imageBytes := []byte("png payload")
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(imageBytes)
	}))
	defer cdn.Close()

	hosting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.FormValue("access_token") != "gy-token" {
			http.Error(w, `{"message":"invalid access token"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"image_id":"xyz","url":"https://gyazo.com/xyz.png"}`))
	}))
	defer hosting.Close()

	staging := t.TempDir()
	notifier := &fakeNotifier{}
	downloader := transfer.NewDownloader(testLogger(), 5*time.Second, 0)
	client := gyazo.NewClient(testLogger(), hosting.URL, "gy-token", 5*time.Second)
	svc := NewService(testLogger(), Options{StagingDir: staging}, downloader, client, notifier)

	msg := channel.InboundMessage{
		ID:        "msg-1",
		ChannelID: "chan-1",
		Attachments: []channel.Attachment{
			{ID: "att-1", Name: "cat.png", URL: cdn.URL + "/cat.png"},
		},
	}
	if err := svc.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notifier.edits) != 1 || notifier.edits[0].content != "```https://i.gyazo.com/xyz.png```" {
		t.Fatalf("unexpected final reply: %+v", notifier.edits)
	}
	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging file should be removed, found %d entries", len(entries))
	}
}

func TestPipelineEndToEndHostingRejects(t *testing.T) {
	t.Parallel()

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png payload"))
	}))
	defer cdn.Close()

	hosting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"server error"}`, http.StatusInternalServerError)
	}))
	defer hosting.Close()

	staging := t.TempDir()
	notifier := &fakeNotifier{}
	downloader := transfer.NewDownloader(testLogger(), 5*time.Second, 0)
	client := gyazo.NewClient(testLogger(), hosting.URL, "gy-token", 5*time.Second)
	svc := NewService(testLogger(), Options{StagingDir: staging}, downloader, client, notifier)

	msg := channel.InboundMessage{
		ID:        "msg-1",
		ChannelID: "chan-1",
		Attachments: []channel.Attachment{
			{ID: "att-1", Name: "cat.png", URL: cdn.URL + "/cat.png"},
		},
	}
	_ = svc.HandleMessage(context.Background(), msg)

	if len(notifier.posts) != 2 || notifier.posts[1].content != failureText {
		t.Fatalf("expected a distinct failure notice, got %+v", notifier.posts)
	}
	if len(notifier.edits) != 0 {
		t.Fatalf("pending reply must stay unedited, got %+v", notifier.edits)
	}
	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging file should be removed, found %d entries", len(entries))
	}
}
