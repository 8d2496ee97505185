// Package relay drives the per-attachment rehosting pipeline: announce,
// stage, transfer, upload, report, cleanup.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snaprelay/snaprelay/internal/channel"
	"github.com/snaprelay/snaprelay/internal/gyazo"
)

const (
	pendingText = "Uploading to Gyazo..."
	failureText = "Upload failed."
)

// imageExtensions is the attachment allow-list, matched case-insensitively
// against the attachment name's suffix.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// Downloader stages a remote resource at a local destination path.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// Uploader pushes a staged file to the hosting service.
type Uploader interface {
	Upload(ctx context.Context, path string) (gyazo.UploadResult, error)
}

// Notifier posts and edits replies in the originating conversation.
type Notifier interface {
	Post(channelID, content string) (messageID string, err error)
	Edit(channelID, messageID, content string) error
}

// Options carries the immutable pipeline configuration.
type Options struct {
	StagingDir string
	// TargetChannelID restricts processing to one channel; empty monitors all.
	TargetChannelID string
}

// Service is the attachment pipeline orchestrator.
type Service struct {
	logger     *slog.Logger
	opts       Options
	downloader Downloader
	uploader   Uploader
	notifier   Notifier
	now        func() time.Time
}

// NewService creates the orchestrator. All collaborators are required.
func NewService(log *slog.Logger, opts Options, downloader Downloader, uploader Uploader, notifier Notifier) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.StagingDir == "" {
		opts.StagingDir = "tmp"
	}
	return &Service{
		logger:     log.With(slog.String("service", "relay")),
		opts:       opts,
		downloader: downloader,
		uploader:   uploader,
		notifier:   notifier,
		now:        time.Now,
	}
}

// HandleMessage filters one inbound message and runs the pipeline for each
// qualifying attachment in sequence. A failing attachment never blocks the
// rest; per-attachment errors are reported to the conversation and logged,
// not returned. The returned error is reserved for future handler plumbing
// and is currently always nil.
func (s *Service) HandleMessage(ctx context.Context, msg channel.InboundMessage) error {
	if msg.AuthorIsBot {
		return nil
	}
	if s.opts.TargetChannelID != "" && msg.ChannelID != s.opts.TargetChannelID {
		return nil
	}
	if len(msg.Attachments) == 0 {
		return nil
	}

	for _, att := range msg.Attachments {
		if !IsImageName(att.Name) {
			s.logger.Debug("attachment skipped",
				slog.String("message_id", msg.ID),
				slog.String("name", att.Name),
			)
			continue
		}
		s.processAttachment(ctx, msg.ChannelID, att)
	}
	return nil
}

func (s *Service) processAttachment(ctx context.Context, channelID string, att channel.Attachment) {
	log := s.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("attachment", att.Name),
	)

	pendingID, err := s.notifier.Post(channelID, pendingText)
	if err != nil {
		log.Error("post pending reply failed", slog.Any("error", err))
		return
	}

	dest := stagingPath(s.opts.StagingDir, att.Name, s.now())
	defer s.cleanup(dest, log)

	if err := s.downloader.Download(ctx, att.URL, dest); err != nil {
		log.Error("transfer failed", slog.String("url", att.URL), slog.Any("error", err))
		s.postFailure(channelID, log)
		return
	}

	result, err := s.uploader.Upload(ctx, dest)
	if err != nil {
		log.Error("upload failed", slog.Any("error", err))
		s.postFailure(channelID, log)
		return
	}

	directURL := gyazo.DirectURL(result)
	if err := s.notifier.Edit(channelID, pendingID, codeBlock(directURL)); err != nil {
		log.Error("edit pending reply failed", slog.Any("error", err))
		return
	}
	log.Info("attachment rehosted", slog.String("direct_url", directURL))
}

// postFailure posts a fixed failure notice as a new message; the pending
// reply is deliberately left as is.
func (s *Service) postFailure(channelID string, log *slog.Logger) {
	if _, err := s.notifier.Post(channelID, failureText); err != nil {
		log.Error("post failure notice failed", slog.Any("error", err))
	}
}

// cleanup removes the staging file on every exit path. Deletion errors are
// logged and swallowed; a missing file is not an error.
func (s *Service) cleanup(path string, log *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("staging cleanup failed", slog.String("path", path), slog.Any("error", err))
	}
}

// IsImageName reports whether name carries an allow-listed image suffix.
func IsImageName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// stagingPath composes the collision-resistant staging destination. The
// timestamp+name composite is probabilistic collision avoidance across
// concurrently handled events, accepted at this scope.
func stagingPath(dir, name string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("temp_%d_%s", now.UnixMilli(), filepath.Base(name)))
}

func codeBlock(text string) string {
	return "```" + text + "```"
}
