// Package discord adapts the Discord gateway to the channel contract.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/snaprelay/snaprelay/internal/channel"
)

// Adapter owns a single Discord gateway session.
type Adapter struct {
	logger  *slog.Logger
	session *discordgo.Session
}

// NewAdapter creates the session for the given bot token. The session is not
// opened until Connect.
func NewAdapter(log *slog.Logger, botToken string) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	return &Adapter{
		logger:  log.With(slog.String("adapter", "discord")),
		session: session,
	}, nil
}

// Connect opens the gateway and dispatches message-create events to handler.
// Handler errors are logged and never propagate to the gateway loop.
func (a *Adapter) Connect(ctx context.Context, handler channel.InboundHandler) (channel.Connection, error) {
	removeReady := a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.logger.Info("gateway ready", slog.String("user", r.User.Username))
	})

	removeMessages := a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if ctx.Err() != nil {
			return
		}
		msg := convertMessage(m.Message)
		go func() {
			if err := handler(ctx, msg); err != nil {
				a.logger.Error("handle inbound failed",
					slog.String("message_id", msg.ID),
					slog.Any("error", err),
				)
			}
		}()
	})

	if err := a.session.Open(); err != nil {
		removeReady()
		removeMessages()
		return nil, fmt.Errorf("discord open connection: %w", err)
	}

	stop := func(stopCtx context.Context) error {
		a.logger.Info("stop")
		removeReady()
		removeMessages()
		return a.session.Close()
	}
	return channel.NewConnection(stop), nil
}

// Post sends a new reply to channelID and returns the created message ID.
func (a *Adapter) Post(channelID, content string) (string, error) {
	msg, err := a.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// Edit replaces the content of a previously posted reply in place.
func (a *Adapter) Edit(channelID, messageID, content string) error {
	_, err := a.session.ChannelMessageEdit(channelID, messageID, content)
	return err
}

func convertMessage(m *discordgo.Message) channel.InboundMessage {
	msg := channel.InboundMessage{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		ReceivedAt: time.Now().UTC(),
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorIsBot = m.Author.Bot
	}
	if len(m.Attachments) > 0 {
		msg.Attachments = make([]channel.Attachment, 0, len(m.Attachments))
		for _, att := range m.Attachments {
			msg.Attachments = append(msg.Attachments, channel.Attachment{
				ID:   att.ID,
				Name: att.Filename,
				URL:  att.URL,
				Size: int64(att.Size),
			})
		}
	}
	return msg
}
