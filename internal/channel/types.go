// Package channel defines the plain-data contract between the chat platform
// adapter and the relay pipeline.
package channel

import (
	"context"
	"time"
)

// Attachment is a file carried by an inbound message: a name (used to infer
// the file type by suffix) and a fetchable source URL.
type Attachment struct {
	ID   string
	Name string
	URL  string
	Size int64
}

// InboundMessage is the platform-independent view of a received message.
type InboundMessage struct {
	ID          string
	ChannelID   string
	AuthorID    string
	AuthorIsBot bool
	Attachments []Attachment
	ReceivedAt  time.Time
}

// InboundHandler processes one inbound message. Errors are logged by the
// adapter and never tear down the connection.
type InboundHandler func(ctx context.Context, msg InboundMessage) error

// Connection is a live subscription to a platform's event stream.
type Connection interface {
	Stop(ctx context.Context) error
}

type connection struct {
	stop func(ctx context.Context) error
}

// NewConnection wraps a stop function as a Connection.
func NewConnection(stop func(ctx context.Context) error) Connection {
	return &connection{stop: stop}
}

func (c *connection) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	return c.stop(ctx)
}
