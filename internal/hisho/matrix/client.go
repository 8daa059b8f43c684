// Package matrix is Hisho's chat transport: it syncs with a Matrix
// homeserver, hands text messages from the configured rooms to a handler and
// sends the replies back.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Hisho/common/retry"
)

// Config holds the bot account and the rooms it serves.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms are joined on start. Messages from other rooms are ignored;
	// when Rooms is empty every joined room is served.
	Rooms []string
	// State persists the sync position. When nil the position is kept in
	// memory and old messages are skipped on every start.
	State SyncState
}

// Message is an inbound text message.
type Message struct {
	RoomID  string
	EventID string
	Sender  string
	Body    string
}

// MessageHandler processes one inbound message.
type MessageHandler func(ctx context.Context, msg Message)

// Client wraps the mautrix client.
type Client struct {
	client *mautrix.Client
	cfg    Config
}

const (
	backoffMin = 2 * time.Second
	backoffMax = 5 * time.Minute
)

var sendRetry = retry.Config{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}

// New creates a client. It does not contact the homeserver.
func New(cfg Config) (*Client, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("matrix: create client: %w", err)
	}
	if cfg.State != nil {
		client.Store = &syncStore{state: cfg.State}
	} else {
		slog.Warn("matrix: no sync state store; the sync position is lost on restart")
	}
	return &Client{client: client, cfg: cfg}, nil
}

// Run joins the configured rooms and syncs until ctx ends, reconnecting with
// exponential backoff after errors. It returns nil once ctx is done.
func (c *Client) Run(ctx context.Context, handler MessageHandler) error {
	syncer, ok := c.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return errors.New("matrix: unexpected syncer type")
	}
	// The first sync only establishes the position.
	syncer.OnSync(c.client.DontProcessOldEvents)
	syncer.OnEventType(event.EventMessage, func(ctx context.Context, evt *event.Event) {
		if msg, ok := c.accept(evt); ok {
			handler(ctx, msg)
		}
	})

	for _, room := range c.cfg.Rooms {
		if err := c.join(ctx, id.RoomID(room)); err != nil {
			return fmt.Errorf("matrix: join %s: %w", room, err)
		}
	}

	slog.Warn("matrix: end-to-end encryption is not enabled; messages are sent in plaintext")
	backoff := backoffMin
	for {
		err := c.client.SyncWithContext(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}
		slog.Error("matrix: sync stopped; reconnecting", "err", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffMax)
	}
}

// accept filters inbound events down to text messages from other users in
// served rooms.
func (c *Client) accept(evt *event.Event) (Message, bool) {
	if evt.Sender == id.UserID(c.cfg.UserID) {
		return Message{}, false
	}
	content := evt.Content.AsMessage()
	if content == nil || content.MsgType != event.MsgText {
		return Message{}, false
	}
	if len(c.cfg.Rooms) > 0 && !slices.Contains(c.cfg.Rooms, evt.RoomID.String()) {
		return Message{}, false
	}
	return Message{
		RoomID:  evt.RoomID.String(),
		EventID: evt.ID.String(),
		Sender:  evt.Sender.String(),
		Body:    content.Body,
	}, true
}

func (c *Client) join(ctx context.Context, room id.RoomID) error {
	return retry.Do(ctx, sendRetry, func() error {
		_, err := c.client.JoinRoomByID(ctx, room)
		if errors.Is(err, mautrix.MForbidden) {
			// Returned by some homeservers when the bot is already a member.
			slog.Warn("matrix: join refused, continuing", "room", room)
			return nil
		}
		return err
	})
}

// SendFormatted sends html with plain as the fallback body, retrying
// transient failures.
func (c *Client) SendFormatted(ctx context.Context, roomID, html, plain string) error {
	content := event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          plain,
		Format:        event.FormatHTML,
		FormattedBody: html,
	}
	return c.send(ctx, roomID, &content)
}

// SendNotice sends a notice, which clients render less prominently.
func (c *Client) SendNotice(ctx context.Context, roomID, text string) error {
	return c.send(ctx, roomID, &event.MessageEventContent{MsgType: event.MsgNotice, Body: text})
}

func (c *Client) send(ctx context.Context, roomID string, content *event.MessageEventContent) error {
	err := retry.Do(ctx, sendRetry, func() error {
		_, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, content)
		if errors.Is(err, mautrix.MForbidden) || errors.Is(err, mautrix.MUnknownToken) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("matrix: send to %s: %w", roomID, err)
	}
	return nil
}

// SetTyping shows or clears the typing indicator. Failures are only logged.
func (c *Client) SetTyping(ctx context.Context, roomID string, typing bool) {
	if _, err := c.client.UserTyping(ctx, id.RoomID(roomID), typing, 30*time.Second); err != nil {
		slog.Debug("matrix: typing indicator failed", "room", roomID, "err", err)
	}
}
