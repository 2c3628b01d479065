// Package watch is a command-line client for the live message feed.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/realtime"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/transport/http/middleware"
)

// Client represents a feed subscription.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to the feed at addr. A non-empty session token is sent as
// the operator cookie so the client may follow every conversation.
func Dial(ctx context.Context, addr, session string) (*Client, error) {
	header := http.Header{}
	if session != "" {
		header.Set("Cookie", (&http.Cookie{Name: middleware.SessionCookie, Value: session}).String())
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, header)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

// Subscribe follows one conversation, or realtime.AllConversations, and
// waits for the server to confirm.
func (c *Client) Subscribe(conversationID string) error {
	msg := realtime.SubscribeMessage{BaseMessage: realtime.BaseMessage{
		Type:           realtime.TypeSubscribe,
		Ts:             time.Now().UnixMilli(),
		ConversationID: conversationID,
	}}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read subscribed: %w", err)
	}

	var base realtime.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal subscribed: %w", err)
	}

	if base.Type == realtime.TypeError {
		var errMsg realtime.ErrorMessage
		_ = json.Unmarshal(data, &errMsg)
		return fmt.Errorf("subscribe failed: %s - %s", errMsg.Code, errMsg.Message)
	}
	if base.Type != realtime.TypeSubscribed {
		return fmt.Errorf("expected subscribed, got: %s", base.Type)
	}
	return nil
}

// Stream prints every event to w until ctx is done or the server closes.
func (c *Client) Stream(ctx context.Context, w io.Writer) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if _, err := io.WriteString(w, Format(data)+"\n"); err != nil {
			return err
		}
	}
}

// Format renders one feed event as a single line.
func Format(data []byte) string {
	var base realtime.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return "unreadable event: " + string(data)
	}
	ts := time.UnixMilli(base.Ts).Format("15:04:05")

	switch base.Type {
	case realtime.TypeMessage:
		var ev realtime.MessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			break
		}
		return fmt.Sprintf("%s [%s] %s (%s): %s", ts, ev.ConversationID, ev.Message.Name,
			ev.Message.SenderType, oneLine(ev.Message.Text))
	case realtime.TypeConversationCleared:
		return fmt.Sprintf("%s [%s] conversation cleared", ts, base.ConversationID)
	case realtime.TypeError:
		var ev realtime.ErrorMessage
		if err := json.Unmarshal(data, &ev); err == nil {
			return fmt.Sprintf("%s error %s: %s", ts, ev.Code, ev.Message)
		}
	}
	return fmt.Sprintf("%s %s %s", ts, base.Type, base.ConversationID)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ErrNoTarget is returned when neither a conversation nor --all was given.
var ErrNoTarget = errors.New("a conversation id or --all is required")
