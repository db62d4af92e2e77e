package chat

import (
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Client pumps frames between one websocket connection and its hub
// subscription. The read loop runs on the caller's goroutine; WritePump
// runs on its own.
type Client struct {
	conn         *websocket.Conn
	sub          *Subscription
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewClient binds a websocket connection to a hub subscription.
func NewClient(conn *websocket.Conn, sub *Subscription, writeTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{conn: conn, sub: sub, writeTimeout: writeTimeout, logger: logger}
}

// Subscription exposes the underlying hub membership.
func (c *Client) Subscription() *Subscription {
	return c.sub
}

// Send queues a frame directly to this connection, bypassing the group.
// Used for the history frame and per-frame error replies. Safe to call
// after the hub has removed the subscription; the frame is then dropped.
func (c *Client) Send(frame Frame) {
	c.sub.push(frame)
}

// WritePump drains the subscription's frame stream onto the socket. It
// returns when the stream closes (unsubscribe or force disconnect) or a
// write fails. A force_disconnect frame is flushed before closing.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for frame := range c.sub.Frames() {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return
		}
		if err := c.conn.WriteJSON(frame); err != nil {
			c.logger.Debug("chat write failed", zap.Error(err))
			return
		}
		if frame.Type == FrameForceDisconnect {
			deadline := time.Now().Add(c.writeTimeout)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, frame.Reason), deadline)
			return
		}
	}
}

// ReadLoop decodes inbound frames and hands them to handle until the
// connection drops. Malformed frames get an error reply; unknown actions
// are ignored.
func (c *Client) ReadLoop(handle func(Inbound)) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		event, err := DecodeInbound(raw)
		if errors.Is(err, ErrUnknownAction) {
			continue
		}
		if err != nil {
			c.Send(ErrorFrame("invalid frame"))
			continue
		}
		handle(event)
	}
}
