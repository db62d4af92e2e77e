package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/maptech/stf-service/internal/domain"
)

// Inbound frame actions understood by the chat socket.
const (
	ActionSendMessage = "send_message"
	ActionTyping      = "typing"
	ActionReact       = "react"
	ActionMarkRead    = "mark_read"
)

// Outbound frame types emitted to chat subscribers.
const (
	FrameMessageHistory  = "message_history"
	FrameNewMessage      = "new_message"
	FrameTyping          = "typing"
	FrameReactionUpdate  = "reaction_update"
	FrameReadReceipt     = "read_receipt"
	FrameForceDisconnect = "force_disconnect"
	FrameError           = "error"
)

// Inbound is the closed set of client frames. Each variant is decoded
// exactly once at the socket boundary; unknown actions are dropped there.
type Inbound interface {
	inbound()
}

// SendMessage asks to persist and broadcast a chat message.
type SendMessage struct {
	Content   string
	ReplyToID *string
}

// Typing signals a typing-indicator change.
type Typing struct {
	IsTyping bool
}

// React toggles an emoji reaction on a message.
type React struct {
	MessageID string
	Emoji     string
}

// MarkRead records read receipts for one or more messages.
type MarkRead struct {
	MessageIDs []string
}

func (SendMessage) inbound() {}
func (Typing) inbound()      {}
func (React) inbound()       {}
func (MarkRead) inbound()    {}

// ErrUnknownAction marks frames whose action is outside the closed set.
var ErrUnknownAction = fmt.Errorf("unknown chat action")

type inboundEnvelope struct {
	Action     string   `json:"action"`
	Content    string   `json:"content"`
	ReplyToID  *string  `json:"reply_to_id"`
	IsTyping   bool     `json:"is_typing"`
	MessageID  string   `json:"message_id"`
	MessageIDs []string `json:"message_ids"`
	Emoji      string   `json:"emoji"`
}

// DecodeInbound parses a raw client frame into one of the Inbound variants.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode chat frame: %w", err)
	}
	switch env.Action {
	case ActionSendMessage:
		return SendMessage{Content: env.Content, ReplyToID: env.ReplyToID}, nil
	case ActionTyping:
		return Typing{IsTyping: env.IsTyping}, nil
	case ActionReact:
		return React{MessageID: env.MessageID, Emoji: env.Emoji}, nil
	case ActionMarkRead:
		ids := env.MessageIDs
		if len(ids) == 0 && env.MessageID != "" {
			ids = []string{env.MessageID}
		}
		return MarkRead{MessageIDs: ids}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
}

// ReplyPreview is the truncated quote of the message being replied to.
type ReplyPreview struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
}

const replyPreviewLimit = 100

// UserRef identifies a user inside reaction groups.
type UserRef struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// ReadEntry is one read receipt on the wire.
type ReadEntry struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	ReadAt   time.Time `json:"read_at"`
}

// MessagePayload is the wire representation of a chat message.
type MessagePayload struct {
	ID              string               `json:"id"`
	SenderID        string               `json:"sender_id"`
	SenderUsername  string               `json:"sender_username"`
	SenderRole      string               `json:"sender_role"`
	Content         string               `json:"content"`
	ReplyTo         *ReplyPreview        `json:"reply_to,omitempty"`
	IsSystemMessage bool                 `json:"is_system_message"`
	Reactions       map[string][]UserRef `json:"reactions"`
	ReadBy          []ReadEntry          `json:"read_by"`
	CreatedAt       time.Time            `json:"created_at"`
}

// NewMessagePayload flattens a hydrated message into wire form.
func NewMessagePayload(m *domain.Message) MessagePayload {
	p := MessagePayload{
		ID:              m.ID,
		SenderID:        m.SenderID,
		Content:         m.Content,
		IsSystemMessage: m.IsSystemMessage,
		Reactions:       GroupReactions(m.Reactions),
		ReadBy:          make([]ReadEntry, 0, len(m.ReadReceipts)),
		CreatedAt:       m.CreatedAt,
	}
	if m.Sender != nil {
		p.SenderUsername = m.Sender.DisplayName()
		p.SenderRole = string(m.Sender.Role)
	}
	if m.ReplyTo != nil {
		preview := ReplyPreview{
			ID:       m.ReplyTo.ID,
			Content:  truncate(m.ReplyTo.Content, replyPreviewLimit),
			SenderID: m.ReplyTo.SenderID,
		}
		if m.ReplyTo.Sender != nil {
			preview.SenderUsername = m.ReplyTo.Sender.DisplayName()
		}
		p.ReplyTo = &preview
	}
	for _, rr := range m.ReadReceipts {
		entry := ReadEntry{UserID: rr.UserID, ReadAt: rr.ReadAt}
		if rr.User != nil {
			entry.Username = rr.User.DisplayName()
		}
		p.ReadBy = append(p.ReadBy, entry)
	}
	return p
}

// GroupReactions buckets reaction rows by emoji, preserving insert order
// of reactors within each bucket.
func GroupReactions(reactions []domain.MessageReaction) map[string][]UserRef {
	grouped := make(map[string][]UserRef)
	for _, r := range reactions {
		ref := UserRef{UserID: r.UserID}
		if r.User != nil {
			ref.Username = r.User.DisplayName()
		}
		grouped[r.Emoji] = append(grouped[r.Emoji], ref)
	}
	return grouped
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Frame is a typed outbound envelope for chat subscribers.
type Frame struct {
	Type      string           `json:"type"`
	Message   *MessagePayload  `json:"message,omitempty"`
	Messages  []MessagePayload `json:"messages,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Username  string           `json:"username,omitempty"`
	IsTyping  *bool            `json:"is_typing,omitempty"`
	MessageID string           `json:"message_id,omitempty"`
	// Reactions carries the full per-emoji reactor sets after a toggle.
	Reactions map[string][]UserRef `json:"reactions,omitempty"`
	Receipt   *ReadEntry           `json:"receipt,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// HistoryFrame wraps prior messages sent on join.
func HistoryFrame(messages []MessagePayload) Frame {
	if messages == nil {
		messages = []MessagePayload{}
	}
	return Frame{Type: FrameMessageHistory, Messages: messages}
}

// NewMessageFrame wraps a freshly persisted message.
func NewMessageFrame(payload MessagePayload) Frame {
	return Frame{Type: FrameNewMessage, Message: &payload}
}

// TypingFrame announces a typing-state change for a user.
func TypingFrame(userID, username string, isTyping bool) Frame {
	return Frame{Type: FrameTyping, UserID: userID, Username: username, IsTyping: &isTyping}
}

// ReactionFrame carries the complete reaction state of a message.
func ReactionFrame(messageID string, reactions map[string][]UserRef) Frame {
	return Frame{Type: FrameReactionUpdate, MessageID: messageID, Reactions: reactions}
}

// ReadReceiptFrame announces a newly created read receipt.
func ReadReceiptFrame(messageID string, receipt ReadEntry) Frame {
	return Frame{Type: FrameReadReceipt, MessageID: messageID, Receipt: &receipt}
}

// ForceDisconnectFrame tells a client its session access was revoked.
func ForceDisconnectFrame(reason string) Frame {
	return Frame{Type: FrameForceDisconnect, Reason: reason}
}

// ErrorFrame reports a per-frame failure back to one client.
func ErrorFrame(message string) Frame {
	return Frame{Type: FrameError, Error: message}
}
