package domain

import "time"

// ChannelType identifies one of the two independent chat lanes per ticket.
type ChannelType string

const (
	ChannelClientEmployee ChannelType = "client_employee"
	ChannelAdminEmployee  ChannelType = "admin_employee"
)

// ValidChannelType reports whether ct is a known channel type.
func ValidChannelType(ct ChannelType) bool {
	return ct == ChannelClientEmployee || ct == ChannelAdminEmployee
}

// Message is a chat message scoped to one ticket, one assignment session
// and one channel. Immutable once created except for the derived
// reaction and read-receipt collections.
type Message struct {
	ID              string
	TicketID        string
	SessionID       string
	ChannelType     ChannelType
	SenderID        string
	Content         string
	ReplyToID       *string
	IsSystemMessage bool
	CreatedAt       time.Time

	// Hydrated relations, populated by the repository on read.
	Sender       *User
	ReplyTo      *Message
	Reactions    []MessageReaction
	ReadReceipts []MessageReadReceipt
}

// MessageReaction is a (message, user, emoji) triple with toggle
// semantics: creating an existing triple removes it instead.
type MessageReaction struct {
	ID        string
	MessageID string
	UserID    string
	Emoji     string
	CreatedAt time.Time

	User *User
}

// MessageReadReceipt records the first time a user read a message.
// Created once per (message, user); never updated.
type MessageReadReceipt struct {
	MessageID string
	UserID    string
	ReadAt    time.Time

	User *User
}
