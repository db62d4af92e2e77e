package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/chat"
	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/events"
	"github.com/maptech/stf-service/internal/repository"
)

// ChatServiceDependencies wires the chat service.
type ChatServiceDependencies struct {
	Messages   repository.MessageRepository
	Sessions   *SessionManager
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// ChatService persists chat traffic scoped to the current assignment
// session and shapes it for the wire. Unresolvable message ids and empty
// content are silently ignored rather than erroring the connection.
type ChatService struct {
	deps ChatServiceDependencies
}

// NewChatService creates the chat service.
func NewChatService(deps ChatServiceDependencies) *ChatService {
	return &ChatService{deps: deps}
}

// History returns hydrated messages for a ticket in creation order.
func (s *ChatService) History(ctx context.Context, ticketID string, filter repository.MessageFilter) ([]chat.MessagePayload, error) {
	messages, err := s.deps.Messages.ListByTicket(ctx, ticketID, filter)
	if err != nil {
		return nil, err
	}
	payloads := make([]chat.MessagePayload, 0, len(messages))
	for i := range messages {
		payloads = append(payloads, chat.NewMessagePayload(&messages[i]))
	}
	return payloads, nil
}

// SessionHistory returns the messages of one channel under the ticket's
// current session, the payload a joining connection receives. Empty when
// the ticket has no active session.
func (s *ChatService) SessionHistory(ctx context.Context, ticket *domain.Ticket, channel domain.ChannelType) ([]chat.MessagePayload, error) {
	session, err := s.deps.Sessions.EnsureSession(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []chat.MessagePayload{}, nil
	}
	return s.History(ctx, ticket.ID, repository.MessageFilter{
		ChannelType: &channel,
		SessionID:   &session.ID,
	})
}

// SaveUserMessage persists a message under the current session and
// returns its wire form. Returns nil when the message is ignored: blank
// content, no active assignment, or similar non-errors.
func (s *ChatService) SaveUserMessage(ctx context.Context, actor *domain.User, ticket *domain.Ticket, channel domain.ChannelType, content string, replyToID *string) (*chat.MessagePayload, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	session, err := s.deps.Sessions.EnsureSession(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if session == nil {
		s.deps.Logger.Debug("message dropped, ticket has no active session",
			zap.String("ticket_id", ticket.ID))
		return nil, nil
	}

	// A reply id that does not resolve within this ticket is dropped
	// rather than failing the send.
	if replyToID != nil {
		parent, err := s.deps.Messages.GetByID(ctx, *replyToID)
		if err != nil || parent.TicketID != ticket.ID {
			replyToID = nil
		}
	}

	msg := &domain.Message{
		TicketID:    ticket.ID,
		SessionID:   session.ID,
		ChannelType: channel,
		SenderID:    actor.ID,
		Content:     content,
		ReplyToID:   replyToID,
	}
	if err := s.deps.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	hydrated, err := s.deps.Messages.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	s.publishSent(ctx, actor, hydrated)
	payload := chat.NewMessagePayload(hydrated)
	return &payload, nil
}

// SaveSystemMessage persists a lifecycle notice in one channel under the
// given session, attributed to the acting user.
func (s *ChatService) SaveSystemMessage(ctx context.Context, actor *domain.User, ticketID, sessionID string, channel domain.ChannelType, content string) (*chat.MessagePayload, error) {
	msg := &domain.Message{
		TicketID:        ticketID,
		SessionID:       sessionID,
		ChannelType:     channel,
		SenderID:        actor.ID,
		Content:         content,
		IsSystemMessage: true,
	}
	if err := s.deps.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	hydrated, err := s.deps.Messages.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	payload := chat.NewMessagePayload(hydrated)
	return &payload, nil
}

// ToggleReaction flips the (message, user, emoji) row and returns the
// message's complete reaction set. ok=false means the target did not
// resolve and the action was ignored.
func (s *ChatService) ToggleReaction(ctx context.Context, actor *domain.User, ticket *domain.Ticket, messageID, emoji string) (map[string][]chat.UserRef, bool, error) {
	if emoji == "" {
		return nil, false, nil
	}
	msg, err := s.deps.Messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if msg.TicketID != ticket.ID {
		return nil, false, nil
	}

	if err := s.deps.Messages.ToggleReaction(ctx, messageID, actor.ID, emoji); err != nil {
		return nil, false, err
	}
	reactions, err := s.deps.Messages.ListReactions(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	return chat.GroupReactions(reactions), true, nil
}

// MarkRead records a first-read receipt. The second return is false for
// duplicates and unresolvable ids, both of which are no-ops.
func (s *ChatService) MarkRead(ctx context.Context, actor *domain.User, ticket *domain.Ticket, messageID string) (*chat.ReadEntry, bool, error) {
	msg, err := s.deps.Messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if msg.TicketID != ticket.ID {
		return nil, false, nil
	}

	receipt, created, err := s.deps.Messages.CreateReadReceipt(ctx, messageID, actor.ID)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return nil, false, nil
	}
	return &chat.ReadEntry{
		UserID:   actor.ID,
		Username: actor.DisplayName(),
		ReadAt:   receipt.ReadAt,
	}, true, nil
}

func (s *ChatService) publishSent(ctx context.Context, actor *domain.User, msg *domain.Message) {
	if s.deps.Dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventChatMessageSent,
		TicketID:  msg.TicketID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload: events.ChatMessageSentPayload{
			MessageID:   msg.ID,
			ChannelType: msg.ChannelType,
			SessionID:   msg.SessionID,
			IsSystem:    msg.IsSystemMessage,
		},
	}
	if err := s.deps.Dispatcher.Publish(ctx, event); err != nil {
		s.deps.Logger.Warn("publish message event", zap.Error(err))
	}
}
