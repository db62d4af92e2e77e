package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/access"
	"github.com/maptech/stf-service/internal/auth"
	"github.com/maptech/stf-service/internal/chat"
	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/repository"
	"github.com/maptech/stf-service/internal/service"
	"github.com/maptech/stf-service/pkg/util"
)

const (
	localsChatUser    = "chat.user"
	localsChatTicket  = "chat.ticket"
	localsChatChannel = "chat.channel"
)

// ChatHandler upgrades chat connections and pumps their traffic through
// the hub.
type ChatHandler struct {
	tickets      repository.TicketRepository
	chatSvc      *service.ChatService
	hub          *chat.Hub
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewChatHandler creates the handler.
func NewChatHandler(tickets repository.TicketRepository, chatSvc *service.ChatService, hub *chat.Hub, writeTimeout time.Duration, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		tickets:      tickets,
		chatSvc:      chatSvc,
		hub:          hub,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Upgrade runs before the websocket upgrade. Admission is evaluated
// against a freshly loaded ticket so a reassigned employee is rejected
// here, before any history is sent.
func (h *ChatHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	channel := domain.ChannelType(c.Params("channelType"))
	if !domain.ValidChannelType(channel) {
		return util.NewValidationError("unknown channel type", map[string]any{"channel_type": channel})
	}

	ticket, err := h.tickets.GetByID(c.UserContext(), c.Params("ticketID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("ticket", nil)
		}
		return util.MapError(err)
	}

	user := auth.CurrentUser(c)
	if !access.AllowedChannel(user, channel, ticket) {
		return util.NewForbidden("not a participant of this channel")
	}

	c.Locals(localsChatUser, user)
	c.Locals(localsChatTicket, ticket)
	c.Locals(localsChatChannel, channel)
	return c.Next()
}

// Serve returns the websocket handler for admitted connections.
func (h *ChatHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user := conn.Locals(localsChatUser).(*domain.User)
		ticket := conn.Locals(localsChatTicket).(*domain.Ticket)
		channel := conn.Locals(localsChatChannel).(domain.ChannelType)
		ctx := context.Background()

		history, err := h.chatSvc.SessionHistory(ctx, ticket, channel)
		if err != nil {
			h.logger.Warn("load chat history", zap.String("ticket_id", ticket.ID), zap.Error(err))
			_ = conn.Close()
			return
		}

		sub := h.hub.Subscribe(ticket.ID, channel, user.ID, user.DisplayName())
		client := chat.NewClient(conn, sub, h.writeTimeout, h.logger)
		defer h.hub.Unsubscribe(sub)

		go client.WritePump()
		client.Send(chat.HistoryFrame(history))

		client.ReadLoop(func(event chat.Inbound) {
			h.handle(ctx, client, user, ticket, channel, event)
		})
	})
}

func (h *ChatHandler) handle(ctx context.Context, client *chat.Client, user *domain.User, ticket *domain.Ticket, channel domain.ChannelType, event chat.Inbound) {
	sub := client.Subscription()

	switch ev := event.(type) {
	case chat.SendMessage:
		payload, err := h.chatSvc.SaveUserMessage(ctx, user, ticket, channel, ev.Content, ev.ReplyToID)
		if err != nil {
			h.logger.Warn("persist chat message", zap.String("ticket_id", ticket.ID), zap.Error(err))
			client.Send(chat.ErrorFrame("message could not be saved"))
			return
		}
		if payload != nil {
			h.hub.Broadcast(ticket.ID, channel, chat.NewMessageFrame(*payload))
		}

	case chat.Typing:
		h.hub.BroadcastExcept(ticket.ID, channel, sub.ID,
			chat.TypingFrame(user.ID, user.DisplayName(), ev.IsTyping))

	case chat.React:
		reactions, ok, err := h.chatSvc.ToggleReaction(ctx, user, ticket, ev.MessageID, ev.Emoji)
		if err != nil {
			h.logger.Warn("toggle reaction", zap.String("message_id", ev.MessageID), zap.Error(err))
			return
		}
		if ok {
			h.hub.Broadcast(ticket.ID, channel, chat.ReactionFrame(ev.MessageID, reactions))
		}

	case chat.MarkRead:
		for _, messageID := range ev.MessageIDs {
			entry, created, err := h.chatSvc.MarkRead(ctx, user, ticket, messageID)
			if err != nil {
				h.logger.Warn("mark read", zap.String("message_id", messageID), zap.Error(err))
				continue
			}
			if created {
				h.hub.Broadcast(ticket.ID, channel, chat.ReadReceiptFrame(messageID, *entry))
			}
		}
	}
}
