package chat

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/observability"
)

// groupKey identifies one broadcast group: a ticket's channel.
type groupKey struct {
	TicketID string
	Channel  domain.ChannelType
}

// Subscription is one connected socket's membership in a chat group.
type Subscription struct {
	ID       string
	TicketID string
	Channel  domain.ChannelType
	UserID   string
	Username string

	// mu guards send and closed: the hub closes the channel while the
	// connection's read loop may still be pushing replies onto it.
	mu     sync.Mutex
	send   chan Frame
	closed bool
}

// Frames returns the outbound frame stream for this subscription. The
// channel is closed when the subscription is removed or force-disconnected.
func (s *Subscription) Frames() <-chan Frame {
	return s.send
}

// push queues a frame without blocking. Returns false when the buffer is
// full or the subscription is already closed.
func (s *Subscription) push(frame Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// close shuts the frame stream exactly once. Returns false if it was
// already closed.
func (s *Subscription) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.send)
	return true
}

// Hub fans chat frames out to subscribed connections. Sends never block:
// a subscriber whose buffer is full is dropped and its channel closed.
type Hub struct {
	mu      sync.RWMutex
	groups  map[groupKey]map[string]*Subscription
	bufSize int
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub(bufSize int, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Hub{
		groups:  make(map[groupKey]map[string]*Subscription),
		bufSize: bufSize,
		logger:  logger,
		metrics: metrics,
	}
}

// Subscribe joins a user to a ticket channel and returns the subscription.
func (h *Hub) Subscribe(ticketID string, channel domain.ChannelType, userID, username string) *Subscription {
	sub := &Subscription{
		ID:       uuid.NewString(),
		TicketID: ticketID,
		Channel:  channel,
		UserID:   userID,
		Username: username,
		send:     make(chan Frame, h.bufSize),
	}

	key := groupKey{TicketID: ticketID, Channel: channel}
	h.mu.Lock()
	group, ok := h.groups[key]
	if !ok {
		group = make(map[string]*Subscription)
		h.groups[key] = group
	}
	group[sub.ID] = sub
	h.mu.Unlock()

	h.metrics.RecordWSConnect()
	h.logger.Debug("chat subscribe",
		zap.String("ticket_id", ticketID),
		zap.String("channel", string(channel)),
		zap.String("user_id", userID))
	return sub
}

// Unsubscribe removes a subscription and tells the rest of the group the
// user stopped typing, so no stale indicator survives a disconnect.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	removed := h.removeLocked(sub)
	h.mu.Unlock()

	if removed {
		h.BroadcastExcept(sub.TicketID, sub.Channel, sub.ID, TypingFrame(sub.UserID, sub.Username, false))
	}
}

// Broadcast delivers a frame to every subscriber of the ticket channel.
func (h *Hub) Broadcast(ticketID string, channel domain.ChannelType, frame Frame) {
	h.BroadcastExcept(ticketID, channel, "", frame)
}

// BroadcastExcept delivers a frame to every subscriber except the one with
// the given subscription ID. Used for typing indicators, which are not
// echoed back to their sender.
func (h *Hub) BroadcastExcept(ticketID string, channel domain.ChannelType, exceptID string, frame Frame) {
	key := groupKey{TicketID: ticketID, Channel: channel}

	h.mu.Lock()
	group := h.groups[key]
	targets := make([]*Subscription, 0, len(group))
	for _, sub := range group {
		if sub.ID == exceptID {
			continue
		}
		targets = append(targets, sub)
	}

	var dropped []*Subscription
	for _, sub := range targets {
		if sub.push(frame) {
			h.metrics.RecordWSBroadcast()
		} else {
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		h.removeLocked(sub)
	}
	h.mu.Unlock()

	for _, sub := range dropped {
		h.metrics.RecordWSDropped()
		h.logger.Warn("dropping slow chat subscriber",
			zap.String("ticket_id", sub.TicketID),
			zap.String("user_id", sub.UserID))
	}
}

// ForceDisconnectUser revokes a user's presence on both channels of a
// ticket. Each of their subscriptions receives a force_disconnect frame
// and is then closed.
func (h *Hub) ForceDisconnectUser(ticketID, userID, reason string) {
	frame := ForceDisconnectFrame(reason)

	h.mu.Lock()
	var victims []*Subscription
	for _, channel := range []domain.ChannelType{domain.ChannelClientEmployee, domain.ChannelAdminEmployee} {
		for _, sub := range h.groups[groupKey{TicketID: ticketID, Channel: channel}] {
			if sub.UserID == userID {
				victims = append(victims, sub)
			}
		}
	}
	for _, sub := range victims {
		sub.push(frame)
		h.removeLocked(sub)
	}
	h.mu.Unlock()

	if len(victims) > 0 {
		h.logger.Info("force disconnected chat user",
			zap.String("ticket_id", ticketID),
			zap.String("user_id", userID),
			zap.String("reason", reason),
			zap.Int("connections", len(victims)))
	}
}

// GroupSize reports the number of live subscribers in a ticket channel.
func (h *Hub) GroupSize(ticketID string, channel domain.ChannelType) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[groupKey{TicketID: ticketID, Channel: channel}])
}

// removeLocked detaches a subscription and closes its channel. Callers
// must hold h.mu. Returns false if the subscription was already gone.
func (h *Hub) removeLocked(sub *Subscription) bool {
	if !sub.close() {
		return false
	}
	key := groupKey{TicketID: sub.TicketID, Channel: sub.Channel}
	if group, ok := h.groups[key]; ok {
		delete(group, sub.ID)
		if len(group) == 0 {
			delete(h.groups, key)
		}
	}
	return true
}
