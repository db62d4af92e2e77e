package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/events"
)

// Notification is a queued outbound notice about a ticket event.
type Notification struct {
	TicketID string
	Subject  string
	Body     string
}

// NotificationService turns lifecycle events into queued notifications.
// Delivery happens asynchronously in the notification worker; a full
// queue drops rather than blocking the publishing request.
type NotificationService struct {
	queue  chan Notification
	logger *zap.Logger
}

// NewNotificationService creates the service with a bounded queue.
func NewNotificationService(queueSize int, logger *zap.Logger) *NotificationService {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &NotificationService{
		queue:  make(chan Notification, queueSize),
		logger: logger,
	}
}

// Queue exposes the pending notifications to the worker.
func (s *NotificationService) Queue() <-chan Notification {
	return s.queue
}

// SubscribeTo registers handlers for the lifecycle events worth telling
// people about.
func (s *NotificationService) SubscribeTo(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketAssigned, s.onEvent("You have been assigned a ticket"))
	dispatcher.Subscribe(events.EventTicketEscalated, s.onEvent("A ticket was escalated"))
	dispatcher.Subscribe(events.EventTicketEscalatedExternal, s.onEvent("A ticket was escalated externally"))
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.onEvent("Ticket status changed"))
	dispatcher.Subscribe(events.EventTicketClosed, s.onEvent("Ticket closed"))
}

func (s *NotificationService) onEvent(subject string) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		notification := Notification{
			TicketID: event.TicketID,
			Subject:  subject,
			Body:     fmt.Sprintf("%s (ticket %s, by %s)", subject, event.TicketID, event.Actor.UserID),
		}
		select {
		case s.queue <- notification:
		default:
			s.logger.Warn("notification queue full, dropping",
				zap.String("ticket_id", event.TicketID),
				zap.String("subject", subject))
		}
		return nil
	}
}
