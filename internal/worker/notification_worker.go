package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/config"
	"github.com/maptech/stf-service/internal/service"
)

// NotificationWorker drains the notification queue in the background.
// Actual delivery channels (mail, webhooks) hang off this loop; for now
// delivery is a structured log line carrying the configured sender.
type NotificationWorker struct {
	notifications *service.NotificationService
	cfg           config.NotificationConfig
	logger        *zap.Logger
}

// NewNotificationWorker creates the worker.
func NewNotificationWorker(notifications *service.NotificationService, cfg config.NotificationConfig, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{notifications: notifications, cfg: cfg, logger: logger}
}

// Run consumes notifications until the context is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) {
	w.logger.Info("notification worker started", zap.String("from", w.cfg.EmailFrom))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopped")
			return
		case notification := <-w.notifications.Queue():
			w.deliver(notification)
		}
	}
}

func (w *NotificationWorker) deliver(notification service.Notification) {
	w.logger.Info("notification delivered",
		zap.String("ticket_id", notification.TicketID),
		zap.String("from", w.cfg.EmailFrom),
		zap.String("subject", notification.Subject),
		zap.String("webhook", w.cfg.WebhookURL))
}
