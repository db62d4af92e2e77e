package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/events"
)

func TestNotificationServiceQueuesLifecycleEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(8, zap.NewNop())
	svc.SubscribeTo(dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "ev1",
		Type:      events.EventTicketAssigned,
		TicketID:  "t1",
		Actor:     events.Actor{UserID: "u1", Role: domain.RoleAdmin},
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	select {
	case n := <-svc.Queue():
		assert.Equal(t, "t1", n.TicketID)
		assert.Equal(t, "You have been assigned a ticket", n.Subject)
		assert.Contains(t, n.Body, "u1")
	default:
		t.Fatal("expected a queued notification")
	}
}

func TestNotificationServiceDropsWhenFull(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(1, zap.NewNop())
	svc.SubscribeTo(dispatcher)

	event := events.Event{
		Type:     events.EventTicketClosed,
		TicketID: "t1",
		Actor:    events.Actor{UserID: "u1"},
	}
	require.NoError(t, dispatcher.Publish(context.Background(), event))
	// The queue holds one entry; the second publish must not block.
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	assert.Len(t, svc.Queue(), 1)
}

func TestNotificationServiceIgnoresChatTraffic(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(8, zap.NewNop())
	svc.SubscribeTo(dispatcher)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventChatMessageSent,
		TicketID: "t1",
	}))

	assert.Empty(t, svc.Queue())
}
