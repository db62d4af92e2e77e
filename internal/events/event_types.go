package events

import (
	"time"

	"github.com/maptech/stf-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket_created"
	EventTicketAssigned          EventType = "ticket_assigned"
	EventTicketEscalated         EventType = "ticket_escalated"
	EventTicketEscalatedExternal EventType = "ticket_escalated_external"
	EventTicketStatusChanged     EventType = "ticket_status_changed"
	EventTicketClosed            EventType = "ticket_closed"
	EventChatMessageSent         EventType = "chat_message_sent"
	EventCSATSubmitted           EventType = "csat_submitted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	StfNo string `json:"stf_no"`
	Title string `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	EmployeeID    string  `json:"employee_id"`
	PrevEmployee  *string `json:"prev_employee_id,omitempty"`
	SessionID     string  `json:"session_id"`
	PassedByPrior bool    `json:"passed_by_prior"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	EscalationType domain.EscalationType `json:"escalation_type"`
	ToExternal     string                `json:"to_external,omitempty"`
	Notes          string                `json:"notes,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// ChatMessageSentPayload payload.
type ChatMessageSentPayload struct {
	MessageID   string             `json:"message_id"`
	ChannelType domain.ChannelType `json:"channel_type"`
	SessionID   string             `json:"session_id"`
	IsSystem    bool               `json:"is_system"`
}

// CSATSubmittedPayload payload.
type CSATSubmittedPayload struct {
	SurveyID string `json:"survey_id"`
	Rating   int    `json:"rating"`
}
