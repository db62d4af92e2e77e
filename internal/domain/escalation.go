package domain

import "time"

// EscalationType distinguishes internal reassignments from external
// hand-offs to a distributor or principal.
type EscalationType string

const (
	EscalationInternal EscalationType = "internal"
	EscalationExternal EscalationType = "external"
)

// EscalationLog is an append-only audit entry for escalations and
// internal ticket passes. Never mutated after creation.
type EscalationLog struct {
	ID             string
	TicketID       string
	EscalationType EscalationType
	FromUserID     string
	ToUserID       *string
	ToExternal     string
	Notes          string
	CreatedAt      time.Time
}
