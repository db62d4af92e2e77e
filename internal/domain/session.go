package domain

import "time"

// AssignmentSession represents one continuous assignment of exactly one
// employee to one ticket. At most one session per ticket is active at
// any instant; messages are scoped to the session they were created
// under, which is what hides chat history from a reassigned employee.
type AssignmentSession struct {
	ID         string
	TicketID   string
	EmployeeID string
	IsActive   bool
	StartedAt  time.Time
	EndedAt    *time.Time
}
