package domain

import "time"

// TaskStatus enumerates states of a ticket checklist item.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TicketTask is a checklist item attached to a ticket, typically seeded
// from a template when the ticket is assigned.
type TicketTask struct {
	ID          string
	TicketID    string
	Description string
	AssignedTo  *string
	Status      TaskStatus
	CreatedAt   time.Time
}

// Template is an admin-managed task template with newline-separated steps.
type Template struct {
	ID        string
	Name      string
	Steps     string
	CreatedAt time.Time
}

// TypeOfService is a lookup record for the client intake dropdown.
type TypeOfService struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}
