package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen              TicketStatus = "open"
	TicketStatusInProgress        TicketStatus = "in_progress"
	TicketStatusEscalated         TicketStatus = "escalated"
	TicketStatusEscalatedExternal TicketStatus = "escalated_external"
	TicketStatusPendingFeedback   TicketStatus = "pending_feedback"
	TicketStatusPendingClosure    TicketStatus = "pending_closure"
	TicketStatusClosed            TicketStatus = "closed"
)

// ValidTicketStatus reports whether s is a known lifecycle status.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusEscalated,
		TicketStatusEscalatedExternal, TicketStatusPendingFeedback,
		TicketStatusPendingClosure, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels set during admin review.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// StfNoPrefix is the constant prefix of every ticket business identifier.
const StfNoPrefix = "STF-MP-"

// FormatStfNo builds the business identifier for a ticket: the prefix,
// an 8-digit date, and a 6-digit zero-padded daily sequence.
func FormatStfNo(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%06d", StfNoPrefix, day.Format("20060102"), seq)
}

// Ticket is the aggregate for support requests. Fields are segmented by
// the role allowed to write them: clients fill the intake block at
// creation, the assigned employee maintains the product/service block,
// and admin-level users own review/closure bookkeeping.
type Ticket struct {
	ID     string
	StfNo  string
	Status TicketStatus

	// Client intake fields.
	Title         string
	Description   string
	ClientName    string
	Organization  string
	ContactPerson string
	Designation   string
	MobileNo      string
	LandlineNo    string
	ServiceTypeID *string

	// Employee product/service fields.
	HasWarranty     *bool
	Product         string
	Brand           string
	ModelName       string
	DeviceEquipment string
	VersionNo       string
	DatePurchased   *time.Time
	SerialNo        string
	ActionTaken     string
	Remarks         string
	JobStatus       string

	// Admin fields.
	Priority         TicketPriority
	ConfirmedByAdmin bool
	TimeIn           *time.Time
	TimeOut          *time.Time

	// External escalation fields.
	ExternalEscalatedTo    string
	ExternalEscalationNote string
	ExternalEscalatedAt    *time.Time

	CreatedByID string
	AssignedTo  *string
	// CurrentSessionID is a weak back-pointer to the assignment session
	// currently scoping chat; nil whenever no employee is assigned.
	CurrentSessionID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAssignedTo reports whether userID is the currently assigned employee.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}
