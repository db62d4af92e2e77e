package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatStfNo(t *testing.T) {
	day := time.Date(2025, time.March, 7, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "STF-MP-20250307000001", FormatStfNo(day, 1))
	assert.Equal(t, "STF-MP-20250307000042", FormatStfNo(day, 42))
	assert.Equal(t, "STF-MP-20250307123456", FormatStfNo(day, 123456))
	// Sequences past six digits widen rather than wrap.
	assert.Equal(t, "STF-MP-202503071000000", FormatStfNo(day, 1000000))
}

func TestIsAssignedTo(t *testing.T) {
	empID := "e1"
	ticket := &Ticket{AssignedTo: &empID}

	assert.True(t, ticket.IsAssignedTo("e1"))
	assert.False(t, ticket.IsAssignedTo("e2"))

	ticket.AssignedTo = nil
	assert.False(t, ticket.IsAssignedTo("e1"))
}

func TestValidPriority(t *testing.T) {
	for _, p := range []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent} {
		assert.True(t, ValidPriority(p))
	}
	assert.False(t, ValidPriority("critical"))
	assert.False(t, ValidPriority(""))
}

func TestValidTicketStatus(t *testing.T) {
	for _, s := range []TicketStatus{
		TicketStatusOpen, TicketStatusInProgress, TicketStatusEscalated,
		TicketStatusEscalatedExternal, TicketStatusPendingFeedback,
		TicketStatusPendingClosure, TicketStatusClosed,
	} {
		assert.True(t, ValidTicketStatus(s))
	}
	assert.False(t, ValidTicketStatus("bogus"))
	assert.False(t, ValidTicketStatus(""))
}

func TestValidChannelType(t *testing.T) {
	assert.True(t, ValidChannelType(ChannelClientEmployee))
	assert.True(t, ValidChannelType(ChannelAdminEmployee))
	assert.False(t, ValidChannelType("employee_employee"))
}

func TestDisplayName(t *testing.T) {
	u := &User{Username: "jdoe", FullName: "Jordan Doe"}
	assert.Equal(t, "Jordan Doe", u.DisplayName())

	u.FullName = ""
	assert.Equal(t, "jdoe", u.DisplayName())
}
