package domain

import "time"

// CSATSurvey is the customer-satisfaction survey a client submits while
// a ticket awaits feedback. At most one per ticket; immutable once
// created; its existence gates final closure.
type CSATSurvey struct {
	ID                string
	TicketID          string
	Rating            int
	Comments          string
	HasOtherConcerns  bool
	OtherConcernsText string
	CreatedAt         time.Time
}
