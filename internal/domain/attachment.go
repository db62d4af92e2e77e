package domain

import "time"

// TicketAttachment stores file metadata for a ticket. Attachments
// flagged as resolution proof gate the closure path; the file content
// itself lives in external storage.
type TicketAttachment struct {
	ID                string
	TicketID          string
	UploadedByID      string
	FileName          string
	StorageKey        string
	MimeType          string
	SizeBytes         int64
	IsResolutionProof bool
	CreatedAt         time.Time
}
