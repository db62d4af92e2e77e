package dto

import "time"

// RegisterRequest is the signup body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest is the login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateTicketRequest carries the client intake fields.
type CreateTicketRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ClientName    string  `json:"client_name"`
	Organization  string  `json:"organization"`
	ContactPerson string  `json:"contact_person"`
	Designation   string  `json:"designation"`
	MobileNo      string  `json:"mobile_no"`
	LandlineNo    string  `json:"landline_no"`
	ServiceTypeID *string `json:"service_type_id"`
}

// EmployeeFieldsRequest patches the employee-owned block. Absent fields
// stay untouched.
type EmployeeFieldsRequest struct {
	HasWarranty     *bool      `json:"has_warranty"`
	Product         *string    `json:"product"`
	Brand           *string    `json:"brand"`
	ModelName       *string    `json:"model_name"`
	DeviceEquipment *string    `json:"device_equipment"`
	VersionNo       *string    `json:"version_no"`
	DatePurchased   *time.Time `json:"date_purchased"`
	SerialNo        *string    `json:"serial_no"`
	ActionTaken     *string    `json:"action_taken"`
	Remarks         *string    `json:"remarks"`
	JobStatus       *string    `json:"job_status"`
}

// AssignRequest names the employee receiving the ticket.
type AssignRequest struct {
	EmployeeID string `json:"employee_id"`
}

// EscalateRequest is the internal escalation body.
type EscalateRequest struct {
	Notes string `json:"notes"`
}

// PassTicketRequest names the employee the assignment is handed to.
type PassTicketRequest struct {
	EmployeeID string `json:"employee_id"`
}

// ReviewRequest optionally sets priority during admin review.
type ReviewRequest struct {
	Priority *string `json:"priority"`
}

// EscalateExternalRequest names the outside party.
type EscalateExternalRequest struct {
	EscalatedTo string `json:"escalated_to"`
	Note        string `json:"note"`
}

// CSATRequest is the client feedback survey body.
type CSATRequest struct {
	TicketID          string `json:"ticket_id"`
	Rating            int    `json:"rating"`
	Comments          string `json:"comments"`
	HasOtherConcerns  bool   `json:"has_other_concerns"`
	OtherConcernsText string `json:"other_concerns_text"`
}

// AttachmentRequest is uploaded file metadata.
type AttachmentRequest struct {
	FileName          string `json:"file_name"`
	StorageKey        string `json:"storage_key"`
	MimeType          string `json:"mime_type"`
	SizeBytes         int64  `json:"size_bytes"`
	IsResolutionProof bool   `json:"is_resolution_proof"`
}

// TaskStatusRequest moves a checklist item.
type TaskStatusRequest struct {
	Status string `json:"status"`
}

// TasksFromTemplateRequest seeds checklist items from a template.
type TasksFromTemplateRequest struct {
	TemplateID string `json:"template_id"`
}

// ServiceTypeRequest creates or updates an intake dropdown entry.
type ServiceTypeRequest struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

// TemplateRequest creates a task template.
type TemplateRequest struct {
	Name  string `json:"name"`
	Steps string `json:"steps"`
}
