package dto

import (
	"time"

	"github.com/maptech/stf-service/internal/domain"
)

// UserResponse is the public user shape.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
}

// NewUserResponse converts a user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
		Role:     string(u.Role),
	}
}

// AuthResponse is a successful login or registration.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// TicketResponse is the full hydrated ticket representation.
type TicketResponse struct {
	ID     string `json:"id"`
	StfNo  string `json:"stf_no"`
	Status string `json:"status"`

	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ClientName    string  `json:"client_name"`
	Organization  string  `json:"organization"`
	ContactPerson string  `json:"contact_person"`
	Designation   string  `json:"designation"`
	MobileNo      string  `json:"mobile_no"`
	LandlineNo    string  `json:"landline_no"`
	ServiceTypeID *string `json:"service_type_id"`

	HasWarranty     *bool      `json:"has_warranty"`
	Product         string     `json:"product"`
	Brand           string     `json:"brand"`
	ModelName       string     `json:"model_name"`
	DeviceEquipment string     `json:"device_equipment"`
	VersionNo       string     `json:"version_no"`
	DatePurchased   *time.Time `json:"date_purchased"`
	SerialNo        string     `json:"serial_no"`
	ActionTaken     string     `json:"action_taken"`
	Remarks         string     `json:"remarks"`
	JobStatus       string     `json:"job_status"`

	Priority         string     `json:"priority"`
	ConfirmedByAdmin bool       `json:"confirmed_by_admin"`
	TimeIn           *time.Time `json:"time_in"`
	TimeOut          *time.Time `json:"time_out"`

	ExternalEscalatedTo    string     `json:"external_escalated_to,omitempty"`
	ExternalEscalationNote string     `json:"external_escalation_note,omitempty"`
	ExternalEscalatedAt    *time.Time `json:"external_escalated_at,omitempty"`

	CreatedByID      string  `json:"created_by"`
	AssignedTo       *string `json:"assigned_to"`
	CurrentSessionID *string `json:"current_session_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTicketResponse converts a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                     t.ID,
		StfNo:                  t.StfNo,
		Status:                 string(t.Status),
		Title:                  t.Title,
		Description:            t.Description,
		ClientName:             t.ClientName,
		Organization:           t.Organization,
		ContactPerson:          t.ContactPerson,
		Designation:            t.Designation,
		MobileNo:               t.MobileNo,
		LandlineNo:             t.LandlineNo,
		ServiceTypeID:          t.ServiceTypeID,
		HasWarranty:            t.HasWarranty,
		Product:                t.Product,
		Brand:                  t.Brand,
		ModelName:              t.ModelName,
		DeviceEquipment:        t.DeviceEquipment,
		VersionNo:              t.VersionNo,
		DatePurchased:          t.DatePurchased,
		SerialNo:               t.SerialNo,
		ActionTaken:            t.ActionTaken,
		Remarks:                t.Remarks,
		JobStatus:              t.JobStatus,
		Priority:               string(t.Priority),
		ConfirmedByAdmin:       t.ConfirmedByAdmin,
		TimeIn:                 t.TimeIn,
		TimeOut:                t.TimeOut,
		ExternalEscalatedTo:    t.ExternalEscalatedTo,
		ExternalEscalationNote: t.ExternalEscalationNote,
		ExternalEscalatedAt:    t.ExternalEscalatedAt,
		CreatedByID:            t.CreatedByID,
		AssignedTo:             t.AssignedTo,
		CurrentSessionID:       t.CurrentSessionID,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
}

// NewTicketListResponse converts a ticket slice.
func NewTicketListResponse(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, NewTicketResponse(&tickets[i]))
	}
	return result
}

// SessionResponse is one assignment-history entry.
type SessionResponse struct {
	ID         string     `json:"id"`
	TicketID   string     `json:"ticket_id"`
	EmployeeID string     `json:"employee_id"`
	IsActive   bool       `json:"is_active"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`
}

// NewSessionListResponse converts sessions.
func NewSessionListResponse(sessions []domain.AssignmentSession) []SessionResponse {
	result := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, SessionResponse{
			ID:         s.ID,
			TicketID:   s.TicketID,
			EmployeeID: s.EmployeeID,
			IsActive:   s.IsActive,
			StartedAt:  s.StartedAt,
			EndedAt:    s.EndedAt,
		})
	}
	return result
}

// EscalationResponse is one audit-trail entry.
type EscalationResponse struct {
	ID             string    `json:"id"`
	TicketID       string    `json:"ticket_id"`
	EscalationType string    `json:"escalation_type"`
	FromUserID     string    `json:"from_user_id"`
	ToUserID       *string   `json:"to_user_id"`
	ToExternal     string    `json:"to_external,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewEscalationListResponse converts escalation logs.
func NewEscalationListResponse(entries []domain.EscalationLog) []EscalationResponse {
	result := make([]EscalationResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, EscalationResponse{
			ID:             e.ID,
			TicketID:       e.TicketID,
			EscalationType: string(e.EscalationType),
			FromUserID:     e.FromUserID,
			ToUserID:       e.ToUserID,
			ToExternal:     e.ToExternal,
			Notes:          e.Notes,
			CreatedAt:      e.CreatedAt,
		})
	}
	return result
}

// CSATResponse is a submitted survey.
type CSATResponse struct {
	ID                string    `json:"id"`
	TicketID          string    `json:"ticket_id"`
	Rating            int       `json:"rating"`
	Comments          string    `json:"comments"`
	HasOtherConcerns  bool      `json:"has_other_concerns"`
	OtherConcernsText string    `json:"other_concerns_text,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewCSATResponse converts a survey.
func NewCSATResponse(s *domain.CSATSurvey) CSATResponse {
	return CSATResponse{
		ID:                s.ID,
		TicketID:          s.TicketID,
		Rating:            s.Rating,
		Comments:          s.Comments,
		HasOtherConcerns:  s.HasOtherConcerns,
		OtherConcernsText: s.OtherConcernsText,
		CreatedAt:         s.CreatedAt,
	}
}

// AttachmentResponse is attachment metadata.
type AttachmentResponse struct {
	ID                string    `json:"id"`
	TicketID          string    `json:"ticket_id"`
	UploadedByID      string    `json:"uploaded_by"`
	FileName          string    `json:"file_name"`
	StorageKey        string    `json:"storage_key,omitempty"`
	MimeType          string    `json:"mime_type,omitempty"`
	SizeBytes         int64     `json:"size_bytes"`
	IsResolutionProof bool      `json:"is_resolution_proof"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewAttachmentResponse converts an attachment.
func NewAttachmentResponse(a *domain.TicketAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:                a.ID,
		TicketID:          a.TicketID,
		UploadedByID:      a.UploadedByID,
		FileName:          a.FileName,
		StorageKey:        a.StorageKey,
		MimeType:          a.MimeType,
		SizeBytes:         a.SizeBytes,
		IsResolutionProof: a.IsResolutionProof,
		CreatedAt:         a.CreatedAt,
	}
}

// TaskResponse is a checklist item.
type TaskResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Description string    `json:"description"`
	AssignedTo  *string   `json:"assigned_to"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTaskResponse converts a task.
func NewTaskResponse(t *domain.TicketTask) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		TicketID:    t.TicketID,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
	}
}

// ServiceTypeResponse is an intake dropdown entry.
type ServiceTypeResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewServiceTypeResponse converts a service type.
func NewServiceTypeResponse(st *domain.TypeOfService) ServiceTypeResponse {
	return ServiceTypeResponse{ID: st.ID, Name: st.Name, IsActive: st.IsActive, CreatedAt: st.CreatedAt}
}

// TemplateResponse is a task template.
type TemplateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Steps     string    `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTemplateResponse converts a template.
func NewTemplateResponse(t *domain.Template) TemplateResponse {
	return TemplateResponse{ID: t.ID, Name: t.Name, Steps: t.Steps, CreatedAt: t.CreatedAt}
}

// ErrorResponse is the uniform rejection body.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
