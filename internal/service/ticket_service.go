package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/access"
	"github.com/maptech/stf-service/internal/chat"
	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/events"
	"github.com/maptech/stf-service/internal/repository"
	"github.com/maptech/stf-service/pkg/util"
)

// Broadcaster pushes frames to live chat connections. The hub satisfies
// it in production; tests substitute an in-memory fake.
type Broadcaster interface {
	Broadcast(ticketID string, channel domain.ChannelType, frame chat.Frame)
	ForceDisconnectUser(ticketID, userID, reason string)
}

var bothChannels = []domain.ChannelType{domain.ChannelClientEmployee, domain.ChannelAdminEmployee}

// TicketServiceDependencies wires the lifecycle machine.
type TicketServiceDependencies struct {
	Tickets     repository.TicketRepository
	Users       repository.UserRepository
	Sequences   repository.SequenceRepository
	Escalations repository.EscalationRepository
	Surveys     repository.CSATRepository
	Attachments repository.AttachmentRepository
	Tasks       repository.TaskRepository
	Templates   repository.TemplateRepository
	Sessions    *SessionManager
	Chat        *ChatService
	Bus         Broadcaster
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketService is the ticket lifecycle state machine. Every transition
// runs all its checks before any write; a rejection leaves no partial
// state behind.
type TicketService struct {
	deps TicketServiceDependencies
}

// NewTicketService creates the lifecycle service.
func NewTicketService(deps TicketServiceDependencies) *TicketService {
	return &TicketService{deps: deps}
}

// CreateTicketInput is the client intake block.
type CreateTicketInput struct {
	Title         string
	Description   string
	ClientName    string
	Organization  string
	ContactPerson string
	Designation   string
	MobileNo      string
	LandlineNo    string
	ServiceTypeID *string
}

// EmployeeFieldsInput is a partial patch of the employee-owned block.
type EmployeeFieldsInput struct {
	HasWarranty     *bool
	Product         *string
	Brand           *string
	ModelName       *string
	DeviceEquipment *string
	VersionNo       *string
	DatePurchased   *time.Time
	SerialNo        *string
	ActionTaken     *string
	Remarks         *string
	JobStatus       *string
}

// ReviewInput carries the optional priority set during admin review.
type ReviewInput struct {
	Priority *domain.TicketPriority
}

// EscalateExternalInput names the external party receiving the ticket.
type EscalateExternalInput struct {
	EscalatedTo string
	Note        string
}

// CSATInput is the client feedback survey body.
type CSATInput struct {
	Rating            int
	Comments          string
	HasOtherConcerns  bool
	OtherConcernsText string
}

// AttachmentInput is uploaded file metadata; the bytes live elsewhere.
type AttachmentInput struct {
	FileName          string
	StorageKey        string
	MimeType          string
	SizeBytes         int64
	IsResolutionProof bool
}

// ListTicketsInput narrows the role-scoped listing.
type ListTicketsInput struct {
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// Create opens a new ticket from client intake fields and assigns its
// business number.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input CreateTicketInput) (*domain.Ticket, error) {
	// Admin-level users may open tickets on behalf of clients phoning in.
	if actor.Role != domain.RoleClient && !actor.Role.IsAdminLevel() {
		return nil, util.NewForbidden("only clients or admin staff can open tickets")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, util.NewValidationError("title is required", nil)
	}

	now := time.Now()
	seq, err := s.deps.Sequences.Next(ctx, now)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	ticket := &domain.Ticket{
		StfNo:         domain.FormatStfNo(now, seq),
		Status:        domain.TicketStatusOpen,
		Title:         input.Title,
		Description:   input.Description,
		ClientName:    input.ClientName,
		Organization:  input.Organization,
		ContactPerson: input.ContactPerson,
		Designation:   input.Designation,
		MobileNo:      input.MobileNo,
		LandlineNo:    input.LandlineNo,
		ServiceTypeID: input.ServiceTypeID,
		CreatedByID:   actor.ID,
	}
	if err := s.deps.Tickets.Create(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	s.publish(ctx, actor, ticket.ID, events.EventTicketCreated, events.TicketCreatedPayload{
		StfNo: ticket.StfNo,
		Title: ticket.Title,
	})
	s.deps.Logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("stf_no", ticket.StfNo))
	return ticket, nil
}

// Get loads a ticket the actor may view.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.loadFor(ctx, actor, ticketID, access.ActionViewTicket)
}

// List returns tickets scoped to the actor's role: clients see their
// own, employees their assignments, admin-level users everything.
func (s *TicketService) List(ctx context.Context, actor *domain.User, input ListTicketsInput) ([]domain.Ticket, error) {
	for _, status := range input.Statuses {
		if !domain.ValidTicketStatus(status) {
			return nil, util.NewValidationError("unknown status", map[string]any{"status": status})
		}
	}

	filter := s.scopedFilter(actor)
	filter.Statuses = input.Statuses
	filter.Limit = input.Limit
	filter.Offset = input.Offset

	tickets, err := s.deps.Tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	return tickets, nil
}

// Stats returns per-status ticket counts under the actor's scope.
func (s *TicketService) Stats(ctx context.Context, actor *domain.User) (map[domain.TicketStatus]int64, error) {
	counts, err := s.deps.Tickets.StatusCounts(ctx, s.scopedFilter(actor))
	if err != nil {
		return nil, util.MapError(err)
	}
	return counts, nil
}

// Assign puts a ticket in the hands of an employee. Reassignment rotates
// the session, notifies both channels and revokes the prior employee's
// live connections.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, employeeID string) (*domain.Ticket, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionAssign)
	if err != nil {
		return nil, err
	}
	if err := s.rejectTerminal(ticket); err != nil {
		return nil, err
	}

	employee, err := s.deps.Users.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("employee", map[string]any{"employee_id": employeeID})
		}
		return nil, util.MapError(err)
	}
	if employee.Role != domain.RoleEmployee {
		return nil, util.NewValidationError("assignee must have the employee role", nil)
	}

	var prev *domain.User
	if ticket.AssignedTo != nil && *ticket.AssignedTo != employee.ID {
		if prev, err = s.deps.Users.GetByID(ctx, *ticket.AssignedTo); err != nil {
			return nil, util.MapError(err)
		}
	}
	prevID := ticket.AssignedTo

	session, err := s.deps.Sessions.Rotate(ctx, ticket, employee.ID)
	if err != nil {
		return nil, util.MapError(err)
	}

	oldStatus := ticket.Status
	if ticket.Status == domain.TicketStatusEscalated {
		ticket.Status = domain.TicketStatusInProgress
	}
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	if prev != nil {
		s.announce(ctx, actor, ticket, session.ID,
			fmt.Sprintf("Employee changed from %s to %s", prev.DisplayName(), employee.DisplayName()))
		s.deps.Bus.ForceDisconnectUser(ticket.ID, prev.ID, "ticket reassigned")
	}

	s.publish(ctx, actor, ticket.ID, events.EventTicketAssigned, events.TicketAssignedPayload{
		EmployeeID:   employee.ID,
		PrevEmployee: prevID,
		SessionID:    session.ID,
	})
	s.publishStatusChange(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

// UpdateEmployeeFields patches the employee-owned product/service block.
// The first employee edit moves an open ticket to in_progress.
func (s *TicketService) UpdateEmployeeFields(ctx context.Context, actor *domain.User, ticketID string, input EmployeeFieldsInput) (*domain.Ticket, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionUpdateEmployeeFields)
	if err != nil {
		return nil, err
	}

	applyEmployeeFields(ticket, input)
	oldStatus := ticket.Status
	if ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
	}
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}
	s.publishStatusChange(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

// Escalate hands the ticket back to the admin pool: the session ends,
// the employee is unassigned and the status moves to escalated.
func (s *TicketService) Escalate(ctx context.Context, actor *domain.User, ticketID, notes string) (*domain.Ticket, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionEscalate)
	if err != nil {
		return nil, err
	}
	if err := s.rejectTerminal(ticket); err != nil {
		return nil, err
	}

	// The notice lands in the session being escalated away from, so it
	// has to be written before that session ends.
	if session, err := s.deps.Sessions.EnsureSession(ctx, ticket); err == nil && session != nil {
		s.announce(ctx, actor, ticket, session.ID,
			fmt.Sprintf("%s escalated this ticket internally.", actor.DisplayName()))
	}

	entry := &domain.EscalationLog{
		TicketID:       ticket.ID,
		EscalationType: domain.EscalationInternal,
		FromUserID:     actor.ID,
		Notes:          notes,
	}
	if err := s.deps.Escalations.Create(ctx, entry); err != nil {
		return nil, util.MapError(err)
	}

	if err := s.deps.Sessions.End(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusEscalated
	ticket.AssignedTo = nil
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	s.publish(ctx, actor, ticket.ID, events.EventTicketEscalated, events.TicketEscalatedPayload{
		EscalationType: domain.EscalationInternal,
		Notes:          notes,
	})
	s.publishStatusChange(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

// PassTicket hands the assignment directly to another employee without
// going through the admin pool.
func (s *TicketService) PassTicket(ctx context.Context, actor *domain.User, ticketID, targetID string) (*domain.Ticket, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionPassTicket)
	if err != nil {
		return nil, err
	}
	if err := s.rejectTerminal(ticket); err != nil {
		return nil, err
	}
	if targetID == actor.ID {
		return nil, util.NewValidationError("cannot pass a ticket to yourself", nil)
	}

	target, err := s.deps.Users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("employee", map[string]any{"employee_id": targetID})
		}
		return nil, util.MapError(err)
	}
	if target.Role != domain.RoleEmployee {
		return nil, util.NewValidationError("target must have the employee role", nil)
	}

	session, err := s.deps.Sessions.Rotate(ctx, ticket, target.ID)
	if err != nil {
		return nil, util.MapError(err)
	}

	entry := &domain.EscalationLog{
		TicketID:       ticket.ID,
		EscalationType: domain.EscalationInternal,
		FromUserID:     actor.ID,
		ToUserID:       &target.ID,
	}
	if err := s.deps.Escalations.Create(ctx, entry); err != nil {
		return nil, util.MapError(err)
	}

	s.announce(ctx, actor, ticket, session.ID,
		fmt.Sprintf("Ticket passed from %s to %s", actor.DisplayName(), target.DisplayName()))
	s.deps.Bus.ForceDisconnectUser(ticket.ID, actor.ID, "ticket passed to another employee")

	s.publish(ctx, actor, ticket.ID, events.EventTicketAssigned, events.TicketAssignedPayload{
		EmployeeID:    target.ID,
		PrevEmployee:  &actor.ID,
		SessionID:     session.ID,
		PassedByPrior: true,
	})
	return ticket, nil
}

// EscalateExternal hands the ticket to an outside party. The status is
// terminal: no transition leads back from escalated_external.
func (s *TicketService) EscalateExternal(ctx context.Context, actor *domain.User, ticketID string, input EscalateExternalInput) (*domain.Ticket, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionEscalateExternal)
	if err != nil {
		return nil, err
	}
	if err := s.rejectTerminal(ticket); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.EscalatedTo) == "" {
		return nil, util.NewValidationError("escalated_to is required", nil)
	}

	entry := &domain.EscalationLog{
		TicketID:       ticket.ID,
		EscalationType: domain.EscalationExternal,
		FromUserID:     actor.ID,
		ToExternal:     input.EscalatedTo,
		Notes:          input.Note,
	}
	if err := s.deps.Escalations.Create(ctx, entry); err != nil {
		return nil, util.MapError(err)
	}

	now := time.Now()
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusEscalatedExternal
	ticket.ExternalEscalatedTo = input.EscalatedTo
	ticket.ExternalEscalationNote = input.Note
	ticket.ExternalEscalatedAt = &now
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	if session, err := s.deps.Sessions.EnsureSession(ctx, ticket); err == nil && session != nil {
		s.announce(ctx, actor, ticket, session.ID,
			fmt.Sprintf("Ticket escalated externally to %s by %s.", input.EscalatedTo, actor.DisplayName()))
	}

	s.publish(ctx, actor, ticket.ID, events.EventTicketEscalatedExternal, events.TicketEscalatedPayload{
		EscalationType: domain.EscalationExternal,
		ToExternal:     input.EscalatedTo,
		Notes:          input.Note,
	})
	s.publishStatusChange(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

// Review stamps time_in on the first review and optionally sets priority.
func (s *TicketService) Review(ctx context.Context, actor *domain.User, ticketID string, input ReviewInput) (*domain.Ticket, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionReview)
	if err != nil {
		return nil, err
	}
	if input.Priority != nil && !domain.ValidPriority(*input.Priority) {
		return nil, util.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
	}

	if ticket.TimeIn == nil {
		now := time.Now()
		ticket.TimeIn = &now
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}
	return ticket, nil
}

// Confirm marks the ticket as admin-confirmed. Idempotent.
func (s *TicketService) Confirm(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionConfirmTicket)
	if err != nil {
		return nil, err
	}
	if ticket.ConfirmedByAdmin {
		return ticket, nil
	}
	ticket.ConfirmedByAdmin = true
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}
	return ticket, nil
}

// RequestClosure moves a ticket to pending_feedback once resolution
// proof is on file.
func (s *TicketService) RequestClosure(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionRequestClosure)
	if err != nil {
		return nil, err
	}
	switch ticket.Status {
	case domain.TicketStatusOpen, domain.TicketStatusInProgress:
	default:
		return nil, util.NewPreconditionFailed("ticket is not in a closable state",
			map[string]any{"status": ticket.Status})
	}

	hasProof, err := s.deps.Attachments.HasResolutionProof(ctx, ticket.ID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if !hasProof {
		return nil, util.NewPreconditionFailed("resolution proof required", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusPendingFeedback
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	if session, err := s.deps.Sessions.EnsureSession(ctx, ticket); err == nil && session != nil {
		s.announce(ctx, actor, ticket, session.ID,
			fmt.Sprintf("%s marked this ticket as resolved and requested client feedback.", actor.DisplayName()))
	}
	s.publishStatusChange(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

// SubmitCSAT records the client survey and moves the ticket to
// pending_closure. One survey per ticket, rating within [1,5].
func (s *TicketService) SubmitCSAT(ctx context.Context, actor *domain.User, ticketID string, input CSATInput) (*domain.CSATSurvey, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionSubmitCSAT)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusPendingFeedback {
		return nil, util.NewPreconditionFailed("ticket is not awaiting feedback",
			map[string]any{"status": ticket.Status})
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, util.NewValidationError("rating must be between 1 and 5",
			map[string]any{"rating": input.Rating})
	}
	exists, err := s.deps.Surveys.ExistsForTicket(ctx, ticket.ID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if exists {
		return nil, util.NewPreconditionFailed("feedback already submitted", nil)
	}

	survey := &domain.CSATSurvey{
		TicketID:          ticket.ID,
		Rating:            input.Rating,
		Comments:          input.Comments,
		HasOtherConcerns:  input.HasOtherConcerns,
		OtherConcernsText: input.OtherConcernsText,
	}
	if err := s.deps.Surveys.Create(ctx, survey); err != nil {
		return nil, util.MapError(err)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusPendingClosure
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	s.publish(ctx, actor, ticket.ID, events.EventCSATSubmitted, events.CSATSubmittedPayload{
		SurveyID: survey.ID,
		Rating:   survey.Rating,
	})
	s.publishStatusChange(ctx, actor, ticket, oldStatus)
	return survey, nil
}

// Close finishes the ticket. Requires resolution proof and a submitted
// survey; ends the active session and stamps time_out.
func (s *TicketService) Close(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionCloseTicket)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, util.NewPreconditionFailed("ticket already closed", nil)
	}

	hasProof, err := s.deps.Attachments.HasResolutionProof(ctx, ticket.ID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if !hasProof {
		return nil, util.NewPreconditionFailed("resolution proof required", nil)
	}
	hasSurvey, err := s.deps.Surveys.ExistsForTicket(ctx, ticket.ID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if !hasSurvey {
		return nil, util.NewPreconditionFailed("client feedback required", nil)
	}

	// Announce in the closing session before it ends.
	if session, err := s.deps.Sessions.EnsureSession(ctx, ticket); err == nil && session != nil {
		s.announce(ctx, actor, ticket, session.ID,
			fmt.Sprintf("Ticket closed by %s.", actor.DisplayName()))
	}

	if err := s.deps.Sessions.End(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	now := time.Now()
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusClosed
	ticket.TimeOut = &now
	if err := s.deps.Tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	s.publish(ctx, actor, ticket.ID, events.EventTicketClosed, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: ticket.Status,
	})
	return ticket, nil
}

// ListMessages returns ticket chat history for REST readers. Clients are
// confined to the client lane regardless of the requested filter;
// currentOnly narrows to the active session.
func (s *TicketService) ListMessages(ctx context.Context, actor *domain.User, ticketID string, channel *domain.ChannelType, currentOnly bool) ([]chat.MessagePayload, error) {
	ticket, err := s.loadFor(ctx, actor, ticketID, access.ActionViewMessages)
	if err != nil {
		return nil, err
	}

	if actor.Role == domain.RoleClient {
		clientLane := domain.ChannelClientEmployee
		channel = &clientLane
	}
	if channel != nil && !domain.ValidChannelType(*channel) {
		return nil, util.NewValidationError("unknown channel type", map[string]any{"channel_type": *channel})
	}

	filter := repository.MessageFilter{ChannelType: channel}
	if currentOnly {
		session, err := s.deps.Sessions.EnsureSession(ctx, ticket)
		if err != nil {
			return nil, util.MapError(err)
		}
		if session == nil {
			return []chat.MessagePayload{}, nil
		}
		filter.SessionID = &session.ID
	}
	return s.deps.Chat.History(ctx, ticket.ID, filter)
}

// AssignmentHistory lists a ticket's sessions, newest first. Clients
// never see session records.
func (s *TicketService) AssignmentHistory(ctx context.Context, actor *domain.User, ticketID string) ([]domain.AssignmentSession, error) {
	if _, err := s.loadFor(ctx, actor, ticketID, access.ActionViewAssignmentHistory); err != nil {
		return nil, err
	}
	sessions, err := s.deps.Sessions.History(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return sessions, nil
}

// ListEscalations returns the escalation audit trail: admins see all
// entries, employees the ones they took part in.
func (s *TicketService) ListEscalations(ctx context.Context, actor *domain.User) ([]domain.EscalationLog, error) {
	switch {
	case actor.Role.IsAdminLevel():
		entries, err := s.deps.Escalations.ListAll(ctx)
		return entries, util.MapError(err)
	case actor.Role == domain.RoleEmployee:
		entries, err := s.deps.Escalations.ListByUser(ctx, actor.ID)
		return entries, util.MapError(err)
	default:
		return nil, util.NewForbidden("escalation logs are staff-only")
	}
}

// SurveyForTicket reads the CSAT survey of a ticket the actor may view.
func (s *TicketService) SurveyForTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.CSATSurvey, error) {
	if _, err := s.loadFor(ctx, actor, ticketID, access.ActionViewTicket); err != nil {
		return nil, err
	}
	survey, err := s.deps.Surveys.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("survey", map[string]any{"ticket_id": ticketID})
		}
		return nil, util.MapError(err)
	}
	return survey, nil
}

// ListSurveys returns all surveys. Admin-level only.
func (s *TicketService) ListSurveys(ctx context.Context, actor *domain.User) ([]domain.CSATSurvey, error) {
	if !actor.Role.IsAdminLevel() {
		return nil, util.NewForbidden("surveys are admin-only")
	}
	surveys, err := s.deps.Surveys.ListAll(ctx)
	return surveys, util.MapError(err)
}

// AddAttachment records attachment metadata. Resolution proof uploads
// are gated tighter than ordinary ones.
func (s *TicketService) AddAttachment(ctx context.Context, actor *domain.User, ticketID string, input AttachmentInput) (*domain.TicketAttachment, error) {
	action := access.ActionUploadAttachment
	if input.IsResolutionProof {
		action = access.ActionUploadResolutionProof
	}
	ticket, err := s.loadFor(ctx, actor, ticketID, action)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FileName) == "" {
		return nil, util.NewValidationError("file_name is required", nil)
	}

	att := &domain.TicketAttachment{
		TicketID:          ticket.ID,
		UploadedByID:      actor.ID,
		FileName:          input.FileName,
		StorageKey:        input.StorageKey,
		MimeType:          input.MimeType,
		SizeBytes:         input.SizeBytes,
		IsResolutionProof: input.IsResolutionProof,
	}
	if err := s.deps.Attachments.Create(ctx, att); err != nil {
		return nil, util.MapError(err)
	}
	return att, nil
}

// ListAttachments returns a ticket's attachment metadata.
func (s *TicketService) ListAttachments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketAttachment, error) {
	if _, err := s.loadFor(ctx, actor, ticketID, access.ActionViewTicket); err != nil {
		return nil, err
	}
	atts, err := s.deps.Attachments.ListByTicket(ctx, ticketID)
	return atts, util.MapError(err)
}

// DeleteAttachment removes attachment metadata from a ticket.
func (s *TicketService) DeleteAttachment(ctx context.Context, actor *domain.User, ticketID, attachmentID string) error {
	if _, err := s.loadFor(ctx, actor, ticketID, access.ActionDeleteAttachment); err != nil {
		return err
	}
	att, err := s.deps.Attachments.GetByID(ctx, attachmentID)
	if err != nil || att.TicketID != ticketID {
		return util.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
	}
	return util.MapError(s.deps.Attachments.Delete(ctx, attachmentID))
}

// CreateTasksFromTemplate seeds checklist items from an admin template,
// one task per non-blank line of the template's steps.
func (s *TicketService) CreateTasksFromTemplate(ctx context.Context, actor *domain.User, ticketID, templateID string) ([]domain.TicketTask, error) {
	if !actor.Role.IsAdminLevel() {
		return nil, util.NewForbidden("task creation is admin-only")
	}
	ticket, err := s.deps.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}

	tpl, err := s.deps.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("template", map[string]any{"template_id": templateID})
		}
		return nil, util.MapError(err)
	}

	var created []domain.TicketTask
	for _, line := range strings.Split(tpl.Steps, "\n") {
		step := strings.TrimSpace(line)
		if step == "" {
			continue
		}
		task := domain.TicketTask{
			TicketID:    ticket.ID,
			Description: step,
			AssignedTo:  ticket.AssignedTo,
			Status:      domain.TaskStatusTodo,
		}
		if err := s.deps.Tasks.Create(ctx, &task); err != nil {
			return nil, util.MapError(err)
		}
		created = append(created, task)
	}
	return created, nil
}

// ListTasks returns a ticket's checklist.
func (s *TicketService) ListTasks(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketTask, error) {
	if _, err := s.loadFor(ctx, actor, ticketID, access.ActionViewTicket); err != nil {
		return nil, err
	}
	tasks, err := s.deps.Tasks.ListByTicket(ctx, ticketID)
	return tasks, util.MapError(err)
}

// UpdateTaskStatus moves one checklist item through its states.
func (s *TicketService) UpdateTaskStatus(ctx context.Context, actor *domain.User, ticketID, taskID string, status domain.TaskStatus) (*domain.TicketTask, error) {
	if _, err := s.loadFor(ctx, actor, ticketID, access.ActionUpdateTask); err != nil {
		return nil, err
	}
	if !domain.ValidTaskStatus(status) {
		return nil, util.NewValidationError("unknown task status", map[string]any{"status": status})
	}
	task, err := s.deps.Tasks.GetForTicket(ctx, ticketID, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return nil, util.MapError(err)
	}
	if err := s.deps.Tasks.UpdateStatus(ctx, taskID, status); err != nil {
		return nil, util.MapError(err)
	}
	task.Status = status
	return task, nil
}

// loadFor fetches the ticket and runs the access evaluator against the
// freshly loaded row, so revoked assignments are caught immediately.
func (s *TicketService) loadFor(ctx context.Context, actor *domain.User, ticketID string, action access.Action) (*domain.Ticket, error) {
	ticket, err := s.deps.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, util.MapError(err)
	}
	if !access.Allowed(actor, action, ticket) {
		return nil, util.NewForbidden("not allowed for this ticket")
	}
	return ticket, nil
}

func (s *TicketService) scopedFilter(actor *domain.User) repository.TicketFilter {
	var filter repository.TicketFilter
	switch actor.Role {
	case domain.RoleClient:
		filter.CreatedByID = &actor.ID
	case domain.RoleEmployee:
		filter.AssignedTo = &actor.ID
	}
	return filter
}

// rejectTerminal refuses transitions out of terminal states. The
// external escalation status intentionally has no way back.
func (s *TicketService) rejectTerminal(ticket *domain.Ticket) error {
	switch ticket.Status {
	case domain.TicketStatusClosed, domain.TicketStatusEscalatedExternal:
		return util.NewPreconditionFailed("ticket is in a terminal state",
			map[string]any{"status": ticket.Status})
	}
	return nil
}

// announce persists a system message in both channels of the session and
// broadcasts each through the bus.
func (s *TicketService) announce(ctx context.Context, actor *domain.User, ticket *domain.Ticket, sessionID, content string) {
	for _, channel := range bothChannels {
		payload, err := s.deps.Chat.SaveSystemMessage(ctx, actor, ticket.ID, sessionID, channel, content)
		if err != nil {
			s.deps.Logger.Warn("persist system message",
				zap.String("ticket_id", ticket.ID),
				zap.String("channel", string(channel)),
				zap.Error(err))
			continue
		}
		s.deps.Bus.Broadcast(ticket.ID, channel, chat.NewMessageFrame(*payload))
		s.publish(ctx, actor, ticket.ID, events.EventChatMessageSent, events.ChatMessageSentPayload{
			MessageID:   payload.ID,
			ChannelType: channel,
			SessionID:   sessionID,
			IsSystem:    true,
		})
	}
}

func (s *TicketService) publish(ctx context.Context, actor *domain.User, ticketID string, eventType events.EventType, payload interface{}) {
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload:   payload,
	}
	if err := s.deps.Dispatcher.Publish(ctx, event); err != nil {
		s.deps.Logger.Warn("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func (s *TicketService) publishStatusChange(ctx context.Context, actor *domain.User, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	if oldStatus == ticket.Status {
		return
	}
	s.publish(ctx, actor, ticket.ID, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: ticket.Status,
	})
}

func applyEmployeeFields(ticket *domain.Ticket, input EmployeeFieldsInput) {
	if input.HasWarranty != nil {
		ticket.HasWarranty = input.HasWarranty
	}
	if input.Product != nil {
		ticket.Product = *input.Product
	}
	if input.Brand != nil {
		ticket.Brand = *input.Brand
	}
	if input.ModelName != nil {
		ticket.ModelName = *input.ModelName
	}
	if input.DeviceEquipment != nil {
		ticket.DeviceEquipment = *input.DeviceEquipment
	}
	if input.VersionNo != nil {
		ticket.VersionNo = *input.VersionNo
	}
	if input.DatePurchased != nil {
		ticket.DatePurchased = input.DatePurchased
	}
	if input.SerialNo != nil {
		ticket.SerialNo = *input.SerialNo
	}
	if input.ActionTaken != nil {
		ticket.ActionTaken = *input.ActionTaken
	}
	if input.Remarks != nil {
		ticket.Remarks = *input.Remarks
	}
	if input.JobStatus != nil {
		ticket.JobStatus = *input.JobStatus
	}
}
