package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/maptech/stf-service/internal/api/dto"
	"github.com/maptech/stf-service/internal/auth"
	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/service"
	"github.com/maptech/stf-service/pkg/util"
)

// TicketHandler serves the ticket lifecycle surface.
type TicketHandler struct {
	tickets *service.TicketService
}

// NewTicketHandler creates the handler.
func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// Create opens a ticket from client intake fields.
func (h *TicketHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	ticket, err := h.tickets.Create(c.UserContext(), auth.CurrentUser(c), service.CreateTicketInput{
		Title:         req.Title,
		Description:   req.Description,
		ClientName:    req.ClientName,
		Organization:  req.Organization,
		ContactPerson: req.ContactPerson,
		Designation:   req.Designation,
		MobileNo:      req.MobileNo,
		LandlineNo:    req.LandlineNo,
		ServiceTypeID: req.ServiceTypeID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTicketResponse(ticket))
}

// List returns role-scoped tickets, optionally filtered by status.
func (h *TicketHandler) List(c *fiber.Ctx) error {
	var statuses []domain.TicketStatus
	if raw := c.Query("status"); raw != "" {
		statuses = append(statuses, domain.TicketStatus(raw))
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	tickets, err := h.tickets.List(c.UserContext(), auth.CurrentUser(c), service.ListTicketsInput{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketListResponse(tickets))
}

// Stats returns per-status counts under the caller's scope.
func (h *TicketHandler) Stats(c *fiber.Ctx) error {
	counts, err := h.tickets.Stats(c.UserContext(), auth.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(counts)
}

// Get returns one ticket.
func (h *TicketHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), auth.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// UpdateEmployeeFields patches the employee-owned block.
func (h *TicketHandler) UpdateEmployeeFields(c *fiber.Ctx) error {
	var req dto.EmployeeFieldsRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	ticket, err := h.tickets.UpdateEmployeeFields(c.UserContext(), auth.CurrentUser(c), c.Params("id"),
		service.EmployeeFieldsInput{
			HasWarranty:     req.HasWarranty,
			Product:         req.Product,
			Brand:           req.Brand,
			ModelName:       req.ModelName,
			DeviceEquipment: req.DeviceEquipment,
			VersionNo:       req.VersionNo,
			DatePurchased:   req.DatePurchased,
			SerialNo:        req.SerialNo,
			ActionTaken:     req.ActionTaken,
			Remarks:         req.Remarks,
			JobStatus:       req.JobStatus,
		})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Assign puts the ticket in an employee's hands.
func (h *TicketHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	if req.EmployeeID == "" {
		return util.NewValidationError("employee_id is required", nil)
	}

	ticket, err := h.tickets.Assign(c.UserContext(), auth.CurrentUser(c), c.Params("id"), req.EmployeeID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Escalate hands the ticket back to the admin pool.
func (h *TicketHandler) Escalate(c *fiber.Ctx) error {
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	ticket, err := h.tickets.Escalate(c.UserContext(), auth.CurrentUser(c), c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Pass hands the assignment to another employee.
func (h *TicketHandler) Pass(c *fiber.Ctx) error {
	var req dto.PassTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	if req.EmployeeID == "" {
		return util.NewValidationError("employee_id is required", nil)
	}

	ticket, err := h.tickets.PassTicket(c.UserContext(), auth.CurrentUser(c), c.Params("id"), req.EmployeeID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Review stamps time_in and optionally sets priority.
func (h *TicketHandler) Review(c *fiber.Ctx) error {
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	var priority *domain.TicketPriority
	if req.Priority != nil {
		p := domain.TicketPriority(*req.Priority)
		priority = &p
	}
	ticket, err := h.tickets.Review(c.UserContext(), auth.CurrentUser(c), c.Params("id"),
		service.ReviewInput{Priority: priority})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Confirm marks the ticket admin-confirmed.
func (h *TicketHandler) Confirm(c *fiber.Ctx) error {
	ticket, err := h.tickets.Confirm(c.UserContext(), auth.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// EscalateExternal hands the ticket to an outside party.
func (h *TicketHandler) EscalateExternal(c *fiber.Ctx) error {
	var req dto.EscalateExternalRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	ticket, err := h.tickets.EscalateExternal(c.UserContext(), auth.CurrentUser(c), c.Params("id"),
		service.EscalateExternalInput{EscalatedTo: req.EscalatedTo, Note: req.Note})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// RequestClosure moves the ticket to pending_feedback.
func (h *TicketHandler) RequestClosure(c *fiber.Ctx) error {
	ticket, err := h.tickets.RequestClosure(c.UserContext(), auth.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Close finishes the ticket.
func (h *TicketHandler) Close(c *fiber.Ctx) error {
	ticket, err := h.tickets.Close(c.UserContext(), auth.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Messages returns chat history, optionally filtered by channel and
// narrowed to the current session.
func (h *TicketHandler) Messages(c *fiber.Ctx) error {
	var channel *domain.ChannelType
	if raw := c.Query("channel_type"); raw != "" {
		ct := domain.ChannelType(raw)
		channel = &ct
	}
	currentOnly := c.QueryBool("current_session")

	messages, err := h.tickets.ListMessages(c.UserContext(), auth.CurrentUser(c), c.Params("id"), channel, currentOnly)
	if err != nil {
		return err
	}
	return c.JSON(messages)
}

// AssignmentHistory lists the ticket's sessions.
func (h *TicketHandler) AssignmentHistory(c *fiber.Ctx) error {
	sessions, err := h.tickets.AssignmentHistory(c.UserContext(), auth.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSessionListResponse(sessions))
}

// AddAttachment records attachment metadata.
func (h *TicketHandler) AddAttachment(c *fiber.Ctx) error {
	var req dto.AttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	att, err := h.tickets.AddAttachment(c.UserContext(), auth.CurrentUser(c), c.Params("id"),
		service.AttachmentInput{
			FileName:          req.FileName,
			StorageKey:        req.StorageKey,
			MimeType:          req.MimeType,
			SizeBytes:         req.SizeBytes,
			IsResolutionProof: req.IsResolutionProof,
		})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAttachmentResponse(att))
}

// ListAttachments returns a ticket's attachment metadata.
func (h *TicketHandler) ListAttachments(c *fiber.Ctx) error {
	atts, err := h.tickets.ListAttachments(c.UserContext(), auth.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	result := make([]dto.AttachmentResponse, 0, len(atts))
	for i := range atts {
		result = append(result, dto.NewAttachmentResponse(&atts[i]))
	}
	return c.JSON(result)
}

// DeleteAttachment removes attachment metadata.
func (h *TicketHandler) DeleteAttachment(c *fiber.Ctx) error {
	if err := h.tickets.DeleteAttachment(c.UserContext(), auth.CurrentUser(c),
		c.Params("id"), c.Params("attID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateTasks seeds checklist items from a template.
func (h *TicketHandler) CreateTasks(c *fiber.Ctx) error {
	var req dto.TasksFromTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	if req.TemplateID == "" {
		return util.NewValidationError("template_id is required", nil)
	}

	tasks, err := h.tickets.CreateTasksFromTemplate(c.UserContext(), auth.CurrentUser(c), c.Params("id"), req.TemplateID)
	if err != nil {
		return err
	}
	result := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, dto.NewTaskResponse(&tasks[i]))
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ListTasks returns the ticket checklist.
func (h *TicketHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.tickets.ListTasks(c.UserContext(), auth.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	result := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, dto.NewTaskResponse(&tasks[i]))
	}
	return c.JSON(result)
}

// UpdateTask moves one checklist item.
func (h *TicketHandler) UpdateTask(c *fiber.Ctx) error {
	var req dto.TaskStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	task, err := h.tickets.UpdateTaskStatus(c.UserContext(), auth.CurrentUser(c),
		c.Params("id"), c.Params("taskID"), domain.TaskStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTaskResponse(task))
}
