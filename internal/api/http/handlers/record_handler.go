package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maptech/stf-service/internal/api/dto"
	"github.com/maptech/stf-service/internal/auth"
	"github.com/maptech/stf-service/internal/service"
	"github.com/maptech/stf-service/pkg/util"
)

// RecordHandler serves the lookup-record endpoints.
type RecordHandler struct {
	records *service.RecordService
}

// NewRecordHandler creates the handler.
func NewRecordHandler(records *service.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// CreateServiceType adds an intake dropdown entry.
func (h *RecordHandler) CreateServiceType(c *fiber.Ctx) error {
	var req dto.ServiceTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	st, err := h.records.CreateServiceType(c.UserContext(), auth.CurrentUser(c), req.Name, active)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewServiceTypeResponse(st))
}

// UpdateServiceType renames or toggles an entry.
func (h *RecordHandler) UpdateServiceType(c *fiber.Ctx) error {
	var req dto.ServiceTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	st, err := h.records.UpdateServiceType(c.UserContext(), auth.CurrentUser(c), c.Params("id"), req.Name, active)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewServiceTypeResponse(st))
}

// ListServiceTypes returns dropdown entries.
func (h *RecordHandler) ListServiceTypes(c *fiber.Ctx) error {
	records, err := h.records.ListServiceTypes(c.UserContext(), auth.CurrentUser(c))
	if err != nil {
		return err
	}
	result := make([]dto.ServiceTypeResponse, 0, len(records))
	for i := range records {
		result = append(result, dto.NewServiceTypeResponse(&records[i]))
	}
	return c.JSON(result)
}

// CreateTemplate adds a task template.
func (h *RecordHandler) CreateTemplate(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	tpl, err := h.records.CreateTemplate(c.UserContext(), auth.CurrentUser(c), req.Name, req.Steps)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTemplateResponse(tpl))
}

// ListTemplates returns task templates.
func (h *RecordHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.records.ListTemplates(c.UserContext(), auth.CurrentUser(c))
	if err != nil {
		return err
	}
	result := make([]dto.TemplateResponse, 0, len(templates))
	for i := range templates {
		result = append(result, dto.NewTemplateResponse(&templates[i]))
	}
	return c.JSON(result)
}
