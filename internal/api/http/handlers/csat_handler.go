package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maptech/stf-service/internal/api/dto"
	"github.com/maptech/stf-service/internal/auth"
	"github.com/maptech/stf-service/internal/service"
	"github.com/maptech/stf-service/pkg/util"
)

// CSATHandler serves the feedback-survey endpoints.
type CSATHandler struct {
	tickets *service.TicketService
}

// NewCSATHandler creates the handler.
func NewCSATHandler(tickets *service.TicketService) *CSATHandler {
	return &CSATHandler{tickets: tickets}
}

// Submit records the client survey and advances the ticket.
func (h *CSATHandler) Submit(c *fiber.Ctx) error {
	var req dto.CSATRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	if req.TicketID == "" {
		return util.NewValidationError("ticket_id is required", nil)
	}

	survey, err := h.tickets.SubmitCSAT(c.UserContext(), auth.CurrentUser(c), req.TicketID,
		service.CSATInput{
			Rating:            req.Rating,
			Comments:          req.Comments,
			HasOtherConcerns:  req.HasOtherConcerns,
			OtherConcernsText: req.OtherConcernsText,
		})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCSATResponse(survey))
}

// List returns all surveys for admins.
func (h *CSATHandler) List(c *fiber.Ctx) error {
	surveys, err := h.tickets.ListSurveys(c.UserContext(), auth.CurrentUser(c))
	if err != nil {
		return err
	}
	result := make([]dto.CSATResponse, 0, len(surveys))
	for i := range surveys {
		result = append(result, dto.NewCSATResponse(&surveys[i]))
	}
	return c.JSON(result)
}

// ForTicket returns one ticket's survey.
func (h *CSATHandler) ForTicket(c *fiber.Ctx) error {
	survey, err := h.tickets.SurveyForTicket(c.UserContext(), auth.CurrentUser(c), c.Params("ticketID"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCSATResponse(survey))
}
