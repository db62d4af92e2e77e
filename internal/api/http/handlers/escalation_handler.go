package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maptech/stf-service/internal/api/dto"
	"github.com/maptech/stf-service/internal/auth"
	"github.com/maptech/stf-service/internal/service"
)

// EscalationHandler serves the escalation audit trail.
type EscalationHandler struct {
	tickets *service.TicketService
}

// NewEscalationHandler creates the handler.
func NewEscalationHandler(tickets *service.TicketService) *EscalationHandler {
	return &EscalationHandler{tickets: tickets}
}

// List returns escalation entries scoped to the caller.
func (h *EscalationHandler) List(c *fiber.Ctx) error {
	entries, err := h.tickets.ListEscalations(c.UserContext(), auth.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewEscalationListResponse(entries))
}
