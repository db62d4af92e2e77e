package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maptech/stf-service/internal/api/http/handlers"
	"github.com/maptech/stf-service/internal/auth"
	"github.com/maptech/stf-service/internal/domain"
)

// RouterDependencies bundles everything the route table needs.
type RouterDependencies struct {
	Auth        *auth.Middleware
	Health      *handlers.HealthHandler
	Users       *handlers.UserHandler
	Tickets     *handlers.TicketHandler
	CSAT        *handlers.CSATHandler
	Escalations *handlers.EscalationHandler
	Records     *handlers.RecordHandler
	Chat        *handlers.ChatHandler
}

// RegisterRoutes wires the REST and websocket surface onto the app.
func RegisterRoutes(app *fiber.App, deps RouterDependencies) {
	app.Get("/healthz", deps.Health.Live)
	app.Get("/readyz", deps.Health.Ready)

	api := app.Group("/api/v1")

	api.Post("/auth/register", deps.Users.Register)
	api.Post("/auth/login", deps.Users.Login)

	authed := api.Group("", deps.Auth.Require())
	authed.Get("/me", deps.Users.Me)
	authed.Get("/employees", deps.Users.ListEmployees)

	tickets := authed.Group("/tickets")
	tickets.Post("", deps.Tickets.Create)
	tickets.Get("", deps.Tickets.List)
	tickets.Get("/stats", deps.Tickets.Stats)
	tickets.Get("/:id", deps.Tickets.Get)
	tickets.Patch("/:id/employee-fields", deps.Tickets.UpdateEmployeeFields)
	tickets.Post("/:id/assign", auth.RequireAdminLevel(), deps.Tickets.Assign)
	tickets.Post("/:id/escalate", auth.RequireRole(domain.RoleEmployee), deps.Tickets.Escalate)
	tickets.Post("/:id/pass", auth.RequireRole(domain.RoleEmployee), deps.Tickets.Pass)
	tickets.Post("/:id/review", auth.RequireAdminLevel(), deps.Tickets.Review)
	tickets.Post("/:id/confirm", auth.RequireAdminLevel(), deps.Tickets.Confirm)
	tickets.Post("/:id/escalate-external", deps.Tickets.EscalateExternal)
	tickets.Post("/:id/request-closure", auth.RequireRole(domain.RoleEmployee), deps.Tickets.RequestClosure)
	tickets.Post("/:id/close", auth.RequireAdminLevel(), deps.Tickets.Close)
	tickets.Get("/:id/messages", deps.Tickets.Messages)
	tickets.Get("/:id/assignment-history", deps.Tickets.AssignmentHistory)
	tickets.Post("/:id/attachments", deps.Tickets.AddAttachment)
	tickets.Get("/:id/attachments", deps.Tickets.ListAttachments)
	tickets.Delete("/:id/attachments/:attID", deps.Tickets.DeleteAttachment)
	tickets.Post("/:id/tasks", auth.RequireAdminLevel(), deps.Tickets.CreateTasks)
	tickets.Get("/:id/tasks", deps.Tickets.ListTasks)
	tickets.Patch("/:id/tasks/:taskID", deps.Tickets.UpdateTask)

	authed.Post("/csat", deps.CSAT.Submit)
	authed.Get("/csat", auth.RequireAdminLevel(), deps.CSAT.List)
	authed.Get("/csat/ticket/:ticketID", deps.CSAT.ForTicket)

	authed.Get("/escalations", deps.Escalations.List)

	authed.Post("/service-types", auth.RequireAdminLevel(), deps.Records.CreateServiceType)
	authed.Patch("/service-types/:id", auth.RequireAdminLevel(), deps.Records.UpdateServiceType)
	authed.Get("/service-types", deps.Records.ListServiceTypes)
	authed.Post("/templates", auth.RequireAdminLevel(), deps.Records.CreateTemplate)
	authed.Get("/templates", deps.Records.ListTemplates)

	// Browsers cannot send headers on upgrade requests, so the auth
	// middleware also accepts ?token= here.
	app.Get("/ws/chat/:ticketID/:channelType",
		deps.Auth.Require(), deps.Chat.Upgrade, deps.Chat.Serve())
}
