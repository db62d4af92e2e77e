// Package access holds the pure authorization evaluator deciding, per
// action and per role, who may observe or mutate ticket state and chat
// history. It performs no I/O and must be re-evaluated on every request
// against a freshly loaded ticket, so that reassignment immediately
// revokes a former employee's access.
package access

import "github.com/maptech/stf-service/internal/domain"

// Action identifies a role-gated operation on a ticket.
type Action string

const (
	ActionViewTicket            Action = "view_ticket"
	ActionAssign                Action = "assign"
	ActionReview                Action = "review"
	ActionConfirmTicket         Action = "confirm_ticket"
	ActionCloseTicket           Action = "close_ticket"
	ActionEscalate              Action = "escalate"
	ActionPassTicket            Action = "pass_ticket"
	ActionUpdateEmployeeFields  Action = "update_employee_fields"
	ActionRequestClosure        Action = "request_closure"
	ActionEscalateExternal      Action = "escalate_external"
	ActionUploadResolutionProof Action = "upload_resolution_proof"
	ActionUpdateTask            Action = "update_task"
	ActionUploadAttachment      Action = "upload_attachment"
	ActionDeleteAttachment      Action = "delete_attachment"
	ActionSubmitCSAT            Action = "submit_csat"
	ActionViewMessages          Action = "view_messages"
	ActionViewAssignmentHistory Action = "view_assignment_history"
	ActionJoinClientChannel     Action = "join_client_channel"
	ActionJoinAdminChannel      Action = "join_admin_channel"
)

// Allowed decides whether actor may perform action on ticket.
func Allowed(actor *domain.User, action Action, ticket *domain.Ticket) bool {
	if actor == nil || ticket == nil {
		return false
	}

	switch action {
	// Admin-level only.
	case ActionAssign, ActionReview, ActionConfirmTicket, ActionCloseTicket:
		return actor.Role.IsAdminLevel()

	// Currently assigned employee only.
	case ActionEscalate, ActionPassTicket, ActionUpdateEmployeeFields, ActionRequestClosure:
		return actor.Role == domain.RoleEmployee && ticket.IsAssignedTo(actor.ID)

	// Admin-level OR currently assigned employee.
	case ActionEscalateExternal, ActionUploadResolutionProof, ActionUpdateTask:
		return adminOrAssignee(actor, ticket)

	// Any ticket participant: creator, current assignee, or admin-level.
	case ActionViewTicket, ActionUploadAttachment, ActionDeleteAttachment,
		ActionViewMessages:
		return isParticipant(actor, ticket)

	// Ticket creator only.
	case ActionSubmitCSAT:
		return actor.Role == domain.RoleClient && ticket.CreatedByID == actor.ID

	// Admin-level or current assignee; clients never see session records.
	case ActionViewAssignmentHistory:
		return adminOrAssignee(actor, ticket)

	// Chat admission: the creator or the *currently* assigned employee
	// for the client lane; any admin-level user or the currently
	// assigned employee for the admin lane. An employee reassigned away
	// fails both checks on every new evaluation.
	case ActionJoinClientChannel:
		return ticket.CreatedByID == actor.ID || ticket.IsAssignedTo(actor.ID)
	case ActionJoinAdminChannel:
		return actor.Role.IsAdminLevel() || ticket.IsAssignedTo(actor.ID)
	}

	return false
}

// AllowedChannel maps a channel type to its admission decision.
func AllowedChannel(actor *domain.User, channel domain.ChannelType, ticket *domain.Ticket) bool {
	switch channel {
	case domain.ChannelClientEmployee:
		return Allowed(actor, ActionJoinClientChannel, ticket)
	case domain.ChannelAdminEmployee:
		return Allowed(actor, ActionJoinAdminChannel, ticket)
	}
	return false
}

func adminOrAssignee(actor *domain.User, ticket *domain.Ticket) bool {
	if actor.Role.IsAdminLevel() {
		return true
	}
	return actor.Role == domain.RoleEmployee && ticket.IsAssignedTo(actor.ID)
}

func isParticipant(actor *domain.User, ticket *domain.Ticket) bool {
	if actor.Role.IsAdminLevel() {
		return true
	}
	if actor.Role == domain.RoleEmployee && ticket.IsAssignedTo(actor.ID) {
		return true
	}
	return actor.Role == domain.RoleClient && ticket.CreatedByID == actor.ID
}
