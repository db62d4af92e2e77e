package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/events"
	"github.com/maptech/stf-service/pkg/util"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *util.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}

func createOpenTicket(t *testing.T, env *testEnv, client *domain.User) *domain.Ticket {
	t.Helper()
	ticket, err := env.tickets.Create(context.Background(), client, CreateTicketInput{
		Title:       "printer is down",
		Description: "paper jam on floor 3",
		ClientName:  "Acme Inc",
	})
	require.NoError(t, err)
	return ticket
}

func assignTo(t *testing.T, env *testEnv, admin *domain.User, ticketID, employeeID string) *domain.Ticket {
	t.Helper()
	ticket, err := env.tickets.Assign(context.Background(), admin, ticketID, employeeID)
	require.NoError(t, err)
	return ticket
}

func addProof(t *testing.T, env *testEnv, actor *domain.User, ticketID string) {
	t.Helper()
	_, err := env.tickets.AddAttachment(context.Background(), actor, ticketID, AttachmentInput{
		FileName:          "proof.jpg",
		StorageKey:        "s3://bucket/proof.jpg",
		MimeType:          "image/jpeg",
		SizeBytes:         1024,
		IsResolutionProof: true,
	})
	require.NoError(t, err)
}

func TestCreateAssignsDailySequence(t *testing.T) {
	env := newTestEnv()
	client := env.store.addUser("alice", domain.RoleClient)

	first := createOpenTicket(t, env, client)
	second := createOpenTicket(t, env, client)

	prefix := domain.StfNoPrefix + time.Now().Format("20060102")
	assert.Equal(t, prefix+"000001", first.StfNo)
	assert.Equal(t, prefix+"000002", second.StfNo)
	assert.Equal(t, domain.TicketStatusOpen, first.Status)
	assert.Nil(t, first.AssignedTo)
}

func TestCreateRejectsEmployeeAndBlankTitle(t *testing.T) {
	env := newTestEnv()
	employee := env.store.addUser("bob", domain.RoleEmployee)
	client := env.store.addUser("alice", domain.RoleClient)

	_, err := env.tickets.Create(context.Background(), employee, CreateTicketInput{Title: "x"})
	assertCode(t, err, "FORBIDDEN")

	_, err = env.tickets.Create(context.Background(), client, CreateTicketInput{Title: "   "})
	assertCode(t, err, "VALIDATION_FAILED")
}

// Admins take walk-in and phone-in reports, so intake is open to them
// as well as clients.
func TestCreateAdmitsAdminIntake(t *testing.T) {
	env := newTestEnv()
	admin := env.store.addUser("root", domain.RoleAdmin)

	ticket, err := env.tickets.Create(context.Background(), admin, CreateTicketInput{
		Title:      "phoned-in outage",
		ClientName: "Acme Inc",
	})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, ticket.CreatedByID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestAssignStartsSessionAndAnnouncesReassignment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)
	carol := env.store.addUser("carol", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)

	ticket = assignTo(t, env, admin, ticket.ID, bob.ID)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, bob.ID, *ticket.AssignedTo)
	require.NotNil(t, ticket.CurrentSessionID)
	firstSession := *ticket.CurrentSessionID

	// First assignment has no prior employee: no notice, no disconnect.
	assert.Empty(t, env.bus.broadcasts)
	assert.Empty(t, env.bus.disconnects)

	ticket = assignTo(t, env, admin, ticket.ID, carol.ID)
	assert.Equal(t, carol.ID, *ticket.AssignedTo)
	assert.NotEqual(t, firstSession, *ticket.CurrentSessionID)

	// The reassignment notice lands in both channels of the new session.
	require.Len(t, env.bus.broadcasts, 2)
	channels := map[domain.ChannelType]bool{}
	for _, b := range env.bus.broadcasts {
		channels[b.Channel] = true
		require.NotNil(t, b.Frame.Message)
		assert.Equal(t, "Employee changed from bob to carol", b.Frame.Message.Content)
		assert.True(t, b.Frame.Message.IsSystemMessage)
	}
	assert.True(t, channels[domain.ChannelClientEmployee])
	assert.True(t, channels[domain.ChannelAdminEmployee])

	require.Len(t, env.bus.disconnects, 1)
	assert.Equal(t, bob.ID, env.bus.disconnects[0].UserID)
	assert.Equal(t, "ticket reassigned", env.bus.disconnects[0].Reason)

	history, err := env.tickets.AssignmentHistory(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[1].IsActive)
	assert.NotNil(t, history[1].EndedAt)
}

func TestAssignRejectsNonEmployeeAndMissingUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	ticket := createOpenTicket(t, env, client)

	_, err := env.tickets.Assign(ctx, admin, ticket.ID, client.ID)
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = env.tickets.Assign(ctx, admin, ticket.ID, "nope")
	assertCode(t, err, "NOT_FOUND")
}

func TestReassignmentScopesChatToNewSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)
	carol := env.store.addUser("carol", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	ticket = assignTo(t, env, admin, ticket.ID, bob.ID)

	payload, err := env.chat.SaveUserMessage(ctx, client, ticket, domain.ChannelClientEmployee, "hello bob", nil)
	require.NoError(t, err)
	require.NotNil(t, payload)

	ticket = assignTo(t, env, admin, ticket.ID, carol.ID)

	// The joining payload for the new session excludes the old exchange
	// but includes the reassignment notice.
	current, err := env.chat.SessionHistory(ctx, ticket, domain.ChannelClientEmployee)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "Employee changed from bob to carol", current[0].Content)

	// Nothing was deleted: the full ticket history still holds the old
	// message for staff readers.
	all, err := env.tickets.ListMessages(ctx, admin, ticket.ID, nil, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "hello bob", all[0].Content)
}

func TestUpdateEmployeeFieldsMovesOpenToInProgress(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)

	product := "LaserJet 4000"
	warranty := true
	updated, err := env.tickets.UpdateEmployeeFields(ctx, bob, ticket.ID, EmployeeFieldsInput{
		Product:     &product,
		HasWarranty: &warranty,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, "LaserJet 4000", updated.Product)
	require.NotNil(t, updated.HasWarranty)
	assert.True(t, *updated.HasWarranty)

	// A second edit keeps in_progress and does not clobber other fields.
	brand := "HP"
	updated, err = env.tickets.UpdateEmployeeFields(ctx, bob, ticket.ID, EmployeeFieldsInput{Brand: &brand})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, "LaserJet 4000", updated.Product)
	assert.Equal(t, "HP", updated.Brand)
}

func TestUpdateEmployeeFieldsRejectsNonAssignee(t *testing.T) {
	env := newTestEnv()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)
	dan := env.store.addUser("dan", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)

	product := "router"
	_, err := env.tickets.UpdateEmployeeFields(context.Background(), dan, ticket.ID, EmployeeFieldsInput{Product: &product})
	assertCode(t, err, "FORBIDDEN")
}

func TestEscalateUnassignsAndEndsSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)

	escalated, err := env.tickets.Escalate(ctx, bob, ticket.ID, "needs networking team")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalated, escalated.Status)
	assert.Nil(t, escalated.AssignedTo)
	assert.Nil(t, escalated.CurrentSessionID)

	// The notice went out before the session ended.
	require.Len(t, env.bus.broadcasts, 2)
	assert.Equal(t, "bob escalated this ticket internally.", env.bus.broadcasts[0].Frame.Message.Content)

	logs, err := env.tickets.ListEscalations(ctx, admin)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.EscalationInternal, logs[0].EscalationType)
	assert.Equal(t, bob.ID, logs[0].FromUserID)
	assert.Equal(t, "needs networking team", logs[0].Notes)

	// Re-assigning an escalated ticket resumes work.
	reassigned := assignTo(t, env, admin, ticket.ID, bob.ID)
	assert.Equal(t, domain.TicketStatusInProgress, reassigned.Status)
}

func TestPassTicketHandsOverDirectly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)
	carol := env.store.addUser("carol", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)

	passed, err := env.tickets.PassTicket(ctx, bob, ticket.ID, carol.ID)
	require.NoError(t, err)
	require.NotNil(t, passed.AssignedTo)
	assert.Equal(t, carol.ID, *passed.AssignedTo)

	require.Len(t, env.bus.broadcasts, 2)
	assert.Equal(t, "Ticket passed from bob to carol", env.bus.broadcasts[0].Frame.Message.Content)
	require.Len(t, env.bus.disconnects, 1)
	assert.Equal(t, bob.ID, env.bus.disconnects[0].UserID)

	logs, err := env.tickets.ListEscalations(ctx, carol)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].ToUserID)
	assert.Equal(t, carol.ID, *logs[0].ToUserID)
}

func TestPassTicketRejectsSelfAndNonAssignee(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)
	carol := env.store.addUser("carol", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)

	_, err := env.tickets.PassTicket(ctx, bob, ticket.ID, bob.ID)
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = env.tickets.PassTicket(ctx, carol, ticket.ID, bob.ID)
	assertCode(t, err, "FORBIDDEN")
}

func TestEscalateExternalIsTerminal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)

	escalated, err := env.tickets.EscalateExternal(ctx, bob, ticket.ID, EscalateExternalInput{
		EscalatedTo: "Distributor GmbH",
		Note:        "hardware fault, under manufacturer warranty",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalatedExternal, escalated.Status)
	assert.Equal(t, "Distributor GmbH", escalated.ExternalEscalatedTo)
	assert.NotNil(t, escalated.ExternalEscalatedAt)

	require.Len(t, env.bus.broadcasts, 2)
	assert.Equal(t, "Ticket escalated externally to Distributor GmbH by bob.", env.bus.broadcasts[0].Frame.Message.Content)

	// No transition leads out of escalated_external.
	_, err = env.tickets.Assign(ctx, admin, ticket.ID, bob.ID)
	assertCode(t, err, "PRECONDITION_FAILED")
	_, err = env.tickets.Escalate(ctx, bob, ticket.ID, "")
	assertCode(t, err, "PRECONDITION_FAILED")
}

func TestEscalateExternalRequiresTarget(t *testing.T) {
	env := newTestEnv()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	ticket := createOpenTicket(t, env, client)

	_, err := env.tickets.EscalateExternal(context.Background(), admin, ticket.ID, EscalateExternalInput{EscalatedTo: "  "})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestReviewStampsTimeInOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	ticket := createOpenTicket(t, env, client)

	high := domain.TicketPriorityHigh
	reviewed, err := env.tickets.Review(ctx, admin, ticket.ID, ReviewInput{Priority: &high})
	require.NoError(t, err)
	require.NotNil(t, reviewed.TimeIn)
	assert.Equal(t, domain.TicketPriorityHigh, reviewed.Priority)
	stamped := *reviewed.TimeIn

	low := domain.TicketPriorityLow
	reviewed, err = env.tickets.Review(ctx, admin, ticket.ID, ReviewInput{Priority: &low})
	require.NoError(t, err)
	assert.Equal(t, stamped, *reviewed.TimeIn)
	assert.Equal(t, domain.TicketPriorityLow, reviewed.Priority)

	bogus := domain.TicketPriority("critical")
	_, err = env.tickets.Review(ctx, admin, ticket.ID, ReviewInput{Priority: &bogus})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestConfirmIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	ticket := createOpenTicket(t, env, client)

	confirmed, err := env.tickets.Confirm(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.ConfirmedByAdmin)

	again, err := env.tickets.Confirm(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.True(t, again.ConfirmedByAdmin)
}

func TestClosurePathGating(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)

	// No resolution proof yet.
	_, err := env.tickets.RequestClosure(ctx, bob, ticket.ID)
	assertCode(t, err, "PRECONDITION_FAILED")

	got, err := env.tickets.Get(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, got.Status, "rejected transition must not change status")

	addProof(t, env, bob, ticket.ID)

	pending, err := env.tickets.RequestClosure(ctx, bob, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingFeedback, pending.Status)

	// Survey missing: close is still rejected.
	_, err = env.tickets.Close(ctx, admin, ticket.ID)
	assertCode(t, err, "PRECONDITION_FAILED")

	survey, err := env.tickets.SubmitCSAT(ctx, client, ticket.ID, CSATInput{Rating: 5, Comments: "fast fix"})
	require.NoError(t, err)
	assert.Equal(t, 5, survey.Rating)

	got, err = env.tickets.Get(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingClosure, got.Status)

	closed, err := env.tickets.Close(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.NotNil(t, closed.TimeOut)
	assert.Nil(t, closed.CurrentSessionID)

	// Closed is terminal.
	_, err = env.tickets.Close(ctx, admin, ticket.ID)
	assertCode(t, err, "PRECONDITION_FAILED")
	_, err = env.tickets.Assign(ctx, admin, ticket.ID, bob.ID)
	assertCode(t, err, "PRECONDITION_FAILED")
}

func TestCloseAnnouncesBeforeEndingSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	ticket = assignTo(t, env, admin, ticket.ID, bob.ID)
	sessionID := *ticket.CurrentSessionID
	addProof(t, env, bob, ticket.ID)
	_, err := env.tickets.RequestClosure(ctx, bob, ticket.ID)
	require.NoError(t, err)
	_, err = env.tickets.SubmitCSAT(ctx, client, ticket.ID, CSATInput{Rating: 4})
	require.NoError(t, err)

	env.bus.broadcasts = nil
	_, err = env.tickets.Close(ctx, admin, ticket.ID)
	require.NoError(t, err)

	require.Len(t, env.bus.broadcasts, 2)
	assert.Equal(t, "Ticket closed by root.", env.bus.broadcasts[0].Frame.Message.Content)

	// The closing notice belongs to the session that was active.
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	var found bool
	for _, msg := range env.store.messages {
		if msg.IsSystemMessage && msg.Content == "Ticket closed by root." {
			assert.Equal(t, sessionID, msg.SessionID)
			found = true
		}
	}
	assert.True(t, found)
}

func TestSubmitCSATValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)

	// Wrong status.
	_, err := env.tickets.SubmitCSAT(ctx, client, ticket.ID, CSATInput{Rating: 3})
	assertCode(t, err, "PRECONDITION_FAILED")

	addProof(t, env, bob, ticket.ID)
	_, err = env.tickets.RequestClosure(ctx, bob, ticket.ID)
	require.NoError(t, err)

	// Rating bounds.
	_, err = env.tickets.SubmitCSAT(ctx, client, ticket.ID, CSATInput{Rating: 0})
	assertCode(t, err, "VALIDATION_FAILED")
	_, err = env.tickets.SubmitCSAT(ctx, client, ticket.ID, CSATInput{Rating: 6})
	assertCode(t, err, "VALIDATION_FAILED")

	// Only the ticket creator may submit.
	_, err = env.tickets.SubmitCSAT(ctx, admin, ticket.ID, CSATInput{Rating: 5})
	assertCode(t, err, "FORBIDDEN")

	_, err = env.tickets.SubmitCSAT(ctx, client, ticket.ID, CSATInput{Rating: 5})
	require.NoError(t, err)

	// One survey per ticket. The second submission also fails the status
	// gate, so move the ticket back for a sharper assertion.
	_, err = env.tickets.SubmitCSAT(ctx, client, ticket.ID, CSATInput{Rating: 1})
	assertCode(t, err, "PRECONDITION_FAILED")
}

func TestListScopesByRole(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	alice := env.store.addUser("alice", domain.RoleClient)
	dave := env.store.addUser("dave", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	mine := createOpenTicket(t, env, alice)
	theirs := createOpenTicket(t, env, dave)
	assignTo(t, env, admin, theirs.ID, bob.ID)

	got, err := env.tickets.List(ctx, alice, ListTicketsInput{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)

	got, err = env.tickets.List(ctx, bob, ListTicketsInput{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, theirs.ID, got[0].ID)

	got, err = env.tickets.List(ctx, admin, ListTicketsInput{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	counts, err := env.tickets.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.TicketStatusOpen])
}

func TestListRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv()
	admin := env.store.addUser("root", domain.RoleAdmin)

	_, err := env.tickets.List(context.Background(), admin, ListTicketsInput{
		Statuses: []domain.TicketStatus{"bogus"},
	})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestListMessagesConfinesClientsToClientLane(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	ticket = assignTo(t, env, admin, ticket.ID, bob.ID)

	_, err := env.chat.SaveUserMessage(ctx, client, ticket, domain.ChannelClientEmployee, "client side", nil)
	require.NoError(t, err)
	_, err = env.chat.SaveUserMessage(ctx, bob, ticket, domain.ChannelAdminEmployee, "staff side", nil)
	require.NoError(t, err)

	adminLane := domain.ChannelAdminEmployee
	got, err := env.tickets.ListMessages(ctx, client, ticket.ID, &adminLane, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "client side", got[0].Content)

	got, err = env.tickets.ListMessages(ctx, admin, ticket.ID, &adminLane, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "staff side", got[0].Content)
}

func TestAttachmentLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	ticket := createOpenTicket(t, env, client)
	other := createOpenTicket(t, env, client)

	att, err := env.tickets.AddAttachment(ctx, client, ticket.ID, AttachmentInput{FileName: "screenshot.png"})
	require.NoError(t, err)

	// Clients cannot flag resolution proof.
	_, err = env.tickets.AddAttachment(ctx, client, ticket.ID, AttachmentInput{FileName: "fake.png", IsResolutionProof: true})
	assertCode(t, err, "FORBIDDEN")

	_, err = env.tickets.AddAttachment(ctx, client, ticket.ID, AttachmentInput{FileName: " "})
	assertCode(t, err, "VALIDATION_FAILED")

	listed, err := env.tickets.ListAttachments(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	// Deleting through the wrong ticket fails.
	err = env.tickets.DeleteAttachment(ctx, admin, other.ID, att.ID)
	assertCode(t, err, "NOT_FOUND")

	require.NoError(t, env.tickets.DeleteAttachment(ctx, admin, ticket.ID, att.ID))
	listed, err = env.tickets.ListAttachments(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestCreateTasksFromTemplate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)

	tpl := &domain.Template{Name: "printer checklist", Steps: "check cables\n\n  check toner  \nrun self test"}
	repo := &memTemplateRepo{s: env.store}
	require.NoError(t, repo.Create(ctx, tpl))

	created, err := env.tickets.CreateTasksFromTemplate(ctx, admin, ticket.ID, tpl.ID)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, "check cables", created[0].Description)
	assert.Equal(t, "check toner", created[1].Description)
	for _, task := range created {
		assert.Equal(t, domain.TaskStatusTodo, task.Status)
		require.NotNil(t, task.AssignedTo)
		assert.Equal(t, bob.ID, *task.AssignedTo)
	}

	_, err = env.tickets.CreateTasksFromTemplate(ctx, bob, ticket.ID, tpl.ID)
	assertCode(t, err, "FORBIDDEN")

	updated, err := env.tickets.UpdateTaskStatus(ctx, bob, ticket.ID, created[0].ID, domain.TaskStatusDone)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, updated.Status)

	_, err = env.tickets.UpdateTaskStatus(ctx, bob, ticket.ID, created[0].ID, "paused")
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestListEscalationsScope(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)

	_, err := env.tickets.ListEscalations(ctx, client)
	assertCode(t, err, "FORBIDDEN")
}

func TestLifecycleEventsArePublished(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	client := env.store.addUser("alice", domain.RoleClient)
	admin := env.store.addUser("root", domain.RoleAdmin)
	bob := env.store.addUser("bob", domain.RoleEmployee)

	var seen []events.EventType
	for _, et := range []events.EventType{
		events.EventTicketCreated, events.EventTicketAssigned, events.EventTicketStatusChanged,
	} {
		eventType := et
		env.dispatcher.Subscribe(eventType, func(_ context.Context, ev events.Event) error {
			seen = append(seen, ev.Type)
			return nil
		})
	}

	ticket := createOpenTicket(t, env, client)
	assignTo(t, env, admin, ticket.ID, bob.ID)
	product := "switch"
	_, err := env.tickets.UpdateEmployeeFields(ctx, bob, ticket.ID, EmployeeFieldsInput{Product: &product})
	require.NoError(t, err)

	assert.Contains(t, seen, events.EventTicketCreated)
	assert.Contains(t, seen, events.EventTicketAssigned)
	assert.Contains(t, seen, events.EventTicketStatusChanged)
}
