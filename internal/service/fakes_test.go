package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/chat"
	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/events"
	"github.com/maptech/stf-service/internal/repository"
)

// memStore is the shared in-memory backing for all fake repositories,
// mirroring the cross-table writes the SQL layer does in transactions.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	tickets     map[string]*domain.Ticket
	sessions    []*domain.AssignmentSession
	messages    map[string]*domain.Message
	reactions   []domain.MessageReaction
	receipts    []domain.MessageReadReceipt
	escalations []domain.EscalationLog
	surveys     map[string]*domain.CSATSurvey
	attachments map[string]*domain.TicketAttachment
	tasks       map[string]*domain.TicketTask
	templates   map[string]*domain.Template
	sequences   map[string]int64
	msgOrder    []string
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*domain.User),
		tickets:     make(map[string]*domain.Ticket),
		messages:    make(map[string]*domain.Message),
		surveys:     make(map[string]*domain.CSATSurvey),
		attachments: make(map[string]*domain.TicketAttachment),
		tasks:       make(map[string]*domain.TicketTask),
		templates:   make(map[string]*domain.Template),
		sequences:   make(map[string]int64),
	}
}

func (s *memStore) addUser(username string, role domain.Role) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	s.users[user.ID] = user
	return user
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	return &clone
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.s.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.User
	for _, user := range r.s.users {
		if user.Role == role {
			result = append(result, *user)
		}
	}
	return result, nil
}

type memTicketRepo struct{ s *memStore }

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.s.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyTicket(ticket), nil
}

func (r *memTicketRepo) GetByStfNo(_ context.Context, stfNo string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ticket := range r.s.tickets {
		if ticket.StfNo == stfNo {
			return copyTicket(ticket), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if ticketMatches(ticket, filter) {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (r *memTicketRepo) StatusCounts(_ context.Context, filter repository.TicketFilter) (map[domain.TicketStatus]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[domain.TicketStatus]int64)
	for _, ticket := range r.s.tickets {
		if ticketMatches(ticket, filter) {
			counts[ticket.Status]++
		}
	}
	return counts, nil
}

func ticketMatches(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CreatedByID != nil && ticket.CreatedByID != *filter.CreatedByID {
		return false
	}
	if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if ticket.Status == status {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type memSessionRepo struct{ s *memStore }

func (r *memSessionRepo) GetActive(_ context.Context, ticketID string) (*domain.AssignmentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.activeLocked(ticketID)
}

func (r *memSessionRepo) activeLocked(ticketID string) (*domain.AssignmentSession, error) {
	var found []*domain.AssignmentSession
	for _, session := range r.s.sessions {
		if session.TicketID == ticketID && session.IsActive {
			found = append(found, session)
		}
	}
	switch len(found) {
	case 0:
		return nil, pgx.ErrNoRows
	case 1:
		clone := *found[0]
		return &clone, nil
	default:
		return nil, repository.ErrMultipleActiveSessions
	}
}

func (r *memSessionRepo) GetByID(_ context.Context, id string) (*domain.AssignmentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, session := range r.s.sessions {
		if session.ID == id {
			clone := *session
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memSessionRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.AssignmentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.AssignmentSession
	for _, session := range r.s.sessions {
		if session.TicketID == ticketID {
			result = append(result, *session)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	return result, nil
}

func (r *memSessionRepo) Rotate(_ context.Context, ticketID, employeeID string) (*domain.AssignmentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.deactivateLocked(ticketID)
	session := r.insertLocked(ticketID, employeeID)
	if ticket, ok := r.s.tickets[ticketID]; ok {
		ticket.AssignedTo = &session.EmployeeID
		ticket.CurrentSessionID = &session.ID
	}
	clone := *session
	return &clone, nil
}

func (r *memSessionRepo) End(_ context.Context, ticketID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.deactivateLocked(ticketID)
	if ticket, ok := r.s.tickets[ticketID]; ok {
		ticket.CurrentSessionID = nil
	}
	return nil
}

func (r *memSessionRepo) EnsureActive(_ context.Context, ticketID, employeeID string) (*domain.AssignmentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if session, err := r.activeLocked(ticketID); err == nil {
		if ticket, ok := r.s.tickets[ticketID]; ok {
			ticket.CurrentSessionID = &session.ID
		}
		return session, nil
	} else if err != pgx.ErrNoRows {
		return nil, err
	}
	session := r.insertLocked(ticketID, employeeID)
	if ticket, ok := r.s.tickets[ticketID]; ok {
		ticket.CurrentSessionID = &session.ID
	}
	clone := *session
	return &clone, nil
}

func (r *memSessionRepo) deactivateLocked(ticketID string) {
	now := time.Now()
	for _, session := range r.s.sessions {
		if session.TicketID == ticketID && session.IsActive {
			session.IsActive = false
			session.EndedAt = &now
		}
	}
}

func (r *memSessionRepo) insertLocked(ticketID, employeeID string) *domain.AssignmentSession {
	session := &domain.AssignmentSession{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		EmployeeID: employeeID,
		IsActive:   true,
		StartedAt:  time.Now(),
	}
	r.s.sessions = append(r.s.sessions, session)
	return session
}

type memMessageRepo struct{ s *memStore }

func (r *memMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	clone := *msg
	r.s.messages[msg.ID] = &clone
	r.s.msgOrder = append(r.s.msgOrder, msg.ID)
	return nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	msg, ok := r.s.messages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.hydrateLocked(msg), nil
}

func (r *memMessageRepo) ListByTicket(_ context.Context, ticketID string, filter repository.MessageFilter) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Message
	for _, id := range r.s.msgOrder {
		msg := r.s.messages[id]
		if msg.TicketID != ticketID {
			continue
		}
		if filter.ChannelType != nil && msg.ChannelType != *filter.ChannelType {
			continue
		}
		if filter.SessionID != nil && msg.SessionID != *filter.SessionID {
			continue
		}
		result = append(result, *r.hydrateLocked(msg))
	}
	return result, nil
}

func (r *memMessageRepo) hydrateLocked(msg *domain.Message) *domain.Message {
	clone := *msg
	clone.Sender = r.s.users[msg.SenderID]
	if msg.ReplyToID != nil {
		if parent, ok := r.s.messages[*msg.ReplyToID]; ok {
			parentClone := *parent
			parentClone.Sender = r.s.users[parent.SenderID]
			clone.ReplyTo = &parentClone
		}
	}
	clone.Reactions = nil
	for _, reaction := range r.s.reactions {
		if reaction.MessageID == msg.ID {
			reaction.User = r.s.users[reaction.UserID]
			clone.Reactions = append(clone.Reactions, reaction)
		}
	}
	clone.ReadReceipts = nil
	for _, receipt := range r.s.receipts {
		if receipt.MessageID == msg.ID {
			receipt.User = r.s.users[receipt.UserID]
			clone.ReadReceipts = append(clone.ReadReceipts, receipt)
		}
	}
	return &clone
}

func (r *memMessageRepo) ToggleReaction(_ context.Context, messageID, userID, emoji string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, reaction := range r.s.reactions {
		if reaction.MessageID == messageID && reaction.UserID == userID && reaction.Emoji == emoji {
			r.s.reactions = append(r.s.reactions[:i], r.s.reactions[i+1:]...)
			return nil
		}
	}
	r.s.reactions = append(r.s.reactions, domain.MessageReaction{
		ID:        uuid.NewString(),
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *memMessageRepo) ListReactions(_ context.Context, messageID string) ([]domain.MessageReaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.MessageReaction
	for _, reaction := range r.s.reactions {
		if reaction.MessageID == messageID {
			reaction.User = r.s.users[reaction.UserID]
			result = append(result, reaction)
		}
	}
	return result, nil
}

func (r *memMessageRepo) CreateReadReceipt(_ context.Context, messageID, userID string) (*domain.MessageReadReceipt, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, receipt := range r.s.receipts {
		if receipt.MessageID == messageID && receipt.UserID == userID {
			return nil, false, nil
		}
	}
	receipt := domain.MessageReadReceipt{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    time.Now(),
	}
	r.s.receipts = append(r.s.receipts, receipt)
	return &receipt, true, nil
}

type memEscalationRepo struct{ s *memStore }

func (r *memEscalationRepo) Create(_ context.Context, entry *domain.EscalationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.s.escalations = append(r.s.escalations, *entry)
	return nil
}

func (r *memEscalationRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.EscalationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.EscalationLog
	for _, entry := range r.s.escalations {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *memEscalationRepo) ListAll(_ context.Context) ([]domain.EscalationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.EscalationLog{}, r.s.escalations...), nil
}

func (r *memEscalationRepo) ListByUser(_ context.Context, userID string) ([]domain.EscalationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.EscalationLog
	for _, entry := range r.s.escalations {
		if entry.FromUserID == userID || (entry.ToUserID != nil && *entry.ToUserID == userID) {
			result = append(result, entry)
		}
	}
	return result, nil
}

type memCSATRepo struct{ s *memStore }

func (r *memCSATRepo) Create(_ context.Context, survey *domain.CSATSurvey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	survey.ID = uuid.NewString()
	survey.CreatedAt = time.Now()
	clone := *survey
	r.s.surveys[survey.TicketID] = &clone
	return nil
}

func (r *memCSATRepo) GetByTicket(_ context.Context, ticketID string) (*domain.CSATSurvey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	survey, ok := r.s.surveys[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *survey
	return &clone, nil
}

func (r *memCSATRepo) ExistsForTicket(_ context.Context, ticketID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.surveys[ticketID]
	return ok, nil
}

func (r *memCSATRepo) ListAll(_ context.Context) ([]domain.CSATSurvey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.CSATSurvey
	for _, survey := range r.s.surveys {
		result = append(result, *survey)
	}
	return result, nil
}

type memAttachmentRepo struct{ s *memStore }

func (r *memAttachmentRepo) Create(_ context.Context, att *domain.TicketAttachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	att.ID = uuid.NewString()
	att.CreatedAt = time.Now()
	clone := *att
	r.s.attachments[att.ID] = &clone
	return nil
}

func (r *memAttachmentRepo) GetByID(_ context.Context, id string) (*domain.TicketAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	att, ok := r.s.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *att
	return &clone, nil
}

func (r *memAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.TicketAttachment
	for _, att := range r.s.attachments {
		if att.TicketID == ticketID {
			result = append(result, *att)
		}
	}
	return result, nil
}

func (r *memAttachmentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.attachments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.attachments, id)
	return nil
}

func (r *memAttachmentRepo) HasResolutionProof(_ context.Context, ticketID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, att := range r.s.attachments {
		if att.TicketID == ticketID && att.IsResolutionProof {
			return true, nil
		}
	}
	return false, nil
}

type memTaskRepo struct{ s *memStore }

func (r *memTaskRepo) Create(_ context.Context, task *domain.TicketTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task.ID = uuid.NewString()
	task.CreatedAt = time.Now()
	clone := *task
	r.s.tasks[task.ID] = &clone
	return nil
}

func (r *memTaskRepo) GetForTicket(_ context.Context, ticketID, taskID string) (*domain.TicketTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task, ok := r.s.tasks[taskID]
	if !ok || task.TicketID != ticketID {
		return nil, pgx.ErrNoRows
	}
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.TicketTask
	for _, task := range r.s.tasks {
		if task.TicketID == ticketID {
			result = append(result, *task)
		}
	}
	return result, nil
}

func (r *memTaskRepo) UpdateStatus(_ context.Context, taskID string, status domain.TaskStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task, ok := r.s.tasks[taskID]
	if !ok {
		return pgx.ErrNoRows
	}
	task.Status = status
	return nil
}

type memTemplateRepo struct{ s *memStore }

func (r *memTemplateRepo) Create(_ context.Context, tpl *domain.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tpl.ID = uuid.NewString()
	tpl.CreatedAt = time.Now()
	clone := *tpl
	r.s.templates[tpl.ID] = &clone
	return nil
}

func (r *memTemplateRepo) GetByID(_ context.Context, id string) (*domain.Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tpl, ok := r.s.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *tpl
	return &clone, nil
}

func (r *memTemplateRepo) List(_ context.Context) ([]domain.Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Template
	for _, tpl := range r.s.templates {
		result = append(result, *tpl)
	}
	return result, nil
}

type memSequenceRepo struct{ s *memStore }

func (r *memSequenceRepo) Next(_ context.Context, day time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := day.Format("2006-01-02")
	r.s.sequences[key]++
	return r.s.sequences[key], nil
}

// fakeBus records broadcast traffic for assertions.
type fakeBus struct {
	mu          sync.Mutex
	broadcasts  []busRecord
	disconnects []disconnectRecord
}

type busRecord struct {
	TicketID string
	Channel  domain.ChannelType
	Frame    chat.Frame
}

type disconnectRecord struct {
	TicketID string
	UserID   string
	Reason   string
}

func (b *fakeBus) Broadcast(ticketID string, channel domain.ChannelType, frame chat.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts = append(b.broadcasts, busRecord{TicketID: ticketID, Channel: channel, Frame: frame})
}

func (b *fakeBus) ForceDisconnectUser(ticketID, userID, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnects = append(b.disconnects, disconnectRecord{TicketID: ticketID, UserID: userID, Reason: reason})
}

// testEnv assembles the full service stack over the in-memory store.
type testEnv struct {
	store      *memStore
	bus        *fakeBus
	dispatcher events.Dispatcher
	sessions   *SessionManager
	chat       *ChatService
	tickets    *TicketService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	bus := &fakeBus{}
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()

	sessions := NewSessionManager(&memSessionRepo{s: store}, logger)
	chatSvc := NewChatService(ChatServiceDependencies{
		Messages:   &memMessageRepo{s: store},
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketSvc := NewTicketService(TicketServiceDependencies{
		Tickets:     &memTicketRepo{s: store},
		Users:       &memUserRepo{s: store},
		Sequences:   &memSequenceRepo{s: store},
		Escalations: &memEscalationRepo{s: store},
		Surveys:     &memCSATRepo{s: store},
		Attachments: &memAttachmentRepo{s: store},
		Tasks:       &memTaskRepo{s: store},
		Templates:   &memTemplateRepo{s: store},
		Sessions:    sessions,
		Chat:        chatSvc,
		Bus:         bus,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	return &testEnv{
		store:      store,
		bus:        bus,
		dispatcher: dispatcher,
		sessions:   sessions,
		chat:       chatSvc,
		tickets:    ticketSvc,
	}
}
