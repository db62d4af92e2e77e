package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/repository"
	"github.com/maptech/stf-service/pkg/util"
)

// SessionManager owns the one-active-session invariant. The lifecycle
// machine and the chat path both go through it; they never touch the
// session repository directly.
type SessionManager struct {
	sessions repository.SessionRepository
	logger   *zap.Logger
}

// NewSessionManager creates the session manager.
func NewSessionManager(sessions repository.SessionRepository, logger *zap.Logger) *SessionManager {
	return &SessionManager{sessions: sessions, logger: logger}
}

// EnsureSession returns the ticket's active session, lazily creating one
// when the ticket has an assignee but no session row. Returns nil when
// no employee is assigned: no assignment means no chat.
func (m *SessionManager) EnsureSession(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentSession, error) {
	session, err := m.sessions.GetActive(ctx, ticket.ID)
	if err == nil {
		return session, nil
	}
	if errors.Is(err, repository.ErrMultipleActiveSessions) {
		return nil, m.invariantViolation(ticket.ID, err)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if ticket.AssignedTo == nil {
		return nil, nil
	}

	session, err = m.sessions.EnsureActive(ctx, ticket.ID, *ticket.AssignedTo)
	if err != nil {
		if errors.Is(err, repository.ErrMultipleActiveSessions) {
			return nil, m.invariantViolation(ticket.ID, err)
		}
		return nil, err
	}
	ticket.CurrentSessionID = &session.ID
	return session, nil
}

// Rotate atomically ends the current session and starts a new one for
// employeeID, repointing the ticket. The in-memory ticket is updated to
// match what the transaction wrote.
func (m *SessionManager) Rotate(ctx context.Context, ticket *domain.Ticket, employeeID string) (*domain.AssignmentSession, error) {
	session, err := m.sessions.Rotate(ctx, ticket.ID, employeeID)
	if err != nil {
		return nil, err
	}
	ticket.AssignedTo = &employeeID
	ticket.CurrentSessionID = &session.ID
	return session, nil
}

// End deactivates the active session and clears the ticket pointer.
func (m *SessionManager) End(ctx context.Context, ticket *domain.Ticket) error {
	if err := m.sessions.End(ctx, ticket.ID); err != nil {
		return err
	}
	ticket.CurrentSessionID = nil
	return nil
}

// History lists every session of a ticket, newest first.
func (m *SessionManager) History(ctx context.Context, ticketID string) ([]domain.AssignmentSession, error) {
	return m.sessions.ListByTicket(ctx, ticketID)
}

// invariantViolation surfaces a broken storage invariant as a 500. The
// caller must never pick one of the competing sessions.
func (m *SessionManager) invariantViolation(ticketID string, err error) error {
	m.logger.Error("session invariant violated",
		zap.String("ticket_id", ticketID),
		zap.Error(err))
	return util.NewInternalError(err)
}
