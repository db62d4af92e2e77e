package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maptech/stf-service/internal/domain"
)

// ErrMultipleActiveSessions indicates a broken storage invariant: two
// sessions were found active for one ticket. Callers must treat this as
// fatal rather than picking one.
var ErrMultipleActiveSessions = errors.New("multiple active sessions for ticket")

// SessionRepository manages assignment sessions. Rotate and End are
// transactional so the one-active-session invariant holds even when the
// admin-assign and pass-ticket paths race.
type SessionRepository interface {
	GetActive(ctx context.Context, ticketID string) (*domain.AssignmentSession, error)
	GetByID(ctx context.Context, id string) (*domain.AssignmentSession, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentSession, error)
	// Rotate atomically deactivates any current session, creates a new
	// one for employeeID and repoints the ticket row.
	Rotate(ctx context.Context, ticketID, employeeID string) (*domain.AssignmentSession, error)
	// End deactivates the active session and clears the ticket pointer.
	End(ctx context.Context, ticketID string) error
	// EnsureActive returns the active session, lazily creating one for a
	// ticket that has an assignee but no session record.
	EnsureActive(ctx context.Context, ticketID, employeeID string) (*domain.AssignmentSession, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository instantiates repository.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

const sessionColumns = `id, ticket_id, employee_id, is_active, started_at, ended_at`

func (r *sessionRepository) GetActive(ctx context.Context, ticketID string) (*domain.AssignmentSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM assignment_sessions WHERE ticket_id=$1 AND is_active`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	switch len(sessions) {
	case 0:
		return nil, pgx.ErrNoRows
	case 1:
		return &sessions[0], nil
	default:
		return nil, ErrMultipleActiveSessions
	}
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.AssignmentSession, error) {
	var session domain.AssignmentSession
	if err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM assignment_sessions WHERE id=$1`, id).Scan(
		&session.ID,
		&session.TicketID,
		&session.EmployeeID,
		&session.IsActive,
		&session.StartedAt,
		&session.EndedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM assignment_sessions WHERE ticket_id=$1 ORDER BY started_at DESC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *sessionRepository) Rotate(ctx context.Context, ticketID, employeeID string) (*domain.AssignmentSession, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`UPDATE assignment_sessions SET is_active=FALSE, ended_at=NOW() WHERE ticket_id=$1 AND is_active`,
		ticketID); err != nil {
		return nil, err
	}

	var session domain.AssignmentSession
	if err := tx.QueryRow(ctx,
		`INSERT INTO assignment_sessions (ticket_id, employee_id) VALUES ($1,$2)
         RETURNING `+sessionColumns, ticketID, employeeID).Scan(
		&session.ID,
		&session.TicketID,
		&session.EmployeeID,
		&session.IsActive,
		&session.StartedAt,
		&session.EndedAt,
	); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tickets SET assigned_to=$1, current_session_id=$2, updated_at=NOW() WHERE id=$3`,
		employeeID, session.ID, ticketID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) End(ctx context.Context, ticketID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`UPDATE assignment_sessions SET is_active=FALSE, ended_at=NOW() WHERE ticket_id=$1 AND is_active`,
		ticketID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE tickets SET current_session_id=NULL, updated_at=NOW() WHERE id=$1`, ticketID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *sessionRepository) EnsureActive(ctx context.Context, ticketID, employeeID string) (*domain.AssignmentSession, error) {
	// The partial unique index makes the insert race-safe: the loser of
	// a concurrent ensure hits DO NOTHING and re-reads the winner's row.
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO assignment_sessions (ticket_id, employee_id) VALUES ($1,$2)
         ON CONFLICT (ticket_id) WHERE is_active DO NOTHING`,
		ticketID, employeeID); err != nil {
		return nil, err
	}

	session, err := r.GetActive(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if _, err := r.pool.Exec(ctx,
		`UPDATE tickets SET current_session_id=$1, updated_at=NOW()
         WHERE id=$2 AND current_session_id IS DISTINCT FROM $1`,
		session.ID, ticketID); err != nil {
		return nil, err
	}
	return session, nil
}

func scanSessions(rows pgx.Rows) ([]domain.AssignmentSession, error) {
	var result []domain.AssignmentSession
	for rows.Next() {
		var session domain.AssignmentSession
		if err := rows.Scan(
			&session.ID,
			&session.TicketID,
			&session.EmployeeID,
			&session.IsActive,
			&session.StartedAt,
			&session.EndedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}
