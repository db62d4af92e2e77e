package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maptech/stf-service/internal/domain"
)

// EscalationRepository is the append-only escalation audit trail.
type EscalationRepository interface {
	Create(ctx context.Context, entry *domain.EscalationLog) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.EscalationLog, error)
	ListAll(ctx context.Context) ([]domain.EscalationLog, error)
	ListByUser(ctx context.Context, userID string) ([]domain.EscalationLog, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository instantiates repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

const escalationColumns = `id, ticket_id, escalation_type, from_user_id, to_user_id, to_external, notes, created_at`

func (r *escalationRepository) Create(ctx context.Context, entry *domain.EscalationLog) error {
	const query = `
        INSERT INTO escalation_logs (ticket_id, escalation_type, from_user_id, to_user_id, to_external, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.EscalationType,
		entry.FromUserID,
		entry.ToUserID,
		entry.ToExternal,
		entry.Notes,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *escalationRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.EscalationLog, error) {
	return r.list(ctx,
		`SELECT `+escalationColumns+` FROM escalation_logs WHERE ticket_id=$1 ORDER BY created_at DESC`, ticketID)
}

func (r *escalationRepository) ListAll(ctx context.Context) ([]domain.EscalationLog, error) {
	return r.list(ctx,
		`SELECT `+escalationColumns+` FROM escalation_logs ORDER BY created_at DESC`)
}

func (r *escalationRepository) ListByUser(ctx context.Context, userID string) ([]domain.EscalationLog, error) {
	return r.list(ctx,
		`SELECT `+escalationColumns+` FROM escalation_logs WHERE from_user_id=$1 OR to_user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *escalationRepository) list(ctx context.Context, query string, args ...any) ([]domain.EscalationLog, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEscalations(rows)
}

func scanEscalations(rows pgx.Rows) ([]domain.EscalationLog, error) {
	var result []domain.EscalationLog
	for rows.Next() {
		var entry domain.EscalationLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.EscalationType,
			&entry.FromUserID,
			&entry.ToUserID,
			&entry.ToExternal,
			&entry.Notes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
