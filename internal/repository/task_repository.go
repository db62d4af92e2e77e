package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maptech/stf-service/internal/domain"
)

// TaskRepository manages ticket checklist items.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.TicketTask) error
	GetForTicket(ctx context.Context, ticketID, taskID string) (*domain.TicketTask, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketTask, error)
	UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus) error
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, ticket_id, description, assigned_to, status, created_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.TicketTask) error {
	const query = `
        INSERT INTO ticket_tasks (ticket_id, description, assigned_to, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		task.TicketID,
		task.Description,
		task.AssignedTo,
		task.Status,
	).Scan(&task.ID, &task.CreatedAt)
}

func (r *taskRepository) GetForTicket(ctx context.Context, ticketID, taskID string) (*domain.TicketTask, error) {
	var task domain.TicketTask
	if err := r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM ticket_tasks WHERE id=$1 AND ticket_id=$2`, taskID, ticketID).Scan(
		&task.ID,
		&task.TicketID,
		&task.Description,
		&task.AssignedTo,
		&task.Status,
		&task.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketTask, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM ticket_tasks WHERE ticket_id=$1 ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketTask
	for rows.Next() {
		var task domain.TicketTask
		if err := rows.Scan(
			&task.ID,
			&task.TicketID,
			&task.Description,
			&task.AssignedTo,
			&task.Status,
			&task.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func (r *taskRepository) UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE ticket_tasks SET status=$1 WHERE id=$2`, status, taskID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
