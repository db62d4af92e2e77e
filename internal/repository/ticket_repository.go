package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maptech/stf-service/internal/domain"
)

// TicketFilter captures listing parameters; role scoping is applied by
// the service before the filter reaches the repository.
type TicketFilter struct {
	CreatedByID *string
	AssignedTo  *string
	Statuses    []domain.TicketStatus
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByStfNo(ctx context.Context, stfNo string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	StatusCounts(ctx context.Context, filter TicketFilter) (map[domain.TicketStatus]int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, stf_no, status, title, description, client_name, organization,
        contact_person, designation, mobile_no, landline_no, service_type_id,
        has_warranty, product, brand, model_name, device_equipment, version_no,
        date_purchased, serial_no, action_taken, remarks, job_status,
        priority, confirmed_by_admin, time_in, time_out,
        external_escalated_to, external_escalation_note, external_escalated_at,
        created_by, assigned_to, current_session_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (stf_no, status, title, description, client_name, organization,
            contact_person, designation, mobile_no, landline_no, service_type_id, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.StfNo,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.ClientName,
		ticket.Organization,
		ticket.ContactPerson,
		ticket.Designation,
		ticket.MobileNo,
		ticket.LandlineNo,
		ticket.ServiceTypeID,
		ticket.CreatedByID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, title=$2, description=$3,
            has_warranty=$4, product=$5, brand=$6, model_name=$7, device_equipment=$8,
            version_no=$9, date_purchased=$10, serial_no=$11, action_taken=$12, remarks=$13,
            job_status=$14, priority=$15, confirmed_by_admin=$16, time_in=$17, time_out=$18,
            external_escalated_to=$19, external_escalation_note=$20, external_escalated_at=$21,
            assigned_to=$22, current_session_id=$23, updated_at=NOW()
        WHERE id=$24`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.HasWarranty,
		ticket.Product,
		ticket.Brand,
		ticket.ModelName,
		ticket.DeviceEquipment,
		ticket.VersionNo,
		ticket.DatePurchased,
		ticket.SerialNo,
		ticket.ActionTaken,
		ticket.Remarks,
		ticket.JobStatus,
		ticket.Priority,
		ticket.ConfirmedByAdmin,
		ticket.TimeIn,
		ticket.TimeOut,
		ticket.ExternalEscalatedTo,
		ticket.ExternalEscalationNote,
		ticket.ExternalEscalatedAt,
		ticket.AssignedTo,
		ticket.CurrentSessionID,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByStfNo(ctx context.Context, stfNo string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE stf_no=$1`, stfNo)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanTicket(row)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := filterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) StatusCounts(ctx context.Context, filter TicketFilter) (map[domain.TicketStatus]int64, error) {
	clauses, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM tickets WHERE %s GROUP BY status`,
		strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int64)
	for rows.Next() {
		var status domain.TicketStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func filterClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.CreatedByID != nil {
		args = append(args, *filter.CreatedByID)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	return clauses, args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.StfNo,
		&ticket.Status,
		&ticket.Title,
		&ticket.Description,
		&ticket.ClientName,
		&ticket.Organization,
		&ticket.ContactPerson,
		&ticket.Designation,
		&ticket.MobileNo,
		&ticket.LandlineNo,
		&ticket.ServiceTypeID,
		&ticket.HasWarranty,
		&ticket.Product,
		&ticket.Brand,
		&ticket.ModelName,
		&ticket.DeviceEquipment,
		&ticket.VersionNo,
		&ticket.DatePurchased,
		&ticket.SerialNo,
		&ticket.ActionTaken,
		&ticket.Remarks,
		&ticket.JobStatus,
		&ticket.Priority,
		&ticket.ConfirmedByAdmin,
		&ticket.TimeIn,
		&ticket.TimeOut,
		&ticket.ExternalEscalatedTo,
		&ticket.ExternalEscalationNote,
		&ticket.ExternalEscalatedAt,
		&ticket.CreatedByID,
		&ticket.AssignedTo,
		&ticket.CurrentSessionID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
