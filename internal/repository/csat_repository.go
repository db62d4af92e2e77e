package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maptech/stf-service/internal/domain"
)

// CSATRepository manages customer-satisfaction surveys.
type CSATRepository interface {
	Create(ctx context.Context, survey *domain.CSATSurvey) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.CSATSurvey, error)
	ExistsForTicket(ctx context.Context, ticketID string) (bool, error)
	ListAll(ctx context.Context) ([]domain.CSATSurvey, error)
}

type csatRepository struct {
	pool *pgxpool.Pool
}

// NewCSATRepository instantiates repository.
func NewCSATRepository(pool *pgxpool.Pool) CSATRepository {
	return &csatRepository{pool: pool}
}

const csatColumns = `id, ticket_id, rating, comments, has_other_concerns, other_concerns_text, created_at`

func (r *csatRepository) Create(ctx context.Context, survey *domain.CSATSurvey) error {
	const query = `
        INSERT INTO csat_surveys (ticket_id, rating, comments, has_other_concerns, other_concerns_text)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		survey.TicketID,
		survey.Rating,
		survey.Comments,
		survey.HasOtherConcerns,
		survey.OtherConcernsText,
	).Scan(&survey.ID, &survey.CreatedAt)
}

func (r *csatRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.CSATSurvey, error) {
	var survey domain.CSATSurvey
	if err := r.pool.QueryRow(ctx,
		`SELECT `+csatColumns+` FROM csat_surveys WHERE ticket_id=$1`, ticketID).Scan(
		&survey.ID,
		&survey.TicketID,
		&survey.Rating,
		&survey.Comments,
		&survey.HasOtherConcerns,
		&survey.OtherConcernsText,
		&survey.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &survey, nil
}

func (r *csatRepository) ExistsForTicket(ctx context.Context, ticketID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM csat_surveys WHERE ticket_id=$1)`, ticketID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *csatRepository) ListAll(ctx context.Context) ([]domain.CSATSurvey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+csatColumns+` FROM csat_surveys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CSATSurvey
	for rows.Next() {
		var survey domain.CSATSurvey
		if err := rows.Scan(
			&survey.ID,
			&survey.TicketID,
			&survey.Rating,
			&survey.Comments,
			&survey.HasOtherConcerns,
			&survey.OtherConcernsText,
			&survey.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, survey)
	}
	return result, rows.Err()
}
