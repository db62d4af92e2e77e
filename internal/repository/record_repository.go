package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maptech/stf-service/internal/domain"
)

// ServiceTypeRepository manages the type-of-service lookup records.
type ServiceTypeRepository interface {
	Create(ctx context.Context, st *domain.TypeOfService) error
	Update(ctx context.Context, st *domain.TypeOfService) error
	GetByID(ctx context.Context, id string) (*domain.TypeOfService, error)
	List(ctx context.Context, activeOnly bool) ([]domain.TypeOfService, error)
}

// TemplateRepository manages admin task templates.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *domain.Template) error
	GetByID(ctx context.Context, id string) (*domain.Template, error)
	List(ctx context.Context) ([]domain.Template, error)
}

type serviceTypeRepository struct {
	pool *pgxpool.Pool
}

// NewServiceTypeRepository instantiates repository.
func NewServiceTypeRepository(pool *pgxpool.Pool) ServiceTypeRepository {
	return &serviceTypeRepository{pool: pool}
}

func (r *serviceTypeRepository) Create(ctx context.Context, st *domain.TypeOfService) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO service_types (name, is_active) VALUES ($1,$2) RETURNING id, created_at`,
		st.Name, st.IsActive,
	).Scan(&st.ID, &st.CreatedAt)
}

func (r *serviceTypeRepository) Update(ctx context.Context, st *domain.TypeOfService) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE service_types SET name=$1, is_active=$2 WHERE id=$3`, st.Name, st.IsActive, st.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *serviceTypeRepository) GetByID(ctx context.Context, id string) (*domain.TypeOfService, error) {
	var st domain.TypeOfService
	if err := r.pool.QueryRow(ctx,
		`SELECT id, name, is_active, created_at FROM service_types WHERE id=$1`, id).Scan(
		&st.ID, &st.Name, &st.IsActive, &st.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *serviceTypeRepository) List(ctx context.Context, activeOnly bool) ([]domain.TypeOfService, error) {
	query := `SELECT id, name, is_active, created_at FROM service_types ORDER BY name`
	if activeOnly {
		query = `SELECT id, name, is_active, created_at FROM service_types WHERE is_active ORDER BY name`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TypeOfService
	for rows.Next() {
		var st domain.TypeOfService
		if err := rows.Scan(&st.ID, &st.Name, &st.IsActive, &st.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository instantiates repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

func (r *templateRepository) Create(ctx context.Context, tpl *domain.Template) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO templates (name, steps) VALUES ($1,$2) RETURNING id, created_at`,
		tpl.Name, tpl.Steps,
	).Scan(&tpl.ID, &tpl.CreatedAt)
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	var tpl domain.Template
	if err := r.pool.QueryRow(ctx,
		`SELECT id, name, steps, created_at FROM templates WHERE id=$1`, id).Scan(
		&tpl.ID, &tpl.Name, &tpl.Steps, &tpl.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepository) List(ctx context.Context) ([]domain.Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, steps, created_at FROM templates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Template
	for rows.Next() {
		var tpl domain.Template
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Steps, &tpl.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}
