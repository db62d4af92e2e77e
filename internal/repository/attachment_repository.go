package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maptech/stf-service/internal/domain"
)

// AttachmentRepository stores ticket attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, att *domain.TicketAttachment) error
	GetByID(ctx context.Context, id string) (*domain.TicketAttachment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error)
	Delete(ctx context.Context, id string) error
	// HasResolutionProof reports whether the ticket carries at least one
	// attachment flagged as resolution proof: the closure gate.
	HasResolutionProof(ctx context.Context, ticketID string) (bool, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository instantiates repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

const attachmentColumns = `id, ticket_id, uploaded_by, file_name, storage_key, mime_type, size_bytes, is_resolution_proof, created_at`

func (r *attachmentRepository) Create(ctx context.Context, att *domain.TicketAttachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, uploaded_by, file_name, storage_key, mime_type, size_bytes, is_resolution_proof)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		att.TicketID,
		att.UploadedByID,
		att.FileName,
		att.StorageKey,
		att.MimeType,
		att.SizeBytes,
		att.IsResolutionProof,
	).Scan(&att.ID, &att.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.TicketAttachment, error) {
	var att domain.TicketAttachment
	if err := r.pool.QueryRow(ctx,
		`SELECT `+attachmentColumns+` FROM ticket_attachments WHERE id=$1`, id).Scan(
		&att.ID,
		&att.TicketID,
		&att.UploadedByID,
		&att.FileName,
		&att.StorageKey,
		&att.MimeType,
		&att.SizeBytes,
		&att.IsResolutionProof,
		&att.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attachmentColumns+` FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAttachment
	for rows.Next() {
		var att domain.TicketAttachment
		if err := rows.Scan(
			&att.ID,
			&att.TicketID,
			&att.UploadedByID,
			&att.FileName,
			&att.StorageKey,
			&att.MimeType,
			&att.SizeBytes,
			&att.IsResolutionProof,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_attachments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *attachmentRepository) HasResolutionProof(ctx context.Context, ticketID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ticket_attachments WHERE ticket_id=$1 AND is_resolution_proof)`,
		ticketID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
