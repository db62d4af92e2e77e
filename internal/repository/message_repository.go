package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maptech/stf-service/internal/domain"
)

// MessageFilter narrows message history queries.
type MessageFilter struct {
	ChannelType *domain.ChannelType
	SessionID   *string
}

// MessageRepository manages chat messages with their derived reaction
// and read-receipt collections.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// GetByID returns a fully hydrated message.
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// ListByTicket returns hydrated messages ordered by creation time.
	ListByTicket(ctx context.Context, ticketID string, filter MessageFilter) ([]domain.Message, error)
	// ToggleReaction creates the (message, user, emoji) row if absent
	// and deletes it if present.
	ToggleReaction(ctx context.Context, messageID, userID, emoji string) error
	ListReactions(ctx context.Context, messageID string) ([]domain.MessageReaction, error)
	// CreateReadReceipt inserts a first-read receipt; created=false when
	// the user already read the message.
	CreateReadReceipt(ctx context.Context, messageID, userID string) (*domain.MessageReadReceipt, bool, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (ticket_id, session_id, channel_type, sender_id, content, reply_to_id, is_system_message)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SessionID,
		msg.ChannelType,
		msg.SenderID,
		msg.Content,
		msg.ReplyToID,
		msg.IsSystemMessage,
	).Scan(&msg.ID, &msg.CreatedAt)
}

const messageSelect = `
        SELECT m.id, m.ticket_id, m.session_id, m.channel_type, m.sender_id, m.content,
               m.reply_to_id, m.is_system_message, m.created_at,
               s.username, s.full_name, s.role,
               p.id, p.content, p.sender_id, ps.username, ps.full_name
        FROM messages m
        JOIN users s ON s.id = m.sender_id
        LEFT JOIN messages p ON p.id = m.reply_to_id
        LEFT JOIN users ps ON ps.id = p.sender_id`

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	rows, err := r.pool.Query(ctx, messageSelect+` WHERE m.id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := r.collect(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &msgs[0], nil
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string, filter MessageFilter) ([]domain.Message, error) {
	clauses := []string{"m.ticket_id=$1"}
	args := []any{ticketID}
	if filter.ChannelType != nil {
		args = append(args, *filter.ChannelType)
		clauses = append(clauses, fmt.Sprintf("m.channel_type=$%d", len(args)))
	}
	if filter.SessionID != nil {
		args = append(args, *filter.SessionID)
		clauses = append(clauses, fmt.Sprintf("m.session_id=$%d", len(args)))
	}

	query := messageSelect + ` WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY m.created_at ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(ctx, rows)
}

func (r *messageRepository) collect(ctx context.Context, rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		var sender domain.User
		var replyID, replyContent, replySenderID, replyUsername, replyFullName *string
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SessionID,
			&msg.ChannelType,
			&msg.SenderID,
			&msg.Content,
			&msg.ReplyToID,
			&msg.IsSystemMessage,
			&msg.CreatedAt,
			&sender.Username,
			&sender.FullName,
			&sender.Role,
			&replyID,
			&replyContent,
			&replySenderID,
			&replyUsername,
			&replyFullName,
		); err != nil {
			return nil, err
		}
		sender.ID = msg.SenderID
		msg.Sender = &sender
		if replyID != nil {
			reply := domain.Message{ID: *replyID}
			if replyContent != nil {
				reply.Content = *replyContent
			}
			if replySenderID != nil {
				reply.SenderID = *replySenderID
				replySender := domain.User{ID: *replySenderID}
				if replyUsername != nil {
					replySender.Username = *replyUsername
				}
				if replyFullName != nil {
					replySender.FullName = *replyFullName
				}
				reply.Sender = &replySender
			}
			msg.ReplyTo = &reply
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachRelations(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *messageRepository) attachRelations(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(msgs))
	index := make(map[string]*domain.Message, len(msgs))
	for i := range msgs {
		ids = append(ids, msgs[i].ID)
		index[msgs[i].ID] = &msgs[i]
	}

	reactionRows, err := r.pool.Query(ctx, `
        SELECT r.id, r.message_id, r.user_id, r.emoji, r.created_at, u.username, u.full_name
        FROM message_reactions r
        JOIN users u ON u.id = r.user_id
        WHERE r.message_id = ANY($1)
        ORDER BY r.created_at ASC`, ids)
	if err != nil {
		return err
	}
	defer reactionRows.Close()
	for reactionRows.Next() {
		var reaction domain.MessageReaction
		var user domain.User
		if err := reactionRows.Scan(
			&reaction.ID,
			&reaction.MessageID,
			&reaction.UserID,
			&reaction.Emoji,
			&reaction.CreatedAt,
			&user.Username,
			&user.FullName,
		); err != nil {
			return err
		}
		user.ID = reaction.UserID
		reaction.User = &user
		if msg, ok := index[reaction.MessageID]; ok {
			msg.Reactions = append(msg.Reactions, reaction)
		}
	}
	if err := reactionRows.Err(); err != nil {
		return err
	}

	receiptRows, err := r.pool.Query(ctx, `
        SELECT rr.message_id, rr.user_id, rr.read_at, u.username, u.full_name
        FROM message_read_receipts rr
        JOIN users u ON u.id = rr.user_id
        WHERE rr.message_id = ANY($1)
        ORDER BY rr.read_at ASC`, ids)
	if err != nil {
		return err
	}
	defer receiptRows.Close()
	for receiptRows.Next() {
		var receipt domain.MessageReadReceipt
		var user domain.User
		if err := receiptRows.Scan(
			&receipt.MessageID,
			&receipt.UserID,
			&receipt.ReadAt,
			&user.Username,
			&user.FullName,
		); err != nil {
			return err
		}
		user.ID = receipt.UserID
		receipt.User = &user
		if msg, ok := index[receipt.MessageID]; ok {
			msg.ReadReceipts = append(msg.ReadReceipts, receipt)
		}
	}
	return receiptRows.Err()
}

func (r *messageRepository) ToggleReaction(ctx context.Context, messageID, userID, emoji string) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`,
		messageID, userID, emoji)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO message_reactions (message_id, user_id, emoji) VALUES ($1,$2,$3)
         ON CONFLICT (message_id, user_id, emoji) DO NOTHING`,
		messageID, userID, emoji)
	return err
}

func (r *messageRepository) ListReactions(ctx context.Context, messageID string) ([]domain.MessageReaction, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT r.id, r.message_id, r.user_id, r.emoji, r.created_at, u.username, u.full_name
        FROM message_reactions r
        JOIN users u ON u.id = r.user_id
        WHERE r.message_id=$1
        ORDER BY r.created_at ASC`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MessageReaction
	for rows.Next() {
		var reaction domain.MessageReaction
		var user domain.User
		if err := rows.Scan(
			&reaction.ID,
			&reaction.MessageID,
			&reaction.UserID,
			&reaction.Emoji,
			&reaction.CreatedAt,
			&user.Username,
			&user.FullName,
		); err != nil {
			return nil, err
		}
		user.ID = reaction.UserID
		reaction.User = &user
		result = append(result, reaction)
	}
	return result, rows.Err()
}

func (r *messageRepository) CreateReadReceipt(ctx context.Context, messageID, userID string) (*domain.MessageReadReceipt, bool, error) {
	var receipt domain.MessageReadReceipt
	err := r.pool.QueryRow(ctx, `
        INSERT INTO message_read_receipts (message_id, user_id) VALUES ($1,$2)
        ON CONFLICT (message_id, user_id) DO NOTHING
        RETURNING message_id, user_id, read_at`,
		messageID, userID).Scan(&receipt.MessageID, &receipt.UserID, &receipt.ReadAt)
	if err != nil {
		// DO NOTHING yields no row on conflict: the first read wins and
		// the duplicate mark is a no-op.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &receipt, true, nil
}
