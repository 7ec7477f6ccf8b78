package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"portal-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageSelect = `SELECT m.id, m.sender_id, COALESCE(u.username, 'AI') AS sender_username, m.room_id, m.text, m.formatting,
        m.image_filename, m.image_expires_at, m.reply_to, m.edited_at, m.deleted_at, m.reactions, m.created_at
        FROM messages m LEFT JOIN users u ON u.id = m.sender_id`

// MessageRepository defines interactions for room messages.
type MessageRepository interface {
	CreateMessages(ctx context.Context, msgs ...models.NewMessage) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	UpdateMessageText(ctx context.Context, messageID int, text string) (models.Message, error)
	ToggleReaction(ctx context.Context, messageID int, emoji string, userID int) (models.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID int) error
	ListRecentMessages(ctx context.Context, roomID, limit, offset int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessages stores msgs in one transaction and returns them in order.
// Either every message is committed or none is.
func (r *MessageRepo) CreateMessages(ctx context.Context, msgs ...models.NewMessage) ([]models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	created := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		var id int
		if err := tx.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, room_id, text, formatting, image_filename, image_expires_at, reply_to)
            VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			m.SenderID, m.RoomID, m.Text, m.Formatting, m.ImageFilename, m.ImageExpiresAt, m.ReplyTo).Scan(&id); err != nil {
			return nil, err
		}
		msg, err := getMessage(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		created = append(created, msg)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// GetMessage retrieves a single message, including soft-deleted ones.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	return getMessage(ctx, r.db, messageID)
}

// UpdateMessageText replaces the text of a live message and stamps edited_at.
func (r *MessageRepo) UpdateMessageText(ctx context.Context, messageID int, text string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE messages SET text=$2, edited_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, messageID, text)
	if err != nil {
		return models.Message{}, err
	}
	if err := expectOneRow(res, ErrMessageNotFound); err != nil {
		return models.Message{}, err
	}

	msg, err := getMessage(ctx, tx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ToggleReaction adds or removes userID under emoji on a live message. The row
// is locked for the read-modify-write so concurrent reactions never lose updates.
func (r *MessageRepo) ToggleReaction(ctx context.Context, messageID int, emoji string, userID int) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var reactions models.Reactions
	if err := tx.GetContext(ctx, &reactions, `SELECT reactions FROM messages WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`, messageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, ErrMessageNotFound
		}
		return models.Message{}, err
	}
	reactions.Toggle(emoji, userID)

	if _, err := tx.ExecContext(ctx, `UPDATE messages SET reactions=$2 WHERE id=$1`, messageID, reactions); err != nil {
		return models.Message{}, err
	}

	msg, err := getMessage(ctx, tx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// SoftDeleteMessage stamps deleted_at on a live message.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, messageID)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrMessageNotFound)
}

// ListRecentMessages returns the newest limit live messages after skipping
// offset, ordered oldest first.
func (r *MessageRepo) ListRecentMessages(ctx context.Context, roomID, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, messageSelect+`
        WHERE m.room_id=$1 AND m.deleted_at IS NULL
        ORDER BY m.created_at DESC, m.id DESC
        LIMIT $2 OFFSET $3`, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func getMessage(ctx context.Context, q sqlx.QueryerContext, messageID int) (models.Message, error) {
	var msg models.Message
	err := sqlx.GetContext(ctx, q, &msg, messageSelect+` WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

func expectOneRow(res sql.Result, notFound error) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return nil
}
