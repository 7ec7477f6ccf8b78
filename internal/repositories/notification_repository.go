package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"portal-service/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

const notificationSelect = `SELECT n.id, n.type, n.content, n.posted_by_id, u.username AS posted_by_username,
        n.target_department_name, n.reactions, n.read_by, n.created_at
        FROM notifications n LEFT JOIN users u ON u.id = n.posted_by_id`

// NotificationRepository abstracts notification persistence.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n models.NewNotification) (models.Notification, error)
	GetNotification(ctx context.Context, id int) (models.Notification, error)
	ToggleReaction(ctx context.Context, id int, emoji string, userID int) (models.Notification, error)
	MarkRead(ctx context.Context, id int, userID int) error
	DeleteNotification(ctx context.Context, id int) error
	ListForDepartment(ctx context.Context, department *string) ([]models.Notification, error)
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// CreateNotification persists a notification.
func (r *NotificationRepo) CreateNotification(ctx context.Context, n models.NewNotification) (models.Notification, error) {
	var id int
	if err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications (type, content, posted_by_id, target_department_name) VALUES ($1, $2, $3, $4) RETURNING id`,
		n.Type, n.Content, n.PostedByID, n.TargetDepartment).Scan(&id); err != nil {
		return models.Notification{}, err
	}
	return getNotification(ctx, r.db, id)
}

// GetNotification fetches a notification by id.
func (r *NotificationRepo) GetNotification(ctx context.Context, id int) (models.Notification, error) {
	return getNotification(ctx, r.db, id)
}

// ToggleReaction adds or removes userID under emoji with the row locked.
func (r *NotificationRepo) ToggleReaction(ctx context.Context, id int, emoji string, userID int) (models.Notification, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Notification{}, err
	}
	defer tx.Rollback()

	var reactions models.Reactions
	if err := tx.GetContext(ctx, &reactions, `SELECT reactions FROM notifications WHERE id=$1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Notification{}, ErrNotificationNotFound
		}
		return models.Notification{}, err
	}
	reactions.Toggle(emoji, userID)

	if _, err := tx.ExecContext(ctx, `UPDATE notifications SET reactions=$2 WHERE id=$1`, id, reactions); err != nil {
		return models.Notification{}, err
	}

	n, err := getNotification(ctx, tx, id)
	if err != nil {
		return models.Notification{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// MarkRead records that userID has read the notification. Marking twice is a no-op.
func (r *NotificationRepo) MarkRead(ctx context.Context, id int, userID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var readBy models.UserIDSet
	if err := tx.GetContext(ctx, &readBy, `SELECT read_by FROM notifications WHERE id=$1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotificationNotFound
		}
		return err
	}
	if !readBy.Add(userID) {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE notifications SET read_by=$2 WHERE id=$1`, id, readBy); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNotification removes a notification permanently.
func (r *NotificationRepo) DeleteNotification(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrNotificationNotFound)
}

// ListForDepartment returns portal-wide notifications plus those targeting
// department, newest first.
func (r *NotificationRepo) ListForDepartment(ctx context.Context, department *string) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, notificationSelect+`
        WHERE n.target_department_name IS NULL OR n.target_department_name = $1
        ORDER BY n.created_at DESC, n.id DESC`, department)
	return list, err
}

func getNotification(ctx context.Context, q sqlx.QueryerContext, id int) (models.Notification, error) {
	var n models.Notification
	err := sqlx.GetContext(ctx, q, &n, notificationSelect+` WHERE n.id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, ErrNotificationNotFound
	}
	return n, err
}
