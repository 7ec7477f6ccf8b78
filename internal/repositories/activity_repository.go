package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"portal-service/internal/models"
)

// ActivityRepository stores the portal activity log.
type ActivityRepository interface {
	InsertActivity(ctx context.Context, entry models.ActivityEntry) error
}

// ActivityRepo is a sqlx implementation of ActivityRepository.
type ActivityRepo struct {
	db *sqlx.DB
}

// NewActivityRepo constructs an ActivityRepo.
func NewActivityRepo(db *sqlx.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// InsertActivity appends one entry.
func (r *ActivityRepo) InsertActivity(ctx context.Context, entry models.ActivityEntry) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO activity_logs (actor_id, action, target_type, target_id) VALUES ($1, $2, $3, $4)`,
		entry.ActorID, entry.Action, entry.TargetType, entry.TargetID)
	return err
}
