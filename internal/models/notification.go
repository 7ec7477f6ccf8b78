package models

import "time"

// NotificationType is the urgency class of a notification.
type NotificationType string

const (
	NotificationUrgent  NotificationType = "urgent"
	NotificationRegular NotificationType = "regular"
	NotificationCruise  NotificationType = "cruise"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	return t == NotificationUrgent || t == NotificationRegular || t == NotificationCruise
}

// Notification is a portal-wide or department-wide announcement.
// A nil TargetDepartment addresses the whole portal.
type Notification struct {
	ID               int              `db:"id" json:"id"`
	Type             NotificationType `db:"type" json:"type"`
	Content          string           `db:"content" json:"content"`
	PostedByID       int              `db:"posted_by_id" json:"posted_by_id"`
	PostedByUsername *string          `db:"posted_by_username" json:"posted_by_username"`
	TargetDepartment *string          `db:"target_department_name" json:"target_department_name"`
	Reactions        Reactions        `db:"reactions" json:"reactions"`
	ReadBy           UserIDSet        `db:"read_by" json:"read_by"`
	CreatedAt        time.Time        `db:"created_at" json:"timestamp"`
}

// NewNotification carries the fields of a notification about to be persisted.
type NewNotification struct {
	Type             NotificationType
	Content          string
	PostedByID       int
	TargetDepartment *string
}

// ActivityEntry is one row of the activity log.
type ActivityEntry struct {
	ID         int       `db:"id" json:"id"`
	ActorID    *int      `db:"actor_id" json:"actor_id"`
	Action     string    `db:"action" json:"action"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   int       `db:"target_id" json:"target_id"`
	CreatedAt  time.Time `db:"created_at" json:"timestamp"`
}
