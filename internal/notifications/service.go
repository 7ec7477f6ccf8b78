// Package notifications publishes portal and department announcements and
// fans them out to connected clients and push subscribers.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"portal-service/internal/apperr"
	"portal-service/internal/models"
	"portal-service/internal/policy"
	"portal-service/internal/push"
	"portal-service/internal/repositories"
)

// Broadcaster delivers an event to every connected client.
type Broadcaster interface {
	BroadcastGlobal(event string, data any)
}

type ActivityLogger interface {
	LogActivity(ctx context.Context, actorID *int, action, targetType string, targetID int)
}

type Service struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	broadcaster   Broadcaster
	push          push.Notifier
	activity      ActivityLogger
}

func NewService(
	notifications repositories.NotificationRepository,
	users repositories.UserRepository,
	broadcaster Broadcaster,
	pusher push.Notifier,
	activity ActivityLogger,
) *Service {
	return &Service{
		notifications: notifications,
		users:         users,
		broadcaster:   broadcaster,
		push:          pusher,
		activity:      activity,
	}
}

// PostRequest is the body of a post request.
type PostRequest struct {
	Type          models.NotificationType `json:"type"`
	Content       string                  `json:"content"`
	PostGenerally bool                    `json:"post_generally"`
}

// Post stores a notification, pushes it to its audience and broadcasts it.
// Department governors address their own department unless they post generally.
func (s *Service) Post(ctx context.Context, user models.User, req PostRequest) (models.Notification, error) {
	if d := policy.CanPostNotification(user); !d.Allowed {
		return models.Notification{}, apperr.Forbidden(d.Reason)
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return models.Notification{}, apperr.Validation("Content required")
	}
	typ := req.Type
	if typ == "" {
		typ = models.NotificationRegular
	}
	if !typ.Valid() {
		return models.Notification{}, apperr.Validation("Invalid notification type")
	}

	var target *string
	if user.Role == models.RoleDepartmentGovernor && !req.PostGenerally {
		target = user.Department
	}

	n, err := s.notifications.CreateNotification(ctx, models.NewNotification{
		Type:             typ,
		Content:          content,
		PostedByID:       user.ID,
		TargetDepartment: target,
	})
	if err != nil {
		return models.Notification{}, apperr.Persistence(err)
	}

	actor := user.ID
	s.logActivity(ctx, &actor, "notification_posted", n.ID)
	s.pushAudience(ctx, user, n)
	s.broadcaster.BroadcastGlobal(models.EventNewNotification, n)
	return n, nil
}

func (s *Service) pushAudience(ctx context.Context, poster models.User, n models.Notification) {
	if s.push == nil {
		return
	}
	audience, err := s.users.ListUsersForTarget(ctx, n.TargetDepartment)
	if err != nil {
		log.Printf("notification audience lookup failed notification_id=%d: %v", n.ID, err)
		return
	}

	title := fmt.Sprintf("New %s notification", n.Type)
	body := push.Preview(n.Content)
	for _, u := range audience {
		if u.ID == poster.ID {
			continue
		}
		if err := s.push.Notify(ctx, u.ID, title, body); err != nil {
			log.Printf("notification push failed user_id=%d notification_id=%d: %v", u.ID, n.ID, err)
		}
	}
}

// React toggles the user's reaction and broadcasts the updated notification.
func (s *Service) React(ctx context.Context, user models.User, id int, emoji string) (models.Notification, error) {
	if emoji == "" {
		return models.Notification{}, apperr.Validation("Emoji required")
	}
	n, err := s.notifications.ToggleReaction(ctx, id, emoji, user.ID)
	if err != nil {
		return models.Notification{}, storeError(err)
	}
	s.broadcaster.BroadcastGlobal(models.EventNotificationUpdated, n)
	return n, nil
}

// MarkRead records the user as a reader. Repeated calls succeed without change.
func (s *Service) MarkRead(ctx context.Context, user models.User, id int) error {
	if err := s.notifications.MarkRead(ctx, id, user.ID); err != nil {
		return storeError(err)
	}
	return nil
}

// Delete removes a notification the user is allowed to delete.
func (s *Service) Delete(ctx context.Context, user models.User, id int) error {
	n, err := s.notifications.GetNotification(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if d := policy.CanDeleteNotification(user, n); !d.Allowed {
		return apperr.Forbidden(d.Reason)
	}
	if err := s.notifications.DeleteNotification(ctx, id); err != nil {
		return storeError(err)
	}

	actor := user.ID
	s.logActivity(ctx, &actor, "notification_deleted", id)
	s.broadcaster.BroadcastGlobal(models.EventNotificationDeleted, models.NotificationDeletedPayload{ID: id})
	return nil
}

// List returns the notifications addressed to the user, newest first.
func (s *Service) List(ctx context.Context, user models.User) ([]models.Notification, error) {
	list, err := s.notifications.ListForDepartment(ctx, user.Department)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	visible := make([]models.Notification, 0, len(list))
	for _, n := range list {
		if policy.NotificationVisibleTo(user, n) {
			visible = append(visible, n)
		}
	}
	return visible, nil
}

func (s *Service) logActivity(ctx context.Context, actorID *int, action string, id int) {
	if s.activity != nil {
		s.activity.LogActivity(ctx, actorID, action, "notification", id)
	}
}

func storeError(err error) error {
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return apperr.NotFound("Notification not found")
	}
	return apperr.Persistence(err)
}
