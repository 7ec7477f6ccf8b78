package telemetry

import (
	"context"
	"log"

	"portal-service/internal/models"
	"portal-service/internal/repositories"
)

// ActivityLogger records portal activity in the activity log table and
// mirrors each entry as an audit envelope.
type ActivityLogger struct {
	repo    repositories.ActivityRepository
	emitter *AuditEmitter
}

func NewActivityLogger(repo repositories.ActivityRepository, emitter *AuditEmitter) *ActivityLogger {
	return &ActivityLogger{repo: repo, emitter: emitter}
}

// LogActivity never fails the caller; errors are logged.
func (l *ActivityLogger) LogActivity(ctx context.Context, actorID *int, action, targetType string, targetID int) {
	if l == nil {
		return
	}
	if l.repo != nil {
		entry := models.ActivityEntry{ActorID: actorID, Action: action, TargetType: targetType, TargetID: targetID}
		if err := l.repo.InsertActivity(ctx, entry); err != nil {
			log.Printf("activity log insert failed action=%s target=%s/%d: %v", action, targetType, targetID, err)
		}
	}
	l.emitter.emit(ctx, "", actorID, AuditPayload{
		Level:      "INFO",
		Text:       action,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
	})
}
