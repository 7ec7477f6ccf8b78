// Package engine executes realtime chat events: it authorizes each event,
// commits its effect and fans the result out to room members.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"portal-service/internal/ai"
	"portal-service/internal/apperr"
	"portal-service/internal/models"
	"portal-service/internal/push"
	"portal-service/internal/repositories"
)

// Fanout is the connection registry the engine delivers through.
type Fanout interface {
	Join(connID string, roomID int) error
	Leave(connID string, roomID int)
	JoinedRooms(connID string) []int
	SendTo(connID, event string, data any)
	BroadcastToRoom(roomID int, event string, data any)
	BroadcastToRoomExcept(roomID int, exceptConnID, event string, data any)
}

// ActivityLogger records user activity. Implementations must not fail the caller.
type ActivityLogger interface {
	LogActivity(ctx context.Context, actorID *int, action, targetType string, targetID int)
}

// Deps wires an Engine.
type Deps struct {
	Rooms    repositories.RoomRepository
	Messages repositories.MessageRepository
	Users    repositories.UserRepository
	Fanout   Fanout
	AI       ai.Completer
	Push     push.Notifier
	Activity ActivityLogger
	// AIReplyFirst stores and broadcasts the AI reply before the message that
	// triggered it.
	AIReplyFirst bool
}

type Engine struct {
	rooms        repositories.RoomRepository
	messages     repositories.MessageRepository
	users        repositories.UserRepository
	fanout       Fanout
	ai           ai.Completer
	push         push.Notifier
	activity     ActivityLogger
	aiReplyFirst bool
}

func New(d Deps) *Engine {
	return &Engine{
		rooms:        d.Rooms,
		messages:     d.Messages,
		users:        d.Users,
		fanout:       d.Fanout,
		ai:           d.AI,
		push:         d.Push,
		activity:     d.Activity,
		aiReplyFirst: d.AIReplyFirst,
	}
}

// Dispatch runs one client event. Failures are reported to the requesting
// connection only.
func (e *Engine) Dispatch(ctx context.Context, connID string, user models.User, frame models.InboundFrame) {
	ctx, span := otel.Tracer("portal-service/engine").Start(ctx, "ws."+frame.Event)
	defer span.End()
	span.SetAttributes(
		attribute.String("ws.conn_id", connID),
		attribute.Int("user.id", user.ID),
	)

	err := e.dispatch(ctx, connID, user, frame)
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, apperr.KindOf(err).String())
	if kind := apperr.KindOf(err); kind == apperr.KindPersistence || kind == apperr.KindUnknown {
		log.Printf("ws event failed event=%s user_id=%d conn_id=%s: %v", frame.Event, user.ID, connID, err)
	}
	e.fanout.SendTo(connID, models.EventError, models.ErrorPayload{Message: apperr.PublicMessage(err)})
}

func (e *Engine) dispatch(ctx context.Context, connID string, user models.User, frame models.InboundFrame) error {
	switch frame.Event {
	case models.EventJoinRoom:
		var req models.RoomRequest
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		return e.Join(ctx, connID, user, req)
	case models.EventLeaveRoom:
		var req models.RoomRequest
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		e.Leave(connID, req)
		return nil
	case models.EventSendMessage:
		var req models.SendMessageRequest
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		return e.Send(ctx, user, req)
	case models.EventEditMessage:
		var req models.EditMessageRequest
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		return e.Edit(ctx, user, req)
	case models.EventDeleteMessage:
		var req models.MessageRequest
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		return e.Delete(ctx, user, req)
	case models.EventReactToMessage:
		var req models.ReactRequest
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		return e.React(ctx, user, req)
	case models.EventTyping:
		var req models.RoomRequest
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		return e.Typing(connID, user, req)
	default:
		return apperr.Validation("Unknown event")
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return apperr.Validation("Missing event payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Validation("Invalid event payload")
	}
	return nil
}

// storeError converts repository failures into the error taxonomy.
func storeError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrRoomNotFound):
		return apperr.NotFound("Room not found")
	case errors.Is(err, repositories.ErrMessageNotFound):
		return apperr.NotFound("Message not found")
	default:
		return apperr.Persistence(err)
	}
}
