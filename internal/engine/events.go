package engine

import (
	"context"
	"slices"
	"strings"
	"time"

	"portal-service/internal/ai"
	"portal-service/internal/apperr"
	"portal-service/internal/models"
	"portal-service/internal/policy"
)

// Join adds the connection to a room the user may view.
func (e *Engine) Join(ctx context.Context, connID string, user models.User, req models.RoomRequest) error {
	room, err := e.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return storeError(err)
	}
	if d := policy.CanViewRoom(user, room); !d.Allowed {
		return apperr.Forbidden(d.Reason)
	}
	if err := e.fanout.Join(connID, room.ID); err != nil {
		return err
	}
	e.fanout.SendTo(connID, models.EventJoinedRoom, models.JoinedRoomPayload{RoomID: room.ID, RoomName: room.Name})
	return nil
}

// Leave removes the connection from a room. Leaving a room that was never
// joined still acknowledges.
func (e *Engine) Leave(connID string, req models.RoomRequest) {
	e.fanout.Leave(connID, req.RoomID)
	e.fanout.SendTo(connID, models.EventLeftRoom, models.LeftRoomPayload{RoomID: req.RoomID})
}

// Send stores a message, and the AI reply when the text addresses the AI,
// then broadcasts both to the room.
func (e *Engine) Send(ctx context.Context, user models.User, req models.SendMessageRequest) error {
	text := strings.TrimSpace(req.Text)
	hasImage := req.ImageFilename != nil && *req.ImageFilename != ""
	if text == "" && !hasImage {
		return apperr.Validation("Message text or image required")
	}

	room, err := e.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return storeError(err)
	}
	if d := policy.CanViewRoom(user, room); !d.Allowed {
		return apperr.Forbidden(d.Reason)
	}

	if req.ReplyTo != nil {
		target, err := e.messages.GetMessage(ctx, *req.ReplyTo)
		if err != nil {
			if apperr.KindOf(storeError(err)) == apperr.KindNotFound {
				return apperr.Validation("Reply target not found")
			}
			return storeError(err)
		}
		if target.RoomID != room.ID {
			return apperr.Validation("Reply target is in another room")
		}
	}

	var expiresAt *time.Time
	if req.ImageExpiresAt != nil && *req.ImageExpiresAt != "" {
		t, err := parseTimestamp(*req.ImageExpiresAt)
		if err != nil {
			return apperr.Validation("Invalid image expiry")
		}
		expiresAt = &t
	}

	senderID := user.ID
	userMsg := models.NewMessage{
		SenderID:       &senderID,
		RoomID:         room.ID,
		Text:           text,
		Formatting:     req.Formatting,
		ImageFilename:  req.ImageFilename,
		ImageExpiresAt: expiresAt,
		ReplyTo:        req.ReplyTo,
	}

	batch := []models.NewMessage{userMsg}
	if ai.Triggered(text) {
		reply, err := e.aiReply(ctx, user, room, text)
		if err != nil {
			return err
		}
		if e.aiReplyFirst {
			batch = []models.NewMessage{reply, userMsg}
		} else {
			batch = append(batch, reply)
		}
	}

	created, err := e.messages.CreateMessages(ctx, batch...)
	if err != nil {
		return storeError(err)
	}

	var sent models.Message
	for _, msg := range created {
		e.fanout.BroadcastToRoom(room.ID, models.EventNewMessage, msg)
		if !msg.AIAuthored() {
			sent = msg
		}
	}

	if e.activity != nil {
		e.activity.LogActivity(ctx, &senderID, "message_sent", "message", sent.ID)
	}
	e.notifyMentions(ctx, user, text)
	return nil
}

func (e *Engine) aiReply(ctx context.Context, user models.User, room models.Room, text string) (models.NewMessage, error) {
	history, err := e.messages.ListRecentMessages(ctx, room.ID, ai.ContextSize, 0)
	if err != nil {
		return models.NewMessage{}, storeError(err)
	}
	rc := ai.RoomContext{
		RoomName:   room.Name,
		Username:   user.Username,
		Department: user.DepartmentName(),
		History:    history,
	}
	reply := e.ai.Complete(ctx, rc, ai.StripTrigger(text))
	return models.NewMessage{RoomID: room.ID, Text: reply}, nil
}

// Edit replaces the text of a live message.
func (e *Engine) Edit(ctx context.Context, user models.User, req models.EditMessageRequest) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return apperr.Validation("Message text required")
	}
	if _, err := e.mutableMessage(ctx, user, req.MessageID); err != nil {
		return err
	}

	updated, err := e.messages.UpdateMessageText(ctx, req.MessageID, text)
	if err != nil {
		return storeError(err)
	}
	e.fanout.BroadcastToRoom(updated.RoomID, models.EventMessageEdited, updated)
	return nil
}

// Delete tombstones a live message.
func (e *Engine) Delete(ctx context.Context, user models.User, req models.MessageRequest) error {
	msg, err := e.mutableMessage(ctx, user, req.MessageID)
	if err != nil {
		return err
	}
	if err := e.messages.SoftDeleteMessage(ctx, msg.ID); err != nil {
		return storeError(err)
	}
	e.fanout.BroadcastToRoom(msg.RoomID, models.EventMessageDeleted, models.MessageDeletedPayload{MessageID: msg.ID})
	return nil
}

// React toggles the user's emoji reaction on a live message.
func (e *Engine) React(ctx context.Context, user models.User, req models.ReactRequest) error {
	if req.Emoji == "" {
		return apperr.Validation("Emoji required")
	}
	msg, err := e.liveMessage(ctx, req.MessageID)
	if err != nil {
		return err
	}

	updated, err := e.messages.ToggleReaction(ctx, msg.ID, req.Emoji, user.ID)
	if err != nil {
		return storeError(err)
	}
	e.fanout.BroadcastToRoom(updated.RoomID, models.EventMessageReactionUpdated, models.ReactionUpdatedPayload{
		MessageID: updated.ID,
		Reactions: updated.Reactions,
	})
	return nil
}

// Typing relays a typing indicator to the rest of the room.
func (e *Engine) Typing(connID string, user models.User, req models.RoomRequest) error {
	if req.RoomID == 0 {
		return apperr.Validation("Room id required")
	}
	if !slices.Contains(e.fanout.JoinedRooms(connID), req.RoomID) {
		return apperr.Forbidden("Join the room first")
	}
	e.fanout.BroadcastToRoomExcept(req.RoomID, connID, models.EventUserTyping, models.UserTypingPayload{
		Username: user.Username,
		RoomID:   req.RoomID,
	})
	return nil
}

func (e *Engine) liveMessage(ctx context.Context, messageID int) (models.Message, error) {
	msg, err := e.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, storeError(err)
	}
	if msg.Deleted() {
		return models.Message{}, apperr.NotFound("Message not found")
	}
	return msg, nil
}

func (e *Engine) mutableMessage(ctx context.Context, user models.User, messageID int) (models.Message, error) {
	msg, err := e.liveMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if d := policy.CanMutateMessage(user, msg); !d.Allowed {
		return models.Message{}, apperr.Forbidden(d.Reason)
	}
	return msg, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 and the offset-less ISO form browsers and
// Python clients send; offset-less values are read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
